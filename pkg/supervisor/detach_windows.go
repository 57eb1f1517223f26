//go:build windows

package supervisor

import "os/exec"

func detach(cmd *exec.Cmd) {}
