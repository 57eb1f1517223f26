//go:build !windows

package supervisor

import (
	"os/exec"
	"syscall"
)

// detach starts cmd in its own session so it survives the CLI exiting and
// does not receive the terminal's Ctrl+C.
func detach(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
}
