package supervisor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/shirou/gopsutil/v3/process"

	"github.com/teslashibe/reachy-brain/internal/httpc"
	"github.com/teslashibe/reachy-brain/pkg/remote"
	"github.com/teslashibe/reachy-brain/pkg/robot"
)

// Handle launches and terminates one service. Terminate must treat
// "nothing to terminate" as success.
type Handle interface {
	Launch(ctx context.Context) error
	Terminate(ctx context.Context) error
}

// Sleeper is implemented by handles whose stop is a low-power request rather
// than a kill. Stop calls Sleep instead of Terminate for them.
type Sleeper interface {
	Sleep(ctx context.Context) error
}

// LocalHandle runs a background process on this machine.
type LocalHandle struct {
	Command []string
	Dir     string
	Env     []string

	// Pattern matches the command line of running instances.
	Pattern string

	// PIDFile, when set, records the launched PID.
	PIDFile string

	// LogFile receives stdout and stderr. Empty discards output.
	LogFile string
}

// Launch starts the process detached from this one and returns without
// waiting for it.
func (h *LocalHandle) Launch(ctx context.Context) error {
	if len(h.Command) == 0 {
		return errors.New("supervisor: empty command")
	}
	cmd := exec.Command(h.Command[0], h.Command[1:]...)
	cmd.Dir = h.Dir
	cmd.Env = append(os.Environ(), h.Env...)
	detach(cmd)

	var out io.Writer = io.Discard
	if h.LogFile != "" {
		f, err := os.OpenFile(h.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("supervisor: open log: %w", err)
		}
		defer f.Close()
		out = f
	}
	cmd.Stdout = out
	cmd.Stderr = out

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("supervisor: start %s: %w", h.Command[0], err)
	}
	if h.PIDFile != "" {
		if err := os.WriteFile(h.PIDFile, []byte(strconv.Itoa(cmd.Process.Pid)+"\n"), 0o644); err != nil {
			return fmt.Errorf("supervisor: write pid file: %w", err)
		}
	}
	go cmd.Wait()
	return nil
}

// Terminate kills the process named in the PID file and every process
// matching Pattern.
func (h *LocalHandle) Terminate(ctx context.Context) error {
	var errs []error
	if h.PIDFile != "" {
		if err := h.killPIDFile(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if h.Pattern != "" {
		procs, err := FindProcesses(ctx, h.Pattern)
		if err != nil {
			errs = append(errs, err)
		}
		for _, p := range procs {
			if err := killProcess(ctx, p); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

func (h *LocalHandle) killPIDFile(ctx context.Context) error {
	data, err := os.ReadFile(h.PIDFile)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("supervisor: read pid file: %w", err)
	}
	defer os.Remove(h.PIDFile)

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return nil
	}
	p, err := process.NewProcessWithContext(ctx, int32(pid))
	if err != nil {
		return nil
	}
	return killProcess(ctx, p)
}

func killProcess(ctx context.Context, p *process.Process) error {
	if err := p.KillWithContext(ctx); err != nil {
		if ok, _ := process.PidExistsWithContext(ctx, p.Pid); !ok {
			return nil
		}
		return fmt.Errorf("supervisor: kill %d: %w", p.Pid, err)
	}
	return nil
}

// RemoteHandle runs a background process on the robot over SSH.
type RemoteHandle struct {
	Runner  remote.Runner
	Dir     string
	Command string
	Pattern string
	LogFile string
}

// Launch starts Command under nohup and returns once the shell has forked it.
func (h *RemoteHandle) Launch(ctx context.Context) error {
	if h.Command == "" {
		return errors.New("supervisor: empty command")
	}
	logFile := h.LogFile
	if logFile == "" {
		logFile = "/dev/null"
	}
	cmd := fmt.Sprintf("nohup %s > %s 2>&1 < /dev/null &", h.Command, remote.Quote(logFile))
	if h.Dir != "" {
		cmd = "cd " + remote.Quote(h.Dir) + " && " + cmd
	}
	if _, err := h.Runner.Run(ctx, cmd); err != nil {
		return fmt.Errorf("supervisor: remote launch: %w", err)
	}
	return nil
}

// Terminate runs pkill -9 -f. pkill exits 1 when nothing matched, which
// counts as success.
func (h *RemoteHandle) Terminate(ctx context.Context) error {
	if h.Pattern == "" {
		return nil
	}
	_, err := h.Runner.Run(ctx, "pkill -9 -f "+remote.Quote(selfSafe(h.Pattern)))
	if err == nil || remote.ExitStatus(err) == 1 {
		return nil
	}
	return fmt.Errorf("supervisor: remote kill %q: %w", h.Pattern, err)
}

// DaemonHandle starts and stops the robot daemon through its REST API.
type DaemonHandle struct {
	Robot robot.DaemonController
}

// Launch starts the daemon and wakes the robot.
func (h *DaemonHandle) Launch(ctx context.Context) error {
	return h.Robot.StartDaemon(ctx, true)
}

// Terminate stops a running daemon without the sleep animation. An
// unreachable or already stopped daemon has nothing to terminate.
func (h *DaemonHandle) Terminate(ctx context.Context) error {
	st, err := h.Robot.DaemonStatus(ctx)
	if err != nil {
		if httpc.IsUnreachable(err) {
			return nil
		}
		return err
	}
	if !st.Running() {
		return nil
	}
	return h.Robot.StopDaemon(ctx, false)
}

// Sleep puts the robot to sleep and stops the daemon. Like Terminate, an
// unreachable daemon has nothing left to stop.
func (h *DaemonHandle) Sleep(ctx context.Context) error {
	if err := h.Robot.StopDaemon(ctx, true); err != nil && !httpc.IsUnreachable(err) {
		return err
	}
	return nil
}

var (
	_ Handle  = (*LocalHandle)(nil)
	_ Handle  = (*RemoteHandle)(nil)
	_ Handle  = (*DaemonHandle)(nil)
	_ Sleeper = (*DaemonHandle)(nil)
)
