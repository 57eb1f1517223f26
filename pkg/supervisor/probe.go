package supervisor

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/process"

	"github.com/teslashibe/reachy-brain/internal/httpc"
	"github.com/teslashibe/reachy-brain/pkg/remote"
	"github.com/teslashibe/reachy-brain/pkg/robot"
)

// DefaultProbeTimeout bounds a single health check.
const DefaultProbeTimeout = 2 * time.Second

// Probe checks whether a service is healthy. A nil error means healthy;
// use Classify to tell unhealthy from unreachable.
type Probe interface {
	Check(ctx context.Context) error
}

// ProbeFunc adapts a function to Probe.
type ProbeFunc func(ctx context.Context) error

// Check calls f.
func (f ProbeFunc) Check(ctx context.Context) error { return f(ctx) }

// HTTPProbe passes when GET URL returns 2xx.
type HTTPProbe struct {
	URL     string
	Client  *httpc.Client
	Timeout time.Duration
}

// Check issues the GET.
func (p *HTTPProbe) Check(ctx context.Context) error {
	c := p.Client
	if c == nil {
		c = httpc.New()
	}
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	_, err := c.Call(ctx, httpc.Request{Method: http.MethodGet, URL: p.URL, Timeout: timeout})
	return err
}

// DaemonProbe passes when the robot daemon reports state "running".
type DaemonProbe struct {
	Robot robot.DaemonController
}

// Check reads the daemon status.
func (p *DaemonProbe) Check(ctx context.Context) error {
	st, err := p.Robot.DaemonStatus(ctx)
	if err != nil {
		return err
	}
	if !st.Running() {
		if st.Error != "" {
			return fmt.Errorf("%w: daemon %s: %s", ErrNotRunning, st.State, st.Error)
		}
		return fmt.Errorf("%w: daemon %s", ErrNotRunning, st.State)
	}
	return nil
}

// ProcessProbe passes when a local process command line contains Pattern.
type ProcessProbe struct {
	Pattern string
}

// Check scans the process table.
func (p *ProcessProbe) Check(ctx context.Context) error {
	procs, err := FindProcesses(ctx, p.Pattern)
	if err != nil {
		return err
	}
	if len(procs) == 0 {
		return fmt.Errorf("%w: no process matching %q", ErrNotRunning, p.Pattern)
	}
	return nil
}

// RemoteProcessProbe passes when pgrep -f finds Pattern on the robot.
type RemoteProcessProbe struct {
	Runner  remote.Runner
	Pattern string
}

// Check runs pgrep over the remote session.
func (p *RemoteProcessProbe) Check(ctx context.Context) error {
	_, err := p.Runner.Run(ctx, "pgrep -f "+remote.Quote(selfSafe(p.Pattern)))
	switch {
	case err == nil:
		return nil
	case remote.ExitStatus(err) == 1:
		return fmt.Errorf("%w: no remote process matching %q", ErrNotRunning, p.Pattern)
	case remote.ExitStatus(err) > 1:
		return err
	default:
		return fmt.Errorf("%w: %w", ErrUnreachable, err)
	}
}

// FindProcesses returns local processes, other than this one, whose command
// line contains pattern. Processes that vanish or deny access while being
// inspected are skipped.
func FindProcesses(ctx context.Context, pattern string) ([]*process.Process, error) {
	if pattern == "" {
		return nil, errors.New("supervisor: empty process pattern")
	}
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("supervisor: list processes: %w", err)
	}
	self := int32(os.Getpid())
	var out []*process.Process
	for _, p := range procs {
		if p.Pid == self {
			continue
		}
		cmdline, err := p.CmdlineWithContext(ctx)
		if err != nil || cmdline == "" {
			continue
		}
		if strings.Contains(cmdline, pattern) {
			out = append(out, p)
		}
	}
	return out, nil
}

// selfSafe turns pattern into a regular expression that still matches the
// target but not the shell running pgrep or pkill, whose own command line
// contains the pattern text.
func selfSafe(pattern string) string {
	if pattern == "" {
		return pattern
	}
	first := pattern[:1]
	if strings.ContainsAny(first, `\^$.|?*+()[]{}`) {
		return pattern
	}
	return "[" + first + "]" + pattern[1:]
}
