// Package remote runs commands on the robot and copies files to it over SSH.
//
// The robot ships with password authentication and a host key that changes
// on every reflash, so host keys are not verified.
package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/teslashibe/reachy-brain/internal/log"
)

// DefaultTimeout bounds the TCP connect and SSH handshake.
const DefaultTimeout = 10 * time.Second

// Runner executes a shell command and returns its combined output.
// *Session implements it; supervisor handles depend on it.
type Runner interface {
	Run(ctx context.Context, cmd string) (string, error)
}

// Config addresses an SSH server.
type Config struct {
	Addr     string // host:port
	User     string
	Password string
	Timeout  time.Duration
}

// Validate checks that the address and user are set.
func (c Config) Validate() error {
	if c.Addr == "" {
		return errors.New("remote: address is required")
	}
	if c.User == "" {
		return errors.New("remote: user is required")
	}
	return nil
}

// ExitError reports a command that ran but exited non-zero.
type ExitError struct {
	Cmd    string
	Status int
	Output string
}

func (e *ExitError) Error() string {
	out := strings.TrimSpace(e.Output)
	if out == "" {
		return fmt.Sprintf("remote: %q exited with status %d", e.Cmd, e.Status)
	}
	return fmt.Sprintf("remote: %q exited with status %d: %s", e.Cmd, e.Status, out)
}

// ExitStatus returns the exit status of err when it is an *ExitError,
// or -1 otherwise.
func ExitStatus(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Status
	}
	return -1
}

// Session is an open SSH connection. It is safe for sequential use;
// each Run opens its own SSH channel.
type Session struct {
	client *ssh.Client
	addr   string
	logger *slog.Logger
}

var _ Runner = (*Session)(nil)

// Dial connects and authenticates with a password.
func Dial(ctx context.Context, cfg Config) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	clientCfg := &ssh.ClientConfig{
		User: cfg.User,
		Auth: []ssh.AuthMethod{
			ssh.Password(cfg.Password),
			ssh.KeyboardInteractive(func(_, _ string, questions []string, _ []bool) ([]string, error) {
				answers := make([]string, len(questions))
				for i := range answers {
					answers[i] = cfg.Password
				}
				return answers, nil
			}),
		},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         timeout,
	}

	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	var d net.Dialer
	conn, err := d.DialContext(dialCtx, "tcp", cfg.Addr)
	if err != nil {
		return nil, fmt.Errorf("remote: dial %s: %w", cfg.Addr, err)
	}
	if deadline, ok := dialCtx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	c, chans, reqs, err := ssh.NewClientConn(conn, cfg.Addr, clientCfg)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("remote: handshake %s: %w", cfg.Addr, err)
	}
	_ = conn.SetDeadline(time.Time{})

	logger := log.Component("remote").With("addr", cfg.Addr)
	logger.Debug("connected", "user", cfg.User)
	return &Session{client: ssh.NewClient(c, chans, reqs), addr: cfg.Addr, logger: logger}, nil
}

// Run executes cmd and returns stdout and stderr combined. A non-zero exit
// returns the output together with an *ExitError. When ctx ends first the
// remote process is signalled and ctx.Err() is returned.
func (s *Session) Run(ctx context.Context, cmd string) (string, error) {
	return s.run(ctx, cmd, nil)
}

// Upload writes data to remotePath, creating parent directories, and sets mode.
func (s *Session) Upload(ctx context.Context, data []byte, remotePath string, mode os.FileMode) error {
	cmd := fmt.Sprintf("mkdir -p %s && cat > %s && chmod %o %s",
		Quote(path.Dir(remotePath)), Quote(remotePath), mode.Perm(), Quote(remotePath))
	if _, err := s.run(ctx, cmd, data); err != nil {
		return fmt.Errorf("remote: upload %s: %w", remotePath, err)
	}
	s.logger.Info("uploaded", "path", remotePath, "bytes", len(data))
	return nil
}

func (s *Session) run(ctx context.Context, cmd string, stdin []byte) (string, error) {
	sess, err := s.client.NewSession()
	if err != nil {
		return "", fmt.Errorf("remote: open session: %w", err)
	}
	defer sess.Close()

	var out output
	sess.Stdout = &out
	sess.Stderr = &out
	if stdin != nil {
		sess.Stdin = bytes.NewReader(stdin)
	}

	done := make(chan error, 1)
	go func() { done <- sess.Run(cmd) }()

	select {
	case <-ctx.Done():
		_ = sess.Signal(ssh.SIGKILL)
		return "", ctx.Err()
	case err := <-done:
		s.logger.Debug("ran", "cmd", cmd, "err", err)
		if err == nil {
			return out.String(), nil
		}
		var exitErr *ssh.ExitError
		if errors.As(err, &exitErr) {
			return out.String(), &ExitError{Cmd: cmd, Status: exitErr.ExitStatus(), Output: out.String()}
		}
		return out.String(), fmt.Errorf("remote: run %q: %w", cmd, err)
	}
}

// Addr returns the server address.
func (s *Session) Addr() string { return s.addr }

// Close closes the connection.
func (s *Session) Close() error {
	return s.client.Close()
}

// Quote single-quotes s for a POSIX shell.
func Quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'"'"'`) + "'"
}

// output collects stdout and stderr, which the ssh package copies from
// separate goroutines.
type output struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (o *output) Write(p []byte) (int, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.buf.Write(p)
}

func (o *output) String() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.buf.String()
}
