package remote

import (
	"context"
	"errors"
	"os"
	"sync"
)

// Lazy is a Runner that dials on first use and redials after a connection
// failure. Status checks use it so an offline robot costs one failed dial per
// call instead of an error at startup.
type Lazy struct {
	cfg  Config
	dial func(ctx context.Context, cfg Config) (*Session, error)

	mu   sync.Mutex
	sess *Session
}

var _ Runner = (*Lazy)(nil)

// NewLazy returns a Lazy runner for cfg.
func NewLazy(cfg Config) *Lazy {
	return &Lazy{cfg: cfg, dial: Dial}
}

func (l *Lazy) session(ctx context.Context) (*Session, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.sess != nil {
		return l.sess, nil
	}
	s, err := l.dial(ctx, l.cfg)
	if err != nil {
		return nil, err
	}
	l.sess = s
	return s, nil
}

// drop closes s if it is still the current session.
func (l *Lazy) drop(s *Session) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.sess == s {
		l.sess.Close()
		l.sess = nil
	}
}

// Run dials if needed and runs cmd.
func (l *Lazy) Run(ctx context.Context, cmd string) (string, error) {
	s, err := l.session(ctx)
	if err != nil {
		return "", err
	}
	out, err := s.Run(ctx, cmd)
	if err != nil && !isExit(err) && ctx.Err() == nil {
		l.drop(s)
	}
	return out, err
}

// Upload dials if needed and uploads data.
func (l *Lazy) Upload(ctx context.Context, data []byte, remotePath string, mode os.FileMode) error {
	s, err := l.session(ctx)
	if err != nil {
		return err
	}
	err = s.Upload(ctx, data, remotePath, mode)
	if err != nil && !isExit(err) && ctx.Err() == nil {
		l.drop(s)
	}
	return err
}

// Close closes the current session, if any.
func (l *Lazy) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.sess == nil {
		return nil
	}
	err := l.sess.Close()
	l.sess = nil
	return err
}

func isExit(err error) bool {
	var exitErr *ExitError
	return errors.As(err, &exitErr)
}
