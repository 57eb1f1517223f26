// Package retry provides the bounded retry and polling helper shared by
// health checks, the memory writer and the providers.
//
// Waiting goes through a Clock so tests can run without wall-clock sleeps.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrExhausted is returned when every attempt failed.
var ErrExhausted = errors.New("retry: attempts exhausted")

// Clock abstracts time for waits between attempts.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

// SystemClock uses the real time package.
type SystemClock struct{}

// Now returns time.Now.
func (SystemClock) Now() time.Time { return time.Now() }

// Sleep blocks for d or until ctx is done.
func (SystemClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Backoff returns the wait before attempt n (n starts at 1 for the first retry).
type Backoff func(n int) time.Duration

// Fixed waits d between every attempt.
func Fixed(d time.Duration) Backoff {
	return func(int) time.Duration { return d }
}

// Linear waits d*n before retry n.
func Linear(d time.Duration) Backoff {
	return func(n int) time.Duration { return d * time.Duration(n) }
}

// Exponential waits base*2^n, capped at max.
func Exponential(base, max time.Duration) Backoff {
	return func(n int) time.Duration {
		d := base << uint(n)
		if d <= 0 || d > max {
			return max
		}
		return d
	}
}

// Policy bounds a retry loop.
type Policy struct {
	MaxAttempts int
	Backoff     Backoff
	Clock       Clock
}

// NewPolicy returns a policy with a fixed interval on the system clock.
func NewPolicy(attempts int, interval time.Duration) Policy {
	return Policy{MaxAttempts: attempts, Backoff: Fixed(interval), Clock: SystemClock{}}
}

func (p Policy) clock() Clock {
	if p.Clock == nil {
		return SystemClock{}
	}
	return p.Clock
}

func (p Policy) wait(ctx context.Context, n int) error {
	if p.Backoff == nil {
		return ctx.Err()
	}
	return p.clock().Sleep(ctx, p.Backoff(n))
}

// permanent marks an error that must not be retried.
type permanent struct{ err error }

func (p *permanent) Error() string { return p.err.Error() }
func (p *permanent) Unwrap() error { return p.err }

// Permanent wraps err so Do stops immediately and returns err.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanent{err: err}
}

// Do calls fn until it succeeds, returns a Permanent error, the context ends,
// or MaxAttempts is reached. attempt starts at 1.
func Do(ctx context.Context, p Policy, fn func(attempt int) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			if err := p.wait(ctx, attempt-1); err != nil {
				return err
			}
		}
		err := fn(attempt)
		if err == nil {
			return nil
		}
		var perm *permanent
		if errors.As(err, &perm) {
			return perm.err
		}
		lastErr = err
	}
	return fmt.Errorf("%w after %d attempts: %w", ErrExhausted, attempts, lastErr)
}

// Poll calls check until it reports ready. A check error counts as not ready.
// It returns the number of attempts used.
func Poll(ctx context.Context, p Policy, check func(ctx context.Context) (bool, error)) (int, error) {
	used := 0
	err := Do(ctx, p, func(attempt int) error {
		used = attempt
		ok, err := check(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return errNotReady
		}
		return nil
	})
	return used, err
}

var errNotReady = errors.New("not ready")
