package inference

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/teslashibe/reachy-brain/internal/log"
)

// Chain sends each request to its first provider and moves on to the next
// one only when the failure is about reaching a model: the gateway is
// unreachable, rate limited or answering 5xx. A request the gateway
// rejected (bad tools, bad token) is returned as is, since a backup
// would reject it the same way.
type Chain struct {
	providers []Provider
	logger    *slog.Logger
	answered  atomic.Int32
}

// NewChain creates a chain over providers, primary first. Nil entries are
// skipped so optional backups can be passed unconditionally.
func NewChain(providers ...Provider) (*Chain, error) {
	var ps []Provider
	for _, p := range providers {
		if p != nil {
			ps = append(ps, p)
		}
	}
	if len(ps) == 0 {
		return nil, ErrProviderUnavailable
	}
	c := &Chain{providers: ps, logger: log.Component("inference.chain")}
	c.answered.Store(-1)
	return c, nil
}

// WithLogger sets the logger and returns c.
func (c *Chain) WithLogger(l *slog.Logger) *Chain {
	c.logger = l.With("component", "inference.chain")
	return c
}

// Chat returns the first answer in provider order.
func (c *Chain) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	var errs []error
	for i, p := range c.providers {
		resp, err := p.Chat(ctx, req)
		if err == nil {
			if i > 0 {
				c.logger.Info("answered by backup", "provider", i)
			}
			c.answered.Store(int32(i))
			return resp, nil
		}
		errs = append(errs, err)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if !fallsThrough(err) {
			return nil, err
		}
		if i < len(c.providers)-1 {
			c.logger.Warn("provider failed, trying backup", "provider", i, "err", err)
		}
	}
	return nil, &ChainError{Errors: errs}
}

// Answered returns the index of the provider that produced the last
// answer, or -1 before the first one.
func (c *Chain) Answered() int {
	return int(c.answered.Load())
}

// fallsThrough reports whether err leaves room for another provider.
func fallsThrough(err error) bool {
	if IsUnreachable(err) {
		return true
	}
	var ge *GatewayError
	if errors.As(err, &ge) {
		return ge.IsRetryable()
	}
	return false
}

// Health succeeds when at least one provider is healthy.
func (c *Chain) Health(ctx context.Context) error {
	var errs []error
	for _, p := range c.providers {
		err := p.Health(ctx)
		if err == nil {
			return nil
		}
		errs = append(errs, err)
	}
	return &ChainError{Errors: errs}
}

// Close closes every provider.
func (c *Chain) Close() error {
	var errs []error
	for _, p := range c.providers {
		errs = append(errs, p.Close())
	}
	return errors.Join(errs...)
}

var _ Provider = (*Chain)(nil)
