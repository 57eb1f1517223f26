package inference

import (
	"log/slog"
	"time"

	"github.com/teslashibe/reachy-brain/internal/log"
	"github.com/teslashibe/reachy-brain/internal/retry"
)

// Config holds provider configuration.
type Config struct {
	// Connection
	BaseURL string // gateway base URL, e.g. http://localhost:18789/v1
	APIKey  string // bearer token (optional for local gateways)

	Model string

	// Request defaults
	MaxTokens   int
	Temperature float64

	Timeout time.Duration

	// Retry configuration. Only 429/5xx are retried; an unreachable
	// gateway fails fast so the turn can speak its fallback.
	MaxRetries int
	RetryDelay time.Duration
	Clock      retry.Clock

	Logger *slog.Logger
}

// Option is a functional option for configuring providers.
type Option func(*Config)

// WithBaseURL sets the API base URL.
func WithBaseURL(url string) Option {
	return func(c *Config) { c.BaseURL = url }
}

// WithAPIKey sets the bearer token.
func WithAPIKey(key string) Option {
	return func(c *Config) { c.APIKey = key }
}

// WithModel sets the default chat model.
func WithModel(model string) Option {
	return func(c *Config) { c.Model = model }
}

// WithMaxTokens sets the default max tokens.
func WithMaxTokens(n int) Option {
	return func(c *Config) { c.MaxTokens = n }
}

// WithTemperature sets the default temperature.
func WithTemperature(t float64) Option {
	return func(c *Config) { c.Temperature = t }
}

// WithTimeout sets the request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Config) { c.Timeout = d }
}

// WithRetry configures retry behavior.
func WithRetry(maxRetries int, delay time.Duration) Option {
	return func(c *Config) {
		c.MaxRetries = maxRetries
		c.RetryDelay = delay
	}
}

// WithClock sets the clock used between retries.
func WithClock(clock retry.Clock) Option {
	return func(c *Config) { c.Clock = clock }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

// DefaultConfig returns defaults for a local gateway.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:     "http://localhost:18789/v1",
		Model:       "claude-sonnet-4-20250514",
		MaxTokens:   1024,
		Temperature: 0.7,
		Timeout:     60 * time.Second,
		MaxRetries:  1,
		RetryDelay:  500 * time.Millisecond,
		Clock:       retry.SystemClock{},
		Logger:      log.L(),
	}
}

// Apply applies functional options to the config.
func (c *Config) Apply(opts ...Option) {
	for _, opt := range opts {
		opt(c)
	}
}

// Validate checks that required configuration is present.
// The API key is optional for local gateways.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return ErrNoBaseURL
	}
	if c.Model == "" {
		return ErrNoModel
	}
	return nil
}

func (c *Config) retryPolicy() retry.Policy {
	return retry.Policy{
		MaxAttempts: c.MaxRetries + 1,
		Backoff:     retry.Linear(c.RetryDelay),
		Clock:       c.Clock,
	}
}
