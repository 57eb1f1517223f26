package tts

import (
	"context"
	"sync"
)

// Mock is a Provider for tests. By default it returns 16 kHz silence,
// about 20 ms per character, and remembers every text it was asked to speak.
type Mock struct {
	ProviderName   string // defaults to "mock"
	SynthesizeFunc func(ctx context.Context, text string) (*AudioResult, error)
	HealthFunc     func(ctx context.Context) error

	mu     sync.Mutex
	counts map[string]int
	spoken []string
}

var _ Provider = (*Mock)(nil)

func NewMock() *Mock {
	return &Mock{SynthesizeFunc: silence}
}

// WithError returns a mock whose Synthesize and Health fail with err.
func WithError(err error) *Mock {
	return &Mock{
		SynthesizeFunc: func(context.Context, string) (*AudioResult, error) { return nil, err },
		HealthFunc:     func(context.Context) error { return err },
	}
}

func silence(ctx context.Context, text string) (*AudioResult, error) {
	return &AudioResult{
		Audio:     make([]byte, len(text)*640),
		Format:    formatOf(EncodingPCM16),
		Provider:  "mock",
		CharCount: len(text),
		LatencyMs: 1,
	}, nil
}

func (m *Mock) Name() string {
	if m.ProviderName != "" {
		return m.ProviderName
	}
	return "mock"
}

// Synthesize records text and calls SynthesizeFunc. Errors come back as
// a *SynthesisError like the real providers return.
func (m *Mock) Synthesize(ctx context.Context, text string) (*AudioResult, error) {
	m.mu.Lock()
	m.count("Synthesize")
	m.spoken = append(m.spoken, text)
	m.mu.Unlock()
	if m.SynthesizeFunc == nil {
		return nil, WrapError(m.Name(), ErrProviderUnavailable)
	}
	res, err := m.SynthesizeFunc(ctx, text)
	return res, WrapError(m.Name(), err)
}

func (m *Mock) Health(ctx context.Context) error {
	m.mu.Lock()
	m.count("Health")
	m.mu.Unlock()
	if m.HealthFunc == nil {
		return nil
	}
	return m.HealthFunc(ctx)
}

func (m *Mock) Close() error { return nil }

func (m *Mock) count(method string) {
	if m.counts == nil {
		m.counts = map[string]int{}
	}
	m.counts[method]++
}

// CallCount returns how many times method was called.
func (m *Mock) CallCount(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts[method]
}

// Spoken returns every text passed to Synthesize, in order.
func (m *Mock) Spoken() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.spoken...)
}
