package inference

import (
	"context"
	"sync"
)

// Mock is a scripted Provider. It records every request so tests can
// inspect the prompt and tools the model was given.
type Mock struct {
	ChatFunc   func(ctx context.Context, req *ChatRequest) (*ChatResponse, error)
	HealthFunc func(ctx context.Context) error

	mu       sync.Mutex
	counts   map[string]int
	requests []*ChatRequest
}

var _ Provider = (*Mock)(nil)

// NewMock returns a mock that always answers "Mock response".
func NewMock() *Mock {
	return Replies(&ChatResponse{
		Message:      NewAssistantMessage("Mock response"),
		FinishReason: "stop",
		Usage:        Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
	})
}

// Replies returns a mock that answers with each response in turn and
// repeats the last one once the script runs out.
func Replies(responses ...*ChatResponse) *Mock {
	m := &Mock{}
	m.ChatFunc = func(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
		n := m.CallCount("Chat") - 1
		if n >= len(responses) {
			n = len(responses) - 1
		}
		return responses[n], nil
	}
	return m
}

// WithError returns a mock whose Chat and Health both fail with err.
func WithError(err error) *Mock {
	return &Mock{
		ChatFunc:   func(context.Context, *ChatRequest) (*ChatResponse, error) { return nil, err },
		HealthFunc: func(context.Context) error { return err },
	}
}

func (m *Mock) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	m.mu.Lock()
	m.count("Chat")
	m.requests = append(m.requests, req)
	m.mu.Unlock()
	if m.ChatFunc == nil {
		return nil, WrapError("mock", ErrProviderUnavailable)
	}
	return m.ChatFunc(ctx, req)
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

func (m *Mock) Close() error {
	m.mu.Lock()
	m.count("Close")
	m.mu.Unlock()
	return nil
}

// count must be called with mu held.
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

// Requests returns every ChatRequest received, oldest first.
func (m *Mock) Requests() []*ChatRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*ChatRequest(nil), m.requests...)
}
