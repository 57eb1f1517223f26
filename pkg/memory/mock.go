package memory

import (
	"context"
	"sync"
)

// Mock implements Memory for testing. Nil function fields fall back to
// recording the call and returning zero values.
type Mock struct {
	RecallFunc   func(ctx context.Context, s Session, query string) (string, error)
	RememberFunc func(ctx context.Context, s Session, fact string) error
	AskFunc      func(ctx context.Context, s Session, question string) (string, error)
	PersistFunc  func(ctx context.Context, s Session, msgs ...Message) error
	BriefingFunc func(ctx context.Context, s Session) (string, error)

	mu        sync.Mutex
	calls     []string
	persisted []Message
	facts     []string
}

// NewMock returns an empty mock.
func NewMock() *Mock { return &Mock{} }

func (m *Mock) Name() string { return "mock" }

func (m *Mock) Recall(ctx context.Context, s Session, query string) (string, error) {
	m.record("Recall")
	if m.RecallFunc != nil {
		return m.RecallFunc(ctx, s, query)
	}
	return "", nil
}

func (m *Mock) Remember(ctx context.Context, s Session, fact string) error {
	m.record("Remember")
	if m.RememberFunc != nil {
		return m.RememberFunc(ctx, s, fact)
	}
	m.mu.Lock()
	m.facts = append(m.facts, fact)
	m.mu.Unlock()
	return nil
}

func (m *Mock) Ask(ctx context.Context, s Session, question string) (string, error) {
	m.record("Ask")
	if m.AskFunc != nil {
		return m.AskFunc(ctx, s, question)
	}
	return "", nil
}

func (m *Mock) Persist(ctx context.Context, s Session, msgs ...Message) error {
	m.record("Persist")
	if m.PersistFunc != nil {
		if err := m.PersistFunc(ctx, s, msgs...); err != nil {
			return err
		}
	}
	m.mu.Lock()
	m.persisted = append(m.persisted, msgs...)
	m.mu.Unlock()
	return nil
}

func (m *Mock) Briefing(ctx context.Context, s Session) (string, error) {
	m.record("Briefing")
	if m.BriefingFunc != nil {
		return m.BriefingFunc(ctx, s)
	}
	return "", nil
}

func (m *Mock) Close() error {
	m.record("Close")
	return nil
}

func (m *Mock) record(method string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, method)
}

// CallCount returns how many times method was called.
func (m *Mock) CallCount(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if c == method {
			n++
		}
	}
	return n
}

// Persisted returns every message successfully persisted.
func (m *Mock) Persisted() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Message(nil), m.persisted...)
}

// Facts returns facts stored through the default Remember.
func (m *Mock) Facts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.facts...)
}

var _ Memory = (*Mock)(nil)
