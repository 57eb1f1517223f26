package remote

import (
	"context"
	"sync"
)

// Mock is a Runner for tests. Commands are recorded in order; RunFunc, when
// set, decides the output.
type Mock struct {
	RunFunc func(ctx context.Context, cmd string) (string, error)

	mu       sync.Mutex
	commands []string
}

var _ Runner = (*Mock)(nil)

// Run records cmd and delegates to RunFunc.
func (m *Mock) Run(ctx context.Context, cmd string) (string, error) {
	m.mu.Lock()
	m.commands = append(m.commands, cmd)
	m.mu.Unlock()
	if m.RunFunc != nil {
		return m.RunFunc(ctx, cmd)
	}
	return "", nil
}

// Commands returns every command run so far.
func (m *Mock) Commands() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.commands))
	copy(out, m.commands)
	return out
}
