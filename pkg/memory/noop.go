package memory

import "context"

// Noop is a Memory that remembers nothing. Used when MEMORY_BACKEND=none.
type Noop struct{}

func (Noop) Name() string { return "none" }

func (Noop) Recall(context.Context, Session, string) (string, error) { return "", nil }

func (Noop) Remember(context.Context, Session, string) error { return nil }

func (Noop) Ask(context.Context, Session, string) (string, error) {
	return "I don't have a memory right now.", nil
}

func (Noop) Persist(context.Context, Session, ...Message) error { return nil }

func (Noop) Briefing(context.Context, Session) (string, error) { return "", nil }

func (Noop) Close() error { return nil }

var _ Memory = Noop{}
