package memory

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/teslashibe/reachy-brain/internal/log"
	"github.com/teslashibe/reachy-brain/internal/retry"
)

// Writer persists messages in the background so a slow or failing backend
// never delays the spoken reply. Each batch is tried up to MaxAttempts times
// with backoff min(2^n, 5)s; a batch that still fails is logged and dropped.
type Writer struct {
	mem    Memory
	queue  chan batch
	policy retry.Policy
	logger *slog.Logger

	mu     sync.RWMutex
	closed bool
	done   chan struct{}

	written atomic.Int64
	failed  atomic.Int64
	dropped atomic.Int64
}

type batch struct {
	session Session
	msgs    []Message
}

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithQueueSize sets the queue capacity. Enqueue drops when full.
func WithQueueSize(n int) WriterOption {
	return func(w *Writer) { w.queue = make(chan batch, n) }
}

// WithWriterPolicy overrides the retry policy.
func WithWriterPolicy(p retry.Policy) WriterOption {
	return func(w *Writer) { w.policy = p }
}

// WithWriterLogger sets the logger.
func WithWriterLogger(l *slog.Logger) WriterOption {
	return func(w *Writer) { w.logger = l.With("component", "memory.writer") }
}

// DefaultWriterPolicy is one attempt plus three retries, waiting 2s, 4s, 5s.
func DefaultWriterPolicy() retry.Policy {
	return retry.Policy{
		MaxAttempts: 4,
		Backoff:     retry.Exponential(time.Second, 5*time.Second),
		Clock:       retry.SystemClock{},
	}
}

// NewWriter starts a Writer over mem.
func NewWriter(mem Memory, opts ...WriterOption) *Writer {
	w := &Writer{
		mem:    mem,
		queue:  make(chan batch, 64),
		policy: DefaultWriterPolicy(),
		logger: log.Component("memory.writer"),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	go w.run()
	return w
}

// Enqueue schedules msgs for persistence and returns immediately.
// It reports false if the writer is closed or the queue is full.
func (w *Writer) Enqueue(s Session, msgs ...Message) bool {
	if len(msgs) == 0 {
		return true
	}
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return false
	}
	select {
	case w.queue <- batch{session: s, msgs: msgs}:
		return true
	default:
		w.dropped.Add(1)
		w.logger.Warn("queue full, dropping messages", "user", s.UserID, "count", len(msgs))
		return false
	}
}

// Close stops accepting work and waits for the queue to drain or ctx to end.
func (w *Writer) Close(ctx context.Context) error {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.queue)
	}
	w.mu.Unlock()

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stats returns counts of written, failed and dropped batches.
func (w *Writer) Stats() (written, failed, dropped int64) {
	return w.written.Load(), w.failed.Load(), w.dropped.Load()
}

func (w *Writer) run() {
	defer close(w.done)
	for b := range w.queue {
		w.write(b)
	}
}

func (w *Writer) write(b batch) {
	ctx := context.Background()
	err := retry.Do(ctx, w.policy, func(attempt int) error {
		err := w.mem.Persist(ctx, b.session, b.msgs...)
		if err != nil {
			w.logger.Warn("save failed", "backend", w.mem.Name(), "attempt", attempt, "err", err)
		}
		return err
	})
	if err != nil {
		w.failed.Add(1)
		w.logger.Error("giving up on messages", "user", b.session.UserID, "count", len(b.msgs), "err", err)
		return
	}
	w.written.Add(1)
}
