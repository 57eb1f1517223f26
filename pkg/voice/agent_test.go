package voice

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/teslashibe/reachy-brain/internal/httpc"
	"github.com/teslashibe/reachy-brain/internal/retry"
	"github.com/teslashibe/reachy-brain/pkg/inference"
	"github.com/teslashibe/reachy-brain/pkg/vad"
)

// scriptedSource returns each window in turn, then cancels the run.
type scriptedSource struct {
	windows [][]int16
	errs    []error
	cancel  context.CancelFunc
	calls   int
}

func (s *scriptedSource) Listen(ctx context.Context, d time.Duration) ([]int16, error) {
	i := s.calls
	s.calls++
	if i < len(s.errs) && s.errs[i] != nil {
		return nil, s.errs[i]
	}
	if i >= len(s.windows) {
		s.cancel()
		return nil, ctx.Err()
	}
	return s.windows[i], nil
}

type recordingSink struct {
	mu     sync.Mutex
	events []Event
}

func (r *recordingSink) Publish(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recordingSink) ofType(t EventType) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Event
	for _, ev := range r.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

type recordingNotifier struct {
	msgs []string
}

func (n *recordingNotifier) Notify(ctx context.Context, role, text string) error {
	n.msgs = append(n.msgs, role+": "+text)
	return nil
}

// speechWindow is loud for speech then silent for the rest of the window.
func speechWindow(speech, total time.Duration) []int16 {
	samples := make([]int16, int(total*16000/time.Second))
	loud := int(speech * 16000 / time.Second)
	for i := 0; i < loud && i < len(samples); i++ {
		samples[i] = 8000
	}
	return samples
}

func newSegmenter(t *testing.T) *vad.Segmenter {
	t.Helper()
	seg, err := vad.New(vad.DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	return seg
}

func TestAgentRunsOneTurnPerUtterance(t *testing.T) {
	h := newHarness()
	h.llm = inference.Replies(reply("Hello Ana."))
	p := h.pipeline(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	source := &scriptedSource{
		windows: [][]int16{
			speechWindow(0, time.Second),
			speechWindow(time.Second, 2*time.Second),
		},
		cancel: cancel,
	}
	sink := &recordingSink{}
	notifier := &recordingNotifier{}
	cfg := DefaultAgentConfig()
	cfg.Greet = false

	agent := NewAgent(p, source, newSegmenter(t),
		WithAgentConfig(cfg),
		WithEventSink(sink),
		WithNotifier(notifier),
		WithClock(retry.NewFakeClock(time.Unix(0, 0))),
	)
	if err := agent.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if h.stt.CallCount() != 1 {
		t.Errorf("transcriptions = %d, want 1", h.stt.CallCount())
	}
	turns := sink.ofType(EventTurn)
	if len(turns) != 1 {
		t.Fatalf("turn events = %d, want 1", len(turns))
	}
	if turns[0].Transcript != "what is my favorite music" || turns[0].Response != "Hello Ana." {
		t.Errorf("turn event = %+v", turns[0])
	}
	if len(sink.ofType(EventListening)) != 3 {
		t.Errorf("listening events = %d, want 3", len(sink.ofType(EventListening)))
	}
	want := []string{"user: what is my favorite music", "reachy: Hello Ana."}
	if len(notifier.msgs) != 2 || notifier.msgs[0] != want[0] || notifier.msgs[1] != want[1] {
		t.Errorf("notified = %v, want %v", notifier.msgs, want)
	}
	if h.player.count() != 1 {
		t.Errorf("plays = %d, want 1", h.player.count())
	}
}

func TestAgentGreets(t *testing.T) {
	h := newHarness()
	h.llm = inference.Replies(reply("Hi there!"))
	p := h.pipeline(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sink := &recordingSink{}
	agent := NewAgent(p, &scriptedSource{cancel: cancel}, newSegmenter(t), WithEventSink(sink))

	if err := agent.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
	greetings := sink.ofType(EventGreeting)
	if len(greetings) != 1 || greetings[0].Response != "Hi there!" {
		t.Errorf("greetings = %+v", greetings)
	}
	if h.memory.CallCount("Briefing") != 1 {
		t.Errorf("briefing calls = %d", h.memory.CallCount("Briefing"))
	}
}

func TestAgentBacksOffOnListenErrors(t *testing.T) {
	timedOut := fmt.Errorf("bridge: listen: %w",
		&httpc.UnreachableError{Method: "POST", URL: "http://bridge/listen", Err: context.DeadlineExceeded})

	tests := []struct {
		name string
		err  error
	}{
		{"unreachable", errors.New("bridge unreachable")},
		{"listen timed out", timedOut},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness()
			p := h.pipeline(t)

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			clock := retry.NewFakeClock(time.Unix(0, 0))
			source := &scriptedSource{
				windows: [][]int16{nil, nil},
				errs:    []error{tt.err, tt.err},
				cancel:  cancel,
			}
			sink := &recordingSink{}
			cfg := DefaultAgentConfig()
			cfg.Greet = false

			agent := NewAgent(p, source, newSegmenter(t), WithAgentConfig(cfg), WithEventSink(sink), WithClock(clock))
			if err := agent.Run(ctx); err != nil {
				t.Fatalf("Run: %v", err)
			}
			if got := len(sink.ofType(EventError)); got != 2 {
				t.Errorf("error events = %d, want 2", got)
			}
			if sleeps := clock.Sleeps(); len(sleeps) != 2 || sleeps[0] != time.Second {
				t.Errorf("sleeps = %v", sleeps)
			}
		})
	}
}
