package voice

import (
	"context"
	"log/slog"
	"time"

	"github.com/teslashibe/reachy-brain/internal/log"
	"github.com/teslashibe/reachy-brain/internal/retry"
	"github.com/teslashibe/reachy-brain/pkg/audio"
	"github.com/teslashibe/reachy-brain/pkg/relay"
	"github.com/teslashibe/reachy-brain/pkg/vad"
)

// AudioSource records a window of microphone audio as 16 kHz mono samples.
// *bridge.Client implements it.
type AudioSource interface {
	Listen(ctx context.Context, d time.Duration) ([]int16, error)
}

// Notifier mirrors the conversation to the operator. *relay.Client
// implements it.
type Notifier interface {
	Notify(ctx context.Context, role, text string) error
}

// EventType identifies an agent event.
type EventType string

const (
	EventListening EventType = "listening"
	EventGreeting  EventType = "greeting"
	EventTurn      EventType = "turn"
	EventError     EventType = "error"
)

// Event is published to the dashboard.
type Event struct {
	Type       EventType `json:"type"`
	TurnID     string    `json:"turn_id,omitempty"`
	Transcript string    `json:"transcript,omitempty"`
	Response   string    `json:"response,omitempty"`
	Tools      []string  `json:"tools,omitempty"`
	Fallback   bool      `json:"fallback,omitempty"`
	Skipped    string    `json:"skipped,omitempty"`
	Latency    string    `json:"latency,omitempty"`
	Error      string    `json:"error,omitempty"`
	At         time.Time `json:"at"`
}

// EventSink receives agent events. Publish must not block.
type EventSink interface {
	Publish(Event)
}

// AgentConfig tunes the listen loop.
type AgentConfig struct {
	// Window is how much audio each Listen call records.
	Window time.Duration

	// Frame is the energy window fed to the segmenter.
	Frame time.Duration

	// ErrorDelay is the pause after a failed Listen.
	ErrorDelay time.Duration

	// Greet speaks a greeting before listening.
	Greet bool
}

// DefaultAgentConfig returns the loop settings used on the robot.
func DefaultAgentConfig() AgentConfig {
	return AgentConfig{
		Window:     3 * time.Second,
		Frame:      100 * time.Millisecond,
		ErrorDelay: time.Second,
		Greet:      true,
	}
}

// AgentOption configures an Agent.
type AgentOption func(*Agent)

// WithAgentConfig sets the loop settings.
func WithAgentConfig(cfg AgentConfig) AgentOption {
	return func(a *Agent) { a.cfg = cfg }
}

// WithEventSink publishes events to sink.
func WithEventSink(sink EventSink) AgentOption {
	return func(a *Agent) { a.sink = sink }
}

// WithNotifier mirrors each exchange to the operator.
func WithNotifier(n Notifier) AgentOption {
	return func(a *Agent) { a.notifier = n }
}

// WithClock sets the clock used for error backoff.
func WithClock(c retry.Clock) AgentOption {
	return func(a *Agent) { a.clock = c }
}

// WithAgentLogger sets the logger.
func WithAgentLogger(l *slog.Logger) AgentOption {
	return func(a *Agent) { a.logger = l }
}

// Agent listens for speech and runs one turn per utterance. The next
// window is not recorded until the current turn, playback included, has
// returned, so the robot never hears itself.
type Agent struct {
	pipeline *Pipeline
	source   AudioSource
	seg      *vad.Segmenter

	cfg      AgentConfig
	sink     EventSink
	notifier Notifier
	clock    retry.Clock
	logger   *slog.Logger
}

// NewAgent creates an Agent.
func NewAgent(p *Pipeline, source AudioSource, seg *vad.Segmenter, opts ...AgentOption) *Agent {
	a := &Agent{
		pipeline: p,
		source:   source,
		seg:      seg,
		cfg:      DefaultAgentConfig(),
		clock:    retry.SystemClock{},
		logger:   log.Component("agent"),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.cfg.Frame <= 0 {
		a.cfg.Frame = 100 * time.Millisecond
	}
	if a.cfg.Window < a.cfg.Frame {
		a.cfg.Window = a.cfg.Frame
	}
	return a
}

// Run greets the user, then loops until ctx is done. It returns nil on
// cancellation.
func (a *Agent) Run(ctx context.Context) error {
	a.logger.Info("agent started",
		"window", a.cfg.Window,
		"threshold", a.seg.Config().Threshold,
		"user", a.pipeline.Conversation().UserID(),
	)

	if a.cfg.Greet {
		res, err := a.pipeline.Greet(ctx)
		if err != nil {
			a.publishError(err)
		} else if res.Response != "" {
			a.publish(Event{Type: EventGreeting, TurnID: res.ID, Response: res.Response})
			a.mirror(ctx, relay.RoleRobot, res.Response)
		}
	}

	for {
		if ctx.Err() != nil {
			a.logger.Info("agent stopped", "turns", a.pipeline.Metrics().Turns())
			return nil
		}
		if err := a.Step(ctx); err != nil {
			// A timed-out Listen is a bridge failure; only our own ctx means shutdown.
			if ctx.Err() != nil {
				continue
			}
			a.logger.Warn("listen failed", "err", err)
			a.publishError(err)
			if err := a.clock.Sleep(ctx, a.cfg.ErrorDelay); err != nil {
				continue
			}
		}
	}
}

// Step records one window and runs a turn for each utterance it completes.
// Only Listen failures are returned; turn failures are logged and published.
func (a *Agent) Step(ctx context.Context) error {
	a.publish(Event{Type: EventListening})
	start := a.clock.Now()
	samples, err := a.source.Listen(ctx, a.cfg.Window)
	if err != nil {
		return err
	}

	for _, f := range vad.Split(samples, a.cfg.Frame, a.seg.Config().SampleRate, start) {
		if u, ok := a.seg.Push(f); ok {
			a.handle(ctx, u)
		}
	}
	return nil
}

func (a *Agent) handle(ctx context.Context, u *audio.Utterance) {
	a.logger.Debug("utterance", "duration", u.Duration(), "energy", u.Energy())
	res, err := a.pipeline.RunTurn(ctx, u)

	ev := Event{
		Type:       EventTurn,
		TurnID:     res.ID,
		Transcript: res.Transcript,
		Response:   res.Response,
		Fallback:   res.Fallback,
		Skipped:    res.Skipped,
		Latency:    res.Metrics.FormatLatency(),
	}
	for _, t := range res.Tools {
		ev.Tools = append(ev.Tools, t.Name)
	}
	if err != nil {
		ev.Error = err.Error()
		a.logger.Warn("turn failed", "turn", res.ID, "err", err)
	}
	a.publish(ev)

	if res.Skipped != "" {
		return
	}
	a.logger.Info("turn complete", "turn", res.ID, "latency", ev.Latency)
	if res.Transcript != "" {
		a.mirror(ctx, relay.RoleUser, res.Transcript)
	}
	if res.Response != "" {
		a.mirror(ctx, relay.RoleRobot, res.Response)
	}
}

func (a *Agent) mirror(ctx context.Context, role, text string) {
	if a.notifier == nil {
		return
	}
	if err := a.notifier.Notify(ctx, role, text); err != nil {
		a.logger.Debug("relay notify failed", "role", role, "err", err)
	}
}

func (a *Agent) publish(ev Event) {
	if a.sink == nil {
		return
	}
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	a.sink.Publish(ev)
}

func (a *Agent) publishError(err error) {
	a.publish(Event{Type: EventError, Error: err.Error()})
}
