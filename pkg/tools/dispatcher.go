package tools

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/teslashibe/reachy-brain/internal/log"
	"github.com/teslashibe/reachy-brain/pkg/inference"
	"github.com/teslashibe/reachy-brain/pkg/memory"
	"github.com/teslashibe/reachy-brain/pkg/robot"
)

// Animator plays named custom animations.
type Animator interface {
	Animate(ctx context.Context, name string) error
}

// Services reaches the operator-side relay.
type Services interface {
	SpotifyPlay(ctx context.Context, query, kind string) (map[string]any, error)
	SpotifyControl(ctx context.Context, action string, value *int) (map[string]any, error)
	SpotifyStatus(ctx context.Context) (map[string]any, error)
	Notify(ctx context.Context, role, text string) error
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithRobot sets the robot used by motion tools.
func WithRobot(r robot.Mover) Option {
	return func(d *Dispatcher) { d.robot = r }
}

// WithAnimator sets the custom animation player.
func WithAnimator(a Animator) Option {
	return func(d *Dispatcher) { d.animator = a }
}

// WithMemory sets the memory backend and the session it acts on.
func WithMemory(m memory.Memory, session func() memory.Session) Option {
	return func(d *Dispatcher) {
		d.memory = m
		d.session = session
	}
}

// WithServices sets the relay client.
func WithServices(s Services) Option {
	return func(d *Dispatcher) { d.services = s }
}

// WithFeedback overrides the feedback flag of a registered tool.
func WithFeedback(name string, feedback bool) Option {
	return func(d *Dispatcher) { d.feedback[name] = feedback }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) { d.logger = l }
}

// Dispatcher maps tool calls to outbound calls.
type Dispatcher struct {
	robot    robot.Mover
	animator Animator
	memory   memory.Memory
	session  func() memory.Session
	services Services

	tools    map[string]Tool
	feedback map[string]bool
	logger   *slog.Logger
}

// New creates a Dispatcher with the built-in tools registered.
func New(opts ...Option) *Dispatcher {
	d := &Dispatcher{
		tools:    map[string]Tool{},
		feedback: map[string]bool{},
		logger:   log.Component("tools"),
	}
	for _, opt := range opts {
		opt(d)
	}
	for _, t := range d.builtins() {
		if fb, ok := d.feedback[t.Name]; ok {
			t.Feedback = fb
		}
		d.Register(t)
	}
	return d
}

// Register adds or replaces a tool.
func (d *Dispatcher) Register(t Tool) {
	d.tools[t.Name] = t
}

// Tool returns a registered tool.
func (d *Dispatcher) Tool(name string) (Tool, bool) {
	t, ok := d.tools[name]
	return t, ok
}

// Names returns the registered tool names, sorted.
func (d *Dispatcher) Names() []string {
	names := make([]string, 0, len(d.tools))
	for name := range d.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Definitions returns the tool definitions for the model, sorted by name.
func (d *Dispatcher) Definitions() []inference.Tool {
	defs := make([]inference.Tool, 0, len(d.tools))
	for _, name := range d.Names() {
		defs = append(defs, d.tools[name].Definition())
	}
	return defs
}

// Dispatch executes one call. Failures are reported in the Result.
func (d *Dispatcher) Dispatch(ctx context.Context, call Call) Result {
	res := Result{CallID: call.ID, Name: call.Name}
	t, ok := d.tools[call.Name]
	if !ok {
		res.Err = fmt.Errorf("%w: %q", ErrUnknownTool, call.Name)
		res.Output = encode(map[string]string{"error": res.Err.Error()})
		d.logger.Warn("unknown tool", "name", call.Name)
		return res
	}
	res.Feedback = t.Feedback

	args := call.Args
	if args == nil {
		args = Args{}
	}
	start := time.Now()
	out, err := t.Handler(ctx, args)
	elapsed := time.Since(start)
	if err != nil {
		res.Err = err
		res.Output = encode(map[string]string{"error": err.Error()})
		d.logger.Warn("tool failed", "name", call.Name, "args", map[string]any(args), "err", err, "duration", elapsed)
		return res
	}
	res.Output = encode(out)
	d.logger.Info("tool executed", "name", call.Name, "args", map[string]any(args), "duration", elapsed)
	return res
}

// DispatchAll executes calls in order. Each call is independent: a failure
// does not stop the rest.
func (d *Dispatcher) DispatchAll(ctx context.Context, calls []Call) []Result {
	results := make([]Result, 0, len(calls))
	for _, call := range calls {
		results = append(results, d.Dispatch(ctx, call))
	}
	return results
}

// DispatchInference converts and executes model tool calls in order.
func (d *Dispatcher) DispatchInference(ctx context.Context, calls []inference.ToolCall) []Result {
	results := make([]Result, 0, len(calls))
	for _, tc := range calls {
		call, err := FromInference(tc)
		if err != nil {
			results = append(results, Result{
				CallID:   tc.ID,
				Name:     tc.Name,
				Err:      err,
				Output:   encode(map[string]string{"error": err.Error()}),
				Feedback: d.tools[tc.Name].Feedback,
			})
			continue
		}
		results = append(results, d.Dispatch(ctx, call))
	}
	return results
}

func (d *Dispatcher) currentSession() memory.Session {
	if d.session == nil {
		return memory.NewSession("", "")
	}
	return d.session()
}
