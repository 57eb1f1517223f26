// Package web serves the voice agent dashboard: current status, the
// conversation so far, and a live websocket feed of agent events.
package web

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/reachy-brain/internal/log"
	"github.com/teslashibe/reachy-brain/pkg/conversation"
	"github.com/teslashibe/reachy-brain/pkg/hub"
	"github.com/teslashibe/reachy-brain/pkg/tools"
	"github.com/teslashibe/reachy-brain/pkg/voice"
)

// maxEvents bounds the recent event buffer.
const maxEvents = 200

// Status is the dashboard summary returned by /api/status.
type Status struct {
	State          string `json:"state"`
	User           string `json:"user"`
	Session        string `json:"session"`
	Turns          int    `json:"turns"`
	LastTranscript string `json:"last_transcript,omitempty"`
	LastResponse   string `json:"last_response,omitempty"`
	LastError      string `json:"last_error,omitempty"`
	LastLatency    string `json:"last_latency,omitempty"`
	AverageLatency string `json:"average_latency,omitempty"`
	Clients        int    `json:"clients"`
	Uptime         string `json:"uptime"`
}

// ToolRunner runs a tool by name from the dashboard. *tools.Dispatcher
// implements it.
type ToolRunner interface {
	Names() []string
	Dispatch(ctx context.Context, call tools.Call) tools.Result
}

var _ ToolRunner = (*tools.Dispatcher)(nil)

// Option configures a Server.
type Option func(*Server)

// WithConversation shows conv on /api/conversation.
func WithConversation(conv *conversation.Context) Option {
	return func(s *Server) { s.conv = conv }
}

// WithMetrics reports average latency from m.
func WithMetrics(m *voice.MetricsCollector) Option {
	return func(s *Server) { s.metrics = m }
}

// WithTools enables manual tool triggers.
func WithTools(t ToolRunner) Option {
	return func(s *Server) { s.tools = t }
}

// WithSay enables POST /api/say.
func WithSay(say func(ctx context.Context, text string) error) Option {
	return func(s *Server) { s.say = say }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// Server is the web dashboard server. It implements voice.EventSink.
type Server struct {
	app     *fiber.App
	events  *hub.Hub
	conv    *conversation.Context
	metrics *voice.MetricsCollector
	tools   ToolRunner
	say     func(ctx context.Context, text string) error
	logger  *slog.Logger
	started time.Time

	mu     sync.RWMutex
	status Status
	recent []voice.Event
}

var _ voice.EventSink = (*Server)(nil)

// NewServer creates the dashboard.
func NewServer(opts ...Option) *Server {
	s := &Server{
		events:  hub.New("events"),
		logger:  log.Component("web"),
		started: time.Now(),
		status:  Status{State: "starting"},
	}
	for _, opt := range opts {
		opt(s)
	}

	app := fiber.New(fiber.Config{
		AppName:               "Reachy Dashboard",
		DisableStartupMessage: true,
	})
	app.Use(cors.New())

	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Get("/conversation", s.handleConversation)
	api.Get("/events", s.handleEvents)
	api.Get("/tools", s.handleListTools)
	api.Post("/tools/:name", s.handleTriggerTool)
	api.Post("/say", s.handleSay)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/events", websocket.New(s.handleEventsWS))

	s.app = app
	return s
}

// App returns the Fiber app for testing.
func (s *Server) App() *fiber.App {
	return s.app
}

// Run listens on port until ctx is done.
func (s *Server) Run(ctx context.Context, port int) error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return fmt.Errorf("web: listen: %w", err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done. Call it once.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	go s.events.Run(ctx)
	go func() {
		<-ctx.Done()
		s.app.Shutdown()
	}()
	s.logger.Info("dashboard listening", "addr", ln.Addr().String())
	return s.app.Listener(ln)
}

// Publish records ev and broadcasts it to websocket clients. It does not block.
func (s *Server) Publish(ev voice.Event) {
	s.mu.Lock()
	s.status.State = string(ev.Type)
	switch ev.Type {
	case voice.EventTurn:
		if ev.Skipped == "" {
			s.status.LastTranscript = ev.Transcript
			s.status.LastResponse = ev.Response
			s.status.LastLatency = ev.Latency
		}
		s.status.LastError = ev.Error
	case voice.EventGreeting:
		s.status.LastResponse = ev.Response
	case voice.EventError:
		s.status.LastError = ev.Error
	}
	s.recent = append(s.recent, ev)
	if len(s.recent) > maxEvents {
		s.recent = s.recent[len(s.recent)-maxEvents:]
	}
	s.mu.Unlock()

	if err := s.events.BroadcastJSON(ev); err != nil {
		s.logger.Warn("encode event", "err", err)
	}
}

// Status returns the current summary.
func (s *Server) Status() Status {
	s.mu.RLock()
	st := s.status
	s.mu.RUnlock()

	if s.conv != nil {
		st.User = s.conv.UserID()
		st.Session = s.conv.SessionID()
		st.Turns = s.conv.Len()
	}
	if s.metrics != nil && s.metrics.Turns() > 0 {
		avg := s.metrics.Average()
		st.AverageLatency = avg.FormatLatency()
	}
	st.Clients = s.events.ClientCount()
	st.Uptime = time.Since(s.started).Round(time.Second).String()
	return st
}

// Events returns the recent events, oldest first.
func (s *Server) Events() []voice.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]voice.Event(nil), s.recent...)
}

func (s *Server) snapshot() []byte {
	data, err := json.Marshal(fiber.Map{"type": "status", "status": s.Status()})
	if err != nil {
		return nil
	}
	return data
}
