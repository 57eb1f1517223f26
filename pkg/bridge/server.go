// Package bridge runs next to the robot daemon and exposes the few endpoints
// the voice agent needs: play a reply, capture a listen window, and trigger
// motion. It also provides the Client the agent uses to reach it.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/teslashibe/reachy-brain/internal/log"
	"github.com/teslashibe/reachy-brain/internal/retry"
	"github.com/teslashibe/reachy-brain/pkg/audio"
	"github.com/teslashibe/reachy-brain/pkg/robot"
)

// Defaults for the bridge server.
const (
	DefaultPort          = 9000
	DefaultRecordingsDir = "/tmp/reachy_mini_recordings"
	DefaultListen        = 5 * time.Second
	MaxListen            = 30 * time.Second
	bodyLimit            = 32 << 20
)

// Config configures a Server.
type Config struct {
	Port          int
	RecordingsDir string
	Clock         retry.Clock
	Logger        *slog.Logger
}

// Option configures a Server.
type Option func(*Config)

// WithPort sets the listen port.
func WithPort(port int) Option {
	return func(c *Config) { c.Port = port }
}

// WithRecordingsDir sets the directory shared with the daemon's audio API.
func WithRecordingsDir(dir string) Option {
	return func(c *Config) { c.RecordingsDir = dir }
}

// WithClock replaces the clock used for playback and listen waits.
func WithClock(clock retry.Clock) Option {
	return func(c *Config) { c.Clock = clock }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

// DefaultConfig returns the default server configuration.
func DefaultConfig() Config {
	return Config{
		Port:          DefaultPort,
		RecordingsDir: DefaultRecordingsDir,
		Clock:         retry.SystemClock{},
		Logger:        log.Component("bridge"),
	}
}

// Server is the bridge HTTP server.
type Server struct {
	app      *fiber.App
	cfg      Config
	robot    robot.Controller
	animator *Animator
	logger   *slog.Logger
}

// NewServer creates a bridge server in front of r.
func NewServer(r robot.Controller, opts ...Option) *Server {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	s := &Server{
		cfg:      cfg,
		robot:    r,
		animator: NewAnimator(r, cfg.Clock),
		logger:   log.Or(cfg.Logger),
	}

	app := fiber.New(fiber.Config{
		AppName:               "Reachy Bridge",
		DisableStartupMessage: true,
		BodyLimit:             bodyLimit,
	})
	s.RegisterRoutes(app)
	s.app = app
	return s
}

// App returns the underlying Fiber app.
func (s *Server) App() *fiber.App { return s.app }

// RegisterRoutes mounts the bridge endpoints on r.
func (s *Server) RegisterRoutes(r fiber.Router) {
	r.Get("/status", s.handleStatus)
	r.Get("/listen", s.handleListen)
	r.Post("/play", s.handlePlay)
	r.Get("/animations", s.handleAnimations)
	r.Post("/animate/:name", s.handleAnimate)
	r.Post("/emotion/:name", s.handleMove(robot.EmotionsDataset))
	r.Post("/dance/:name", s.handleMove(robot.DancesDataset))
	r.Post("/goto", s.handleGoto)
	r.Post("/wake", s.handleSimple("wake", s.robot.WakeUp))
	r.Post("/sleep", s.handleSimple("sleep", s.robot.GotoSleep))
	r.Post("/stop", s.handleSimple("stop", s.robot.StopMove))
}

// Start listens on the configured port. It blocks until Shutdown.
func (s *Server) Start() error {
	if err := os.MkdirAll(s.cfg.RecordingsDir, 0o755); err != nil {
		return fmt.Errorf("bridge: recordings dir: %w", err)
	}
	s.logger.Info("bridge listening", "port", s.cfg.Port, "recordings", s.cfg.RecordingsDir)
	return s.app.Listen(":" + strconv.Itoa(s.cfg.Port))
}

// Shutdown stops the server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

func (s *Server) handleStatus(c *fiber.Ctx) error {
	resp := fiber.Map{
		"bridge":     "reachy-brain",
		"port":       s.cfg.Port,
		"animations": AnimationNames(),
	}
	status, err := s.robot.DaemonStatus(c.UserContext())
	if err != nil {
		resp["daemon"] = fiber.Map{"error": err.Error()}
	} else {
		resp["daemon"] = status
	}
	return c.JSON(resp)
}

// handleListen records for ?duration= seconds and returns a 16 kHz mono WAV.
func (s *Server) handleListen(c *fiber.Ctx) error {
	d := DefaultListen
	if v := c.Query("duration"); v != "" {
		secs, err := strconv.ParseFloat(v, 64)
		if err != nil || secs <= 0 {
			return fail(c, fiber.StatusBadRequest, fmt.Errorf("invalid duration %q", v))
		}
		d = time.Duration(secs * float64(time.Second))
	}
	if d > MaxListen {
		d = MaxListen
	}

	ctx := c.UserContext()
	if err := s.robot.StartRecording(ctx); err != nil {
		return fail(c, fiber.StatusBadGateway, err)
	}
	sleepErr := s.cfg.Clock.Sleep(ctx, d)
	rec, err := s.robot.StopRecording(context.WithoutCancel(ctx))
	if sleepErr != nil {
		return fail(c, fiber.StatusServiceUnavailable, sleepErr)
	}
	if err != nil {
		return fail(c, fiber.StatusBadGateway, err)
	}

	path := filepath.Join(s.cfg.RecordingsDir, filepath.Base(rec.Filename))
	data, err := os.ReadFile(path)
	if err != nil {
		return fail(c, fiber.StatusInternalServerError, err)
	}
	defer os.Remove(path)

	samples, err := audio.DecodeUtteranceWAV(data)
	if err != nil {
		return fail(c, fiber.StatusInternalServerError, err)
	}
	wav, err := audio.EncodeWAV(samples, audio.SampleRate, 1)
	if err != nil {
		return fail(c, fiber.StatusInternalServerError, err)
	}

	peak := audio.Peak(samples)
	s.logger.Debug("listen window", "duration", d, "samples", len(samples), "peak", peak)
	c.Set(fiber.HeaderContentType, "audio/wav")
	c.Set("X-Raw-Peak", strconv.FormatFloat(peak, 'f', 6, 64))
	return c.Send(wav)
}

// handlePlay stores the body in the recordings directory, asks the daemon to
// play it, and returns once playback has finished.
func (s *Server) handlePlay(c *fiber.Ctx) error {
	body := c.Body()
	if len(body) == 0 {
		return fail(c, fiber.StatusBadRequest, errors.New("empty body"))
	}
	rate := c.QueryInt("rate", audio.SampleRate)
	wav, err := audio.ToWAV(body, rate)
	if err != nil {
		return fail(c, fiber.StatusUnsupportedMediaType, err)
	}
	samples, sr, err := audio.DecodeWAV(wav)
	if err != nil {
		return fail(c, fiber.StatusUnsupportedMediaType, err)
	}
	played := (&audio.Utterance{Samples: samples, SampleRate: sr, Channels: 1}).Duration()

	name := "reply-" + uuid.NewString() + ".wav"
	path := filepath.Join(s.cfg.RecordingsDir, name)
	if err := os.WriteFile(path, wav, 0o644); err != nil {
		return fail(c, fiber.StatusInternalServerError, err)
	}
	defer os.Remove(path)

	ctx := c.UserContext()
	if err := s.robot.PlayAudio(ctx, name); err != nil {
		return fail(c, fiber.StatusBadGateway, err)
	}
	if err := s.cfg.Clock.Sleep(ctx, played); err != nil {
		return fail(c, fiber.StatusServiceUnavailable, err)
	}

	s.logger.Info("played reply", "bytes", len(body), "duration", played)
	return c.JSON(fiber.Map{
		"status":       "ok",
		"played_bytes": len(body),
		"duration_ms":  played.Milliseconds(),
	})
}

func (s *Server) handleAnimations(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"animations": AnimationNames()})
}

func (s *Server) handleAnimate(c *fiber.Ctx) error {
	name := c.Params("name")
	if !IsAnimation(name) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":     "unknown animation: " + name,
			"available": AnimationNames(),
		})
	}
	steps, err := s.animator.Play(c.UserContext(), name)
	if err != nil {
		return fail(c, fiber.StatusBadGateway, err)
	}
	return c.JSON(fiber.Map{"status": "ok", "animation": name, "steps": steps})
}

func (s *Server) handleMove(dataset string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		move, err := s.robot.PlayMove(c.UserContext(), dataset, c.Params("name"))
		if err != nil {
			return fail(c, fiber.StatusBadGateway, err)
		}
		return c.JSON(fiber.Map{"status": "ok", "uuid": move.UUID})
	}
}

func (s *Server) handleGoto(c *fiber.Ctx) error {
	var req robot.GotoRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, err)
	}
	if err := s.robot.Goto(c.UserContext(), req); err != nil {
		return fail(c, fiber.StatusBadGateway, err)
	}
	return c.JSON(fiber.Map{"status": "ok"})
}

func (s *Server) handleSimple(action string, fn func(context.Context) error) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := fn(c.UserContext()); err != nil {
			return fail(c, fiber.StatusBadGateway, err)
		}
		return c.JSON(fiber.Map{"status": "ok", "action": action})
	}
}

func fail(c *fiber.Ctx, status int, err error) error {
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}
