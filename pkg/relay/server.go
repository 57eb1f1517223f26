// Package relay mirrors the conversation to Telegram and proxies Spotify
// playback for the robot. It runs on the operator's machine, where the chat
// credentials and the music player live.
package relay

import (
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/teslashibe/reachy-brain/internal/log"
)

// Default ports.
const (
	DefaultPort        = 18800
	DefaultSpotifyPort = 18801
)

// Server is the relay HTTP server.
type Server struct {
	telegram *Telegram
	spotify  *Spotify
	logger   *slog.Logger
}

// NewServer creates a relay server. Either backend may be nil.
func NewServer(telegram *Telegram, spotify *Spotify, logger *slog.Logger) *Server {
	if logger == nil {
		logger = log.Component("relay")
	}
	return &Server{telegram: telegram, spotify: spotify, logger: logger}
}

// NewApp returns a Fiber app with the relay routes mounted.
func (s *Server) NewApp(name string, spotifyOnly bool) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               name,
		DisableStartupMessage: true,
	})
	app.Get("/health", s.handleHealth)
	if !spotifyOnly {
		s.RegisterTelegramRoutes(app)
	}
	s.RegisterSpotifyRoutes(app.Group("/spotify"))
	return app
}

// RegisterTelegramRoutes mounts POST /telegram.
func (s *Server) RegisterTelegramRoutes(r fiber.Router) {
	r.Post("/telegram", s.handleTelegram)
}

// RegisterSpotifyRoutes mounts the playback routes.
func (s *Server) RegisterSpotifyRoutes(r fiber.Router) {
	r.Post("/play", s.handleSpotifyPlay)
	r.Post("/control", s.handleSpotifyControl)
	r.Get("/status", s.handleSpotifyStatus)
}

// Listen serves app on port.
func Listen(app *fiber.App, port int) error {
	return app.Listen(":" + strconv.Itoa(port))
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	resp := fiber.Map{"status": "ok", "chat_id": "", "has_token": false}
	if s.telegram != nil {
		resp["chat_id"] = s.telegram.ChatID
		resp["has_token"] = s.telegram.Token != ""
	}
	resp["spotify"] = s.spotify != nil
	return c.JSON(resp)
}

// Message is the body of POST /telegram.
type Message struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

func (s *Server) handleTelegram(c *fiber.Ctx) error {
	var msg Message
	if err := c.BodyParser(&msg); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"ok": false, "error": err.Error()})
	}
	if strings.TrimSpace(msg.Text) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"ok": false, "error": "empty text"})
	}
	if s.telegram == nil {
		return c.JSON(fiber.Map{"ok": false, "error": ErrNoToken.Error()})
	}

	text := Format(msg.Role, msg.Text)
	if err := s.telegram.Send(c.UserContext(), text); err != nil {
		s.logger.Warn("telegram send failed", "role", msg.Role, "err", err)
		return c.JSON(fiber.Map{"ok": false, "error": err.Error()})
	}
	return c.JSON(fiber.Map{"ok": true, "sent": text})
}

// PlayRequest is the body of POST /spotify/play.
type PlayRequest struct {
	Query string `json:"query"`
	Type  string `json:"type"`
}

// ControlRequest is the body of POST /spotify/control.
type ControlRequest struct {
	Action string `json:"action"`
	Value  *int   `json:"value,omitempty"`
}

func (s *Server) handleSpotifyPlay(c *fiber.Ctx) error {
	if s.spotify == nil {
		return spotifyUnavailable(c)
	}
	var req PlayRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	out, err := s.spotify.Play(c.UserContext(), req.Query, req.Type)
	if err != nil {
		s.logger.Warn("spotify play failed", "query", req.Query, "err", err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"status": "playing", "query": req.Query, "output": out})
}

func (s *Server) handleSpotifyControl(c *fiber.Ctx) error {
	if s.spotify == nil {
		return spotifyUnavailable(c)
	}
	var req ControlRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	out, err := s.spotify.Control(c.UserContext(), req.Action, req.Value)
	if err != nil {
		status := fiber.StatusBadGateway
		if errors.Is(err, ErrInvalidAction) {
			status = fiber.StatusBadRequest
		}
		return c.Status(status).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"status": "ok", "action": req.Action, "output": out})
}

func (s *Server) handleSpotifyStatus(c *fiber.Ctx) error {
	if s.spotify == nil {
		return spotifyUnavailable(c)
	}
	status, err := s.spotify.Status(c.UserContext())
	if err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(status)
}

func spotifyUnavailable(c *fiber.Ctx) error {
	return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "spotify not configured"})
}
