package web

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/reachy-brain/pkg/conversation"
	"github.com/teslashibe/reachy-brain/pkg/hub"
	"github.com/teslashibe/reachy-brain/pkg/tools"
)

func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(s.Status())
}

func (s *Server) handleConversation(c *fiber.Ctx) error {
	turns := []conversation.Turn{}
	if s.conv != nil {
		turns = s.conv.Turns()
	}
	if n := c.QueryInt("last", 0); n > 0 && n < len(turns) {
		turns = turns[len(turns)-n:]
	}
	return c.JSON(turns)
}

func (s *Server) handleEvents(c *fiber.Ctx) error {
	return c.JSON(s.Events())
}

func (s *Server) handleListTools(c *fiber.Ctx) error {
	if s.tools == nil {
		return c.JSON([]string{})
	}
	return c.JSON(s.tools.Names())
}

// TriggerToolRequest is the body of POST /api/tools/:name.
type TriggerToolRequest struct {
	Args map[string]any `json:"args"`
}

func (s *Server) handleTriggerTool(c *fiber.Ctx) error {
	if s.tools == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "tools not configured"})
	}
	name := c.Params("name")

	var req TriggerToolRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON body"})
		}
	}
	args := tools.Args(req.Args)
	if args == nil {
		args = tools.Args{}
	}

	res := s.tools.Dispatch(c.UserContext(), tools.Call{ID: "dashboard", Name: name, Args: args})
	s.logger.Info("manual tool", "tool", name, "ok", res.OK())
	if !res.OK() {
		status := fiber.StatusBadGateway
		if errors.Is(res.Err, tools.ErrInvalidToolArgument) || errors.Is(res.Err, tools.ErrUnknownTool) {
			status = fiber.StatusBadRequest
		}
		return c.Status(status).JSON(fiber.Map{"tool": name, "error": res.Err.Error()})
	}
	return c.JSON(fiber.Map{"tool": name, "result": res.Output})
}

// SayRequest is the body of POST /api/say.
type SayRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleSay(c *fiber.Ctx) error {
	if s.say == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "speech not configured"})
	}
	var req SayRequest
	if err := c.BodyParser(&req); err != nil || strings.TrimSpace(req.Text) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "text is required"})
	}
	if err := s.say(c.UserContext(), req.Text); err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"spoken": true})
}

// handleEventsWS streams agent events. The first message is a status snapshot.
func (s *Server) handleEventsWS(c *websocket.Conn) {
	hub.NewClient(s.events, c, s.snapshot()).Run()
}
