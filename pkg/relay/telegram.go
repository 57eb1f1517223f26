package relay

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/teslashibe/reachy-brain/internal/httpc"
)

// DefaultTelegramAPI is the Bot API base URL.
const DefaultTelegramAPI = "https://api.telegram.org"

// Roles accepted by the relay.
const (
	RoleUser   = "user"
	RoleRobot  = "reachy"
	RoleSystem = "system"
)

// ErrNoToken is returned when no bot token is configured.
var ErrNoToken = errors.New("relay: no TELEGRAM_BOT_TOKEN set")

// Prefix returns the chat prefix for a role.
func Prefix(role string) string {
	switch role {
	case RoleUser:
		return "🎤 You:"
	case RoleRobot:
		return "🤖 Reachy:"
	case RoleSystem:
		return "⚙️"
	default:
		return role + ":"
	}
}

// Format renders a relayed message.
func Format(role, text string) string {
	return Prefix(role) + " " + text
}

// Telegram sends messages to one chat through the Bot API.
type Telegram struct {
	Token  string
	ChatID string
	API    string

	http *httpc.Client
}

// NewTelegram creates a sender for chatID.
func NewTelegram(token, chatID string) *Telegram {
	return &Telegram{
		Token:  token,
		ChatID: chatID,
		API:    DefaultTelegramAPI,
		http:   httpc.NewWithTimeout(10 * time.Second),
	}
}

type sendResult struct {
	OK          bool   `json:"ok"`
	Description string `json:"description,omitempty"`
}

// Send posts text with Markdown formatting. If Telegram rejects the
// Markdown it is sent again as plain text.
func (t *Telegram) Send(ctx context.Context, text string) error {
	if t.Token == "" {
		return ErrNoToken
	}
	payload := map[string]any{
		"chat_id":              t.ChatID,
		"text":                 text,
		"parse_mode":           "Markdown",
		"disable_notification": true,
	}
	res, err := t.send(ctx, payload)
	if err == nil && res.OK {
		return nil
	}

	delete(payload, "parse_mode")
	res, err = t.send(ctx, payload)
	if err != nil {
		return err
	}
	if !res.OK {
		return fmt.Errorf("relay: telegram rejected message: %s", res.Description)
	}
	return nil
}

func (t *Telegram) send(ctx context.Context, payload map[string]any) (*sendResult, error) {
	url := strings.TrimRight(t.API, "/") + "/bot" + t.Token + "/sendMessage"
	var res sendResult
	if err := t.http.PostJSON(ctx, url, nil, payload, &res); err != nil {
		// Bad Markdown comes back as 400 with ok=false.
		if httpc.StatusCode(err) == 400 {
			return &sendResult{OK: false, Description: err.Error()}, nil
		}
		return nil, fmt.Errorf("relay: telegram: %w", err)
	}
	return &res, nil
}
