// Package memory gives the robot long-term memory of the people it talks to.
//
// Memory is the backend interface. Honcho (hosted), Redis and File
// implement it; Noop disables memory. The turn pipeline reads through
// Recall and writes through a Writer so persistence never blocks playback.
//
// Every call is scoped to a Session:
//   - UserID: the recognized speaker, or the default user name
//   - SessionID: "reachy-chat-{user}"
//   - Workspace: the backend namespace (Honcho workspace, Redis key prefix)
package memory

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Roles used in persisted messages.
const (
	RoleUser  = "user"
	RoleRobot = "reachy"
)

// Sentinel errors.
var (
	ErrEmptyFact      = errors.New("memory: empty fact")
	ErrEmptyQuery     = errors.New("memory: empty query")
	ErrNoAPIKey       = errors.New("memory: API key required")
	ErrUnknownBackend = errors.New("memory: unknown backend")
	ErrClosed         = errors.New("memory: writer closed")
)

// Memory is a long-term memory backend.
type Memory interface {
	// Recall returns context about the user relevant to query, formatted
	// for a system message. "" means nothing is known.
	Recall(ctx context.Context, s Session, query string) (string, error)

	// Remember stores a fact about the user.
	Remember(ctx context.Context, s Session, fact string) error

	// Ask answers a natural-language question about the user.
	Ask(ctx context.Context, s Session, question string) (string, error)

	// Persist appends conversation messages to the session.
	Persist(ctx context.Context, s Session, msgs ...Message) error

	// Briefing summarizes what matters about the user, for greetings.
	Briefing(ctx context.Context, s Session) (string, error)

	// Name identifies the backend in logs.
	Name() string

	Close() error
}

// Session scopes memory operations to one speaker.
type Session struct {
	UserID    string
	SessionID string
	Workspace string
}

// NewSession builds the session for user in workspace.
func NewSession(user, workspace string) Session {
	user = strings.TrimSpace(user)
	if user == "" {
		user = "user"
	}
	return Session{
		UserID:    user,
		SessionID: "reachy-chat-" + user,
		Workspace: workspace,
	}
}

// Message is one persisted utterance.
type Message struct {
	Role    string    `json:"role"`
	Content string    `json:"content"`
	At      time.Time `json:"at"`
}

// UserMessage creates a message spoken by the user.
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content, At: time.Now()}
}

// RobotMessage creates a message spoken by the robot.
func RobotMessage(content string) Message {
	return Message{Role: RoleRobot, Content: content, At: time.Now()}
}
