// Package conversation tracks who the robot is talking to and what has been
// said so far in the current run.
package conversation

import (
	"strings"
	"sync"
	"time"

	"github.com/teslashibe/reachy-brain/pkg/inference"
	"github.com/teslashibe/reachy-brain/pkg/memory"
)

// DefaultHistory is the number of messages replayed to the model each turn.
const DefaultHistory = 20

// Turn is one completed exchange.
type Turn struct {
	Transcript string    `json:"transcript"`
	Response   string    `json:"response"`
	At         time.Time `json:"at"`
}

// Context is the conversation state for one speaker. It lives for the whole
// run and is safe for concurrent readers such as the dashboard.
type Context struct {
	mu        sync.RWMutex
	userID    string
	workspace string
	turns     []Turn
	limit     int
}

// New creates a Context for user in the memory workspace. An empty user
// falls back to the workspace default name.
func New(user, workspace string) *Context {
	return &Context{
		userID:    normalizeUser(user),
		workspace: workspace,
		limit:     256,
	}
}

func normalizeUser(user string) string {
	user = strings.TrimSpace(user)
	if user == "" {
		return "user"
	}
	return user
}

// UserID returns the current speaker.
func (c *Context) UserID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.userID
}

// SessionID returns the memory session identifier.
func (c *Context) SessionID() string {
	return c.Session().SessionID
}

// Workspace returns the memory workspace.
func (c *Context) Workspace() string {
	return c.workspace
}

// SetUser switches the speaker, for example after face recognition.
// History is kept; only the memory session changes.
func (c *Context) SetUser(user string) {
	c.mu.Lock()
	c.userID = normalizeUser(user)
	c.mu.Unlock()
}

// Session returns the memory session for the current speaker.
func (c *Context) Session() memory.Session {
	return memory.NewSession(c.UserID(), c.workspace)
}

// Append records a completed turn. Older turns beyond the retention limit
// are discarded.
func (c *Context) Append(transcript, response string) Turn {
	t := Turn{Transcript: transcript, Response: response, At: time.Now()}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.turns = append(c.turns, t)
	if over := len(c.turns) - c.limit; over > 0 {
		c.turns = append([]Turn(nil), c.turns[over:]...)
	}
	return t
}

// Turns returns a copy of every retained turn, oldest first.
func (c *Context) Turns() []Turn {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]Turn(nil), c.turns...)
}

// Len returns the number of retained turns.
func (c *Context) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.turns)
}

// Window returns the last n turns.
func (c *Context) Window(n int) []Turn {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if n <= 0 {
		return nil
	}
	if n > len(c.turns) {
		n = len(c.turns)
	}
	return append([]Turn(nil), c.turns[len(c.turns)-n:]...)
}

// History returns up to n chat messages from the most recent turns, in
// order, alternating user and assistant.
func (c *Context) History(n int) []inference.Message {
	if n <= 0 {
		return nil
	}
	turns := c.Window((n + 1) / 2)
	msgs := make([]inference.Message, 0, len(turns)*2)
	for _, t := range turns {
		msgs = append(msgs, inference.NewUserMessage(t.Transcript))
		if t.Response != "" {
			msgs = append(msgs, inference.NewAssistantMessage(t.Response))
		}
	}
	if len(msgs) > n {
		msgs = msgs[len(msgs)-n:]
	}
	return msgs
}

// Reset forgets the history but keeps the speaker.
func (c *Context) Reset() {
	c.mu.Lock()
	c.turns = nil
	c.mu.Unlock()
}
