package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/teslashibe/reachy-brain/internal/httpc"
	"github.com/teslashibe/reachy-brain/internal/log"
)

// DefaultHonchoURL is the hosted Honcho API.
const DefaultHonchoURL = "https://api.honcho.dev"

// Honcho is a Memory backed by the Honcho v2 REST API.
//
// The robot is the peer "reachy"; each user is a peer named after the user
// and talks to the robot in session "reachy-chat-{user}". Peers and sessions
// are created lazily on first use.
type Honcho struct {
	baseURL   string
	apiKey    string
	workspace string
	http      *httpc.Client
	logger    *slog.Logger

	mu      sync.Mutex
	ensured map[string]bool
}

// HonchoOption configures a Honcho backend.
type HonchoOption func(*Honcho)

// WithHonchoURL overrides the API base URL.
func WithHonchoURL(u string) HonchoOption {
	return func(h *Honcho) { h.baseURL = strings.TrimSuffix(u, "/") }
}

// WithHonchoTimeout sets the per-request timeout.
func WithHonchoTimeout(d time.Duration) HonchoOption {
	return func(h *Honcho) { h.http = httpc.NewWithTimeout(d) }
}

// WithHonchoLogger sets the logger.
func WithHonchoLogger(l *slog.Logger) HonchoOption {
	return func(h *Honcho) { h.logger = l.With("component", "memory.honcho") }
}

// NewHoncho creates a Honcho backend for workspace.
func NewHoncho(apiKey, workspace string, opts ...HonchoOption) (*Honcho, error) {
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}
	if workspace == "" {
		workspace = "reachy-mini"
	}
	h := &Honcho{
		baseURL:   DefaultHonchoURL,
		apiKey:    apiKey,
		workspace: workspace,
		http:      httpc.NewWithTimeout(20 * time.Second),
		logger:    log.Component("memory.honcho"),
		ensured:   make(map[string]bool),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// Name returns "honcho".
func (h *Honcho) Name() string { return "honcho" }

// Recall fetches the session context (user representation, peer card and
// recent messages) as a JSON document.
func (h *Honcho) Recall(ctx context.Context, s Session, query string) (string, error) {
	if err := h.ensureSession(ctx, s); err != nil {
		return "", err
	}
	q := url.Values{}
	q.Set("tokens", "8192")
	q.Set("peer_target", s.UserID)

	var resp sessionContext
	path := fmt.Sprintf("/sessions/%s/context?%s", url.PathEscape(s.SessionID), q.Encode())
	if err := h.http.GetJSON(ctx, h.url(path), h.headers(), &resp); err != nil {
		return "", fmt.Errorf("memory: honcho context: %w", err)
	}
	if resp.empty() {
		return "", nil
	}
	out, err := json.Marshal(map[string]any{
		"user_representation": resp.PeerRepresentation,
		"peer_card":           resp.PeerCard,
		"recent_messages":     resp.Messages,
	})
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// Remember records a conclusion about the user from the robot's perspective.
func (h *Honcho) Remember(ctx context.Context, s Session, fact string) error {
	fact = strings.TrimSpace(fact)
	if fact == "" {
		return ErrEmptyFact
	}
	if err := h.ensurePeer(ctx, s.UserID, map[string]any{"type": "human"}); err != nil {
		return err
	}
	body := map[string]any{
		"conclusions": []map[string]string{{
			"content":     fact,
			"observer_id": s.UserID,
			"observed_id": s.UserID,
		}},
	}
	if err := h.http.PostJSON(ctx, h.url("/conclusions"), h.headers(), body, nil); err != nil {
		return fmt.Errorf("memory: honcho conclusion: %w", err)
	}
	h.logger.Info("created conclusion", "user", s.UserID, "fact", fact)
	return nil
}

// Ask queries the dialectic endpoint about the user.
func (h *Honcho) Ask(ctx context.Context, s Session, question string) (string, error) {
	if strings.TrimSpace(question) == "" {
		return "", ErrEmptyQuery
	}
	query := fmt.Sprintf("Question from user `%s` regarding user %s: %s", RoleRobot, s.UserID, question)
	return h.chat(ctx, s, query, "medium")
}

// Persist appends messages to the session, attributed to the user or robot peer.
func (h *Honcho) Persist(ctx context.Context, s Session, msgs ...Message) error {
	if err := h.ensureSession(ctx, s); err != nil {
		return err
	}
	var batch []map[string]any
	for _, m := range msgs {
		if strings.TrimSpace(m.Content) == "" {
			continue
		}
		peer := s.UserID
		if m.Role == RoleRobot {
			peer = RoleRobot
		}
		batch = append(batch, map[string]any{"peer_id": peer, "content": m.Content})
	}
	if len(batch) == 0 {
		return nil
	}
	path := fmt.Sprintf("/sessions/%s/messages", url.PathEscape(s.SessionID))
	if err := h.http.PostJSON(ctx, h.url(path), h.headers(), map[string]any{"messages": batch}, nil); err != nil {
		return fmt.Errorf("memory: honcho messages: %w", err)
	}
	return nil
}

// Briefing asks the dialectic endpoint for the essentials about the user.
func (h *Honcho) Briefing(ctx context.Context, s Session) (string, error) {
	query := fmt.Sprintf("A user just started speaking to me (Reachy, a robot). "+
		"What are the most important things I should know about %s? "+
		"Include their name if known, key interests, recent topics we discussed, "+
		"and anything that would help me have a personalized conversation. "+
		"Be concise - just the essentials.", s.UserID)
	return h.chat(ctx, s, query, "low")
}

// Close releases idle connections.
func (h *Honcho) Close() error {
	if h.http.HTTP != nil {
		h.http.HTTP.CloseIdleConnections()
	}
	return nil
}

func (h *Honcho) chat(ctx context.Context, s Session, query, reasoning string) (string, error) {
	if err := h.ensureSession(ctx, s); err != nil {
		return "", err
	}
	body := map[string]any{
		"query":           query,
		"session_id":      s.SessionID,
		"reasoning_level": reasoning,
		"stream":          false,
	}
	var resp struct {
		Content string `json:"content"`
	}
	path := fmt.Sprintf("/peers/%s/chat", url.PathEscape(s.UserID))
	if err := h.http.PostJSON(ctx, h.url(path), h.headers(), body, &resp); err != nil {
		return "", fmt.Errorf("memory: honcho chat: %w", err)
	}
	return strings.TrimSpace(resp.Content), nil
}

// ensureSession creates the robot peer, the user peer and the session.
func (h *Honcho) ensureSession(ctx context.Context, s Session) error {
	if err := h.ensurePeer(ctx, RoleRobot, map[string]any{"type": "robot", "model": "reachy-mini"}); err != nil {
		return err
	}
	if err := h.ensurePeer(ctx, s.UserID, map[string]any{"type": "human"}); err != nil {
		return err
	}
	return h.ensure(ctx, "session:"+s.SessionID, "/sessions", map[string]any{"id": s.SessionID})
}

func (h *Honcho) ensurePeer(ctx context.Context, id string, metadata map[string]any) error {
	body := map[string]any{"id": id, "metadata": metadata}
	if id == RoleRobot {
		body["configuration"] = map[string]any{"observe_me": false}
	}
	return h.ensure(ctx, "peer:"+id, "/peers", body)
}

// ensure POSTs a get-or-create request once per key.
func (h *Honcho) ensure(ctx context.Context, key, path string, body any) error {
	h.mu.Lock()
	done := h.ensured[key]
	h.mu.Unlock()
	if done {
		return nil
	}
	err := h.http.PostJSON(ctx, h.url(path), h.headers(), body, nil)
	if err != nil && httpc.StatusCode(err) != http.StatusConflict {
		return fmt.Errorf("memory: honcho create %s: %w", key, err)
	}
	h.mu.Lock()
	h.ensured[key] = true
	h.mu.Unlock()
	h.logger.Debug("created", "key", key)
	return nil
}

func (h *Honcho) url(path string) string {
	return fmt.Sprintf("%s/v2/workspaces/%s%s", h.baseURL, url.PathEscape(h.workspace), path)
}

func (h *Honcho) headers() map[string]string {
	return map[string]string{"Authorization": "Bearer " + h.apiKey}
}

type sessionContext struct {
	Messages           []json.RawMessage `json:"messages"`
	Summary            any               `json:"summary"`
	PeerRepresentation string            `json:"peer_representation"`
	PeerCard           []string          `json:"peer_card"`
}

func (c sessionContext) empty() bool {
	return len(c.Messages) == 0 && c.PeerRepresentation == "" && len(c.PeerCard) == 0
}

var _ Memory = (*Honcho)(nil)
