package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/teslashibe/reachy-brain/internal/log"
)

// Redis is a Memory kept in Redis lists:
//
//	reachy:{workspace}:{user}:history  newest-first JSON messages, trimmed
//	reachy:{workspace}:{user}:facts    facts in insertion order
type Redis struct {
	client       *redis.Client
	historyLimit int64
	recentN      int64
	logger       *slog.Logger
}

// NewRedis connects to addr and verifies the connection.
func NewRedis(ctx context.Context, addr, password string, db int) (*Redis, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("memory: connect to redis: %w", err)
	}
	return NewRedisWithClient(rdb), nil
}

// NewRedisWithClient wraps an existing client.
func NewRedisWithClient(rdb *redis.Client) *Redis {
	return &Redis{
		client:       rdb,
		historyLimit: DefaultHistoryLimit,
		recentN:      6,
		logger:       log.Component("memory.redis"),
	}
}

// Name returns "redis".
func (r *Redis) Name() string { return "redis" }

// HistoryKey returns the list key holding the session's messages.
func HistoryKey(s Session) string {
	return keyPrefix(s) + ":history"
}

// FactsKey returns the list key holding the session's facts.
func FactsKey(s Session) string {
	return keyPrefix(s) + ":facts"
}

func keyPrefix(s Session) string {
	ws := s.Workspace
	if ws == "" {
		ws = "default"
	}
	return fmt.Sprintf("reachy:%s:%s", ws, normalizeName(s.UserID))
}

// Recall returns facts (query matches first) and recent messages.
func (r *Redis) Recall(ctx context.Context, s Session, query string) (string, error) {
	facts, err := r.facts(ctx, s)
	if err != nil {
		return "", err
	}
	recent, err := r.history(ctx, s, r.recentN)
	if err != nil {
		return "", err
	}
	return Format(s.UserID, orderFacts(query, facts), recent), nil
}

// Remember appends a fact unless it is already stored.
func (r *Redis) Remember(ctx context.Context, s Session, fact string) error {
	fact = strings.TrimSpace(fact)
	if fact == "" {
		return ErrEmptyFact
	}
	facts, err := r.facts(ctx, s)
	if err != nil {
		return err
	}
	for _, f := range facts {
		if strings.EqualFold(f, fact) {
			return nil
		}
	}
	if err := r.client.RPush(ctx, FactsKey(s), fact).Err(); err != nil {
		return fmt.Errorf("memory: store fact: %w", err)
	}
	return nil
}

// Ask searches facts and history for the question's keywords.
func (r *Redis) Ask(ctx context.Context, s Session, question string) (string, error) {
	if strings.TrimSpace(question) == "" {
		return "", ErrEmptyQuery
	}
	facts, err := r.facts(ctx, s)
	if err != nil {
		return "", err
	}
	history, err := r.history(ctx, s, r.historyLimit)
	if err != nil {
		return "", err
	}
	return Answer(s.UserID, Search(question, facts, history, 5)), nil
}

// Persist pushes messages and trims the list, in one pipeline.
func (r *Redis) Persist(ctx context.Context, s Session, msgs ...Message) error {
	key := HistoryKey(s)
	pipe := r.client.Pipeline()
	n := 0
	for _, m := range msgs {
		if strings.TrimSpace(m.Content) == "" {
			continue
		}
		data, err := json.Marshal(m)
		if err != nil {
			return err
		}
		pipe.LPush(ctx, key, data)
		n++
	}
	if n == 0 {
		return nil
	}
	pipe.LTrim(ctx, key, 0, r.historyLimit-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("memory: persist: %w", err)
	}
	return nil
}

// Briefing lists the stored facts.
func (r *Redis) Briefing(ctx context.Context, s Session) (string, error) {
	facts, err := r.facts(ctx, s)
	if err != nil || len(facts) == 0 {
		return "", err
	}
	return fmt.Sprintf("%s: %s", s.UserID, strings.Join(facts, "; ")), nil
}

// Close closes the client.
func (r *Redis) Close() error {
	return r.client.Close()
}

func (r *Redis) facts(ctx context.Context, s Session) ([]string, error) {
	facts, err := r.client.LRange(ctx, FactsKey(s), 0, -1).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("memory: load facts: %w", err)
	}
	return facts, nil
}

// history returns up to n messages, oldest first.
func (r *Redis) history(ctx context.Context, s Session, n int64) ([]Message, error) {
	raw, err := r.client.LRange(ctx, HistoryKey(s), 0, n-1).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("memory: load history: %w", err)
	}
	msgs := make([]Message, 0, len(raw))
	for i := len(raw) - 1; i >= 0; i-- {
		var m Message
		if err := json.Unmarshal([]byte(raw[i]), &m); err != nil {
			r.logger.Debug("skipping malformed history entry", "err", err)
			continue
		}
		msgs = append(msgs, m)
	}
	return msgs, nil
}

var _ Memory = (*Redis)(nil)
