package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/teslashibe/reachy-brain/internal/log"
)

// DefaultHistoryLimit bounds stored messages per user in local backends.
const DefaultHistoryLimit = 200

// File is a Memory persisted as one JSON document. It needs no network
// and is the fallback when Honcho is not configured.
type File struct {
	People map[string]*Person `json:"people"`

	store        snapshot
	historyLimit int
	recentN      int
	logger       *slog.Logger
	mu           sync.RWMutex
}

// NewFile creates a File backend that persists to path and loads what
// was saved there before. An empty path keeps memory for this run only.
func NewFile(path string) (*File, error) {
	f := &File{
		People:       make(map[string]*Person),
		store:        snapshot{path: path},
		historyLimit: DefaultHistoryLimit,
		recentN:      6,
		logger:       log.Component("memory.file"),
	}
	if err := f.load(); err != nil {
		return nil, err
	}
	return f, nil
}

// Name returns "file".
func (f *File) Name() string { return "file" }

// Recall returns the user's facts, the facts matching query first, plus the
// last few messages.
func (f *File) Recall(ctx context.Context, s Session, query string) (string, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	p := f.People[normalizeName(s.UserID)]
	if p == nil {
		return "", nil
	}
	return Format(s.UserID, orderFacts(query, p.Facts), p.Recent(f.recentN)), nil
}

// Remember stores a fact and saves.
func (f *File) Remember(ctx context.Context, s Session, fact string) error {
	if strings.TrimSpace(fact) == "" {
		return ErrEmptyFact
	}
	f.mu.Lock()
	added := f.person(s.UserID).AddFact(fact)
	f.mu.Unlock()

	if !added {
		return nil
	}
	return f.save()
}

// Ask searches facts and past user messages for the question's keywords.
func (f *File) Ask(ctx context.Context, s Session, question string) (string, error) {
	if strings.TrimSpace(question) == "" {
		return "", ErrEmptyQuery
	}
	f.mu.RLock()
	defer f.mu.RUnlock()

	p := f.People[normalizeName(s.UserID)]
	if p == nil {
		return Answer(s.UserID, nil), nil
	}
	return Answer(s.UserID, Search(question, p.Facts, p.History, 5)), nil
}

// Persist appends messages to the user's history and saves.
func (f *File) Persist(ctx context.Context, s Session, msgs ...Message) error {
	var kept []Message
	for _, m := range msgs {
		if strings.TrimSpace(m.Content) != "" {
			kept = append(kept, m)
		}
	}
	if len(kept) == 0 {
		return nil
	}
	f.mu.Lock()
	f.person(s.UserID).AddMessages(f.historyLimit, kept...)
	f.mu.Unlock()
	return f.save()
}

// Briefing lists what is known about the user.
func (f *File) Briefing(ctx context.Context, s Session) (string, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	p := f.People[normalizeName(s.UserID)]
	if p == nil || len(p.Facts) == 0 {
		return "", nil
	}
	return fmt.Sprintf("%s: %s", s.UserID, strings.Join(p.Facts, "; ")), nil
}

// Close is a no-op; every change is already on disk.
func (f *File) Close() error {
	return nil
}

// Stats returns the number of known people and stored facts.
func (f *File) Stats() map[string]int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	facts, msgs := 0, 0
	for _, p := range f.People {
		facts += len(p.Facts)
		msgs += len(p.History)
	}
	return map[string]int{"people": len(f.People), "facts": facts, "messages": msgs}
}

// person returns the entry for name, creating it. Caller holds mu.
func (f *File) person(name string) *Person {
	key := normalizeName(name)
	p, ok := f.People[key]
	if !ok {
		p = NewPerson(name)
		f.People[key] = p
	}
	return p
}

func (f *File) save() error {
	f.mu.RLock()
	data, err := json.MarshalIndent(f, "", "  ")
	f.mu.RUnlock()
	if err != nil {
		return err
	}
	if err := f.store.write(data); err != nil {
		f.logger.Warn("save failed", "err", err)
		return err
	}
	return nil
}

func (f *File) load() error {
	data, err := f.store.read()
	if err != nil {
		return err
	}
	if data == nil {
		return nil
	}

	var loaded struct {
		People map[string]*Person `json:"people"`
	}
	if err := json.Unmarshal(data, &loaded); err != nil {
		return fmt.Errorf("memory: decode file: %w", err)
	}
	if loaded.People != nil {
		f.People = loaded.People
	}
	return nil
}

// orderFacts puts facts that match query first, keeping the rest.
func orderFacts(query string, facts []string) []string {
	hits := Search(query, facts, nil, 0)
	if len(hits) == 0 {
		return facts
	}
	seen := make(map[string]bool, len(hits))
	out := append([]string(nil), hits...)
	for _, h := range hits {
		seen[h] = true
	}
	for _, f := range facts {
		if !seen[f] {
			out = append(out, f)
		}
	}
	return out
}

var _ Memory = (*File)(nil)
