package memory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewSession(t *testing.T) {
	s := NewSession("alice", "reachy-mini")
	if s.SessionID != "reachy-chat-alice" {
		t.Errorf("SessionID = %q", s.SessionID)
	}
	if NewSession("  ", "ws").UserID != "user" {
		t.Error("blank user should default to \"user\"")
	}
}

func TestFileRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "mem", "memory.json")
	s := NewSession("Alice", "test")

	f, err := NewFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := f.Remember(ctx, s, "likes jazz music"); err != nil {
		t.Fatal(err)
	}
	if err := f.Remember(ctx, s, "Likes Jazz Music"); err != nil {
		t.Fatal(err)
	}
	if err := f.Persist(ctx, s, UserMessage("I went hiking yesterday"), RobotMessage("Sounds fun!")); err != nil {
		t.Fatal(err)
	}

	reloaded, err := NewFile(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	stats := reloaded.Stats()
	if stats["people"] != 1 || stats["facts"] != 1 || stats["messages"] != 2 {
		t.Errorf("unexpected stats after reload: %v", stats)
	}

	recall, err := reloaded.Recall(ctx, s, "music")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(recall, "likes jazz music") || !strings.Contains(recall, "hiking") {
		t.Errorf("recall missing content:\n%s", recall)
	}

	answer, _ := reloaded.Ask(ctx, s, "What music does she like?")
	if !strings.Contains(answer, "jazz") {
		t.Errorf("Ask = %q", answer)
	}

	briefing, _ := reloaded.Briefing(ctx, s)
	if !strings.Contains(briefing, "jazz") {
		t.Errorf("Briefing = %q", briefing)
	}
}

func TestFileUnknownUser(t *testing.T) {
	ctx := context.Background()
	f, _ := NewFile(filepath.Join(t.TempDir(), "m.json"))
	s := NewSession("bob", "")

	if got, _ := f.Recall(ctx, s, "anything"); got != "" {
		t.Errorf("Recall for unknown user = %q", got)
	}
	if got, _ := f.Briefing(ctx, s); got != "" {
		t.Errorf("Briefing for unknown user = %q", got)
	}
	if got, _ := f.Ask(ctx, s, "favorite food"); !strings.Contains(got, "don't know") {
		t.Errorf("Ask = %q", got)
	}
}

func TestFileValidation(t *testing.T) {
	ctx := context.Background()
	f, _ := NewFile(filepath.Join(t.TempDir(), "m.json"))
	s := NewSession("bob", "")
	if err := f.Remember(ctx, s, " "); !errors.Is(err, ErrEmptyFact) {
		t.Errorf("expected ErrEmptyFact, got %v", err)
	}
	if _, err := f.Ask(ctx, s, ""); !errors.Is(err, ErrEmptyQuery) {
		t.Errorf("expected ErrEmptyQuery, got %v", err)
	}
}

func TestFileCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.json")
	os.WriteFile(path, []byte("{not json"), 0o644)
	if _, err := NewFile(path); err == nil {
		t.Error("expected decode error")
	}
}

func TestPersonHistoryLimit(t *testing.T) {
	p := NewPerson("Carol")
	for i := 0; i < 10; i++ {
		p.AddMessages(4, UserMessage(string(rune('a'+i))))
	}
	if len(p.History) != 4 {
		t.Fatalf("history len = %d, want 4", len(p.History))
	}
	if p.History[0].Content != "g" || p.History[3].Content != "j" {
		t.Errorf("kept wrong window: %v", p.History)
	}
	if len(p.Recent(2)) != 2 || p.Recent(2)[1].Content != "j" {
		t.Error("Recent should return the newest messages")
	}
}

func TestSearch(t *testing.T) {
	facts := []string{"has a dog named Rex", "works as a nurse", "likes jazz"}
	history := []Message{
		UserMessage("my dog loves the park"),
		RobotMessage("dogs are great"),
	}

	hits := Search("tell me about the dog", facts, history, 0)
	if len(hits) != 2 {
		t.Fatalf("hits = %v", hits)
	}
	if hits[0] != "has a dog named Rex" {
		t.Errorf("facts should rank above messages: %v", hits)
	}
	if Search("a an", facts, history, 0) != nil {
		t.Error("short words should be ignored")
	}
}

func TestFormat(t *testing.T) {
	if Format("alice", nil, nil) != "" {
		t.Error("empty input should format to empty string")
	}
	got := Format("alice", []string{"likes tea"}, []Message{{Role: RoleUser, Content: "hi"}})
	want := "Known facts about alice:\n- likes tea\n\nRecent conversation:\nuser: hi"
	if got != want {
		t.Errorf("Format =\n%s\nwant\n%s", got, want)
	}
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	m, err := Open(ctx, Settings{Backend: "file", File: filepath.Join(dir, "a.json")})
	if err != nil || m.Name() != "file" {
		t.Errorf("file backend: %v %v", m, err)
	}
	m, _ = Open(ctx, Settings{Backend: "honcho", File: filepath.Join(dir, "b.json")})
	if m.Name() != "file" {
		t.Errorf("honcho without key should fall back to file, got %s", m.Name())
	}
	m, _ = Open(ctx, Settings{Backend: "honcho", HonchoKey: "k"})
	if m.Name() != "honcho" {
		t.Errorf("got %s", m.Name())
	}
	m, _ = Open(ctx, Settings{Backend: "none"})
	if m.Name() != "none" {
		t.Errorf("got %s", m.Name())
	}
	if _, err := Open(ctx, Settings{Backend: "postgres"}); !errors.Is(err, ErrUnknownBackend) {
		t.Errorf("expected ErrUnknownBackend, got %v", err)
	}
}

func TestRedisKeys(t *testing.T) {
	s := NewSession("Alice", "reachy-mini")
	if HistoryKey(s) != "reachy:reachy-mini:alice:history" {
		t.Errorf("HistoryKey = %q", HistoryKey(s))
	}
	if FactsKey(NewSession("bob", "")) != "reachy:default:bob:facts" {
		t.Errorf("FactsKey = %q", FactsKey(NewSession("bob", "")))
	}
}

func TestRedisIntegration(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	ctx := context.Background()
	r, err := NewRedis(ctx, addr, "", 0)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	s := NewSession("integration-test", "test-"+t.Name())
	defer r.client.Del(ctx, HistoryKey(s), FactsKey(s))

	if err := r.Remember(ctx, s, "plays chess"); err != nil {
		t.Fatal(err)
	}
	if err := r.Persist(ctx, s, UserMessage("first"), RobotMessage("second")); err != nil {
		t.Fatal(err)
	}
	recall, err := r.Recall(ctx, s, "chess")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(recall, "plays chess") || strings.Index(recall, "first") > strings.Index(recall, "second") {
		t.Errorf("unexpected recall:\n%s", recall)
	}
}
