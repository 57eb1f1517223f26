package conversation

import (
	"fmt"
	"testing"

	"github.com/teslashibe/reachy-brain/pkg/inference"
)

func TestNewDefaults(t *testing.T) {
	c := New("  ", "reachy")
	if c.UserID() != "user" {
		t.Errorf("UserID = %q, want user", c.UserID())
	}
	if c.SessionID() != "reachy-chat-user" {
		t.Errorf("SessionID = %q", c.SessionID())
	}
	s := c.Session()
	if s.Workspace != "reachy" {
		t.Errorf("Workspace = %q", s.Workspace)
	}
}

func TestSetUser(t *testing.T) {
	c := New("ana", "reachy")
	c.Append("hi", "hello")
	c.SetUser("bob")
	if c.SessionID() != "reachy-chat-bob" {
		t.Errorf("SessionID = %q", c.SessionID())
	}
	if c.Len() != 1 {
		t.Errorf("history lost on user switch")
	}
}

func TestWindow(t *testing.T) {
	c := New("ana", "reachy")
	for i := 0; i < 5; i++ {
		c.Append(fmt.Sprintf("q%d", i), fmt.Sprintf("a%d", i))
	}

	tests := []struct {
		n     int
		first string
		size  int
	}{
		{0, "", 0},
		{2, "q3", 2},
		{5, "q0", 5},
		{50, "q0", 5},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.n), func(t *testing.T) {
			w := c.Window(tt.n)
			if len(w) != tt.size {
				t.Fatalf("len = %d, want %d", len(w), tt.size)
			}
			if tt.size > 0 && w[0].Transcript != tt.first {
				t.Errorf("first = %q, want %q", w[0].Transcript, tt.first)
			}
		})
	}
}

func TestHistory(t *testing.T) {
	c := New("ana", "reachy")
	for i := 0; i < 15; i++ {
		c.Append(fmt.Sprintf("q%d", i), fmt.Sprintf("a%d", i))
	}

	msgs := c.History(DefaultHistory)
	if len(msgs) != DefaultHistory {
		t.Fatalf("len = %d, want %d", len(msgs), DefaultHistory)
	}
	if msgs[0].Role != inference.RoleUser || msgs[0].Content != "q5" {
		t.Errorf("first = %+v", msgs[0])
	}
	last := msgs[len(msgs)-1]
	if last.Role != inference.RoleAssistant || last.Content != "a14" {
		t.Errorf("last = %+v", last)
	}

	odd := c.History(3)
	if len(odd) != 3 || odd[0].Content != "a13" {
		t.Errorf("History(3) = %+v", odd)
	}
}

func TestHistorySkipsEmptyResponses(t *testing.T) {
	c := New("ana", "reachy")
	c.Append("play music", "")
	msgs := c.History(4)
	if len(msgs) != 1 || msgs[0].Role != inference.RoleUser {
		t.Errorf("msgs = %+v", msgs)
	}
}

func TestRetentionLimit(t *testing.T) {
	c := New("ana", "reachy")
	c.limit = 3
	for i := 0; i < 5; i++ {
		c.Append(fmt.Sprintf("q%d", i), "")
	}
	turns := c.Turns()
	if len(turns) != 3 || turns[0].Transcript != "q2" {
		t.Errorf("turns = %+v", turns)
	}
	c.Reset()
	if c.Len() != 0 {
		t.Error("Reset kept turns")
	}
}
