package inference

import (
	"context"
	"errors"
	"testing"
)

func answer(text string) *Mock {
	return Replies(&ChatResponse{Message: NewAssistantMessage(text), FinishReason: "stop"})
}

func TestChainFallsThroughWhenGatewayIsDown(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"unreachable", WrapError("gateway", ErrGatewayUnreachable)},
		{"rate limited", &GatewayError{Provider: "gateway", StatusCode: 429}},
		{"server error", &GatewayError{Provider: "gateway", StatusCode: 502}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backup := answer("From the backup")
			chain, err := NewChain(WithError(tt.err), backup)
			if err != nil {
				t.Fatal(err)
			}
			resp, err := chain.Chat(context.Background(), &ChatRequest{Messages: []Message{NewUserMessage("hi")}})
			if err != nil {
				t.Fatalf("Chat: %v", err)
			}
			if resp.Text() != "From the backup" || chain.Answered() != 1 {
				t.Errorf("resp = %q, answered = %d", resp.Text(), chain.Answered())
			}
		})
	}
}

func TestChainStopsOnRejectedRequest(t *testing.T) {
	rejected := &GatewayError{Provider: "gateway", StatusCode: 400, Message: "invalid tools"}
	backup := answer("never")
	chain, _ := NewChain(WithError(rejected), backup)

	_, err := chain.Chat(context.Background(), &ChatRequest{})
	var ge *GatewayError
	if !errors.As(err, &ge) || ge.StatusCode != 400 {
		t.Fatalf("err = %v", err)
	}
	if backup.CallCount("Chat") != 0 {
		t.Error("backup called for a rejected request")
	}
	if chain.Answered() != -1 {
		t.Errorf("answered = %d", chain.Answered())
	}
}

func TestChainAllFail(t *testing.T) {
	chain, _ := NewChain(
		WithError(&GatewayError{Provider: "gateway", StatusCode: 503}),
		WithError(WrapError("openai", ErrGatewayUnreachable)),
	)
	_, err := chain.Chat(context.Background(), &ChatRequest{})

	var chainErr *ChainError
	if !errors.As(err, &chainErr) || len(chainErr.Errors) != 2 {
		t.Fatalf("err = %v", err)
	}
	if !IsUnreachable(err) {
		t.Error("chain should classify like its last error")
	}
}

func TestChainSkipsNilProviders(t *testing.T) {
	if _, err := NewChain(nil, nil); !errors.Is(err, ErrProviderUnavailable) {
		t.Errorf("NewChain(nil, nil) = %v", err)
	}
	var backup Provider
	chain, err := NewChain(answer("ok"), backup)
	if err != nil {
		t.Fatal(err)
	}
	if resp, err := chain.Chat(context.Background(), &ChatRequest{}); err != nil || resp.Text() != "ok" {
		t.Errorf("Chat = %v, %v", resp, err)
	}
}

func TestChainHealth(t *testing.T) {
	ctx := context.Background()
	chain, _ := NewChain(WithError(errors.New("down")), NewMock())
	if err := chain.Health(ctx); err != nil {
		t.Errorf("one healthy provider: %v", err)
	}
	chain, _ = NewChain(WithError(errors.New("down")))
	if err := chain.Health(ctx); err == nil {
		t.Error("expected error with no healthy provider")
	}
}

func TestMockReplies(t *testing.T) {
	m := Replies(
		&ChatResponse{Message: NewAssistantMessage("first")},
		&ChatResponse{Message: NewAssistantMessage("second")},
	)
	for _, want := range []string{"first", "second", "second"} {
		resp, err := m.Chat(context.Background(), &ChatRequest{})
		if err != nil {
			t.Fatal(err)
		}
		if resp.Text() != want {
			t.Errorf("got %q, want %q", resp.Text(), want)
		}
	}
	if m.CallCount("Chat") != 3 || len(m.Requests()) != 3 {
		t.Errorf("expected 3 recorded chats")
	}
}
