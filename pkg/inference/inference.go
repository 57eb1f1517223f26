// Package inference talks to the LLM gateway that produces the robot's replies.
//
// The gateway speaks the OpenAI-compatible chat completions API, including
// function calling. Client is the HTTP implementation; Chain tries several
// providers in order and Mock is for tests.
//
//	client, _ := inference.NewClient(
//	    inference.WithBaseURL("http://localhost:18789/v1"),
//	    inference.WithAPIKey(token),
//	)
//	resp, err := client.Chat(ctx, &inference.ChatRequest{
//	    Messages: []inference.Message{
//	        inference.NewSystemMessage(prompt),
//	        inference.NewUserMessage("wave at me"),
//	    },
//	    Tools: defs,
//	})
//
// Failures surface as ErrGatewayUnreachable (connection refused, timeout) or
// *GatewayError (non-2xx or malformed response).
package inference

import (
	"context"
)

// Provider is the chat completion interface used by the turn pipeline.
type Provider interface {
	// Chat generates a response from a sequence of messages.
	Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error)

	// Health checks provider connectivity and token validity.
	Health(ctx context.Context) error

	// Close releases any resources held by the provider.
	Close() error
}

// ChatRequest for chat completions.
type ChatRequest struct {
	// Messages is the conversation so far.
	Messages []Message

	// Model overrides the default model.
	Model string

	// MaxTokens limits the response length.
	MaxTokens int

	// Temperature controls randomness (0.0-2.0).
	Temperature float64

	// Tools available for the model to call.
	Tools []Tool

	// ToolChoice controls tool use: "auto", "none", "required".
	ToolChoice string

	// User is forwarded so the gateway can keep per-user sessions.
	User string
}

// ChatResponse from chat completion.
type ChatResponse struct {
	// Message is the assistant's response.
	Message Message

	// FinishReason indicates why generation stopped.
	FinishReason string

	// Usage tracks token consumption.
	Usage Usage

	// Model used for generation.
	Model string

	// LatencyMs is the response time in milliseconds.
	LatencyMs int64
}

// Text returns the assistant text.
func (r *ChatResponse) Text() string {
	return r.Message.Content
}

// HasToolCalls reports whether the model requested tool calls.
func (r *ChatResponse) HasToolCalls() bool {
	return len(r.Message.ToolCalls) > 0
}

// Usage tracks token consumption.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}
