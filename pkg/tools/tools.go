// Package tools executes the actions a language model may request during a
// conversation turn: head motion, recorded moves, memory lookups and calls to
// outside services. Each tool validates its arguments before any outbound
// call and reports failure as a Result, never as a panic or a raised error.
package tools

import (
	"context"
	"encoding/json"

	"github.com/teslashibe/reachy-brain/pkg/inference"
)

// Tool names.
const (
	MoveHead             = "move_head"
	LookAt               = "look_at"
	PlayEmotion          = "play_emotion"
	Dance                = "dance"
	Animate              = "animate"
	RecallMemory         = "recall_memory"
	Remember             = "remember"
	QueryExternalService = "query_external_service"
)

// Tool is a function the model can invoke.
type Tool struct {
	Name        string
	Description string

	// Parameters is the JSON schema of the arguments.
	Parameters map[string]any

	// Feedback tools have their result sent back to the model for a second
	// completion round. Motion tools are fire-and-forget.
	Feedback bool

	// Handler validates args, performs the call and returns a JSON-encodable result.
	Handler func(ctx context.Context, args Args) (any, error)
}

// Definition returns the model-facing definition.
func (t Tool) Definition() inference.Tool {
	return inference.NewTool(t.Name, t.Description, t.Parameters)
}

// Call is one tool invocation requested by the model.
type Call struct {
	ID   string
	Name string
	Args Args
}

// FromInference converts a model tool call. Undecodable arguments yield a
// call whose dispatch fails with an *InvalidArgumentError.
func FromInference(tc inference.ToolCall) (Call, error) {
	args, err := ParseArgs(tc.Name, tc.Arguments)
	return Call{ID: tc.ID, Name: tc.Name, Args: args}, err
}

// Result is the outcome of one call.
type Result struct {
	CallID   string
	Name     string
	Output   string // JSON document sent back to the model
	Err      error
	Feedback bool
}

// OK reports whether the call succeeded.
func (r Result) OK() bool { return r.Err == nil }

// Message returns the tool message for a second completion round.
func (r Result) Message() inference.Message {
	return inference.NewToolMessage(r.CallID, r.Name, r.Output)
}

func encode(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return `{"error":"unencodable result"}`
	}
	return string(data)
}

func object(props map[string]any, required ...string) map[string]any {
	if required == nil {
		required = []string{}
	}
	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   required,
	}
}
