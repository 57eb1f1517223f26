package voice

import (
	"context"

	"github.com/teslashibe/reachy-brain/pkg/inference"
	"github.com/teslashibe/reachy-brain/pkg/tools"
)

// ToolRunner executes the tool calls the model requests.
// *tools.Dispatcher implements it.
type ToolRunner interface {
	// Definitions returns the tools offered to the model.
	Definitions() []inference.Tool

	// DispatchInference executes calls in order. Every call yields a Result,
	// failed or not.
	DispatchInference(ctx context.Context, calls []inference.ToolCall) []tools.Result
}

var _ ToolRunner = (*tools.Dispatcher)(nil)

// needsFeedback reports whether any result must go back to the model.
func needsFeedback(results []tools.Result) bool {
	for _, r := range results {
		if r.Feedback {
			return true
		}
	}
	return false
}

// feedbackMessages builds the messages for the second completion round:
// the assistant message that requested the calls, then one tool message per
// result in call order.
func feedbackMessages(assistant inference.Message, results []tools.Result) []inference.Message {
	msgs := make([]inference.Message, 0, len(results)+1)
	msgs = append(msgs, assistant)
	for _, r := range results {
		msgs = append(msgs, r.Message())
	}
	return msgs
}
