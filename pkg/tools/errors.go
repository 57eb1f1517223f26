package tools

import (
	"errors"
	"fmt"
)

// Sentinel errors.
var (
	// ErrInvalidToolArgument matches every *InvalidArgumentError.
	ErrInvalidToolArgument = errors.New("tools: invalid tool argument")

	// ErrUnknownTool is returned for calls naming an unregistered tool.
	ErrUnknownTool = errors.New("tools: unknown tool")

	// ErrUnavailable is returned when a tool's backend is not configured.
	ErrUnavailable = errors.New("tools: backend not configured")
)

// InvalidArgumentError reports an argument that failed validation.
// No outbound call is made for the tool.
type InvalidArgumentError struct {
	Tool   string
	Arg    string
	Reason string
}

func (e *InvalidArgumentError) Error() string {
	if e.Arg == "" {
		return fmt.Sprintf("tools: %s: %s", e.Tool, e.Reason)
	}
	return fmt.Sprintf("tools: %s: argument %q %s", e.Tool, e.Arg, e.Reason)
}

// Is lets errors.Is(err, ErrInvalidToolArgument) match.
func (e *InvalidArgumentError) Is(target error) bool {
	return target == ErrInvalidToolArgument
}

func invalid(tool, arg, format string, a ...any) error {
	return &InvalidArgumentError{Tool: tool, Arg: arg, Reason: fmt.Sprintf(format, a...)}
}
