package httpc

import (
	"errors"
	"fmt"
)

// Sentinel errors.
var (
	// ErrUnreachable matches any *UnreachableError via errors.Is.
	ErrUnreachable = errors.New("httpc: endpoint unreachable")

	// ErrMalformed is returned when a JSON body was expected but absent or invalid.
	ErrMalformed = errors.New("httpc: malformed response")
)

// UnreachableError reports a connection failure or timeout.
type UnreachableError struct {
	Method string
	URL    string
	Err    error
}

func (e *UnreachableError) Error() string {
	return fmt.Sprintf("httpc: %s %s unreachable: %v", e.Method, e.URL, e.Err)
}

func (e *UnreachableError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrUnreachable) match.
func (e *UnreachableError) Is(target error) bool { return target == ErrUnreachable }

// HTTPError reports a non-2xx response from a reachable endpoint.
type HTTPError struct {
	Method string
	URL    string
	Status int
	Body   string
}

func (e *HTTPError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("httpc: %s %s: status %d: %s", e.Method, e.URL, e.Status, e.Body)
	}
	return fmt.Sprintf("httpc: %s %s: status %d", e.Method, e.URL, e.Status)
}

// IsRetryable reports whether the status suggests a transient failure.
func (e *HTTPError) IsRetryable() bool {
	return e.Status == 429 || e.Status >= 500
}

// IsUnreachable reports whether err is a connection-level failure.
func IsUnreachable(err error) bool {
	return errors.Is(err, ErrUnreachable)
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var he *HTTPError
	if errors.As(err, &he) {
		return he.Status
	}
	return 0
}
