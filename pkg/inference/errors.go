package inference

import (
	"errors"
	"fmt"
)

// Sentinel errors for common conditions.
var (
	// ErrGatewayUnreachable is returned when the gateway cannot be reached
	// (connection refused, DNS failure, timeout).
	ErrGatewayUnreachable = errors.New("inference: gateway unreachable")

	// ErrNoModel is returned when model is required but missing.
	ErrNoModel = errors.New("inference: model required")

	// ErrNoBaseURL is returned when the gateway URL is missing.
	ErrNoBaseURL = errors.New("inference: base URL required")

	// ErrProviderUnavailable is returned when no providers are available.
	ErrProviderUnavailable = errors.New("inference: provider unavailable")

	// ErrNoChoices is returned when the gateway answers without choices.
	ErrNoChoices = errors.New("inference: no choices returned")
)

// GatewayError is a response from the gateway that could not be used:
// a non-2xx status or a malformed body.
type GatewayError struct {
	// StatusCode is the HTTP status code, 0 for malformed 2xx responses.
	StatusCode int

	// Message is the error message from the API or the decode failure.
	Message string

	// Code is the error code (if provided).
	Code string

	// Provider identifies which provider returned the error.
	Provider string

	Err error
}

func (e *GatewayError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("inference [%s]: gateway error %d (%s): %s",
			e.Provider, e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("inference [%s]: gateway error %d: %s",
		e.Provider, e.StatusCode, e.Message)
}

func (e *GatewayError) Unwrap() error { return e.Err }

// IsRateLimited returns true if this is a rate limit error (HTTP 429).
func (e *GatewayError) IsRateLimited() bool {
	return e.StatusCode == 429
}

// IsUnauthorized returns true if this is an authentication error (HTTP 401).
func (e *GatewayError) IsUnauthorized() bool {
	return e.StatusCode == 401
}

// IsServerError returns true if this is a server-side error (HTTP 5xx).
func (e *GatewayError) IsServerError() bool {
	return e.StatusCode >= 500 && e.StatusCode < 600
}

// IsRetryable returns true if the request should be retried.
func (e *GatewayError) IsRetryable() bool {
	return e.IsRateLimited() || e.IsServerError()
}

// ProviderError wraps an error with provider context.
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("inference [%s]: %v", e.Provider, e.Err)
}

// Unwrap returns the underlying error.
func (e *ProviderError) Unwrap() error {
	return e.Err
}

// WrapError wraps an error with provider context.
func WrapError(provider string, err error) error {
	if err == nil {
		return nil
	}
	return &ProviderError{Provider: provider, Err: err}
}

// IsUnreachable reports whether err means the gateway was not reached.
func IsUnreachable(err error) bool {
	return errors.Is(err, ErrGatewayUnreachable)
}

// ChainError aggregates errors from all providers in a chain.
type ChainError struct {
	Errors []error
}

func (e *ChainError) Error() string {
	if len(e.Errors) == 0 {
		return "inference chain: no errors recorded"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("inference chain: %v", e.Errors[0])
	}
	return fmt.Sprintf("inference chain: all %d providers failed, last error: %v",
		len(e.Errors), e.Errors[len(e.Errors)-1])
}

// Unwrap returns the last error in the chain, so the chain is classified
// the same way as its final attempt.
func (e *ChainError) Unwrap() error {
	if len(e.Errors) == 0 {
		return nil
	}
	return e.Errors[len(e.Errors)-1]
}
