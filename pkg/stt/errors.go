package stt

import (
	"errors"
	"fmt"
)

// Sentinel errors.
var (
	// ErrNoAPIKey is returned when the provider has no credentials.
	ErrNoAPIKey = errors.New("stt: API key is required")

	// ErrEmptyAudio is returned for utterances with no samples.
	ErrEmptyAudio = errors.New("stt: empty audio")
)

// TranscriptionError is the pipeline-facing failure of the transcribe stage.
type TranscriptionError struct {
	Provider   string
	StatusCode int
	Err        error
}

func (e *TranscriptionError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("stt: %s: status %d: %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("stt: %s: %v", e.Provider, e.Err)
}

func (e *TranscriptionError) Unwrap() error { return e.Err }

// IsRetryable reports whether a retry may succeed.
func (e *TranscriptionError) IsRetryable() bool {
	return e.StatusCode == 0 || e.StatusCode == 429 || e.StatusCode >= 500
}

// WrapError wraps err as a *TranscriptionError unless it already is one.
func WrapError(provider string, err error) error {
	if err == nil {
		return nil
	}
	var te *TranscriptionError
	if errors.As(err, &te) {
		return err
	}
	return &TranscriptionError{Provider: provider, Err: err}
}
