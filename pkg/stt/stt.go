// Package stt turns captured utterances into text.
//
// Transcriber is the pluggable provider interface. Whisper talks to the
// OpenAI transcription API through openai-go; Mock is for tests.
package stt

import (
	"context"
	"strings"

	"github.com/teslashibe/reachy-brain/pkg/audio"
)

// Transcriber converts one utterance to text.
type Transcriber interface {
	// Transcribe returns the transcript, possibly empty, or a *TranscriptionError.
	Transcribe(ctx context.Context, u *audio.Utterance) (string, error)

	// Name identifies the provider in logs.
	Name() string
}

// hallucinations are phrases Whisper emits for silence or noise.
var hallucinations = map[string]bool{
	"":                     true,
	"you":                  true,
	"you.":                 true,
	"thank you.":           true,
	"thank you":            true,
	"thanks.":              true,
	"thanks for watching.": true,
	"thanks for watching!": true,
	"bye.":                 true,
	".":                    true,
	"...":                  true,
}

// Clean trims the transcript and blanks known silence hallucinations.
func Clean(text string) string {
	text = strings.TrimSpace(text)
	if hallucinations[strings.ToLower(text)] {
		return ""
	}
	return text
}

// IsHallucination reports whether text is a known silence artifact.
func IsHallucination(text string) bool {
	return hallucinations[strings.ToLower(strings.TrimSpace(text))]
}
