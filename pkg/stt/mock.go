package stt

import (
	"context"
	"sync"

	"github.com/teslashibe/reachy-brain/pkg/audio"
)

// Mock implements Transcriber for testing.
type Mock struct {
	// TranscribeFunc is called by Transcribe. If nil, Text is returned.
	TranscribeFunc func(ctx context.Context, u *audio.Utterance) (string, error)

	// Text is the canned transcript used when TranscribeFunc is nil.
	Text string

	mu    sync.Mutex
	calls int
}

// NewMock returns a Mock that always transcribes to text.
func NewMock(text string) *Mock {
	return &Mock{Text: text}
}

// Name returns "mock".
func (m *Mock) Name() string { return "mock" }

// Transcribe records the call and returns the canned result.
func (m *Mock) Transcribe(ctx context.Context, u *audio.Utterance) (string, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.TranscribeFunc != nil {
		return m.TranscribeFunc(ctx, u)
	}
	return Clean(m.Text), nil
}

// CallCount returns the number of Transcribe calls.
func (m *Mock) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

var _ Transcriber = (*Mock)(nil)
var _ Transcriber = (*Whisper)(nil)
