package stt_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/teslashibe/reachy-brain/pkg/audio"
	"github.com/teslashibe/reachy-brain/pkg/stt"
)

func utterance() *audio.Utterance {
	return &audio.Utterance{Samples: make([]int16, 8000), SampleRate: 16000, Channels: 1}
}

func TestClean(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"  Hello there  ", "Hello there"},
		{"you", ""},
		{"You", ""},
		{"Thank you.", ""},
		{"thanks.", ""},
		{"Thanks for watching!", ""},
		{"...", ""},
		{"   ", ""},
		{"Thank you for the help", "Thank you for the help"},
	}
	for _, tt := range tests {
		if got := stt.Clean(tt.in); got != tt.want {
			t.Errorf("Clean(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNewWhisperRequiresKey(t *testing.T) {
	if _, err := stt.NewWhisper(); !errors.Is(err, stt.ErrNoAPIKey) {
		t.Errorf("err = %v, want ErrNoAPIKey", err)
	}
}

func TestWhisperTranscribe(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/audio/transcriptions") {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q", got)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("ParseMultipartForm: %v", err)
			return
		}
		if r.FormValue("model") != "whisper-1" {
			t.Errorf("model = %q", r.FormValue("model"))
		}
		if r.FormValue("language") != "en" {
			t.Errorf("language = %q", r.FormValue("language"))
		}
		f, _, err := r.FormFile("file")
		if err != nil {
			t.Errorf("FormFile: %v", err)
			return
		}
		data, _ := io.ReadAll(f)
		if audio.Sniff(data) != audio.FormatWAV {
			t.Error("uploaded file should be WAV")
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"text":" Wave at me, Reachy! "}`))
	}))
	defer server.Close()

	w, err := stt.NewWhisper(stt.WithAPIKey("test-key"), stt.WithBaseURL(server.URL+"/v1/"))
	if err != nil {
		t.Fatalf("NewWhisper: %v", err)
	}

	text, err := w.Transcribe(context.Background(), utterance())
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if text != "Wave at me, Reachy!" {
		t.Errorf("text = %q", text)
	}
}

func TestWhisperError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"bad key","type":"invalid_request_error"}}`))
	}))
	defer server.Close()

	w, _ := stt.NewWhisper(stt.WithAPIKey("nope"), stt.WithBaseURL(server.URL+"/v1/"))
	_, err := w.Transcribe(context.Background(), utterance())

	var te *stt.TranscriptionError
	if !errors.As(err, &te) {
		t.Fatalf("err = %v, want *TranscriptionError", err)
	}
	if te.StatusCode != http.StatusUnauthorized {
		t.Errorf("StatusCode = %d", te.StatusCode)
	}
	if te.IsRetryable() {
		t.Error("401 should not be retryable")
	}
}

func TestWhisperEmptyAudio(t *testing.T) {
	w, _ := stt.NewWhisper(stt.WithAPIKey("k"))
	_, err := w.Transcribe(context.Background(), &audio.Utterance{SampleRate: 16000})
	if !errors.Is(err, stt.ErrEmptyAudio) {
		t.Errorf("err = %v, want ErrEmptyAudio", err)
	}
}

func TestMock(t *testing.T) {
	m := stt.NewMock("you")
	text, err := m.Transcribe(context.Background(), utterance())
	if err != nil || text != "" {
		t.Errorf("Transcribe = (%q, %v), want hallucination filtered", text, err)
	}
	if m.CallCount() != 1 {
		t.Errorf("CallCount = %d", m.CallCount())
	}
}
