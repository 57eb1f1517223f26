package stt

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/teslashibe/reachy-brain/internal/httpc"
	"github.com/teslashibe/reachy-brain/internal/log"
	"github.com/teslashibe/reachy-brain/pkg/audio"
)

const providerWhisper = "whisper"

// WhisperConfig configures the Whisper transcriber.
type WhisperConfig struct {
	APIKey   string
	BaseURL  string // empty uses the OpenAI default
	Model    string
	Language string
	Timeout  time.Duration
	Logger   *slog.Logger
}

// WhisperOption configures a Whisper transcriber.
type WhisperOption func(*WhisperConfig)

// WithAPIKey sets the API key.
func WithAPIKey(key string) WhisperOption {
	return func(c *WhisperConfig) { c.APIKey = key }
}

// WithBaseURL points the client at an OpenAI-compatible server.
func WithBaseURL(url string) WhisperOption {
	return func(c *WhisperConfig) { c.BaseURL = url }
}

// WithModel sets the transcription model.
func WithModel(model string) WhisperOption {
	return func(c *WhisperConfig) { c.Model = model }
}

// WithLanguage sets the ISO-639-1 language hint.
func WithLanguage(lang string) WhisperOption {
	return func(c *WhisperConfig) { c.Language = lang }
}

// WithTimeout bounds each transcription request.
func WithTimeout(d time.Duration) WhisperOption {
	return func(c *WhisperConfig) { c.Timeout = d }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) WhisperOption {
	return func(c *WhisperConfig) { c.Logger = l }
}

// Whisper transcribes through the OpenAI audio transcription endpoint.
type Whisper struct {
	cfg    WhisperConfig
	client openai.Client
	logger *slog.Logger
}

// NewWhisper creates a Whisper transcriber.
func NewWhisper(opts ...WhisperOption) (*Whisper, error) {
	cfg := WhisperConfig{
		Model:    string(openai.AudioModelWhisper1),
		Language: "en",
		Timeout:  30 * time.Second,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.APIKey == "" {
		return nil, ErrNoAPIKey
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(httpc.NewHTTPClient(cfg.Timeout)),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.BaseURL))
	}

	return &Whisper{
		cfg:    cfg,
		client: openai.NewClient(reqOpts...),
		logger: log.Or(cfg.Logger).With("component", "stt", "provider", providerWhisper),
	}, nil
}

// Name returns "whisper".
func (w *Whisper) Name() string { return providerWhisper }

// Transcribe uploads the utterance as WAV and returns the cleaned transcript.
func (w *Whisper) Transcribe(ctx context.Context, u *audio.Utterance) (string, error) {
	if u.Empty() {
		return "", &TranscriptionError{Provider: providerWhisper, Err: ErrEmptyAudio}
	}
	wav, err := u.WAV()
	if err != nil {
		return "", &TranscriptionError{Provider: providerWhisper, Err: err}
	}

	start := time.Now()
	params := openai.AudioTranscriptionNewParams{
		File:  openai.File(bytes.NewReader(wav), "utterance.wav", "audio/wav"),
		Model: openai.AudioModel(w.cfg.Model),
	}
	if w.cfg.Language != "" {
		params.Language = openai.String(w.cfg.Language)
	}

	resp, err := w.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		te := &TranscriptionError{Provider: providerWhisper, Err: err}
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			te.StatusCode = apiErr.StatusCode
		}
		return "", te
	}

	raw := resp.Text
	text := Clean(raw)
	w.logger.Debug("transcribed",
		"duration", u.Duration(),
		"latency_ms", time.Since(start).Milliseconds(),
		"raw", raw,
		"filtered", text == "" && raw != "",
	)
	return text, nil
}
