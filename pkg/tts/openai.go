package tts

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"
)

const (
	openAIBaseURL  = "https://api.openai.com/v1"
	providerOpenAI = "openai"
)

// OpenAI voices.
const (
	VoiceAlloy   = "alloy"
	VoiceEcho    = "echo"
	VoiceFable   = "fable"
	VoiceOnyx    = "onyx"
	VoiceNova    = "nova"
	VoiceShimmer = "shimmer"
)

// OpenAI models.
const (
	ModelTTS1   = "tts-1"
	ModelTTS1HD = "tts-1-hd"
)

// OpenAI implements Provider for the OpenAI speech endpoint.
type OpenAI struct {
	config  *Config
	req     *requester
	logger  *slog.Logger
	baseURL string
}

// NewOpenAI creates an OpenAI TTS provider. It always returns MP3.
func NewOpenAI(opts ...Option) (*OpenAI, error) {
	cfg := DefaultConfig()
	cfg.ModelID = ModelTTS1
	cfg.VoiceID = VoiceShimmer
	cfg.Apply(opts...)
	cfg.OutputFormat = EncodingMP3

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.VoiceID == "" {
		cfg.VoiceID = VoiceShimmer
	}

	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = openAIBaseURL
	}

	return &OpenAI{
		config:  cfg,
		req:     newRequester(cfg, providerOpenAI, parseOpenAIError),
		logger:  cfg.Logger.With("component", "tts.openai"),
		baseURL: baseURL,
	}, nil
}

// Name returns "openai".
func (o *OpenAI) Name() string { return providerOpenAI }

// VoiceID returns the configured voice.
func (o *OpenAI) VoiceID() string { return o.config.VoiceID }

// Synthesize converts text to MP3 audio.
func (o *OpenAI) Synthesize(ctx context.Context, text string) (*AudioResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, WrapError(providerOpenAI, ErrEmptyText)
	}
	start := time.Now()

	payload := map[string]any{
		"model":           o.config.ModelID,
		"voice":           o.config.VoiceID,
		"input":           text,
		"response_format": "mp3",
	}
	data, err := o.req.post(ctx, o.baseURL+"/audio/speech", o.auth(), payload)
	if err != nil {
		return nil, err
	}

	latency := time.Since(start).Milliseconds()
	o.logger.Debug("synthesized audio",
		"chars", len(text),
		"bytes", len(data),
		"latency_ms", latency,
		"voice", o.config.VoiceID,
	)

	return &AudioResult{
		Audio:     data,
		Format:    formatOf(EncodingMP3),
		Provider:  providerOpenAI,
		CharCount: len(text),
		LatencyMs: latency,
	}, nil
}

// Health lists models to check connectivity and key validity.
func (o *OpenAI) Health(ctx context.Context) error {
	return o.req.get(ctx, o.baseURL+"/models", o.auth())
}

// Close releases idle connections.
func (o *OpenAI) Close() error {
	o.req.close()
	return nil
}

func (o *OpenAI) auth() map[string]string {
	return map[string]string{"Authorization": "Bearer " + o.config.APIKey}
}

func parseOpenAIError(_ int, body string) string {
	var resp struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal([]byte(body), &resp) == nil && resp.Error.Message != "" {
		return resp.Error.Message
	}
	return body
}

var _ Provider = (*OpenAI)(nil)
