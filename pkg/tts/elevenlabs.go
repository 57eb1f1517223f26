package tts

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

const (
	elevenLabsBaseURL  = "https://api.elevenlabs.io/v1"
	providerElevenLabs = "elevenlabs"
)

// ElevenLabs model IDs.
const (
	ModelTurboV2_5      = "eleven_turbo_v2_5"
	ModelFlashV2_5      = "eleven_flash_v2_5"
	ModelMultilingualV2 = "eleven_multilingual_v2"
	ModelMonolingualV1  = "eleven_monolingual_v1"
)

// ElevenLabs implements Provider for ElevenLabs TTS.
type ElevenLabs struct {
	config  *Config
	req     *requester
	logger  *slog.Logger
	baseURL string
}

// NewElevenLabs creates an ElevenLabs provider. Voice may be a preset name
// such as "rachel" or a raw voice ID.
func NewElevenLabs(opts ...Option) (*ElevenLabs, error) {
	cfg := DefaultConfig()
	cfg.Apply(opts...)

	if err := cfg.ValidateWithVoice(); err != nil {
		return nil, err
	}
	cfg.VoiceID = ResolveVoice(cfg.VoiceID)

	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = elevenLabsBaseURL
	}

	return &ElevenLabs{
		config:  cfg,
		req:     newRequester(cfg, providerElevenLabs, parseElevenLabsError),
		logger:  cfg.Logger.With("component", "tts.elevenlabs"),
		baseURL: baseURL,
	}, nil
}

// Name returns "elevenlabs".
func (e *ElevenLabs) Name() string { return providerElevenLabs }

// VoiceID returns the resolved voice ID.
func (e *ElevenLabs) VoiceID() string { return e.config.VoiceID }

// Synthesize converts text to audio in the configured output format.
func (e *ElevenLabs) Synthesize(ctx context.Context, text string) (*AudioResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, WrapError(providerElevenLabs, ErrEmptyText)
	}
	start := time.Now()

	url := fmt.Sprintf("%s/text-to-speech/%s?output_format=%s", e.baseURL, e.config.VoiceID, e.config.OutputFormat)
	payload := map[string]any{
		"text":           text,
		"model_id":       e.config.ModelID,
		"voice_settings": e.config.VoiceSettings,
	}
	headers := map[string]string{
		"xi-api-key": e.config.APIKey,
		"Accept":     mimeOf(e.config.OutputFormat),
	}

	data, err := e.req.post(ctx, url, headers, payload)
	if err != nil {
		return nil, err
	}

	latency := time.Since(start).Milliseconds()
	e.logger.Debug("synthesized audio",
		"chars", len(text),
		"bytes", len(data),
		"latency_ms", latency,
		"model", e.config.ModelID,
	)

	return &AudioResult{
		Audio:     data,
		Format:    formatOf(e.config.OutputFormat),
		Provider:  providerElevenLabs,
		CharCount: len(text),
		LatencyMs: latency,
	}, nil
}

// Health checks API connectivity and key validity.
func (e *ElevenLabs) Health(ctx context.Context) error {
	return e.req.get(ctx, e.baseURL+"/user", map[string]string{"xi-api-key": e.config.APIKey})
}

// Close releases idle connections.
func (e *ElevenLabs) Close() error {
	e.req.close()
	return nil
}

func parseElevenLabsError(_ int, body string) string {
	var resp struct {
		Detail struct {
			Message string `json:"message"`
			Status  string `json:"status"`
		} `json:"detail"`
	}
	if json.Unmarshal([]byte(body), &resp) == nil && resp.Detail.Message != "" {
		return resp.Detail.Message
	}
	return body
}

func mimeOf(enc Encoding) string {
	switch enc {
	case EncodingPCM16, EncodingPCM22, EncodingPCM24, EncodingPCM44:
		return "audio/pcm"
	case EncodingWAV:
		return "audio/wav"
	default:
		return "audio/mpeg"
	}
}

var _ Provider = (*ElevenLabs)(nil)
