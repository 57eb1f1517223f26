package tts

import (
	"fmt"
	"log/slog"
)

// Settings selects and configures providers by name.
type Settings struct {
	Primary       string // "elevenlabs" or "openai"
	Fallback      string // optional, "" disables
	ElevenLabsKey string
	OpenAIKey     string
	Voice         string
	CacheDir      string // optional, "" disables
	Logger        *slog.Logger
}

// NewProvider builds one provider by name.
func NewProvider(name string, s Settings) (Provider, error) {
	var opts []Option
	if s.Logger != nil {
		opts = append(opts, WithLogger(s.Logger))
	}
	switch name {
	case providerElevenLabs:
		voice := s.Voice
		if voice == "" {
			voice = DefaultVoice
		}
		return NewElevenLabs(append(opts, WithAPIKey(s.ElevenLabsKey), WithVoice(voice))...)
	case providerOpenAI:
		return NewOpenAI(append(opts, WithAPIKey(s.OpenAIKey))...)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, name)
	}
}

// Build returns the primary provider, chained with the fallback when set.
func Build(s Settings) (Provider, error) {
	primary, err := NewProvider(s.Primary, s)
	if err != nil {
		return nil, fmt.Errorf("tts primary: %w", err)
	}
	providers := []Provider{primary}
	if s.Fallback != "" && s.Fallback != s.Primary {
		fallback, err := NewProvider(s.Fallback, s)
		if err != nil {
			return nil, fmt.Errorf("tts fallback: %w", err)
		}
		providers = append(providers, fallback)
	}
	return Compose(s.CacheDir, s.Voice, providers...)
}

// Compose chains providers in order. With cacheDir set each provider gets
// its own disk cache, so a phrase is always replayed in the voice of the
// provider that made it and a recovered primary is used again.
func Compose(cacheDir, voice string, providers ...Provider) (Provider, error) {
	if cacheDir != "" {
		for i, p := range providers {
			cached, err := NewCache(p, cacheDir, voice)
			if err != nil {
				return nil, err
			}
			providers[i] = cached
		}
	}
	if len(providers) == 1 {
		return providers[0], nil
	}
	return NewChain(providers...)
}
