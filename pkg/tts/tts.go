// Package tts turns response text into playable audio.
//
// Providers (ElevenLabs, OpenAI) implement Provider. Chain tries providers in
// order so a secondary provider covers a failing primary, and Cache skips the
// network for phrases that were already synthesized.
//
//	primary, _ := tts.NewElevenLabs(tts.WithAPIKey(key), tts.WithVoice("rachel"))
//	backup, _ := tts.NewOpenAI(tts.WithAPIKey(openaiKey))
//	chain, _ := tts.NewChain(primary, backup)
//	result, err := chain.Synthesize(ctx, "Hello there")
package tts

import (
	"context"
	"fmt"
	"time"

	"github.com/teslashibe/reachy-brain/pkg/audio"
)

// Provider converts text to audio.
type Provider interface {
	// Name identifies the provider in logs and cache keys.
	Name() string

	// Synthesize returns the complete audio for text, or a *SynthesisError.
	Synthesize(ctx context.Context, text string) (*AudioResult, error)

	// Health checks connectivity and credentials.
	Health(ctx context.Context) error

	// Close releases any resources held by the provider.
	Close() error
}

// AudioResult is one synthesized phrase.
type AudioResult struct {
	Audio     []byte
	Format    AudioFormat
	Provider  string
	Cached    bool
	CharCount int
	LatencyMs int64
}

// WAV converts the result to a mono WAV for robot playback.
func (r *AudioResult) WAV() ([]byte, error) {
	switch r.Format.Encoding {
	case EncodingMP3:
		return audio.MP3ToWAV(r.Audio, audio.SampleRate)
	case EncodingWAV:
		return r.Audio, nil
	case EncodingPCM16, EncodingPCM22, EncodingPCM24, EncodingPCM44:
		return audio.EncodeWAV(audio.PCM16ToInt16(r.Audio), r.Format.SampleRate, 1)
	default:
		return nil, fmt.Errorf("tts: cannot convert %s to wav", r.Format.Encoding)
	}
}

// Duration estimates playback length for PCM results; 0 when unknown.
func (r *AudioResult) Duration() time.Duration {
	if r.Format.SampleRate <= 0 || r.Format.Encoding == EncodingMP3 || r.Format.Encoding == EncodingWAV {
		return 0
	}
	samples := len(r.Audio) / 2
	return time.Duration(samples) * time.Second / time.Duration(r.Format.SampleRate)
}

// AudioFormat describes the audio encoding.
type AudioFormat struct {
	Encoding   Encoding
	SampleRate int
	Channels   int
}

// Encoding names an output format. Values match ElevenLabs output_format.
type Encoding string

const (
	EncodingPCM16 Encoding = "pcm_16000"
	EncodingPCM22 Encoding = "pcm_22050"
	EncodingPCM24 Encoding = "pcm_24000"
	EncodingPCM44 Encoding = "pcm_44100"
	EncodingMP3   Encoding = "mp3_44100_128"
	EncodingWAV   Encoding = "wav"
)

// SampleRateFromEncoding extracts the sample rate from an encoding.
func SampleRateFromEncoding(enc Encoding) int {
	switch enc {
	case EncodingPCM16, EncodingWAV:
		return 16000
	case EncodingPCM22:
		return 22050
	case EncodingPCM24:
		return 24000
	case EncodingPCM44, EncodingMP3:
		return 44100
	default:
		return 24000
	}
}

func formatOf(enc Encoding) AudioFormat {
	return AudioFormat{Encoding: enc, SampleRate: SampleRateFromEncoding(enc), Channels: 1}
}

// VoiceSettings controls ElevenLabs voice characteristics.
type VoiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style"`
	SpeakerBoost    bool    `json:"use_speaker_boost"`
}

// DefaultVoiceSettings returns the settings the robot voice is tuned for.
func DefaultVoiceSettings() VoiceSettings {
	return VoiceSettings{
		Stability:       0.5,
		SimilarityBoost: 0.75,
		Style:           0.0,
		SpeakerBoost:    true,
	}
}
