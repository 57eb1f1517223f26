package audio

import (
	"bytes"
	"fmt"
	"io"

	"github.com/hajimehoshi/go-mp3"
)

// Container formats the robot playback path understands.
const (
	FormatWAV = "wav"
	FormatMP3 = "mp3"
	FormatPCM = "pcm"
)

// DecodeMP3 decodes an MP3 stream into mono 16-bit samples at the stream's rate.
func DecodeMP3(data []byte) ([]int16, int, error) {
	dec, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return nil, 0, fmt.Errorf("audio: decode mp3: %w", err)
	}
	raw, err := io.ReadAll(dec)
	if err != nil {
		return nil, 0, fmt.Errorf("audio: decode mp3: %w", err)
	}
	// go-mp3 always yields interleaved stereo.
	samples := Downmix(PCM16ToInt16(raw), 2)
	return samples, dec.SampleRate(), nil
}

// MP3ToWAV converts an MP3 stream into a mono WAV at sampleRate.
func MP3ToWAV(data []byte, sampleRate int) ([]byte, error) {
	samples, rate, err := DecodeMP3(data)
	if err != nil {
		return nil, err
	}
	return EncodeWAV(Resample(samples, rate, sampleRate), sampleRate, 1)
}

// Sniff guesses the container format of an audio buffer.
func Sniff(data []byte) string {
	switch {
	case len(data) >= 12 && string(data[:4]) == "RIFF" && string(data[8:12]) == "WAVE":
		return FormatWAV
	case len(data) >= 3 && string(data[:3]) == "ID3":
		return FormatMP3
	case len(data) >= 2 && data[0] == 0xFF && data[1]&0xE0 == 0xE0:
		return FormatMP3
	default:
		return FormatPCM
	}
}

// ToWAV normalizes any supported buffer into a mono WAV for robot playback.
// Raw PCM is assumed to be 16-bit mono at pcmRate.
func ToWAV(data []byte, pcmRate int) ([]byte, error) {
	switch Sniff(data) {
	case FormatWAV:
		return data, nil
	case FormatMP3:
		return MP3ToWAV(data, SampleRate)
	default:
		return EncodeWAV(PCM16ToInt16(data), pcmRate, 1)
	}
}
