// Package audio holds the audio types that move between the segmenter,
// the turn pipeline and the robot: utterances, PCM helpers and the WAV/MP3
// conversions the bridge needs.
package audio

import (
	"encoding/binary"
	"math"
)

// Standard formats used across the system.
const (
	SampleRate     = 16000 // microphone capture and robot playback
	Channels       = 1
	BitDepth       = 16
	BytesPerSample = 2
)

// PCM16ToInt16 converts little-endian 16-bit PCM bytes to samples.
func PCM16ToInt16(data []byte) []int16 {
	samples := make([]int16, len(data)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(data[i*2:]))
	}
	return samples
}

// Int16ToPCM16 converts samples to little-endian 16-bit PCM bytes.
func Int16ToPCM16(samples []int16) []byte {
	data := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(data[i*2:], uint16(s))
	}
	return data
}

// RMS returns the root-mean-square amplitude of samples, normalized to [0, 1].
func RMS(samples []int16) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		v := float64(s) / 32768.0
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(samples)))
}

// Peak returns the largest absolute sample, normalized to [0, 1].
func Peak(samples []int16) float64 {
	var peak float64
	for _, s := range samples {
		v := math.Abs(float64(s) / 32768.0)
		if v > peak {
			peak = v
		}
	}
	return peak
}

// Downmix averages interleaved channels into mono.
func Downmix(samples []int16, channels int) []int16 {
	if channels <= 1 {
		return samples
	}
	frames := len(samples) / channels
	out := make([]int16, frames)
	for i := 0; i < frames; i++ {
		var sum int
		for c := 0; c < channels; c++ {
			sum += int(samples[i*channels+c])
		}
		out[i] = int16(sum / channels)
	}
	return out
}

// Resample converts mono samples from srcRate to dstRate by linear interpolation.
func Resample(samples []int16, srcRate, dstRate int) []int16 {
	if srcRate == dstRate || len(samples) == 0 || srcRate <= 0 || dstRate <= 0 {
		return samples
	}

	ratio := float64(dstRate) / float64(srcRate)
	n := int(float64(len(samples)) * ratio)
	out := make([]int16, n)
	for i := 0; i < n; i++ {
		pos := float64(i) / ratio
		idx := int(pos)
		if idx >= len(samples)-1 {
			out[i] = samples[len(samples)-1]
			continue
		}
		frac := pos - float64(idx)
		out[i] = int16(float64(samples[idx])*(1-frac) + float64(samples[idx+1])*frac)
	}
	return out
}
