package audio

import (
	"time"
)

// Utterance is one captured spoken turn: a bounded mono PCM buffer plus
// the wall-clock bounds of the capture.
type Utterance struct {
	Samples    []int16
	SampleRate int
	Channels   int
	Start      time.Time
	End        time.Time
}

// Duration derives the audio length from the sample count.
func (u *Utterance) Duration() time.Duration {
	if u == nil || u.SampleRate <= 0 {
		return 0
	}
	ch := u.Channels
	if ch <= 0 {
		ch = 1
	}
	frames := len(u.Samples) / ch
	return time.Duration(frames) * time.Second / time.Duration(u.SampleRate)
}

// Empty reports whether the utterance carries no audio.
func (u *Utterance) Empty() bool {
	return u == nil || len(u.Samples) == 0
}

// Energy returns the RMS energy of the whole utterance.
func (u *Utterance) Energy() float64 {
	if u == nil {
		return 0
	}
	return RMS(u.Samples)
}

// WAV encodes the utterance as a 16-bit PCM WAV file.
func (u *Utterance) WAV() ([]byte, error) {
	ch := u.Channels
	if ch <= 0 {
		ch = Channels
	}
	return EncodeWAV(u.Samples, u.SampleRate, ch)
}
