// Package vad segments a stream of audio windows into utterances using an
// RMS energy threshold with debounce, hangover and a maximum duration.
package vad

import (
	"errors"
	"time"

	"github.com/teslashibe/reachy-brain/pkg/audio"
)

// State is the segmenter state.
type State int

const (
	Idle State = iota
	Capturing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Capturing:
		return "capturing"
	default:
		return "unknown"
	}
}

// Config tunes sensitivity. Threshold and the debounce/hangover counts are
// independent knobs.
type Config struct {
	// Threshold is the RMS energy (0..1) at or above which a window counts as speech.
	Threshold float64

	// Debounce is the number of consecutive loud windows needed to start capturing.
	Debounce int

	// Hangover is the number of consecutive quiet windows that end a capture.
	Hangover int

	// MaxDuration force-ends a capture that never goes quiet.
	MaxDuration time.Duration

	// SampleRate of the incoming samples.
	SampleRate int
}

// DefaultConfig returns thresholds tuned for the robot microphone.
func DefaultConfig() Config {
	return Config{
		Threshold:   0.02,
		Debounce:    2,
		Hangover:    3,
		MaxDuration: 15 * time.Second,
		SampleRate:  audio.SampleRate,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.Threshold <= 0 || c.Threshold >= 1 {
		return errors.New("vad: threshold must be in (0, 1)")
	}
	if c.Debounce < 1 {
		return errors.New("vad: debounce must be at least 1")
	}
	if c.Hangover < 1 {
		return errors.New("vad: hangover must be at least 1")
	}
	if c.MaxDuration <= 0 {
		return errors.New("vad: max duration must be positive")
	}
	if c.SampleRate <= 0 {
		return errors.New("vad: sample rate must be positive")
	}
	return nil
}

// Frame is one energy reading and the raw samples it was computed from.
type Frame struct {
	Energy  float64
	Samples []int16
	At      time.Time
}

// NewFrame computes the RMS energy of samples.
func NewFrame(samples []int16, at time.Time) Frame {
	return Frame{Energy: audio.RMS(samples), Samples: samples, At: at}
}

// Segmenter is the Idle/Capturing state machine. It is not safe for
// concurrent use; one goroutine feeds it.
type Segmenter struct {
	cfg   Config
	state State

	pending []Frame // loud windows seen while Idle
	buf     []int16
	start   time.Time
	last    time.Time
	quiet   int

	emitted int
}

// New creates a Segmenter.
func New(cfg Config) (*Segmenter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Segmenter{cfg: cfg}, nil
}

// State returns the current state.
func (s *Segmenter) State() State { return s.state }

// Emitted returns how many utterances have been produced.
func (s *Segmenter) Emitted() int { return s.emitted }

// Config returns the segmenter configuration.
func (s *Segmenter) Config() Config { return s.cfg }

// Push feeds one window. It returns an utterance when a capture ends.
func (s *Segmenter) Push(f Frame) (*audio.Utterance, bool) {
	loud := f.Energy >= s.cfg.Threshold

	switch s.state {
	case Idle:
		if !loud {
			s.pending = s.pending[:0]
			return nil, false
		}
		s.pending = append(s.pending, f)
		if len(s.pending) < s.cfg.Debounce {
			return nil, false
		}
		s.state = Capturing
		s.start = s.pending[0].At
		s.quiet = 0
		s.buf = s.buf[:0]
		for _, p := range s.pending {
			s.buf = append(s.buf, p.Samples...)
		}
		s.last = s.frameEnd(f)
		s.pending = s.pending[:0]
		if s.bufferedDuration() >= s.cfg.MaxDuration {
			return s.emit(), true
		}
		return nil, false

	case Capturing:
		s.buf = append(s.buf, f.Samples...)
		s.last = s.frameEnd(f)
		if loud {
			s.quiet = 0
		} else {
			s.quiet++
		}
		if s.quiet >= s.cfg.Hangover || s.bufferedDuration() >= s.cfg.MaxDuration {
			return s.emit(), true
		}
	}
	return nil, false
}

// Flush ends an in-progress capture and returns it.
func (s *Segmenter) Flush() (*audio.Utterance, bool) {
	if s.state != Capturing {
		return nil, false
	}
	return s.emit(), true
}

// Reset drops any buffered audio and returns to Idle.
func (s *Segmenter) Reset() {
	s.state = Idle
	s.pending = s.pending[:0]
	s.buf = nil
	s.quiet = 0
}

func (s *Segmenter) emit() *audio.Utterance {
	samples := make([]int16, len(s.buf))
	copy(samples, s.buf)
	u := &audio.Utterance{
		Samples:    samples,
		SampleRate: s.cfg.SampleRate,
		Channels:   1,
		Start:      s.start,
		End:        s.last,
	}
	s.emitted++
	s.Reset()
	return u
}

func (s *Segmenter) bufferedDuration() time.Duration {
	return time.Duration(len(s.buf)) * time.Second / time.Duration(s.cfg.SampleRate)
}

func (s *Segmenter) frameEnd(f Frame) time.Time {
	if f.At.IsZero() {
		return f.At
	}
	return f.At.Add(time.Duration(len(f.Samples)) * time.Second / time.Duration(s.cfg.SampleRate))
}

// Split cuts a capture chunk into fixed windows starting at start.
// A trailing partial window is kept.
func Split(samples []int16, window time.Duration, sampleRate int, start time.Time) []Frame {
	size := int(window * time.Duration(sampleRate) / time.Second)
	if size <= 0 {
		return nil
	}
	frames := make([]Frame, 0, (len(samples)+size-1)/size)
	for off := 0; off < len(samples); off += size {
		end := off + size
		if end > len(samples) {
			end = len(samples)
		}
		at := start.Add(time.Duration(off) * time.Second / time.Duration(sampleRate))
		frames = append(frames, NewFrame(samples[off:end], at))
	}
	return frames
}
