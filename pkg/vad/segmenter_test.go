package vad

import (
	"testing"
	"time"
)

const windowSamples = 1600 // 100ms at 16kHz

func testConfig() Config {
	return Config{
		Threshold:   0.1,
		Debounce:    2,
		Hangover:    3,
		MaxDuration: 2 * time.Second,
		SampleRate:  16000,
	}
}

// frame builds a window whose samples are all v, tagged so spans can be checked.
func frame(energy float64, v int16, at time.Time) Frame {
	samples := make([]int16, windowSamples)
	for i := range samples {
		samples[i] = v
	}
	return Frame{Energy: energy, Samples: samples, At: at}
}

func feed(t *testing.T, s *Segmenter, energies []float64) (utterances [][]int16, starts []time.Time) {
	t.Helper()
	base := time.Unix(1000, 0)
	for i, e := range energies {
		at := base.Add(time.Duration(i) * 100 * time.Millisecond)
		if u, ok := s.Push(frame(e, int16(i+1), at)); ok {
			utterances = append(utterances, u.Samples)
			starts = append(starts, u.Start)
		}
	}
	return utterances, starts
}

func TestNewValidates(t *testing.T) {
	bad := testConfig()
	bad.Debounce = 0
	if _, err := New(bad); err == nil {
		t.Error("expected error for zero debounce")
	}
	if _, err := New(DefaultConfig()); err != nil {
		t.Errorf("DefaultConfig rejected: %v", err)
	}
}

func TestNeverEmitsBelowThreshold(t *testing.T) {
	s, _ := New(testConfig())
	energies := make([]float64, 200)
	for i := range energies {
		energies[i] = 0.099 * float64(i%3) / 2
	}
	got, _ := feed(t, s, energies)
	if len(got) != 0 {
		t.Errorf("emitted %d utterances, want 0", len(got))
	}
	if s.State() != Idle {
		t.Errorf("state = %v, want idle", s.State())
	}
}

func TestSingleSpikeIsDebounced(t *testing.T) {
	s, _ := New(testConfig())
	got, _ := feed(t, s, []float64{0, 0.5, 0, 0.5, 0, 0, 0, 0})
	if len(got) != 0 {
		t.Errorf("emitted %d utterances from isolated spikes, want 0", len(got))
	}
}

func TestEmitsExactlyOneUtterance(t *testing.T) {
	s, _ := New(testConfig())
	// idle, idle, rise(2), loud, loud, quiet x3 (hangover), idle...
	energies := []float64{0, 0, 0.3, 0.4, 0.5, 0.2, 0.01, 0.02, 0.03, 0, 0}
	got, starts := feed(t, s, energies)

	if len(got) != 1 {
		t.Fatalf("emitted %d utterances, want 1", len(got))
	}
	// Spans index 2 (first qualifying rise) through index 8 (last hangover window).
	want := 7 * windowSamples
	if len(got[0]) != want {
		t.Errorf("samples = %d, want %d", len(got[0]), want)
	}
	if got[0][0] != 3 {
		t.Errorf("first sample tag = %d, want 3 (index 2)", got[0][0])
	}
	if last := got[0][len(got[0])-1]; last != 9 {
		t.Errorf("last sample tag = %d, want 9 (index 8)", last)
	}
	if wantStart := time.Unix(1000, 0).Add(200 * time.Millisecond); !starts[0].Equal(wantStart) {
		t.Errorf("start = %v, want %v", starts[0], wantStart)
	}
	if s.State() != Idle {
		t.Errorf("state = %v, want idle after emit", s.State())
	}
}

func TestLoudWindowResetsHangover(t *testing.T) {
	s, _ := New(testConfig())
	energies := []float64{0.5, 0.5, 0, 0, 0.5, 0, 0, 0}
	got, _ := feed(t, s, energies)
	if len(got) != 1 {
		t.Fatalf("emitted %d utterances, want 1", len(got))
	}
	if len(got[0]) != 8*windowSamples {
		t.Errorf("samples = %d, want %d", len(got[0]), 8*windowSamples)
	}
}

func TestMaxDurationBound(t *testing.T) {
	cfg := testConfig()
	cfg.MaxDuration = time.Second
	s, _ := New(cfg)

	energies := make([]float64, 25)
	for i := range energies {
		energies[i] = 0.9
	}
	got, _ := feed(t, s, energies)

	if len(got) != 2 {
		t.Fatalf("emitted %d utterances, want 2", len(got))
	}
	for i, u := range got {
		if len(u) != 10*windowSamples {
			t.Errorf("utterance %d: samples = %d, want %d", i, len(u), 10*windowSamples)
		}
	}
	if s.State() != Capturing {
		t.Errorf("state = %v, want capturing for the remaining loud windows", s.State())
	}
}

func TestFlushAndReset(t *testing.T) {
	s, _ := New(testConfig())
	s.Push(frame(0.5, 1, time.Time{}))
	s.Push(frame(0.5, 1, time.Time{}))

	u, ok := s.Flush()
	if !ok || len(u.Samples) != 2*windowSamples {
		t.Fatalf("Flush = (%v, %v)", u, ok)
	}
	if _, ok := s.Flush(); ok {
		t.Error("second Flush should report nothing")
	}

	s.Push(frame(0.5, 1, time.Time{}))
	s.Push(frame(0.5, 1, time.Time{}))
	s.Reset()
	if s.State() != Idle {
		t.Error("Reset should return to idle")
	}
	if s.Emitted() != 1 {
		t.Errorf("Emitted = %d, want 1", s.Emitted())
	}
}

func TestSplit(t *testing.T) {
	samples := make([]int16, 16000+800)
	frames := Split(samples, 100*time.Millisecond, 16000, time.Unix(0, 0))
	if len(frames) != 11 {
		t.Fatalf("frames = %d, want 11", len(frames))
	}
	if len(frames[10].Samples) != 800 {
		t.Errorf("tail = %d samples, want 800", len(frames[10].Samples))
	}
	if !frames[1].At.Equal(time.Unix(0, 0).Add(100 * time.Millisecond)) {
		t.Errorf("frame 1 at %v", frames[1].At)
	}
}
