package audio

import (
	"math"
	"testing"
	"time"
)

func sine(n int, amp float64) []int16 {
	out := make([]int16, n)
	for i := range out {
		out[i] = int16(amp * 32767 * math.Sin(2*math.Pi*440*float64(i)/SampleRate))
	}
	return out
}

func TestRMS(t *testing.T) {
	if RMS(nil) != 0 {
		t.Error("RMS(nil) should be 0")
	}
	if RMS(make([]int16, 100)) != 0 {
		t.Error("RMS of silence should be 0")
	}
	got := RMS(sine(SampleRate, 0.5))
	want := 0.5 / math.Sqrt2
	if math.Abs(got-want) > 0.01 {
		t.Errorf("RMS = %v, want ~%v", got, want)
	}
}

func TestPeak(t *testing.T) {
	if got := Peak([]int16{0, -16384, 8000}); math.Abs(got-0.5) > 0.001 {
		t.Errorf("Peak = %v, want 0.5", got)
	}
}

func TestPCMRoundTrip(t *testing.T) {
	in := []int16{0, 1, -1, 32767, -32768}
	out := PCM16ToInt16(Int16ToPCM16(in))
	for i := range in {
		if in[i] != out[i] {
			t.Errorf("sample %d: got %d, want %d", i, out[i], in[i])
		}
	}
}

func TestDownmix(t *testing.T) {
	got := Downmix([]int16{100, 300, -200, 200}, 2)
	if len(got) != 2 || got[0] != 200 || got[1] != 0 {
		t.Errorf("Downmix = %v, want [200 0]", got)
	}
}

func TestResample(t *testing.T) {
	in := sine(24000, 0.3)
	out := Resample(in, 24000, 16000)
	if len(out) != 16000 {
		t.Errorf("len = %d, want 16000", len(out))
	}
	if same := Resample(in, 16000, 16000); len(same) != len(in) {
		t.Error("same-rate resample should be a no-op")
	}
}

func TestWAVRoundTrip(t *testing.T) {
	in := sine(1600, 0.25)
	data, err := EncodeWAV(in, SampleRate, 1)
	if err != nil {
		t.Fatalf("EncodeWAV: %v", err)
	}
	if Sniff(data) != FormatWAV {
		t.Fatalf("Sniff = %s, want wav", Sniff(data))
	}

	out, rate, err := DecodeWAV(data)
	if err != nil {
		t.Fatalf("DecodeWAV: %v", err)
	}
	if rate != SampleRate {
		t.Errorf("rate = %d", rate)
	}
	if len(out) != len(in) {
		t.Fatalf("len = %d, want %d", len(out), len(in))
	}
	for i := range in {
		if out[i] != in[i] {
			t.Fatalf("sample %d: got %d, want %d", i, out[i], in[i])
		}
	}
}

func TestDecodeWAVInvalid(t *testing.T) {
	if _, _, err := DecodeWAV([]byte("definitely not a wav file")); err == nil {
		t.Error("expected error for invalid wav")
	}
}

func TestSniff(t *testing.T) {
	tests := []struct {
		data []byte
		want string
	}{
		{[]byte("ID3\x04\x00"), FormatMP3},
		{[]byte{0xFF, 0xFB, 0x90}, FormatMP3},
		{[]byte{0x01, 0x02}, FormatPCM},
	}
	for _, tt := range tests {
		if got := Sniff(tt.data); got != tt.want {
			t.Errorf("Sniff(%v) = %s, want %s", tt.data, got, tt.want)
		}
	}
}

func TestToWAVFromPCM(t *testing.T) {
	pcm := Int16ToPCM16(sine(480, 0.1))
	data, err := ToWAV(pcm, 24000)
	if err != nil {
		t.Fatalf("ToWAV: %v", err)
	}
	_, rate, err := DecodeWAV(data)
	if err != nil {
		t.Fatalf("DecodeWAV: %v", err)
	}
	if rate != 24000 {
		t.Errorf("rate = %d, want 24000", rate)
	}
}

func TestUtterance(t *testing.T) {
	u := &Utterance{Samples: make([]int16, SampleRate/2), SampleRate: SampleRate, Channels: 1}
	if u.Duration() != 500*time.Millisecond {
		t.Errorf("Duration = %v", u.Duration())
	}
	if u.Empty() {
		t.Error("utterance should not be empty")
	}
	var nilU *Utterance
	if !nilU.Empty() || nilU.Duration() != 0 {
		t.Error("nil utterance should be empty")
	}
	if _, err := u.WAV(); err != nil {
		t.Errorf("WAV: %v", err)
	}
}
