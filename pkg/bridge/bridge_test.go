package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/teslashibe/reachy-brain/internal/retry"
	"github.com/teslashibe/reachy-brain/pkg/audio"
	"github.com/teslashibe/reachy-brain/pkg/robot"
)

func tone(n int) []int16 {
	s := make([]int16, n)
	for i := range s {
		if i%2 == 0 {
			s[i] = 8000
		} else {
			s[i] = -8000
		}
	}
	return s
}

func newTestServer(t *testing.T) (*Server, *robot.Mock, *retry.FakeClock, string) {
	t.Helper()
	dir := t.TempDir()
	mock := robot.NewMock()
	clock := retry.NewFakeClock(time.Unix(0, 0))
	s := NewServer(mock, WithRecordingsDir(dir), WithClock(clock))
	return s, mock, clock, dir
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var body map[string]any
	data, _ := io.ReadAll(resp.Body)
	if err := json.Unmarshal(data, &body); err != nil {
		t.Fatalf("response is not JSON: %s", data)
	}
	return body
}

func TestPlayWaitsForPlayback(t *testing.T) {
	s, mock, clock, dir := newTestServer(t)

	wav, _ := audio.EncodeWAV(tone(1600), audio.SampleRate, 1) // 100ms
	req := httptest.NewRequest(http.MethodPost, "/play", bytes.NewReader(wav))
	req.Header.Set("Content-Type", "audio/wav")
	resp, err := s.App().Test(req)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	body := decodeBody(t, resp)
	if body["duration_ms"].(float64) != 100 {
		t.Errorf("duration_ms = %v", body["duration_ms"])
	}

	calls := mock.Calls()
	if len(calls) != 1 || !strings.HasPrefix(calls[0], "audio.play:reply-") {
		t.Errorf("robot calls = %v", calls)
	}
	if sleeps := clock.Sleeps(); len(sleeps) != 1 || sleeps[0] != 100*time.Millisecond {
		t.Errorf("sleeps = %v", sleeps)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("reply file not cleaned up: %v", entries)
	}
}

func TestPlayRejectsEmptyBody(t *testing.T) {
	s, _, _, _ := newTestServer(t)
	resp, _ := s.App().Test(httptest.NewRequest(http.MethodPost, "/play", nil))
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d", resp.StatusCode)
	}
}

func TestListenReturnsWAV(t *testing.T) {
	s, mock, clock, dir := newTestServer(t)

	// Daemon recordings are 48 kHz stereo; the bridge normalizes them.
	raw, _ := audio.EncodeWAV(tone(4800*2), 48000, 2)
	os.WriteFile(filepath.Join(dir, "mock.wav"), raw, 0o644)

	resp, err := s.App().Test(httptest.NewRequest(http.MethodGet, "/listen?duration=0.5", nil))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		t.Fatalf("status = %d: %s", resp.StatusCode, data)
	}
	if resp.Header.Get("X-Raw-Peak") == "" {
		t.Error("missing X-Raw-Peak header")
	}
	data, _ := io.ReadAll(resp.Body)
	samples, rate, err := audio.DecodeWAV(data)
	if err != nil {
		t.Fatal(err)
	}
	if rate != audio.SampleRate {
		t.Errorf("rate = %d", rate)
	}
	if len(samples) < 1500 || len(samples) > 1700 {
		t.Errorf("got %d samples, want ~1600", len(samples))
	}

	calls := mock.Calls()
	if len(calls) != 2 || calls[0] != "audio.start" || calls[1] != "audio.stop" {
		t.Errorf("robot calls = %v", calls)
	}
	if sleeps := clock.Sleeps(); len(sleeps) != 1 || sleeps[0] != 500*time.Millisecond {
		t.Errorf("sleeps = %v", sleeps)
	}
}

func TestListenBadDuration(t *testing.T) {
	s, _, _, _ := newTestServer(t)
	resp, _ := s.App().Test(httptest.NewRequest(http.MethodGet, "/listen?duration=abc", nil))
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d", resp.StatusCode)
	}
}

func TestAnimate(t *testing.T) {
	s, mock, clock, _ := newTestServer(t)

	resp, err := s.App().Test(httptest.NewRequest(http.MethodPost, "/animate/nod", nil))
	if err != nil {
		t.Fatal(err)
	}
	body := decodeBody(t, resp)
	if body["steps"].(float64) != 5 {
		t.Errorf("steps = %v", body["steps"])
	}
	if n := len(mock.Gotos()); n != 5 {
		t.Errorf("gotos = %d", n)
	}
	if n := len(clock.Sleeps()); n != 4 {
		t.Errorf("holds = %d, want 4 (last step has none)", n)
	}

	resp, _ = s.App().Test(httptest.NewRequest(http.MethodPost, "/animate/backflip", nil))
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown animation status = %d", resp.StatusCode)
	}
}

func TestAnimatorStopsOnFailure(t *testing.T) {
	mock := robot.NewMock()
	calls := 0
	mock.GotoFunc = func(ctx context.Context, req robot.GotoRequest) error {
		calls++
		if calls == 2 {
			return errors.New("motor fault")
		}
		return nil
	}
	a := NewAnimator(mock, retry.NewFakeClock(time.Unix(0, 0)))
	steps, err := a.Play(context.Background(), "wiggle")
	if err == nil || steps != 1 {
		t.Errorf("steps = %d err = %v", steps, err)
	}
	if _, err := a.Play(context.Background(), "moonwalk"); !errors.Is(err, ErrUnknownAnimation) {
		t.Errorf("expected ErrUnknownAnimation, got %v", err)
	}
}

func TestMoveRoutes(t *testing.T) {
	s, mock, _, _ := newTestServer(t)

	for _, path := range []string{"/emotion/happy", "/dance/simple_nod", "/wake", "/sleep", "/stop"} {
		resp, err := s.App().Test(httptest.NewRequest(http.MethodPost, path, nil))
		if err != nil || resp.StatusCode != http.StatusOK {
			t.Errorf("%s: %v %v", path, resp.StatusCode, err)
		}
	}
	want := []string{
		"play:" + robot.EmotionsDataset + "/happy",
		"play:" + robot.DancesDataset + "/simple_nod",
		"wake_up", "goto_sleep", "stop",
	}
	got := mock.Calls()
	if len(got) != len(want) {
		t.Fatalf("calls = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("call %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestStatus(t *testing.T) {
	s, _, _, _ := newTestServer(t)
	resp, _ := s.App().Test(httptest.NewRequest(http.MethodGet, "/status", nil))
	body := decodeBody(t, resp)
	daemon := body["daemon"].(map[string]any)
	if daemon["state"] != "running" {
		t.Errorf("daemon = %v", daemon)
	}
}

func TestClientAgainstServer(t *testing.T) {
	s, mock, _, dir := newTestServer(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	go s.App().Listener(ln)
	defer s.Shutdown()

	c := NewClient("http://" + ln.Addr().String())
	ctx := context.Background()

	raw, _ := audio.EncodeWAV(tone(3200), audio.SampleRate, 1)
	os.WriteFile(filepath.Join(dir, "mock.wav"), raw, 0o644)
	samples, err := c.Listen(ctx, 200*time.Millisecond)
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	if len(samples) != 3200 {
		t.Errorf("samples = %d", len(samples))
	}

	if err := c.Play(ctx, raw); err != nil {
		t.Fatalf("Play: %v", err)
	}
	if err := c.Animate(ctx, "reset"); err != nil {
		t.Fatalf("Animate: %v", err)
	}
	if err := c.Animate(ctx, "nope"); err == nil {
		t.Error("expected error for unknown animation")
	}
	if _, err := c.Status(ctx); err != nil {
		t.Fatalf("Status: %v", err)
	}
	if n := len(mock.Gotos()); n != 1 {
		t.Errorf("gotos = %d", n)
	}
}
