package tts_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/teslashibe/reachy-brain/internal/retry"
	"github.com/teslashibe/reachy-brain/pkg/tts"
)

func TestMockProvider(t *testing.T) {
	mock := tts.NewMock()
	ctx := context.Background()

	t.Run("Synthesize returns audio", func(t *testing.T) {
		result, err := mock.Synthesize(ctx, "Hello world")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(result.Audio) == 0 {
			t.Error("expected audio data")
		}
		if result.CharCount != 11 {
			t.Errorf("expected 11 chars, got %d", result.CharCount)
		}
		if result.Format.SampleRate != 16000 {
			t.Errorf("expected 16000 sample rate, got %d", result.Format.SampleRate)
		}
	})

	t.Run("Health returns nil", func(t *testing.T) {
		if err := mock.Health(ctx); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("tracks spoken text", func(t *testing.T) {
		m := tts.NewMock()
		m.Synthesize(ctx, "one")
		m.Synthesize(ctx, "two")
		if got := m.CallCount("Synthesize"); got != 2 {
			t.Errorf("CallCount = %d, want 2", got)
		}
		if got := m.Spoken(); len(got) != 2 || got[1] != "two" {
			t.Errorf("Spoken = %q", got)
		}
	})
}

func TestMockWithError(t *testing.T) {
	boom := errors.New("boom")
	mock := tts.WithError(boom)

	_, err := mock.Synthesize(context.Background(), "hi")
	var se *tts.SynthesisError
	if !errors.As(err, &se) {
		t.Fatalf("expected *SynthesisError, got %T", err)
	}
	if !errors.Is(err, boom) {
		t.Error("expected wrapped boom")
	}
}

func TestResultWAV(t *testing.T) {
	res, err := tts.NewMock().Synthesize(context.Background(), "hey")
	if err != nil {
		t.Fatal(err)
	}
	wav, err := res.WAV()
	if err != nil {
		t.Fatalf("WAV: %v", err)
	}
	if string(wav[:4]) != "RIFF" {
		t.Errorf("expected RIFF header, got %q", wav[:4])
	}
	if res.Duration() != 60*time.Millisecond {
		t.Errorf("Duration = %v, want 60ms", res.Duration())
	}
}

func TestChainFallback(t *testing.T) {
	ctx := context.Background()

	primary := tts.WithError(errors.New("quota exceeded"))
	primary.ProviderName = "primary"
	backup := tts.NewMock()
	backup.ProviderName = "backup"

	chain, err := tts.NewChain(primary, backup)
	if err != nil {
		t.Fatal(err)
	}
	if chain.Name() != "primary>backup" {
		t.Errorf("Name = %q", chain.Name())
	}

	res, err := chain.Synthesize(ctx, "fallback please")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Provider != "mock" {
		t.Errorf("Provider = %q", res.Provider)
	}
	if primary.CallCount("Synthesize") != 1 || backup.CallCount("Synthesize") != 1 {
		t.Error("expected both providers to be tried once")
	}
}

func TestChainPrimarySucceeds(t *testing.T) {
	primary := tts.NewMock()
	backup := tts.NewMock()
	chain, _ := tts.NewChain(primary, backup)

	if _, err := chain.Synthesize(context.Background(), "hi"); err != nil {
		t.Fatal(err)
	}
	if backup.CallCount("Synthesize") != 0 {
		t.Error("backup should not be called")
	}
}

func TestChainAllFail(t *testing.T) {
	errA := errors.New("a down")
	errB := errors.New("b down")
	chain, _ := tts.NewChain(tts.WithError(errA), tts.WithError(errB))

	_, err := chain.Synthesize(context.Background(), "hi")
	if err == nil {
		t.Fatal("expected error")
	}
	var se *tts.SynthesisError
	if !errors.As(err, &se) || se.Provider != "chain" {
		t.Fatalf("expected chain SynthesisError, got %v", err)
	}
	var ce *tts.ChainError
	if !errors.As(err, &ce) || len(ce.Errors) != 2 {
		t.Fatalf("expected ChainError with 2 errors, got %v", err)
	}
	if !errors.Is(err, errA) || !errors.Is(err, errB) {
		t.Error("expected both provider errors to be reachable")
	}
}

func TestChainRequiresProvider(t *testing.T) {
	if _, err := tts.NewChain(); !errors.Is(err, tts.ErrProviderUnavailable) {
		t.Errorf("expected ErrProviderUnavailable, got %v", err)
	}
}

func TestChainHealth(t *testing.T) {
	chain, _ := tts.NewChain(tts.WithError(errors.New("down")), tts.NewMock())
	if err := chain.Health(context.Background()); err != nil {
		t.Errorf("one healthy provider should pass: %v", err)
	}
	chain, _ = tts.NewChain(tts.WithError(errors.New("down")))
	if err := chain.Health(context.Background()); err == nil {
		t.Error("expected unhealthy chain")
	}
}

func TestElevenLabsSynthesize(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/text-to-speech/21m00Tcm4TlvDq8ikWAM") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("output_format") != "pcm_16000" {
			t.Errorf("output_format = %q", r.URL.Query().Get("output_format"))
		}
		if r.Header.Get("xi-api-key") != "test-key" {
			t.Errorf("missing api key header")
		}
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		if body["text"] != "Hello robot" {
			t.Errorf("text = %v", body["text"])
		}
		w.Write(make([]byte, 3200))
	}))
	defer server.Close()

	el, err := tts.NewElevenLabs(
		tts.WithAPIKey("test-key"),
		tts.WithVoice("rachel"),
		tts.WithBaseURL(server.URL),
		tts.WithOutputFormat(tts.EncodingPCM16),
	)
	if err != nil {
		t.Fatal(err)
	}
	res, err := el.Synthesize(context.Background(), "Hello robot")
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if len(res.Audio) != 3200 || res.Provider != "elevenlabs" {
		t.Errorf("unexpected result: %d bytes from %s", len(res.Audio), res.Provider)
	}
	if res.Duration() != 100*time.Millisecond {
		t.Errorf("Duration = %v", res.Duration())
	}
}

func TestElevenLabsRetriesServerErrors(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte{0, 0, 0, 0})
	}))
	defer server.Close()

	clock := retry.NewFakeClock(time.Unix(0, 0))
	el, _ := tts.NewElevenLabs(
		tts.WithAPIKey("k"),
		tts.WithVoice("rachel"),
		tts.WithBaseURL(server.URL),
		tts.WithRetry(2, 100*time.Millisecond),
		tts.WithClock(clock),
	)
	if _, err := el.Synthesize(context.Background(), "retry"); err != nil {
		t.Fatalf("expected success after retry, got %v", err)
	}
	if hits.Load() != 2 {
		t.Errorf("hits = %d, want 2", hits.Load())
	}
	if len(clock.Sleeps()) != 1 {
		t.Errorf("sleeps = %v, want one", clock.Sleeps())
	}
}

func TestElevenLabsUnauthorizedNotRetried(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"detail":{"status":"invalid_api_key","message":"Invalid API key"}}`))
	}))
	defer server.Close()

	el, _ := tts.NewElevenLabs(
		tts.WithAPIKey("bad"),
		tts.WithVoice("rachel"),
		tts.WithBaseURL(server.URL),
		tts.WithClock(retry.NewFakeClock(time.Unix(0, 0))),
	)
	_, err := el.Synthesize(context.Background(), "hello")
	var apiErr *tts.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if !apiErr.IsUnauthorized() || apiErr.Message != "Invalid API key" {
		t.Errorf("unexpected api error: %+v", apiErr)
	}
	if hits.Load() != 1 {
		t.Errorf("hits = %d, want 1", hits.Load())
	}
}

func TestElevenLabsValidation(t *testing.T) {
	if _, err := tts.NewElevenLabs(tts.WithVoice("rachel")); !errors.Is(err, tts.ErrNoAPIKey) {
		t.Errorf("expected ErrNoAPIKey, got %v", err)
	}
	if _, err := tts.NewElevenLabs(tts.WithAPIKey("k")); !errors.Is(err, tts.ErrNoVoiceID) {
		t.Errorf("expected ErrNoVoiceID, got %v", err)
	}
	el, _ := tts.NewElevenLabs(tts.WithAPIKey("k"), tts.WithVoice("rachel"))
	if _, err := el.Synthesize(context.Background(), "   "); !errors.Is(err, tts.ErrEmptyText) {
		t.Errorf("expected ErrEmptyText, got %v", err)
	}
}

func TestOpenAISynthesize(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/audio/speech" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			t.Errorf("missing bearer token")
		}
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		if body["response_format"] != "mp3" {
			t.Errorf("response_format = %v", body["response_format"])
		}
		w.Write([]byte("ID3fake"))
	}))
	defer server.Close()

	o, err := tts.NewOpenAI(tts.WithAPIKey("sk-test"), tts.WithBaseURL(server.URL))
	if err != nil {
		t.Fatal(err)
	}
	res, err := o.Synthesize(context.Background(), "Hi")
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if res.Format.Encoding != tts.EncodingMP3 || res.Provider != "openai" {
		t.Errorf("unexpected result %+v", res.Format)
	}
}

func TestCacheHit(t *testing.T) {
	ctx := context.Background()
	mock := tts.NewMock()
	cache, err := tts.NewCache(mock, t.TempDir(), "rachel")
	if err != nil {
		t.Fatal(err)
	}

	first, err := cache.Synthesize(ctx, "I'm having trouble thinking right now.")
	if err != nil {
		t.Fatal(err)
	}
	if first.Cached {
		t.Error("first call should not be cached")
	}
	second, err := cache.Synthesize(ctx, "I'm having trouble thinking right now.")
	if err != nil {
		t.Fatal(err)
	}
	if !second.Cached {
		t.Error("second call should be cached")
	}
	if len(second.Audio) != len(first.Audio) || second.Format != first.Format {
		t.Error("cached audio differs")
	}
	if mock.CallCount("Synthesize") != 1 {
		t.Errorf("provider called %d times, want 1", mock.CallCount("Synthesize"))
	}

	if err := cache.Clear(); err != nil {
		t.Fatal(err)
	}
	cache.Synthesize(ctx, "I'm having trouble thinking right now.")
	if mock.CallCount("Synthesize") != 2 {
		t.Error("expected miss after Clear")
	}
}

func TestCacheKeyVariesByVoice(t *testing.T) {
	dir := t.TempDir()
	a, _ := tts.NewCache(tts.NewMock(), dir, "rachel")
	b, _ := tts.NewCache(tts.NewMock(), dir, "josh")
	if a.Key("hello") == b.Key("hello") {
		t.Error("keys should differ by voice")
	}
}

func TestComposeCachesPerProvider(t *testing.T) {
	ctx := context.Background()
	down := true
	primary := &tts.Mock{
		ProviderName: "elevenlabs",
		SynthesizeFunc: func(ctx context.Context, text string) (*tts.AudioResult, error) {
			if down {
				return nil, errors.New("503 from elevenlabs")
			}
			return &tts.AudioResult{
				Audio:    []byte("primary voice"),
				Format:   tts.AudioFormat{Encoding: tts.EncodingMP3, SampleRate: 44100, Channels: 1},
				Provider: "elevenlabs",
			}, nil
		},
	}
	fallback := tts.NewMock()
	fallback.ProviderName = "openai"

	p, err := tts.Compose(t.TempDir(), "rachel", primary, fallback)
	if err != nil {
		t.Fatal(err)
	}
	if p.Name() != "elevenlabs>openai" {
		t.Errorf("Name = %q", p.Name())
	}

	if _, err := p.Synthesize(ctx, "Hello there"); err != nil {
		t.Fatalf("fallback synthesis: %v", err)
	}

	down = false
	res, err := p.Synthesize(ctx, "Hello there")
	if err != nil {
		t.Fatal(err)
	}
	if string(res.Audio) != "primary voice" || res.Cached {
		t.Errorf("recovered primary not used: cached=%v audio=%d bytes", res.Cached, len(res.Audio))
	}

	res, err = p.Synthesize(ctx, "Hello there")
	if err != nil {
		t.Fatal(err)
	}
	if !res.Cached || string(res.Audio) != "primary voice" {
		t.Errorf("expected primary cache hit, got cached=%v", res.Cached)
	}
	if primary.CallCount("Synthesize") != 2 || fallback.CallCount("Synthesize") != 1 {
		t.Errorf("calls: primary=%d fallback=%d", primary.CallCount("Synthesize"), fallback.CallCount("Synthesize"))
	}
}

func TestBuild(t *testing.T) {
	p, err := tts.Build(tts.Settings{
		Primary:       "elevenlabs",
		Fallback:      "openai",
		ElevenLabsKey: "el",
		OpenAIKey:     "oa",
	})
	if err != nil {
		t.Fatal(err)
	}
	if p.Name() != "elevenlabs>openai" {
		t.Errorf("Name = %q", p.Name())
	}

	if _, err := tts.Build(tts.Settings{Primary: "festival"}); !errors.Is(err, tts.ErrUnknownProvider) {
		t.Errorf("expected ErrUnknownProvider, got %v", err)
	}
}

func TestResolveVoice(t *testing.T) {
	if tts.ResolveVoice("rachel") != "21m00Tcm4TlvDq8ikWAM" {
		t.Error("rachel should resolve")
	}
	if tts.ResolveVoice("abc123") != "abc123" {
		t.Error("raw IDs pass through")
	}
}

func TestAPIErrorRetryable(t *testing.T) {
	cases := []struct {
		status int
		want   bool
	}{
		{429, true}, {500, true}, {503, true}, {400, false}, {401, false},
	}
	for _, c := range cases {
		e := &tts.APIError{StatusCode: c.status}
		if e.IsRetryable() != c.want {
			t.Errorf("status %d: IsRetryable = %v", c.status, e.IsRetryable())
		}
	}
}
