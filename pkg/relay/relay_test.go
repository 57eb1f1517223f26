package relay

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

type botAPI struct {
	mu       sync.Mutex
	payloads []map[string]any
	reject   bool // reject Markdown messages
}

func newBotAPI(t *testing.T, reject bool) (*httptest.Server, *botAPI) {
	api := &botAPI{reject: reject}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/botTOKEN/sendMessage" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var p map[string]any
		json.NewDecoder(r.Body).Decode(&p)
		api.mu.Lock()
		api.payloads = append(api.payloads, p)
		api.mu.Unlock()

		if _, markdown := p["parse_mode"]; markdown && api.reject {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"ok":false,"description":"can't parse entities"}`))
			return
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	return server, api
}

func newTelegram(url string) *Telegram {
	tg := NewTelegram("TOKEN", "42")
	tg.API = url
	return tg
}

func TestPrefix(t *testing.T) {
	tests := map[string]string{
		"user":   "🎤 You: hi",
		"reachy": "🤖 Reachy: hi",
		"system": "⚙️ hi",
		"bot":    "bot: hi",
	}
	for role, want := range tests {
		if got := Format(role, "hi"); got != want {
			t.Errorf("Format(%q) = %q, want %q", role, got, want)
		}
	}
}

func TestTelegramMarkdown(t *testing.T) {
	server, api := newBotAPI(t, false)
	defer server.Close()

	if err := newTelegram(server.URL).Send(context.Background(), "*hello*"); err != nil {
		t.Fatal(err)
	}
	if len(api.payloads) != 1 {
		t.Fatalf("sent %d times", len(api.payloads))
	}
	p := api.payloads[0]
	if p["parse_mode"] != "Markdown" || p["chat_id"] != "42" || p["disable_notification"] != true {
		t.Errorf("payload = %v", p)
	}
}

func TestTelegramRetriesPlain(t *testing.T) {
	server, api := newBotAPI(t, true)
	defer server.Close()

	if err := newTelegram(server.URL).Send(context.Background(), "bad_markdown*"); err != nil {
		t.Fatal(err)
	}
	if len(api.payloads) != 2 {
		t.Fatalf("sent %d times, want 2", len(api.payloads))
	}
	if _, ok := api.payloads[1]["parse_mode"]; ok {
		t.Error("retry should drop parse_mode")
	}
}

func TestTelegramNoToken(t *testing.T) {
	if err := NewTelegram("", "1").Send(context.Background(), "x"); !errors.Is(err, ErrNoToken) {
		t.Errorf("expected ErrNoToken, got %v", err)
	}
}

type fakeRunner struct {
	calls [][]string
	out   string
	err   error
}

func (f *fakeRunner) run(ctx context.Context, name string, args ...string) ([]byte, error) {
	f.calls = append(f.calls, append([]string{name}, args...))
	return []byte(f.out), f.err
}

func TestSpotifyCommands(t *testing.T) {
	f := &fakeRunner{}
	s := &Spotify{Command: "spotify_player", Run: f.run}
	ctx := context.Background()

	if _, err := s.Play(ctx, "Daft Punk", "artist"); err != nil {
		t.Fatal(err)
	}
	vol := 150
	if _, err := s.Control(ctx, "volume", &vol); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Control(ctx, "next", nil); err != nil {
		t.Fatal(err)
	}
	want := []string{
		"spotify_player playback start context artist --name Daft Punk",
		"spotify_player playback volume 100",
		"spotify_player playback next",
	}
	for i, w := range want {
		if got := strings.Join(f.calls[i], " "); got != w {
			t.Errorf("call %d = %q, want %q", i, got, w)
		}
	}

	if _, err := s.Control(ctx, "rewind", nil); !errors.Is(err, ErrInvalidAction) {
		t.Errorf("expected ErrInvalidAction, got %v", err)
	}
	if _, err := s.Play(ctx, " ", ""); err == nil {
		t.Error("empty query should fail")
	}
}

func TestSpotifyStatusSummary(t *testing.T) {
	f := &fakeRunner{out: `{"is_playing":true,"item":{"name":"One More Time","artists":[{"name":"Daft Punk"}]}}`}
	s := &Spotify{Command: "sp", Run: f.run}
	status, err := s.Status(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if status["playing"] != true || status["track"] != "One More Time" || status["artist"] != "Daft Punk" {
		t.Errorf("status = %v", status)
	}
}

func TestServerRoutes(t *testing.T) {
	bot, api := newBotAPI(t, false)
	defer bot.Close()
	f := &fakeRunner{}
	srv := NewServer(newTelegram(bot.URL), &Spotify{Command: "sp", Run: f.run}, nil)
	app := srv.NewApp("relay-test", false)

	resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
	var health map[string]any
	data, _ := io.ReadAll(resp.Body)
	json.Unmarshal(data, &health)
	if health["status"] != "ok" || health["chat_id"] != "42" || health["has_token"] != true {
		t.Errorf("health = %v", health)
	}

	req := httptest.NewRequest(http.MethodPost, "/telegram", strings.NewReader(`{"role":"user","text":"hello robot"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, _ = app.Test(req)
	data, _ = io.ReadAll(resp.Body)
	if !strings.Contains(string(data), `"ok":true`) {
		t.Errorf("telegram response = %s", data)
	}
	if api.payloads[0]["text"] != "🎤 You: hello robot" {
		t.Errorf("sent text = %v", api.payloads[0]["text"])
	}

	req = httptest.NewRequest(http.MethodPost, "/spotify/control", strings.NewReader(`{"action":"dance"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, _ = app.Test(req)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("invalid action status = %d", resp.StatusCode)
	}

	spotifyOnly := srv.NewApp("spotify-test", true)
	resp, _ = spotifyOnly.Test(httptest.NewRequest(http.MethodPost, "/telegram", nil))
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("spotify-only app served /telegram: %d", resp.StatusCode)
	}
}

func TestClientAgainstServer(t *testing.T) {
	bot, _ := newBotAPI(t, false)
	defer bot.Close()
	f := &fakeRunner{out: "null"}
	app := NewServer(newTelegram(bot.URL), &Spotify{Command: "sp", Run: f.run}, nil).NewApp("relay-test", false)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	go app.Listener(ln)
	defer app.Shutdown()

	c := NewClient("http://"+ln.Addr().String(), "")
	ctx := context.Background()

	if err := c.Notify(ctx, RoleRobot, "Hi there!"); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if _, err := c.SpotifyPlay(ctx, "jazz", ""); err != nil {
		t.Fatalf("SpotifyPlay: %v", err)
	}
	status, err := c.SpotifyStatus(ctx)
	if err != nil {
		t.Fatalf("SpotifyStatus: %v", err)
	}
	if status["playing"] != false {
		t.Errorf("status = %v", status)
	}
	if _, err := c.Health(ctx); err != nil {
		t.Fatalf("Health: %v", err)
	}
}
