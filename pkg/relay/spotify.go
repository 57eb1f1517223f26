package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"slices"
	"strconv"
	"strings"
)

// Runner runs a command and returns its combined output.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// ExecRunner runs commands with os/exec.
func ExecRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// Spotify actions and search types.
var (
	SpotifyActions = []string{"next", "previous", "play", "pause", "shuffle", "volume"}
	SearchTypes    = []string{"track", "artist", "album", "playlist"}
)

// ErrInvalidAction is returned for unknown playback actions.
var ErrInvalidAction = errors.New("relay: invalid spotify action")

// Spotify drives a spotify_player style CLI.
type Spotify struct {
	Command string
	Run     Runner
}

// NewSpotify creates a Spotify controller for command.
func NewSpotify(command string) *Spotify {
	if command == "" {
		command = "spotify_player"
	}
	return &Spotify{Command: command, Run: ExecRunner}
}

// Play searches for query and starts playing the first match.
func (s *Spotify) Play(ctx context.Context, query, kind string) (string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", errors.New("relay: empty spotify query")
	}
	if kind == "" {
		kind = "track"
	}
	if !slices.Contains(SearchTypes, kind) {
		return "", fmt.Errorf("relay: invalid search type %q", kind)
	}
	args := []string{"playback", "start", "context", kind, "--name", query}
	if kind == "track" {
		args = []string{"playback", "start", "radio", "--name", query, "track"}
	}
	return s.run(ctx, args...)
}

// Control applies a playback action. value is used by "volume" only.
func (s *Spotify) Control(ctx context.Context, action string, value *int) (string, error) {
	var args []string
	switch action {
	case "next", "previous", "play", "pause", "shuffle":
		args = []string{"playback", action}
	case "volume":
		if value == nil {
			return "", fmt.Errorf("%w: volume needs a value", ErrInvalidAction)
		}
		v := min(max(*value, 0), 100)
		args = []string{"playback", "volume", strconv.Itoa(v)}
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidAction, action)
	}
	return s.run(ctx, args...)
}

// Status returns the current playback document. Non-JSON output is wrapped.
func (s *Spotify) Status(ctx context.Context) (map[string]any, error) {
	out, err := s.run(ctx, "get", "key", "playback")
	if err != nil {
		return nil, err
	}
	var doc map[string]any
	if json.Unmarshal([]byte(out), &doc) == nil {
		return summarize(doc), nil
	}
	if out == "" || out == "null" {
		return map[string]any{"playing": false}, nil
	}
	return map[string]any{"output": out}, nil
}

func (s *Spotify) run(ctx context.Context, args ...string) (string, error) {
	out, err := s.Run(ctx, s.Command, args...)
	text := strings.TrimSpace(string(out))
	if err != nil {
		if text != "" {
			return "", fmt.Errorf("relay: %s %s: %w: %s", s.Command, strings.Join(args, " "), err, text)
		}
		return "", fmt.Errorf("relay: %s %s: %w", s.Command, strings.Join(args, " "), err)
	}
	return text, nil
}

// summarize keeps the fields worth saying out loud.
func summarize(doc map[string]any) map[string]any {
	out := map[string]any{"playing": doc["is_playing"] == true}
	item, _ := doc["item"].(map[string]any)
	if item == nil {
		return out
	}
	out["track"] = item["name"]
	if artists, ok := item["artists"].([]any); ok {
		names := make([]string, 0, len(artists))
		for _, a := range artists {
			if m, ok := a.(map[string]any); ok {
				if n, ok := m["name"].(string); ok {
					names = append(names, n)
				}
			}
		}
		out["artist"] = strings.Join(names, ", ")
	}
	return out
}
