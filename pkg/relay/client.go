package relay

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/teslashibe/reachy-brain/internal/httpc"
)

// Client calls a relay server. Spotify routes may live on a separate port.
type Client struct {
	BaseURL    string
	SpotifyURL string
	http       *httpc.Client
}

// NewClient creates a relay client. An empty spotifyURL reuses baseURL.
func NewClient(baseURL, spotifyURL string) *Client {
	if spotifyURL == "" {
		spotifyURL = baseURL
	}
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		SpotifyURL: strings.TrimRight(spotifyURL, "/"),
		http:       httpc.NewWithTimeout(15 * time.Second),
	}
}

// Notify mirrors one conversation line to the chat.
func (c *Client) Notify(ctx context.Context, role, text string) error {
	var res struct {
		OK    bool   `json:"ok"`
		Error string `json:"error"`
	}
	if err := c.http.PostJSON(ctx, c.BaseURL+"/telegram", nil, Message{Role: role, Text: text}, &res); err != nil {
		return fmt.Errorf("relay: notify: %w", err)
	}
	if !res.OK {
		return fmt.Errorf("relay: notify: %s", res.Error)
	}
	return nil
}

// Health returns the relay health document.
func (c *Client) Health(ctx context.Context) (map[string]any, error) {
	var out map[string]any
	if err := c.http.GetJSON(ctx, c.BaseURL+"/health", nil, &out); err != nil {
		return nil, fmt.Errorf("relay: health: %w", err)
	}
	return out, nil
}

// SpotifyPlay asks the relay to play query.
func (c *Client) SpotifyPlay(ctx context.Context, query, kind string) (map[string]any, error) {
	var out map[string]any
	err := c.http.PostJSON(ctx, c.SpotifyURL+"/spotify/play", nil, PlayRequest{Query: query, Type: kind}, &out)
	if err != nil {
		return nil, fmt.Errorf("relay: spotify play: %w", err)
	}
	return out, nil
}

// SpotifyControl applies a playback action.
func (c *Client) SpotifyControl(ctx context.Context, action string, value *int) (map[string]any, error) {
	var out map[string]any
	err := c.http.PostJSON(ctx, c.SpotifyURL+"/spotify/control", nil, ControlRequest{Action: action, Value: value}, &out)
	if err != nil {
		return nil, fmt.Errorf("relay: spotify control: %w", err)
	}
	return out, nil
}

// SpotifyStatus returns what is playing.
func (c *Client) SpotifyStatus(ctx context.Context) (map[string]any, error) {
	var out map[string]any
	if err := c.http.GetJSON(ctx, c.SpotifyURL+"/spotify/status", nil, &out); err != nil {
		return nil, fmt.Errorf("relay: spotify status: %w", err)
	}
	return out, nil
}
