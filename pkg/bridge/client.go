package bridge

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/teslashibe/reachy-brain/internal/httpc"
	"github.com/teslashibe/reachy-brain/pkg/audio"
)

// Client timeouts. Play blocks for the length of the reply.
const (
	ClientTimeout = 10 * time.Second
	PlayTimeout   = 2 * time.Minute
)

// Client talks to a bridge server. It is the agent's audio source and player.
type Client struct {
	BaseURL string
	http    *httpc.Client
}

// NewClient creates a client for the bridge at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		http:    httpc.NewWithTimeout(ClientTimeout),
	}
}

// Play sends audio to the robot speaker and returns when playback ends.
// WAV and MP3 are accepted.
func (c *Client) Play(ctx context.Context, data []byte) error {
	contentType := "audio/wav"
	if audio.Sniff(data) == audio.FormatMP3 {
		contentType = "audio/mpeg"
	}
	_, err := c.http.Call(ctx, httpc.Request{
		Method:  http.MethodPost,
		URL:     c.BaseURL + "/play",
		Headers: map[string]string{"Content-Type": contentType},
		Body:    data,
		Timeout: PlayTimeout,
	})
	if err != nil {
		return fmt.Errorf("bridge: play: %w", err)
	}
	return nil
}

// Listen records one window of d from the robot microphones and returns
// mono samples at audio.SampleRate.
func (c *Client) Listen(ctx context.Context, d time.Duration) ([]int16, error) {
	q := url.Values{"duration": {strconv.FormatFloat(d.Seconds(), 'f', -1, 64)}}
	resp, err := c.http.Call(ctx, httpc.Request{
		Method:  http.MethodGet,
		URL:     c.BaseURL + "/listen?" + q.Encode(),
		Timeout: d + ClientTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("bridge: listen: %w", err)
	}
	samples, err := audio.DecodeUtteranceWAV(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("bridge: listen: %w", err)
	}
	return samples, nil
}

// Animate plays a custom animation.
func (c *Client) Animate(ctx context.Context, name string) error {
	if err := c.http.PostJSON(ctx, c.BaseURL+"/animate/"+url.PathEscape(name), nil, nil, nil); err != nil {
		return fmt.Errorf("bridge: animate %s: %w", name, err)
	}
	return nil
}

// Status returns the bridge status document.
func (c *Client) Status(ctx context.Context) (map[string]any, error) {
	var status map[string]any
	if err := c.http.GetJSON(ctx, c.BaseURL+"/status", nil, &status); err != nil {
		return nil, fmt.Errorf("bridge: status: %w", err)
	}
	return status, nil
}
