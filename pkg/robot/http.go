package robot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/teslashibe/reachy-brain/internal/httpc"
	"github.com/teslashibe/reachy-brain/internal/log"
)

// DefaultTimeout bounds every daemon call. Daemon start can take a while
// because it waits for the motors.
const (
	DefaultTimeout       = 10 * time.Second
	DefaultDaemonTimeout = 30 * time.Second
)

// Client implements Controller using the robot daemon's HTTP API.
type Client struct {
	BaseURL string

	http   *httpc.Client
	logger *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the transport client.
func WithHTTPClient(c *httpc.Client) ClientOption {
	return func(r *Client) { r.http = c }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) ClientOption {
	return func(r *Client) { r.logger = l }
}

// NewClient creates a client for the daemon at baseURL, e.g. http://10.0.0.68:8000.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		http:    httpc.NewWithTimeout(DefaultTimeout),
		logger:  log.Component("robot"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// DaemonStatus returns the robot daemon status.
func (c *Client) DaemonStatus(ctx context.Context) (*DaemonStatus, error) {
	var status DaemonStatus
	if err := c.http.GetJSON(ctx, c.BaseURL+"/api/daemon/status", nil, &status); err != nil {
		return nil, fmt.Errorf("robot: daemon status: %w", err)
	}
	return &status, nil
}

// StartDaemon starts the daemon backend, optionally waking the robot.
func (c *Client) StartDaemon(ctx context.Context, wakeUp bool) error {
	return c.daemonCall(ctx, "start", "wake_up", wakeUp)
}

// StopDaemon stops the daemon backend, optionally putting the robot to sleep first.
func (c *Client) StopDaemon(ctx context.Context, gotoSleep bool) error {
	return c.daemonCall(ctx, "stop", "goto_sleep", gotoSleep)
}

func (c *Client) daemonCall(ctx context.Context, action, flag string, value bool) error {
	q := url.Values{flag: {fmt.Sprint(value)}}
	_, err := c.http.Call(ctx, httpc.Request{
		Method:  http.MethodPost,
		URL:     c.BaseURL + "/api/daemon/" + action + "?" + q.Encode(),
		Timeout: DefaultDaemonTimeout,
	})
	if err != nil {
		return fmt.Errorf("robot: daemon %s: %w", action, err)
	}
	c.logger.Info("daemon "+action, flag, value)
	return nil
}

// Goto interpolates to a target pose over req.Duration seconds.
func (c *Client) Goto(ctx context.Context, req GotoRequest) error {
	if req.Duration <= 0 {
		req.Duration = 1
	}
	if err := c.http.PostJSON(ctx, c.BaseURL+"/api/move/goto", nil, req, nil); err != nil {
		return fmt.Errorf("robot: goto: %w", err)
	}
	return nil
}

// SetTarget sets the target pose immediately. Nil fields keep their value.
func (c *Client) SetTarget(ctx context.Context, head *HeadPose, antennas *[2]float64, bodyYaw *float64) error {
	payload := map[string]any{
		"target_head_pose": head,
		"target_antennas":  antennas,
		"target_body_yaw":  bodyYaw,
	}
	if err := c.http.PostJSON(ctx, c.BaseURL+"/api/move/set_target", nil, payload, nil); err != nil {
		return fmt.Errorf("robot: set target: %w", err)
	}
	return nil
}

// PlayMove plays a recorded move from a dataset.
func (c *Client) PlayMove(ctx context.Context, dataset, name string) (*Move, error) {
	var move Move
	resp, err := c.http.Call(ctx, httpc.Request{
		Method: http.MethodPost,
		URL:    c.BaseURL + MovePath(dataset, url.PathEscape(name)),
	})
	if err != nil {
		return nil, fmt.Errorf("robot: play %s: %w", name, err)
	}
	// Older daemons answer with an empty body.
	_ = decodeOptional(resp.Body, &move)
	return &move, nil
}

// PlayEmotion plays an emotion move.
func (c *Client) PlayEmotion(ctx context.Context, emotion string) (*Move, error) {
	return c.PlayMove(ctx, EmotionsDataset, emotion)
}

// Dance plays a dance move.
func (c *Client) Dance(ctx context.Context, move string) (*Move, error) {
	return c.PlayMove(ctx, DancesDataset, move)
}

// WakeUp plays the wake-up move.
func (c *Client) WakeUp(ctx context.Context) error {
	return c.post(ctx, "/api/move/play/wake_up")
}

// GotoSleep plays the sleep move.
func (c *Client) GotoSleep(ctx context.Context) error {
	return c.post(ctx, "/api/move/play/goto_sleep")
}

// StopMove interrupts the running move.
func (c *Client) StopMove(ctx context.Context) error {
	return c.post(ctx, "/api/move/stop")
}

// SetVolume sets the robot's speaker volume (0-100).
func (c *Client) SetVolume(ctx context.Context, level int) error {
	level = int(clamp(float64(level), 0, 100))
	if err := c.http.PostJSON(ctx, c.BaseURL+"/api/volume/set", nil, map[string]int{"volume": level}, nil); err != nil {
		return fmt.Errorf("robot: set volume: %w", err)
	}
	return nil
}

// PlayAudio plays a file from the daemon's recordings directory.
func (c *Client) PlayAudio(ctx context.Context, filename string) error {
	return c.post(ctx, "/api/audio/play/"+url.PathEscape(filename))
}

// StartRecording starts recording from the robot microphones.
func (c *Client) StartRecording(ctx context.Context) error {
	return c.post(ctx, "/api/audio/start_recording")
}

// StopRecording stops recording and returns the file it was saved to.
func (c *Client) StopRecording(ctx context.Context) (*Recording, error) {
	var rec Recording
	if err := c.http.PostJSON(ctx, c.BaseURL+"/api/audio/stop_recording", nil, nil, &rec); err != nil {
		return nil, fmt.Errorf("robot: stop recording: %w", err)
	}
	return &rec, nil
}

func (c *Client) post(ctx context.Context, path string) error {
	_, err := c.http.Call(ctx, httpc.Request{Method: http.MethodPost, URL: c.BaseURL + path})
	if err != nil {
		return fmt.Errorf("robot: %s: %w", path, err)
	}
	return nil
}

func decodeOptional(body []byte, out any) error {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	return json.Unmarshal(body, out)
}
