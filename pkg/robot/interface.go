// Package robot is a client for the Reachy Mini daemon REST API.
//
// The package defines small, focused interfaces that can be composed as
// needed. Consumers should depend only on the interfaces they actually use:
// the tool dispatcher needs a Mover, the supervisor needs a DaemonController,
// the bridge needs everything.
package robot

import (
	"context"
	"time"
)

// Mover moves the head and plays recorded moves.
type Mover interface {
	Goto(ctx context.Context, req GotoRequest) error
	PlayMove(ctx context.Context, dataset, name string) (*Move, error)
}

// PoseController sets a target pose immediately, without interpolation.
type PoseController interface {
	SetTarget(ctx context.Context, head *HeadPose, antennas *[2]float64, bodyYaw *float64) error
}

// DaemonController starts and stops the robot daemon.
type DaemonController interface {
	DaemonStatus(ctx context.Context) (*DaemonStatus, error)
	StartDaemon(ctx context.Context, wakeUp bool) error
	StopDaemon(ctx context.Context, gotoSleep bool) error
}

// VolumeController provides audio volume control.
type VolumeController interface {
	SetVolume(ctx context.Context, level int) error
}

// AudioController plays and records sound on the robot.
type AudioController interface {
	PlayAudio(ctx context.Context, filename string) error
	StartRecording(ctx context.Context) error
	StopRecording(ctx context.Context) (*Recording, error)
}

// Controller is the composite interface for full robot control.
type Controller interface {
	Mover
	PoseController
	DaemonController
	VolumeController
	AudioController
	WakeUp(ctx context.Context) error
	GotoSleep(ctx context.Context) error
	StopMove(ctx context.Context) error
}

// GotoRequest is an interpolated move to a head pose.
type GotoRequest struct {
	Head     *HeadPose   `json:"head_pose,omitempty"`
	Antennas *[2]float64 `json:"antennas_position,omitempty"`
	BodyYaw  *float64    `json:"body_yaw,omitempty"`
	Duration float64     `json:"duration"`
}

// NewGoto returns a head-only GotoRequest lasting d.
func NewGoto(head HeadPose, d time.Duration) GotoRequest {
	return GotoRequest{Head: &head, Duration: d.Seconds()}
}

// DaemonStatus is the subset of /api/daemon/status we read.
type DaemonStatus struct {
	State   string `json:"state"`
	Version string `json:"version,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Running reports whether the daemon backend is up.
func (s *DaemonStatus) Running() bool {
	return s != nil && s.State == "running"
}

// Move identifies a move started on the daemon.
type Move struct {
	UUID string `json:"uuid"`
}

// Recording is the result of stopping a recording.
type Recording struct {
	Filename string `json:"filename"`
}

// Ensure Client implements Controller
var _ Controller = (*Client)(nil)
