package robot

import (
	"context"
	"sync"
)

// Mock is a Controller that records calls. Set the func fields to inject
// behavior; nil funcs succeed.
type Mock struct {
	GotoFunc     func(ctx context.Context, req GotoRequest) error
	PlayMoveFunc func(ctx context.Context, dataset, name string) (*Move, error)
	StatusFunc   func(ctx context.Context) (*DaemonStatus, error)
	StopFunc     func(ctx context.Context, gotoSleep bool) error

	mu    sync.Mutex
	calls []string
	gotos []GotoRequest
}

// NewMock creates a Mock whose daemon reports running.
func NewMock() *Mock {
	return &Mock{}
}

func (m *Mock) record(call string) {
	m.mu.Lock()
	m.calls = append(m.calls, call)
	m.mu.Unlock()
}

// Calls returns the recorded call names in order, e.g. "goto",
// "play:<dataset>/<name>", "daemon.stop:true".
func (m *Mock) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

// Gotos returns every GotoRequest received.
func (m *Mock) Gotos() []GotoRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]GotoRequest(nil), m.gotos...)
}

func (m *Mock) Goto(ctx context.Context, req GotoRequest) error {
	m.mu.Lock()
	m.gotos = append(m.gotos, req)
	m.mu.Unlock()
	m.record("goto")
	if m.GotoFunc != nil {
		return m.GotoFunc(ctx, req)
	}
	return nil
}

func (m *Mock) PlayMove(ctx context.Context, dataset, name string) (*Move, error) {
	m.record("play:" + dataset + "/" + name)
	if m.PlayMoveFunc != nil {
		return m.PlayMoveFunc(ctx, dataset, name)
	}
	return &Move{UUID: "mock-" + name}, nil
}

func (m *Mock) SetTarget(ctx context.Context, head *HeadPose, antennas *[2]float64, bodyYaw *float64) error {
	m.record("set_target")
	return nil
}

func (m *Mock) DaemonStatus(ctx context.Context) (*DaemonStatus, error) {
	m.record("daemon.status")
	if m.StatusFunc != nil {
		return m.StatusFunc(ctx)
	}
	return &DaemonStatus{State: "running"}, nil
}

func (m *Mock) StartDaemon(ctx context.Context, wakeUp bool) error {
	if wakeUp {
		m.record("daemon.start:true")
	} else {
		m.record("daemon.start:false")
	}
	return nil
}

func (m *Mock) StopDaemon(ctx context.Context, gotoSleep bool) error {
	if gotoSleep {
		m.record("daemon.stop:true")
	} else {
		m.record("daemon.stop:false")
	}
	if m.StopFunc != nil {
		return m.StopFunc(ctx, gotoSleep)
	}
	return nil
}

func (m *Mock) SetVolume(ctx context.Context, level int) error {
	m.record("volume")
	return nil
}

func (m *Mock) PlayAudio(ctx context.Context, filename string) error {
	m.record("audio.play:" + filename)
	return nil
}

func (m *Mock) StartRecording(ctx context.Context) error {
	m.record("audio.start")
	return nil
}

func (m *Mock) StopRecording(ctx context.Context) (*Recording, error) {
	m.record("audio.stop")
	return &Recording{Filename: "mock.wav"}, nil
}

func (m *Mock) WakeUp(ctx context.Context) error {
	m.record("wake_up")
	return nil
}

func (m *Mock) GotoSleep(ctx context.Context) error {
	m.record("goto_sleep")
	return nil
}

func (m *Mock) StopMove(ctx context.Context) error {
	m.record("stop")
	return nil
}

var _ Controller = (*Mock)(nil)
