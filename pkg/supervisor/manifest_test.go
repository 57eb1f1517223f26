package supervisor

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/teslashibe/reachy-brain/internal/config"
	"github.com/teslashibe/reachy-brain/pkg/remote"
	"github.com/teslashibe/reachy-brain/pkg/robot"
)

func testConfig() config.Config {
	return config.Default().WithRobotIP("192.168.1.42")
}

func testDeps() Deps {
	return Deps{Robot: robot.NewMock(), Remote: &remote.Mock{}}
}

func TestDefaultManifest(t *testing.T) {
	m := DefaultManifest(testConfig(), "/usr/local/bin/reachy", ".env")

	descs, err := m.Build(testDeps())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	var names []string
	for _, d := range descs {
		names = append(names, d.Name)
	}
	if !reflect.DeepEqual(names, Order) {
		t.Fatalf("names = %v, want %v", names, Order)
	}

	if _, ok := descs[0].Handle.(*DaemonHandle); !ok {
		t.Errorf("daemon handle = %T", descs[0].Handle)
	}
	bridge, ok := descs[1].Handle.(*RemoteHandle)
	if !ok || bridge.Command != "./reachy bridge --env .env" || bridge.Dir != config.DefaultRemoteDir {
		t.Errorf("bridge handle = %+v", descs[1].Handle)
	}
	if p, ok := descs[1].Probe.(*HTTPProbe); !ok || p.URL != "http://192.168.1.42:9000/status" {
		t.Errorf("bridge probe = %+v", descs[1].Probe)
	}
	relay, ok := descs[2].Handle.(*LocalHandle)
	if !ok || relay.Pattern != "reachy relay" {
		t.Errorf("relay handle = %+v", descs[2].Handle)
	}
	if want := []string{"/usr/local/bin/reachy", "relay", "--env", ".env"}; !reflect.DeepEqual(relay.Command, want) {
		t.Errorf("relay command = %v", relay.Command)
	}
	if p, ok := descs[3].Probe.(*HTTPProbe); !ok || p.URL != "http://127.0.0.1:8181/api/status" {
		t.Errorf("agent probe = %+v", descs[3].Probe)
	}
}

func TestParseManifestOverlay(t *testing.T) {
	base := DefaultManifest(testConfig(), "/usr/local/bin/reachy", "")
	data := []byte(`
attempts: 15
interval: 2s
services:
  - name: bridge
    command: ["python3", "reachy_bridge.py"]
    pattern: reachy_bridge.py
    probe:
      type: remote_process
  - name: agent
    disabled: true
`)
	m, err := ParseManifest(data, base)
	if err != nil {
		t.Fatalf("ParseManifest: %v", err)
	}
	if m.Attempts != 15 || m.Interval != 2*time.Second {
		t.Errorf("policy = %d / %v", m.Attempts, m.Interval)
	}
	if base.Services[1].Pattern != "reachy bridge" {
		t.Error("overlay modified the base manifest")
	}

	descs, err := m.Build(testDeps())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(descs) != 3 {
		t.Fatalf("services = %d, want 3 with agent disabled", len(descs))
	}
	bridge := descs[1]
	if h := bridge.Handle.(*RemoteHandle); h.Command != "python3 reachy_bridge.py" || h.LogFile != "bridge.log" {
		t.Errorf("bridge handle = %+v", h)
	}
	if p, ok := bridge.Probe.(*RemoteProcessProbe); !ok || p.Pattern != "reachy_bridge.py" {
		t.Errorf("bridge probe = %+v", bridge.Probe)
	}
}

func TestParseManifestErrors(t *testing.T) {
	base := DefaultManifest(testConfig(), "reachy", "")
	if _, err := ParseManifest([]byte("services:\n  - name: camera\n"), base); !errors.Is(err, ErrUnknownService) {
		t.Errorf("unknown service err = %v", err)
	}
	if _, err := ParseManifest([]byte("retries: 3\n"), base); err == nil {
		t.Error("expected error for unknown field")
	}
	m, err := ParseManifest(nil, base)
	if err != nil || !reflect.DeepEqual(m, base) {
		t.Errorf("empty manifest = %+v, %v", m, err)
	}
}

func TestLoadManifest(t *testing.T) {
	base := DefaultManifest(testConfig(), "reachy", "")
	m, err := LoadManifest(filepath.Join(t.TempDir(), "missing.yaml"), base)
	if err != nil || m.Attempts != base.Attempts {
		t.Fatalf("missing file = %v", err)
	}

	path := filepath.Join(t.TempDir(), "services.yaml")
	if err := os.WriteFile(path, []byte("attempts: 3\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	m, err = LoadManifest(path, base)
	if err != nil || m.Attempts != 3 {
		t.Errorf("LoadManifest = %d, %v", m.Attempts, err)
	}
}

func TestBuildNeedsClients(t *testing.T) {
	m := DefaultManifest(testConfig(), "reachy", "")
	if _, err := m.Build(Deps{Robot: robot.NewMock()}); err == nil {
		t.Error("expected error without an SSH session")
	}
	if _, err := m.Build(Deps{Remote: &remote.Mock{}}); err == nil {
		t.Error("expected error without a robot client")
	}
}
