package supervisor

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/teslashibe/reachy-brain/internal/config"
	"github.com/teslashibe/reachy-brain/internal/httpc"
	"github.com/teslashibe/reachy-brain/pkg/remote"
	"github.com/teslashibe/reachy-brain/pkg/robot"
)

// Probe types accepted in a manifest.
const (
	ProbeHTTP          = "http"
	ProbeDaemon        = "daemon"
	ProbeProcess       = "process"
	ProbeRemoteProcess = "remote_process"
)

// Manifest describes the managed services. The defaults come from Config;
// a services.yaml file may override any field of any known service.
//
//	attempts: 15
//	interval: 2s
//	services:
//	  - name: bridge
//	    command: ["python3", "reachy_bridge.py"]
//	    pattern: reachy_bridge.py
type Manifest struct {
	Attempts int           `yaml:"attempts"`
	Interval time.Duration `yaml:"interval"`
	Services []ServiceSpec `yaml:"services"`
}

// ServiceSpec is one service entry.
type ServiceSpec struct {
	Name         string        `yaml:"name"`
	Kind         Kind          `yaml:"kind"`
	Command      []string      `yaml:"command"`
	Dir          string        `yaml:"dir"`
	Pattern      string        `yaml:"pattern"`
	LogFile      string        `yaml:"log_file"`
	PIDFile      string        `yaml:"pid_file"`
	StartupDelay time.Duration `yaml:"startup_delay"`
	Disabled     bool          `yaml:"disabled"`
	Probe        ProbeSpec     `yaml:"probe"`
}

// ProbeSpec selects and parameterizes a Probe.
type ProbeSpec struct {
	Type    string        `yaml:"type"`
	URL     string        `yaml:"url"`
	Pattern string        `yaml:"pattern"`
	Timeout time.Duration `yaml:"timeout"`
}

// DefaultManifest derives the standard layout from cfg: the daemon and the
// bridge on the robot, the relay and the voice agent on this machine running
// exe (this binary) with envFile.
func DefaultManifest(cfg config.Config, exe, envFile string) Manifest {
	bin := filepath.Base(exe)
	local := func(sub string) []string {
		args := []string{exe, sub}
		if envFile != "" {
			args = append(args, "--env", envFile)
		}
		return args
	}
	tmp := os.TempDir()

	return Manifest{
		Attempts: DefaultAttempts,
		Interval: DefaultInterval,
		Services: []ServiceSpec{
			{
				Name:         ServiceDaemon,
				Kind:         KindDaemon,
				StartupDelay: 3 * time.Second,
				Probe:        ProbeSpec{Type: ProbeDaemon},
			},
			{
				Name:         ServiceBridge,
				Kind:         KindRemote,
				Command:      []string{"./reachy", "bridge", "--env", ".env"},
				Dir:          cfg.RemoteDir,
				Pattern:      "reachy bridge",
				LogFile:      "bridge.log",
				StartupDelay: 2 * time.Second,
				Probe:        ProbeSpec{Type: ProbeHTTP, URL: cfg.BridgeURL() + "/status"},
			},
			{
				Name:    ServiceRelay,
				Kind:    KindLocal,
				Command: local("relay"),
				Pattern: bin + " relay",
				LogFile: filepath.Join(tmp, "reachy-relay.log"),
				PIDFile: filepath.Join(tmp, "reachy-relay.pid"),
				Probe:   ProbeSpec{Type: ProbeHTTP, URL: cfg.RelayURL() + "/health"},
			},
			{
				Name:         ServiceAgent,
				Kind:         KindLocal,
				Command:      local("agent"),
				Pattern:      bin + " agent",
				LogFile:      filepath.Join(tmp, "reachy-agent.log"),
				PIDFile:      filepath.Join(tmp, "reachy-agent.pid"),
				StartupDelay: time.Second,
				Probe:        ProbeSpec{Type: ProbeHTTP, URL: cfg.DashboardURL() + "/api/status"},
			},
		},
	}
}

// LoadManifest overlays the YAML file at path onto base. A missing file
// returns base unchanged.
func LoadManifest(path string, base Manifest) (Manifest, error) {
	if path == "" {
		return base, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return base, nil
	}
	if err != nil {
		return Manifest{}, fmt.Errorf("supervisor: read manifest: %w", err)
	}
	return ParseManifest(data, base)
}

// ParseManifest overlays YAML data onto base.
func ParseManifest(data []byte, base Manifest) (Manifest, error) {
	var overlay Manifest
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&overlay); err != nil && !errors.Is(err, io.EOF) {
		return Manifest{}, fmt.Errorf("supervisor: parse manifest: %w", err)
	}

	m := base
	m.Services = append([]ServiceSpec(nil), base.Services...)
	if overlay.Attempts > 0 {
		m.Attempts = overlay.Attempts
	}
	if overlay.Interval > 0 {
		m.Interval = overlay.Interval
	}
	for _, o := range overlay.Services {
		i := slices.IndexFunc(m.Services, func(s ServiceSpec) bool { return s.Name == o.Name })
		if i < 0 {
			return Manifest{}, fmt.Errorf("%w: %q", ErrUnknownService, o.Name)
		}
		m.Services[i] = merge(m.Services[i], o)
	}
	return m, nil
}

func merge(base, o ServiceSpec) ServiceSpec {
	if o.Kind != "" {
		base.Kind = o.Kind
	}
	if len(o.Command) > 0 {
		base.Command = o.Command
	}
	if o.Dir != "" {
		base.Dir = o.Dir
	}
	if o.Pattern != "" {
		base.Pattern = o.Pattern
	}
	if o.LogFile != "" {
		base.LogFile = o.LogFile
	}
	if o.PIDFile != "" {
		base.PIDFile = o.PIDFile
	}
	if o.StartupDelay > 0 {
		base.StartupDelay = o.StartupDelay
	}
	if o.Disabled {
		base.Disabled = true
	}
	if o.Probe.Type != "" {
		base.Probe = o.Probe
	} else {
		if o.Probe.URL != "" {
			base.Probe.URL = o.Probe.URL
		}
		if o.Probe.Pattern != "" {
			base.Probe.Pattern = o.Probe.Pattern
		}
		if o.Probe.Timeout > 0 {
			base.Probe.Timeout = o.Probe.Timeout
		}
	}
	return base
}

// Deps are the clients handles and probes are built on.
type Deps struct {
	Robot  robot.DaemonController
	Remote remote.Runner
	HTTP   *httpc.Client
}

// Build turns m into descriptors in the fixed start order, skipping
// disabled services.
func (m Manifest) Build(deps Deps) ([]ServiceDescriptor, error) {
	var out []ServiceDescriptor
	for _, name := range Order {
		i := slices.IndexFunc(m.Services, func(s ServiceSpec) bool { return s.Name == name })
		if i < 0 || m.Services[i].Disabled {
			continue
		}
		spec := m.Services[i]
		h, err := buildHandle(spec, deps)
		if err != nil {
			return nil, err
		}
		p, err := buildProbe(spec, deps)
		if err != nil {
			return nil, err
		}
		out = append(out, ServiceDescriptor{
			Name:         spec.Name,
			Kind:         spec.Kind,
			Handle:       h,
			Probe:        p,
			StartupDelay: spec.StartupDelay,
		})
	}
	return out, nil
}

func buildHandle(spec ServiceSpec, deps Deps) (Handle, error) {
	switch spec.Kind {
	case KindDaemon:
		if deps.Robot == nil {
			return nil, fmt.Errorf("supervisor: %s: daemon service needs a robot client", spec.Name)
		}
		return &DaemonHandle{Robot: deps.Robot}, nil
	case KindRemote:
		if deps.Remote == nil {
			return nil, fmt.Errorf("supervisor: %s: remote service needs an SSH session", spec.Name)
		}
		return &RemoteHandle{
			Runner:  deps.Remote,
			Dir:     spec.Dir,
			Command: strings.Join(spec.Command, " "),
			Pattern: spec.Pattern,
			LogFile: spec.LogFile,
		}, nil
	case KindLocal:
		return &LocalHandle{
			Command: spec.Command,
			Dir:     spec.Dir,
			Pattern: spec.Pattern,
			PIDFile: spec.PIDFile,
			LogFile: spec.LogFile,
		}, nil
	default:
		return nil, fmt.Errorf("supervisor: %s: unknown kind %q", spec.Name, spec.Kind)
	}
}

func buildProbe(spec ServiceSpec, deps Deps) (Probe, error) {
	pattern := spec.Probe.Pattern
	if pattern == "" {
		pattern = spec.Pattern
	}
	switch spec.Probe.Type {
	case ProbeHTTP:
		if spec.Probe.URL == "" {
			return nil, fmt.Errorf("supervisor: %s: http probe needs a url", spec.Name)
		}
		return &HTTPProbe{URL: spec.Probe.URL, Client: deps.HTTP, Timeout: spec.Probe.Timeout}, nil
	case ProbeDaemon:
		if deps.Robot == nil {
			return nil, fmt.Errorf("supervisor: %s: daemon probe needs a robot client", spec.Name)
		}
		return &DaemonProbe{Robot: deps.Robot}, nil
	case ProbeProcess:
		return &ProcessProbe{Pattern: pattern}, nil
	case ProbeRemoteProcess:
		if deps.Remote == nil {
			return nil, fmt.Errorf("supervisor: %s: remote probe needs an SSH session", spec.Name)
		}
		return &RemoteProcessProbe{Runner: deps.Remote, Pattern: pattern}, nil
	default:
		return nil, fmt.Errorf("supervisor: %s: unknown probe type %q", spec.Name, spec.Probe.Type)
	}
}
