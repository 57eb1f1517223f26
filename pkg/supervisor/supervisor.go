// Package supervisor brings the robot's cooperating services up in
// dependency order, verifies them with health probes and tears them down.
//
// The supervisor is sequential: it touches one service at a time and never
// probes concurrently, so two services never race for the audio device or a
// port. A service that fails to become healthy is reported, not fatal; the
// remaining services are still attempted.
//
// Usage:
//
//	sup, err := supervisor.New(services, supervisor.WithPolicy(10, time.Second))
//	report := sup.Start(ctx)
//	if !report.OK {
//	    fmt.Println("failed:", report.Failed())
//	}
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/teslashibe/reachy-brain/internal/log"
	"github.com/teslashibe/reachy-brain/internal/retry"
)

// Default polling bounds.
const (
	DefaultAttempts = 10
	DefaultInterval = time.Second
)

// Service names in start order.
const (
	ServiceDaemon = "daemon"
	ServiceBridge = "bridge"
	ServiceRelay  = "relay"
	ServiceAgent  = "agent"
)

// Order is the fixed dependency order.
var Order = []string{ServiceDaemon, ServiceBridge, ServiceRelay, ServiceAgent}

// State is a service's last known condition.
type State string

const (
	StateUnknown     State = "unknown"
	StateStarting    State = "starting"
	StateHealthy     State = "healthy"
	StateUnhealthy   State = "unhealthy"
	StateUnreachable State = "unreachable"
	StateStopped     State = "stopped"
)

// Kind says where a service runs.
type Kind string

const (
	KindDaemon Kind = "daemon"
	KindLocal  Kind = "local"
	KindRemote Kind = "remote"
)

// ServiceDescriptor is one managed service.
type ServiceDescriptor struct {
	Name   string
	Kind   Kind
	Handle Handle
	Probe  Probe

	// StartupDelay is waited after Launch before the first probe.
	StartupDelay time.Duration
}

// ServiceStatus is one service's line in a Report.
type ServiceStatus struct {
	Name     string
	State    State
	Attempts int
	Err      error
}

// Report is the outcome of Start, Stop or Status.
type Report struct {
	Op       string
	Services []ServiceStatus
	OK       bool
	Elapsed  time.Duration
}

// Failed returns the names of services that did not succeed.
func (r Report) Failed() []string {
	var out []string
	for _, s := range r.Services {
		if s.Err != nil {
			out = append(out, s.Name)
		}
	}
	return out
}

// Err joins every service error, or returns nil.
func (r Report) Err() error {
	var errs []error
	for _, s := range r.Services {
		if s.Err != nil {
			errs = append(errs, s.Err)
		}
	}
	return errors.Join(errs...)
}

// Service returns the status for name.
func (r Report) Service(name string) (ServiceStatus, bool) {
	for _, s := range r.Services {
		if s.Name == name {
			return s, true
		}
	}
	return ServiceStatus{}, false
}

// Option configures a Supervisor.
type Option func(*Supervisor)

// WithPolicy bounds health polling to attempts probes spaced by interval.
func WithPolicy(attempts int, interval time.Duration) Option {
	return func(s *Supervisor) {
		s.attempts = attempts
		s.interval = interval
	}
}

// WithClock sets the clock used for startup delays and polling.
func WithClock(c retry.Clock) Option {
	return func(s *Supervisor) { s.clock = c }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Supervisor) { s.logger = l }
}

// Supervisor starts, stops and probes a fixed list of services.
type Supervisor struct {
	services []ServiceDescriptor
	attempts int
	interval time.Duration
	clock    retry.Clock
	logger   *slog.Logger
}

// New creates a Supervisor over services, which are handled in slice order.
func New(services []ServiceDescriptor, opts ...Option) (*Supervisor, error) {
	seen := map[string]bool{}
	for _, svc := range services {
		switch {
		case svc.Name == "":
			return nil, errors.New("supervisor: service without a name")
		case seen[svc.Name]:
			return nil, fmt.Errorf("supervisor: duplicate service %q", svc.Name)
		case svc.Handle == nil || svc.Probe == nil:
			return nil, fmt.Errorf("supervisor: service %q needs a handle and a probe", svc.Name)
		}
		seen[svc.Name] = true
	}

	s := &Supervisor{
		services: services,
		attempts: DefaultAttempts,
		interval: DefaultInterval,
		clock:    retry.SystemClock{},
		logger:   log.Component("supervisor"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.attempts < 1 {
		s.attempts = 1
	}
	return s, nil
}

// Services returns the managed services in order.
func (s *Supervisor) Services() []ServiceDescriptor {
	return append([]ServiceDescriptor(nil), s.services...)
}

func (s *Supervisor) policy() retry.Policy {
	return retry.Policy{MaxAttempts: s.attempts, Backoff: retry.Fixed(s.interval), Clock: s.clock}
}

// Start clean-slates, launches and polls each service in order, then runs
// one consolidated sweep. Every service is attempted even if an earlier one
// failed; the Report names the failures.
func (s *Supervisor) Start(ctx context.Context) Report {
	began := s.clock.Now()
	rep := Report{Op: "start"}
	for _, svc := range s.services {
		rep.Services = append(rep.Services, s.start(ctx, svc))
	}

	sweep := s.Status(ctx)
	rep.OK = true
	for i := range rep.Services {
		final := sweep.Services[i]
		rep.Services[i].State = final.State
		if final.Err != nil && rep.Services[i].Err == nil {
			rep.Services[i].Err = &ServiceUnhealthyError{Service: final.Name, Err: final.Err}
		}
		if rep.Services[i].Err != nil {
			rep.OK = false
		}
	}
	rep.Elapsed = s.clock.Now().Sub(began)
	s.logger.Info("start complete", "ok", rep.OK, "failed", rep.Failed(), "elapsed", rep.Elapsed)
	return rep
}

func (s *Supervisor) start(ctx context.Context, svc ServiceDescriptor) ServiceStatus {
	logger := s.logger.With("service", svc.Name)
	st := ServiceStatus{Name: svc.Name, State: StateStarting}

	if err := svc.Handle.Terminate(ctx); err != nil {
		logger.Warn("clean slate failed", "err", err)
	}

	logger.Info("launching")
	if err := svc.Handle.Launch(ctx); err != nil {
		logger.Error("launch failed", "err", err)
		st.State = StateUnhealthy
		st.Err = &ServiceUnhealthyError{Service: svc.Name, Err: err}
		return st
	}

	if svc.StartupDelay > 0 {
		if err := s.clock.Sleep(ctx, svc.StartupDelay); err != nil {
			st.State = StateUnhealthy
			st.Err = &ServiceUnhealthyError{Service: svc.Name, Err: err}
			return st
		}
	}

	attempts, err := retry.Poll(ctx, s.policy(), func(ctx context.Context) (bool, error) {
		if err := svc.Probe.Check(ctx); err != nil {
			logger.Debug("not ready", "err", err)
			return false, err
		}
		return true, nil
	})
	st.Attempts = attempts
	if err != nil {
		logger.Warn("never became healthy", "attempts", attempts, "err", err)
		st.State = StateUnhealthy
		st.Err = &ServiceUnhealthyError{Service: svc.Name, Attempts: attempts, Err: err}
		return st
	}
	logger.Info("healthy", "attempts", attempts)
	st.State = StateHealthy
	return st
}

// Stop terminates every service in reverse order, best effort. Services
// whose handle is a Sleeper are put to sleep instead, which for the robot
// daemon happens last. Nothing running is not a failure.
func (s *Supervisor) Stop(ctx context.Context) Report {
	began := s.clock.Now()
	rep := Report{Op: "stop", OK: true}
	statuses := make([]ServiceStatus, len(s.services))
	for i := len(s.services) - 1; i >= 0; i-- {
		svc := s.services[i]
		st := ServiceStatus{Name: svc.Name, State: StateStopped}

		var err error
		if sl, ok := svc.Handle.(Sleeper); ok {
			err = sl.Sleep(ctx)
		} else {
			err = svc.Handle.Terminate(ctx)
		}
		if err != nil {
			s.logger.Warn("stop failed", "service", svc.Name, "err", err)
			st.State = Classify(err)
			st.Err = err
			rep.OK = false
		} else {
			s.logger.Info("stopped", "service", svc.Name)
		}
		statuses[i] = st
	}
	rep.Services = statuses
	rep.Elapsed = s.clock.Now().Sub(began)
	return rep
}

// Status probes each service once. It has no side effects.
func (s *Supervisor) Status(ctx context.Context) Report {
	began := s.clock.Now()
	rep := Report{Op: "status", OK: true}
	for _, svc := range s.services {
		err := svc.Probe.Check(ctx)
		st := ServiceStatus{Name: svc.Name, State: Classify(err), Attempts: 1, Err: err}
		if err != nil {
			rep.OK = false
		}
		rep.Services = append(rep.Services, st)
	}
	rep.Elapsed = s.clock.Now().Sub(began)
	return rep
}
