package supervisor

import (
	"errors"
	"fmt"

	"github.com/teslashibe/reachy-brain/internal/httpc"
)

// Sentinel errors.
var (
	// ErrNotRunning is returned by a probe that reached its target but found
	// nothing running.
	ErrNotRunning = errors.New("supervisor: not running")

	// ErrUnreachable is returned by a probe that could not reach its target.
	ErrUnreachable = errors.New("supervisor: unreachable")

	// ErrUnknownService is returned for a manifest entry naming no known service.
	ErrUnknownService = errors.New("supervisor: unknown service")
)

// ServiceUnhealthyError reports a service whose probe never passed.
type ServiceUnhealthyError struct {
	Service  string
	Attempts int
	Err      error
}

func (e *ServiceUnhealthyError) Error() string {
	if e.Attempts == 0 {
		return fmt.Sprintf("supervisor: %s unhealthy: %v", e.Service, e.Err)
	}
	return fmt.Sprintf("supervisor: %s unhealthy after %d attempts: %v", e.Service, e.Attempts, e.Err)
}

func (e *ServiceUnhealthyError) Unwrap() error { return e.Err }

// Classify maps a probe result to a State.
func Classify(err error) State {
	switch {
	case err == nil:
		return StateHealthy
	case errors.Is(err, ErrUnreachable), httpc.IsUnreachable(err):
		return StateUnreachable
	default:
		return StateUnhealthy
	}
}
