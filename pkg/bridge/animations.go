package bridge

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/teslashibe/reachy-brain/internal/retry"
	"github.com/teslashibe/reachy-brain/pkg/robot"
)

// Keyframe is one step of a custom animation: a goto followed by a hold.
type Keyframe struct {
	Head     robot.HeadPose
	Antennas [2]float64
	Duration time.Duration
	Hold     time.Duration
}

func kf(pitch, roll, yaw, z, left, right float64, dur, hold time.Duration) Keyframe {
	return Keyframe{
		Head:     robot.HeadPose{Z: z, Roll: roll, Pitch: pitch, Yaw: yaw},
		Antennas: [2]float64{left, right},
		Duration: dur,
		Hold:     hold,
	}
}

const ms = time.Millisecond

// Animations are short keyframe sequences played through goto, for gestures
// the recorded datasets don't cover. Angles are radians.
var Animations = map[string][]Keyframe{
	"look": {
		kf(0, 0, 0.3, 0.01, 0.5, 0.3, 400*ms, 500*ms),
		kf(0, 0, -0.3, 0.01, 0.3, 0.5, 400*ms, 500*ms),
		kf(0, 0, 0, 0.015, 0.6, 0.6, 300*ms, 300*ms),
	},
	"nod": {
		kf(-0.15, 0, 0, 0.02, 0.5, 0.5, 200*ms, 250*ms),
		kf(0.1, 0, 0, 0, 0.4, 0.4, 200*ms, 250*ms),
		kf(-0.15, 0, 0, 0.02, 0.5, 0.5, 200*ms, 250*ms),
		kf(0.1, 0, 0, 0, 0.4, 0.4, 200*ms, 250*ms),
		kf(0, 0, 0, 0.01, 0.5, 0.5, 300*ms, 0),
	},
	"wiggle": {
		kf(0, 0.15, 0, 0.015, 0.8, 0.6, 150*ms, 200*ms),
		kf(0, -0.15, 0, 0.015, 0.6, 0.8, 150*ms, 200*ms),
		kf(0, 0.15, 0, 0.015, 0.8, 0.6, 150*ms, 200*ms),
		kf(0, -0.15, 0, 0.015, 0.6, 0.8, 150*ms, 200*ms),
		kf(0, 0, 0, 0.01, 0.7, 0.7, 200*ms, 0),
	},
	"think": {
		kf(0, 0.2, 0.1, 0.01, 0.5, 0.2, 600*ms, 500*ms),
		kf(0, 0.25, 0, 0, 0.6, 0.15, 400*ms, time.Second),
		kf(0, 0, 0, 0.01, 0.4, 0.4, 500*ms, 0),
	},
	"surprise": {
		kf(0, 0, 0, 0.03, 1.0, 1.0, 150*ms, 200*ms),
		kf(0, 0, 0, 0.015, 0.7, 0.7, 300*ms, 300*ms),
		kf(0, 0, 0, 0.01, 0.4, 0.4, 300*ms, 0),
	},
	"happy": {
		kf(0, 0, 0, 0.025, 0.8, 0.8, 200*ms, 250*ms),
		kf(0, 0, 0, 0.005, 0.6, 0.6, 200*ms, 250*ms),
		kf(0, 0, 0, 0.025, 0.8, 0.8, 200*ms, 250*ms),
		kf(0, 0, 0, 0.005, 0.6, 0.6, 200*ms, 250*ms),
		kf(0, 0, 0, 0.015, 0.7, 0.7, 300*ms, 0),
	},
	"wave": {
		kf(0, 0, 0, 0.01, 0.8, 0.3, 200*ms, 250*ms),
		kf(0, 0, 0, 0.01, 0.3, 0.3, 200*ms, 250*ms),
		kf(0, 0, 0, 0.01, 0.8, 0.3, 200*ms, 250*ms),
		kf(0, 0, 0, 0.01, 0.3, 0.8, 200*ms, 250*ms),
		kf(0, 0, 0, 0.01, 0.3, 0.3, 200*ms, 250*ms),
		kf(0, 0, 0, 0.015, 0.6, 0.6, 300*ms, 0),
	},
	"listen": {kf(-0.05, 0, 0.05, 0.01, 0.5, 0.5, 400*ms, 0)},
	"alert":  {kf(-0.1, 0, 0, 0.02, 0.7, 0.7, 300*ms, 0)},
	"sad":    {kf(0.1, 0, 0, -0.01, 0.1, 0.1, 800*ms, 0)},
	"reset":  {kf(0, 0, 0, 0.01, 0.4, 0.4, 500*ms, 0)},
}

// AnimationNames returns the known animation names, sorted.
func AnimationNames() []string {
	names := make([]string, 0, len(Animations))
	for name := range Animations {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsAnimation reports whether name is a known animation.
func IsAnimation(name string) bool {
	_, ok := Animations[name]
	return ok
}

// ErrUnknownAnimation is returned for names not in Animations.
var ErrUnknownAnimation = errors.New("bridge: unknown animation")

// Animator plays keyframe animations on a robot.
type Animator struct {
	robot robot.Mover
	clock retry.Clock
}

// NewAnimator creates an Animator. A nil clock uses the wall clock.
func NewAnimator(r robot.Mover, clock retry.Clock) *Animator {
	if clock == nil {
		clock = retry.SystemClock{}
	}
	return &Animator{robot: r, clock: clock}
}

// Play runs the named animation and returns the number of steps sent.
// A failed step aborts the rest of the sequence.
func (a *Animator) Play(ctx context.Context, name string) (int, error) {
	steps, ok := Animations[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownAnimation, name)
	}
	for i, step := range steps {
		head := step.Head
		antennas := step.Antennas
		err := a.robot.Goto(ctx, robot.GotoRequest{
			Head:     &head,
			Antennas: &antennas,
			Duration: step.Duration.Seconds(),
		})
		if err != nil {
			return i, fmt.Errorf("bridge: animation %s step %d: %w", name, i+1, err)
		}
		if step.Hold > 0 {
			if err := a.clock.Sleep(ctx, step.Hold); err != nil {
				return i + 1, err
			}
		}
	}
	return len(steps), nil
}
