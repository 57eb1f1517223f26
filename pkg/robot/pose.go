package robot

import "math"

// Head limits in degrees accepted by the move tools.
const (
	MaxPitchDeg = 40.0
	MaxRollDeg  = 40.0
	MaxYawDeg   = 180.0

	// DefaultHeadZ lifts the head slightly so goto poses clear the body.
	DefaultHeadZ = 0.01
)

// HeadPose is a head position. Angles are radians, translation meters.
type HeadPose struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Z     float64 `json:"z"`
	Roll  float64 `json:"roll"`
	Pitch float64 `json:"pitch"`
	Yaw   float64 `json:"yaw"`
}

// Degrees builds a HeadPose from angles in degrees at the default height.
func Degrees(pitch, yaw, roll float64) HeadPose {
	return HeadPose{
		Z:     DefaultHeadZ,
		Roll:  Rad(roll),
		Pitch: Rad(pitch),
		Yaw:   Rad(yaw),
	}
}

// Rad converts degrees to radians.
func Rad(deg float64) float64 {
	return deg * math.Pi / 180
}

// Clamp returns p with angles limited to the head's safe range.
func (p HeadPose) Clamp() HeadPose {
	p.Roll = clamp(p.Roll, -Rad(MaxRollDeg), Rad(MaxRollDeg))
	p.Pitch = clamp(p.Pitch, -Rad(MaxPitchDeg), Rad(MaxPitchDeg))
	p.Yaw = clamp(p.Yaw, -Rad(MaxYawDeg), Rad(MaxYawDeg))
	return p
}

// Add returns the sum of p and other.
func (p HeadPose) Add(other HeadPose) HeadPose {
	return HeadPose{
		X:     p.X + other.X,
		Y:     p.Y + other.Y,
		Z:     p.Z + other.Z,
		Roll:  p.Roll + other.Roll,
		Pitch: p.Pitch + other.Pitch,
		Yaw:   p.Yaw + other.Yaw,
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
