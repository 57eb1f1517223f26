package robot

import (
	"slices"
	"strings"
)

// Recorded move datasets served by the daemon.
const (
	EmotionsDataset = "pollen-robotics/reachy-mini-emotions-library"
	DancesDataset   = "pollen-robotics/reachy-mini-dances-library"
)

// Emotions lists the emotion moves the robot can play.
var Emotions = []string{
	"happy", "sad", "surprised", "angry", "confused",
	"thinking", "curious", "sleepy", "excited",
}

// Dances lists the dance moves the robot can play.
var Dances = []string{
	"simple_nod", "head_tilt_roll", "side_to_side_sway", "dizzy_spin",
	"stumble_and_recover", "interwoven_spirals", "sharp_side_tilt",
	"side_peekaboo", "yeah_nod", "uh_huh_tilt", "neck_recoil", "chin_lead",
	"groovy_sway_and_roll", "chicken_peck", "side_glance_flick",
	"polyrhythm_combo", "grid_snap", "pendulum_swing", "jackson_square",
}

// Directions lists the look_at presets.
var Directions = []string{"up", "down", "left", "right", "center"}

// IsEmotion reports whether name is a known emotion.
func IsEmotion(name string) bool {
	return slices.Contains(Emotions, name)
}

// IsDance reports whether name is a known dance.
func IsDance(name string) bool {
	return slices.Contains(Dances, name)
}

// Look returns the head pose for a named direction.
func Look(direction string) (HeadPose, bool) {
	switch strings.ToLower(strings.TrimSpace(direction)) {
	case "up":
		return Degrees(20, 0, 0), true
	case "down":
		return Degrees(-15, 0, 0), true
	case "left":
		return Degrees(0, 30, 0), true
	case "right":
		return Degrees(0, -30, 0), true
	case "center":
		return Degrees(0, 0, 0), true
	}
	return HeadPose{}, false
}

// MovePath returns the daemon path that plays name from dataset.
func MovePath(dataset, name string) string {
	return "/api/move/play/recorded-move-dataset/" + dataset + "/" + name
}
