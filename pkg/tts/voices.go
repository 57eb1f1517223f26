package tts

// Voices maps friendly preset names to ElevenLabs voice IDs.
var Voices = map[string]string{
	"rachel":    "21m00Tcm4TlvDq8ikWAM", // American female, calm
	"domi":      "AZnzlk1XvdvUeBnXmlld", // American female, strong
	"bella":     "EXAVITQu4vr4xnSDxMaL", // American female, soft
	"antoni":    "ErXwobaYiN019PkySvjV", // American male, well-rounded
	"elli":      "MF3mGyEYCl7XYWbV9V6O", // American female, young
	"josh":      "TxGEqnHWrfWFTfGW9XjX", // American male, deep
	"arnold":    "VR6AewLTigWG4xSOukaG", // American male, crisp
	"adam":      "pNInz6obpgDQGcFmaJgB", // American male, deep
	"sam":       "yoZ06aMxZJJ28mfd3POQ", // American male, raspy
	"charlotte": "XB0fDUnXU5powFXDhCwa", // British female, warm
}

// DefaultVoice is the preset used when none is configured.
const DefaultVoice = "rachel"

// ResolveVoice returns the voice ID for a preset name, or the input
// unchanged if it is already a voice ID.
func ResolveVoice(name string) string {
	if id, ok := Voices[name]; ok {
		return id
	}
	return name
}
