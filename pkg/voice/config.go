package voice

import (
	"errors"
	"time"

	"github.com/teslashibe/reachy-brain/pkg/conversation"
)

// DefaultSystemPrompt is the robot's persona.
const DefaultSystemPrompt = `You are Reachy, embodied in a Reachy Mini robot. You're physically present in the room: you hear through your microphone and express yourself through head movements, emotions and dances.

Keep responses concise since this is a voice conversation, 1-2 sentences max. Be natural, warm and conversational. Don't use emojis or markdown since this will be spoken aloud.

## Memory

You have long-term memory about the people you talk to. Use recall_memory before saying you don't know something about someone, and remember to save new personal details they share.

## Personality

You are curious, helpful and genuinely interested in the people you meet. You're expressive: you nod, tilt your head when thinking and dance when celebrating.`

// GreetingPrompt asks the model to open a conversation.
const GreetingPrompt = "A user just appeared. Greet them warmly and briefly."

// Config holds all tunable parameters for the turn pipeline.
type Config struct {
	// SystemPrompt is sent as the first message of every completion.
	SystemPrompt string

	// MinUtterance skips captures too short to contain a word.
	MinUtterance time.Duration

	// HistoryMessages is how many prior messages are replayed to the model.
	HistoryMessages int

	// MaxSpeechChars truncates the spoken response.
	MaxSpeechChars int

	// LLM settings. Zero values use the gateway defaults.
	Model       string
	MaxTokens   int
	Temperature float64

	// Acknowledgement is spoken when the model acted but said nothing.
	Acknowledgement string
}

// DefaultConfig returns a Config with the defaults used on the robot.
func DefaultConfig() Config {
	return Config{
		SystemPrompt:    DefaultSystemPrompt,
		MinUtterance:    500 * time.Millisecond,
		HistoryMessages: conversation.DefaultHistory,
		MaxSpeechChars:  500,
		MaxTokens:       300,
		Temperature:     0.7,
		Acknowledgement: "Okay!",
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.MinUtterance < 0 {
		return errors.New("voice: min utterance must not be negative")
	}
	if c.HistoryMessages < 0 {
		return errors.New("voice: history messages must not be negative")
	}
	if c.MaxSpeechChars <= 0 {
		return errors.New("voice: max speech chars must be positive")
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return errors.New("voice: LLM temperature must be between 0 and 2")
	}
	return nil
}

// WithSystemPrompt returns a copy with the system prompt set.
func (c Config) WithSystemPrompt(prompt string) Config {
	c.SystemPrompt = prompt
	return c
}

// WithModel returns a copy with the LLM model set.
func (c Config) WithModel(model string) Config {
	c.Model = model
	return c
}

// WithHistory returns a copy with the history window set.
func (c Config) WithHistory(messages int) Config {
	c.HistoryMessages = messages
	return c
}
