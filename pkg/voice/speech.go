package voice

import (
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/teslashibe/reachy-brain/pkg/inference"
	"github.com/teslashibe/reachy-brain/pkg/stt"
)

// Fallback phrases spoken when a stage fails.
const (
	PhraseGatewayError       = "I'm having trouble thinking right now."
	PhraseGatewayUnreachable = "I'm having trouble connecting to my brain."
	PhraseGeneric            = "Something went wrong. Let me try again."
	PhraseNotHeard           = "Sorry, I didn't catch that."
)

// FallbackFor returns the phrase to speak for a stage failure.
func FallbackFor(err error) string {
	var (
		ge *inference.GatewayError
		te *stt.TranscriptionError
	)
	switch {
	case errors.As(err, &te):
		return PhraseNotHeard
	case errors.Is(err, inference.ErrGatewayUnreachable):
		return PhraseGatewayUnreachable
	case errors.As(err, &ge):
		return PhraseGatewayError
	default:
		return PhraseGeneric
	}
}

var (
	reCodeBlock = regexp.MustCompile("(?s)```.*?```")
	reLink      = regexp.MustCompile(`\[([^\]]+)\]\([^)]*\)`)
	reEmphasis  = regexp.MustCompile(`(\*\*|__|\*|_|~~|` + "`" + `)`)
	reHeading   = regexp.MustCompile(`(?m)^\s{0,3}#{1,6}\s*`)
	reBullet    = regexp.MustCompile(`(?m)^\s*([-*+]|\d+\.)\s+`)
	reSpace     = regexp.MustCompile(`\s+`)
)

// CleanSpeech prepares model text for TTS: markdown is stripped, line
// breaks become sentence pauses, whitespace is collapsed and the result is
// cut to at most max runes on a word boundary where possible.
func CleanSpeech(text string, max int) string {
	text = reCodeBlock.ReplaceAllString(text, " ")
	text = reLink.ReplaceAllString(text, "$1")
	text = reHeading.ReplaceAllString(text, "")
	text = reBullet.ReplaceAllString(text, "")
	text = reEmphasis.ReplaceAllString(text, "")

	lines := strings.FieldsFunc(text, func(r rune) bool { return r == '\n' || r == '\r' })
	parts := lines[:0]
	for _, l := range lines {
		l = strings.TrimSpace(l)
		if l == "" {
			continue
		}
		parts = append(parts, strings.TrimRight(l, ".!?:;,")+terminator(l))
	}
	text = strings.Join(parts, " ")
	text = strings.TrimSpace(reSpace.ReplaceAllString(text, " "))

	return truncate(text, max)
}

// terminator keeps a line's own ending punctuation or adds a period.
func terminator(line string) string {
	switch last := line[len(line)-1]; last {
	case '.', '!', '?':
		return string(last)
	default:
		return "."
	}
}

func truncate(text string, max int) string {
	if max <= 0 || utf8.RuneCountInString(text) <= max {
		return text
	}
	runes := []rune(text)[:max]
	cut := string(runes)
	if i := strings.LastIndexAny(cut, ".!?"); i > max/2 {
		return cut[:i+1]
	}
	if i := strings.LastIndex(cut, " "); i > max/2 {
		return cut[:i]
	}
	return cut
}
