package security

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

const maxInputLength = 64

var (
	htmlPolicy = bluemonday.StrictPolicy()
	// Latin letters, ASCII and Persian/Arabic digits, and the separators a
	// time range is written with.
	slotInputRegex = regexp.MustCompile(`^[0-9A-Za-z\x{06F0}-\x{06F9}\x{0660}-\x{0669}:.\- ]+$`)
)

// SanitizeString trims whitespace, removes null bytes and caps the length
func SanitizeString(input string) string {
	input = strings.TrimSpace(input)
	input = strings.ReplaceAll(input, "\x00", "")

	if utf8.RuneCountInString(input) > maxInputLength {
		input = string([]rune(input)[:maxInputLength])
	}

	return input
}

// SanitizeHTML removes all HTML tags
func SanitizeHTML(input string) string {
	return htmlPolicy.Sanitize(input)
}

// SanitizeInput is applied to every free-form value a captain types.
func SanitizeInput(input string) string {
	return SanitizeString(SanitizeHTML(input))
}

// ValidateSlotInput rejects anything that cannot be part of a time slot or
// timezone code.
func ValidateSlotInput(input string) bool {
	return input != "" && slotInputRegex.MatchString(input)
}
