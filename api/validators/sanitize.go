package validators

import (
	"strings"
	"unicode/utf8"
)

// SanitizeString trims input and cuts it to maxLen runes.
func SanitizeString(input string, maxLen int) string {
	trimmed := strings.TrimSpace(input)
	if maxLen <= 0 || utf8.RuneCountInString(trimmed) <= maxLen {
		return trimmed
	}
	runes := []rune(trimmed)
	return string(runes[:maxLen])
}

// NormalizeEmail is how emails are compared against orders and tokens.
func NormalizeEmail(input string) string {
	return strings.ToLower(SanitizeString(input, 255))
}

// NormalizeOrderNumber accepts order numbers typed in any case.
func NormalizeOrderNumber(input string) string {
	return strings.ToUpper(SanitizeString(input, 64))
}
