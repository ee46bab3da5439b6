package utils

import (
	"strings"
	"unicode/utf8"
)

// MaxHeadingLength bounds labels taken from pure heading fields
const MaxHeadingLength = 128

// TruncateRunes cuts s to at most max runes without splitting a multi-byte character
func TruncateRunes(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	n := 0
	for i := range s {
		if n == max {
			return s[:i]
		}
		n++
	}
	return s
}

// HeadingText prepares a raw field value for use as a heading label.
// Whitespace runs collapse to one space before truncation to MaxHeadingLength runes.
func HeadingText(raw string) string {
	collapsed := strings.Join(strings.Fields(raw), " ")
	return strings.TrimSpace(TruncateRunes(collapsed, MaxHeadingLength))
}
