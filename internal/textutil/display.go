package textutil

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const ellipsis = "…"

// TitleCase capitalizes each word, e.g. "downloading" -> "Downloading".
func TitleCase(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	return cases.Title(language.Und).String(value)
}

// Truncate shortens value to at most width runes, marking the cut with an
// ellipsis. Non-positive widths return value unchanged.
func Truncate(value string, width int) string {
	if width <= 0 || utf8.RuneCountInString(value) <= width {
		return value
	}
	if width == 1 {
		return ellipsis
	}
	runes := []rune(value)
	return strings.TrimRight(string(runes[:width-1]), " ") + ellipsis
}

// FirstLine returns the first non-empty line of value, trimmed.
func FirstLine(value string) string {
	for line := range strings.SplitSeq(value, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

// YesNo renders a flag for human-readable output.
func YesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
