package notify

import (
	"strings"
	"unicode/utf16"
)

// MaxMessageUnits is Telegram's message length limit in UTF-16 code units.
const MaxMessageUnits = 4096

// utf16Len returns the number of UTF-16 code units needed to encode s.
// Telegram counts message length in UTF-16 code units, not code points.
func utf16Len(s string) int {
	return len(utf16.Encode([]rune(s)))
}

// utf16Prefix returns the longest prefix of s that fits in maxUnits.
func utf16Prefix(s string, maxUnits int) string {
	units := 0

	for i, r := range s {
		runeUnits := 1
		if r > 0xFFFF {
			runeUnits = 2
		}

		if units+runeUnits > maxUnits {
			return s[:i]
		}

		units += runeUnits
	}

	return s
}

// Split breaks text into messages of at most limit UTF-16 units, preferring
// line breaks, then spaces. Report lines are never cut mid-rune.
func Split(text string, limit int) []string {
	if limit <= 0 {
		limit = MaxMessageUnits
	}

	var parts []string

	remaining := text
	for utf16Len(remaining) > limit {
		head, rest := bestSplit(remaining, limit)
		if head = strings.TrimRight(head, "\n"); head != "" {
			parts = append(parts, head)
		}

		remaining = rest
	}

	remaining = strings.TrimRight(remaining, "\n")
	if remaining != "" || len(parts) == 0 {
		parts = append(parts, remaining)
	}

	return parts
}

func bestSplit(text string, maxUnits int) (head, rest string) {
	window := utf16Prefix(text, maxUnits)
	if window == "" {
		for i := range text {
			if i > 0 {
				return text[:i], text[i:]
			}
		}

		return text, ""
	}

	if pos := strings.LastIndex(window, "\n"); pos > 0 {
		return window[:pos+1], text[pos+1:]
	}

	if pos := strings.LastIndex(window, " "); pos > 0 {
		return window[:pos+1], text[pos+1:]
	}

	return window, text[len(window):]
}
