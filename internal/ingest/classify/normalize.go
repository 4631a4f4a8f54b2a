package classify

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize lower-cases text with Turkish casing rules and folds diacritics,
// so "Bakıyorum", "BAKIYORUM" and "bakiyorum" compare equal.
// Dotless ı has no decomposition and is mapped to i explicitly.
func Normalize(text string) string {
	if text == "" {
		return ""
	}

	t := transform.Chain(
		cases.Lower(language.Turkish),
		norm.NFD,
		runes.Remove(runes.In(unicode.Mn)),
		runes.Map(foldDotless),
		norm.NFC,
	)

	out, _, err := transform.String(t, text)
	if err != nil {
		return strings.ToLower(text)
	}

	return out
}

func foldDotless(r rune) rune {
	if r == 'ı' {
		return 'i'
	}

	return r
}
