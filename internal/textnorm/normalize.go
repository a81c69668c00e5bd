package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// NormalizedText holds the two canonical forms of a piece of text. Folded is
// always derivable from Composed; it is never stored without its source.
type NormalizedText struct {
	Composed string // NFC form
	Folded   string // diacritic-stripped, lowercased form
}

// Normalize produces both canonical forms of raw input.
func Normalize(s string) NormalizedText {
	composed := NFC(s)
	return NormalizedText{
		Composed: composed,
		Folded:   Fold(composed),
	}
}

// NFC returns the canonical composed form of s. Empty input yields an empty
// string; the transform never fails.
func NFC(s string) string {
	if s == "" {
		return ""
	}
	return norm.NFC.String(s)
}

// Fold returns the diacritic-insensitive comparison form of s: canonical
// decomposition with all nonspacing marks removed, lowercased, recomposed.
// Fold is idempotent; a folded string contains no combining marks to strip.
func Fold(s string) string {
	if s == "" {
		return ""
	}

	decomposed := norm.NFD.String(s)

	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(unicode.ToLower(r))
	}

	return norm.NFC.String(b.String())
}
