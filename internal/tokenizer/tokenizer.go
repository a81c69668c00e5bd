package tokenizer

import (
	"strings"
	"unicode"

	"github.com/palaios/grammata/pkg/types"
)

// Apostrophe-like characters that mark elision inside a word.
const (
	apostrophe       = '\'' // ASCII apostrophe
	rightSingleQuote = '’' // right single quotation mark
	greekKoronis     = '᾽' // Greek koronis (psili-shaped elision mark)
	greekPsili       = '᾿' // Greek psili
	greekDasia       = '῾' // Greek dasia
)

// Tokenize splits composed text into tokens in left-to-right order with
// non-overlapping code-point offset ranges. Empty input yields an empty slice.
func Tokenize(composed string) []types.Token {
	tokens := make([]types.Token, 0)
	if composed == "" {
		return tokens
	}

	var current strings.Builder
	start := -1
	pos := 0 // code-point position

	for _, r := range composed {
		if isTokenRune(r) {
			if start < 0 {
				start = pos
			}
			current.WriteRune(r)
		} else if start >= 0 {
			tokens = append(tokens, types.Token{
				Text:  current.String(),
				Start: start,
				End:   pos,
			})
			current.Reset()
			start = -1
		}
		pos++
	}

	// A qualifying run at the very end still emits a token
	if start >= 0 {
		tokens = append(tokens, types.Token{
			Text:  current.String(),
			Start: start,
			End:   pos,
		})
	}

	return tokens
}

// isTokenRune reports whether r may appear inside a token.
func isTokenRune(r rune) bool {
	if unicode.IsLetter(r) || unicode.Is(unicode.Mn, r) {
		return true
	}
	switch r {
	case apostrophe, rightSingleQuote, greekKoronis, greekPsili, greekDasia:
		return true
	}
	return false
}
