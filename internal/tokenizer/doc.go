// Package tokenizer segments normalized query text into word-like spans.
//
// A code point belongs to a token when its Unicode general category is a
// Letter (L*) or Mark, nonspacing (Mn), or when it is one of the
// apostrophe-like characters used for elision in ancient scripts (δ᾽ ἐτελείετο).
// Everything else - whitespace, punctuation, digits - separates tokens.
//
//	toks := tokenizer.Tokenize("Μῆνιν ἄειδε")
//	// [{Μῆνιν 0 5} {ἄειδε 6 11}]
//
// Offsets are code-point positions into the composed input, so they agree
// with how indexed text was normalized. Input is expected to be NFC already;
// the tokenizer does not re-normalize.
package tokenizer
