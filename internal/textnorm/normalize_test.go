package textnorm

import (
	"testing"
	"unicode"

	"github.com/stretchr/testify/assert"
)

func TestNFC(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "Empty",
			input: "",
			want:  "",
		},
		{
			name:  "PlainASCII",
			input: "menin aeide thea",
			want:  "menin aeide thea",
		},
		{
			// U+03B7 GREEK SMALL LETTER ETA + U+0342 combining perispomeni
			// composes to U+1FC6
			name:  "ComposesDecomposedGreek",
			input: "ῆ",
			want:  "ῆ",
		},
		{
			name:  "AlreadyComposed",
			input: "Μῆνιν",
			want:  "Μῆνιν",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NFC(tt.input))
		})
	}
}

func TestNFCIdempotent(t *testing.T) {
	inputs := []string{"", "Μῆνιν ἄειδε, θεά", "ῆ", "arma virumque cano"}
	for _, s := range inputs {
		once := NFC(s)
		assert.Equal(t, once, NFC(once), "nfc(nfc(%q)) != nfc(%q)", s, s)
	}
}

func TestFold(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "Empty",
			input: "",
			want:  "",
		},
		{
			name:  "GreekWithBreathingsAndAccents",
			input: "Μῆνιν ἄειδε, θεά",
			want:  "μηνιν αειδε, θεα",
		},
		{
			name:  "LatinMacrons",
			input: "Arma virumque canō",
			want:  "arma virumque cano",
		},
		{
			name:  "AlreadyFolded",
			input: "μηνιν",
			want:  "μηνιν",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Fold(tt.input))
		})
	}
}

func TestFoldIdempotent(t *testing.T) {
	inputs := []string{"", "Μῆνιν ἄειδε, θεά", "Ἄνδρα μοι ἔννεπε", "Orgētorix"}
	for _, s := range inputs {
		once := Fold(s)
		assert.Equal(t, once, Fold(once), "fold(fold(%q)) != fold(%q)", s, s)
	}
}

func TestFoldStripsAllCombiningMarks(t *testing.T) {
	folded := Fold("Μῆνιν ἄειδε, θεά ἑκηβόλου Ἀπόλλωνος")
	for _, r := range folded {
		assert.False(t, unicode.Is(unicode.Mn, r), "folded text contains combining mark %U", r)
	}
}

func TestNormalizeDerivesFoldedFromComposed(t *testing.T) {
	nt := Normalize("Μῆνιν ἄειδε")
	assert.Equal(t, NFC("Μῆνιν ἄειδε"), nt.Composed)
	assert.Equal(t, Fold(nt.Composed), nt.Folded)
}
