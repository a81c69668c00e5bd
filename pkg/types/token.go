package types

// Token is a word-like span extracted from a normalized query string.
// Offsets are code-point positions into the composed form, [Start, End).
type Token struct {
	Text  string
	Start int
	End   int

	// Enrichment fields supplied by upstream annotation, never computed here
	Lemma *string
	Morph map[string]string
}

// SourceRef identifies the provenance of a piece of ingested text.
type SourceRef struct {
	Slug   string // Source work identifier, e.g. "perseus-iliad"
	Kind   string // Structural unit, e.g. "line" or "token"
	Anchor string // Unique within (Slug, Kind): line number or XML id
}
