// Package textnorm canonicalizes historical-language text and derives
// content addresses for ingested segments.
//
// Two forms are produced for every piece of text:
//
//	composed := textnorm.NFC(raw)   // canonical composed Unicode (storage/display)
//	folded := textnorm.Fold(raw)    // diacritic-stripped, lowercased (comparison)
//
// Folding decomposes to NFD, drops all nonspacing combining marks, lowercases,
// and recomposes. The same fold is applied to indexed text and to queries, so
// lexical matching is accent-insensitive:
//
//	textnorm.Fold("Μῆνιν ἄειδε, θεά") // "μηνιν αειδε, θεα"
//
// Both transforms are pure and idempotent; malformed input degrades to the
// empty string rather than failing.
//
// # Content Addresses
//
// ChunkID derives a deterministic identifier from a segment's provenance and
// its composed text:
//
//	id := textnorm.ChunkID("perseus-iliad", "line", "1", "Μῆνιν ἄειδε, θεά")
//
// Identical inputs always reproduce the same ID, which makes re-ingestion of
// an unchanged source a no-op at the storage layer.
package textnorm
