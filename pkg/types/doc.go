// Package types provides shared type definitions for the grammata server.
//
// This package defines the transient domain types that cross component
// boundaries: query tokens, hybrid search hits, source references, and the
// caller-visible error taxonomy. Persisted types (segments, embeddings) live
// with the storage layer that owns them.
//
// # Hybrid Hits
//
// HybridHit is the unit of a ranked retrieval result. Each hit carries the
// fused relevance score and the signals that produced it:
//
//	hit := types.HybridHit{
//	    SegmentID: "9f2c...",
//	    WorkRef:   "Il.1.1",
//	    TextNFC:   "Μῆνιν ἄειδε, θεά",
//	    Score:     0.87,
//	    Reasons:   []types.Reason{types.ReasonLexical, types.ReasonSemantic},
//	}
//
// Scores are normalized to [0, 1]. Reasons are ordered: lexical always
// precedes semantic when both signals matched.
//
// # Tokens
//
// Token represents a word-like span produced by query analysis. Offsets are
// code-point positions into the composed (NFC) query string, so callers can
// slice the original query without re-tokenizing:
//
//	tok := types.Token{Text: "Μῆνιν", Start: 0, End: 5}
//
// Lemma and Morph are placeholders populated only by upstream annotation
// sources; the server never computes them.
package types
