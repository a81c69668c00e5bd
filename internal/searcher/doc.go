// Package searcher implements hybrid retrieval over ingested segments.
//
// A query runs through two channels concurrently: lexical trigram
// similarity over diacritic-folded text, and cosine similarity over
// embedding vectors. The two result lists are fused by accumulating
// weighted scores per segment, so a segment surfaced by both channels
// outranks one surfaced by either alone. Default weights favor the
// lexical channel (0.6 lexical, 0.4 semantic); callers may override
// them per request.
//
// The semantic channel degrades gracefully: when the embedder fails or
// is absent, results come from the lexical channel alone and each hit's
// Reasons field records only "lexical". A lexical channel failure is
// fatal to the query.
//
// Responses are cached in an LRU keyed by the query, language, limit,
// and weights, with a TTL. Ingestion invalidates the cache.
//
// Usage:
//
//	engine := searcher.New(store, emb)
//	resp, err := engine.Search(ctx, searcher.Request{
//		Query:    "μῆνιν ἄειδε",
//		Language: "grc",
//		K:        10,
//	})
package searcher
