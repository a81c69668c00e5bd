// Package storage provides SQLite-based persistence for ingested text
// segments and their embeddings.
//
// The storage layer owns:
//   - Source metadata (slug, language, segment counts)
//   - Segments keyed by deterministic content addresses
//   - Vector embeddings for segments
//
// # Upsert Semantics
//
// Segments are upserted against the natural key (source, kind, anchor). The
// content address (chunk_id) covers the composed text, so an unchanged line
// re-ingested after a no-op source re-fetch resolves to the same row, and a
// changed line refreshes the row's text and chunk_id in place. Uniqueness is
// enforced by the database, not by application-level locking, so concurrent
// ingestion of the same source never races into duplicates.
//
// # Search Operations
//
// SearchLexical scores segments by pg_trgm-style trigram similarity between
// the folded query and stored folded text, returning (segment, similarity)
// pairs above a threshold. SearchVector scores by cosine similarity against
// stored embedding blobs. Both run read-only and commute, so callers may
// dispatch them concurrently.
//
// # Build Tags
//
// Two driver configurations are supported:
//
//   - Pure Go (default): modernc.org/sqlite, no C compiler required.
//   - CGO (sqlite_cgo tag): github.com/mattn/go-sqlite3.
//
// Similarity scoring runs in Go over candidate rows in either configuration.
//
// # Transactions
//
// BeginTx returns a Tx embedding the full Storage interface; batch ingestion
// commits one transaction per batch:
//
//	tx, err := store.BeginTx(ctx)
//	if err != nil {
//	    return err
//	}
//	defer tx.Rollback()
//	for _, seg := range batch {
//	    if err := tx.UpsertSegment(ctx, seg); err != nil {
//	        return err
//	    }
//	}
//	return tx.Commit()
package storage
