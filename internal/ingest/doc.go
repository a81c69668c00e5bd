// Package ingest coordinates the ingestion pipeline: read -> normalize ->
// address -> store.
//
// The pipeline reads a TEI document, normalizes every line to NFC,
// computes each line's content address, and upserts the resulting
// segments in batched transactions. Re-running ingestion over an
// unchanged document inserts nothing; every line resolves to an existing
// content address and is counted as skipped. Changed lines refresh their
// stored text in place under the same structural anchor.
//
// When an embedder is attached, newly inserted segments are embedded
// after each batch commits. Embedding failures are logged and do not
// fail the ingestion run; the affected segments simply stay lexical-only
// until a later run embeds them.
//
// A separate token pass ingests word-level annotations (surface form,
// lemma, morphology) from token-annotated TEI as segments of kind
// "token".
package ingest
