// Package tei parses TEI-style XML source documents into ordered line and
// token records for ingestion.
//
// ReadLines extracts the <l> elements of a requested book division:
//
//	lines, err := reader.ReadLines(f, 1)
//	// [{Ref:"1" Text:"Μῆνιν ἄειδε, θεά, ..."} ...]
//
// When no division is explicitly tagged with the wanted number, the reader
// falls back to a bounded prefix of the first line elements found anywhere in
// the document. This tolerates loose or incomplete markup; the cap is
// configurable via MaxFallbackLines.
//
// References resolve in order: xml:id attribute, n attribute, synthesized
// 1-based ordinal. Lines that are empty after trimming are skipped.
//
// ReadTokens extracts word-level annotation (<w> elements) with optional
// lemma and morphology attributes; absent annotation yields empty values,
// not a parse failure. Only a structurally unparsable document is fatal.
package tei
