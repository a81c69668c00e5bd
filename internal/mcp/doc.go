// Package mcp exposes the ingestion and retrieval core as an MCP server
// over stdio.
//
// Four tools are registered:
//
//	ingest_source   Ingest a TEI document into the segment store. Runs
//	                the full pipeline (read, normalize, address, store,
//	                embed) and reports inserted/skipped counts. Re-runs
//	                over unchanged documents insert nothing.
//
//	search_texts    Hybrid search over ingested segments. Returns ranked
//	                hits with citations, fused scores, and the signals
//	                (lexical, semantic) that produced each hit.
//
//	analyze_query   Tokenize a query and build a labeled retrieval
//	                context block for it. Useful for inspecting what a
//	                downstream QA step would receive.
//
//	get_status      Corpus statistics: source, segment, and embedding
//	                counts, schema version, and database size.
//
// The server writes all logging to stderr; stdout carries only the MCP
// protocol stream.
package mcp
