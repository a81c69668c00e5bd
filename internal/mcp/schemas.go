package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// ingestSourceTool returns the tool definition for ingest_source
func ingestSourceTool() mcp.Tool {
	return mcp.Tool{
		Name:        "ingest_source",
		Description: "Ingest a TEI document into the segment store. Idempotent: re-ingesting an unchanged document inserts nothing.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"doc_path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path to the TEI XML document",
				},
				"tokens_path": map[string]interface{}{
					"type":        "string",
					"description": "Optional absolute path to a token-annotated TEI document (lemma/morphology)",
				},
				"slug": map[string]interface{}{
					"type":        "string",
					"description": "Stable source identifier, e.g. 'perseus-iliad'",
				},
				"title": map[string]interface{}{
					"type":        "string",
					"description": "Human-readable source title",
				},
				"language": map[string]interface{}{
					"type":        "string",
					"description": "Language code, e.g. 'grc' or 'lat'",
				},
				"work": map[string]interface{}{
					"type":        "string",
					"description": "Citation prefix for work references, e.g. 'Il'",
				},
				"book": map[string]interface{}{
					"type":        "integer",
					"description": "Book number to extract",
					"default":     1,
					"minimum":     1,
				},
				"skip_embedding": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, store segments without vectors",
					"default":     false,
				},
			},
			Required: []string{"doc_path", "slug", "language", "work"},
		},
	}
}

// searchTextsTool returns the tool definition for search_texts
func searchTextsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search_texts",
		Description: "Hybrid search over ingested segments: diacritic-insensitive trigram matching fused with embedding similarity",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Search query in any diacritic form",
				},
				"language": map[string]interface{}{
					"type":        "string",
					"description": "Optional language filter, e.g. 'grc'",
				},
				"k": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum hits to return (1-100)",
					"default":     10,
					"minimum":     1,
					"maximum":     100,
				},
				"lexical_weight": map[string]interface{}{
					"type":        "number",
					"description": "Weight of the lexical channel in score fusion",
					"default":     0.6,
					"minimum":     0.0,
					"maximum":     1.0,
				},
				"semantic_weight": map[string]interface{}{
					"type":        "number",
					"description": "Weight of the semantic channel in score fusion",
					"default":     0.4,
					"minimum":     0.0,
					"maximum":     1.0,
				},
			},
			Required: []string{"query"},
		},
	}
}

// analyzeQueryTool returns the tool definition for analyze_query
func analyzeQueryTool() mcp.Tool {
	return mcp.Tool{
		Name:        "analyze_query",
		Description: "Tokenize a query and build the labeled retrieval context a QA step would receive",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Question or phrase to analyze",
				},
				"k": map[string]interface{}{
					"type":        "integer",
					"description": "Number of context passages to retrieve",
					"default":     5,
					"minimum":     1,
					"maximum":     100,
				},
			},
			Required: []string{"query"},
		},
	}
}

// getStatusTool returns the tool definition for get_status
func getStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_status",
		Description: "Corpus statistics: source, segment, and embedding counts",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}
