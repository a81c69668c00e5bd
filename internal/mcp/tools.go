package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/palaios/grammata/internal/ingest"
	"github.com/palaios/grammata/internal/searcher"
	"github.com/palaios/grammata/internal/tei"
	"github.com/palaios/grammata/internal/textnorm"
	"github.com/palaios/grammata/internal/tokenizer"
	"github.com/palaios/grammata/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams = -32602 // Invalid method parameters
	ErrorCodeInternalError = -32603 // Internal JSON-RPC error
	ErrorCodeEmptyQuery    = -32001 // Query parameter is empty
	ErrorCodeParseFailed   = -32002 // Source document is structurally unparsable
	ErrorCodeDependency    = -32003 // Storage or embedding dependency unavailable
)

// handleIngestSource handles the ingest_source tool invocation
func (s *Server) handleIngestSource(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	docPath, ok := args["doc_path"].(string)
	if !ok || docPath == "" {
		return nil, missingParam("doc_path")
	}
	if err := validateFile(docPath); err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid doc_path", map[string]interface{}{
			"param":  "doc_path",
			"reason": err.Error(),
		})
	}

	slug, ok := args["slug"].(string)
	if !ok || slug == "" {
		return nil, missingParam("slug")
	}
	language, ok := args["language"].(string)
	if !ok || language == "" {
		return nil, missingParam("language")
	}
	work, ok := args["work"].(string)
	if !ok || work == "" {
		return nil, missingParam("work")
	}

	opts := ingest.Options{
		DocPath:       docPath,
		TokensPath:    getStringDefault(args, "tokens_path", ""),
		Slug:          slug,
		Title:         getStringDefault(args, "title", ""),
		Language:      language,
		Work:          work,
		Book:          getIntDefault(args, "book", 1),
		SkipEmbedding: getBoolDefault(args, "skip_embedding", false),
	}
	if opts.TokensPath != "" {
		if err := validateFile(opts.TokensPath); err != nil {
			return nil, newMCPError(ErrorCodeInvalidParams, "invalid tokens_path", map[string]interface{}{
				"param":  "tokens_path",
				"reason": err.Error(),
			})
		}
	}

	summary, err := s.pipeline.Run(ctx, opts)
	if err != nil {
		return nil, ingestError(err)
	}

	// The corpus changed; cached query responses are stale
	s.searcher.Invalidate()

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"slug":        slug,
		"lines_read":  summary.LinesRead,
		"inserted":    summary.Inserted,
		"skipped":     summary.Skipped,
		"failed":      summary.Failed,
		"tokens":      summary.Tokens,
		"embedded":    summary.Embedded,
		"duration_ms": summary.Duration.Milliseconds(),
	})), nil
}

// handleSearchTexts handles the search_texts tool invocation
func (s *Server) handleSearchTexts(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	query, ok := args["query"].(string)
	if !ok || query == "" {
		return nil, newMCPError(ErrorCodeEmptyQuery, "query parameter is required and cannot be empty", map[string]interface{}{
			"param":  "query",
			"reason": "missing or empty",
		})
	}

	k := getIntDefault(args, "k", 10)
	if k < 1 || k > 100 {
		return nil, newMCPError(ErrorCodeInvalidParams, "k must be between 1 and 100", map[string]interface{}{
			"param": "k",
			"value": k,
		})
	}

	req := searcher.Request{
		Query:    query,
		Language: getStringDefault(args, "language", ""),
		K:        k,
		Weights: searcher.Weights{
			Lexical:  getFloatDefault(args, "lexical_weight", 0),
			Semantic: getFloatDefault(args, "semantic_weight", 0),
		},
		UseCache: true,
	}

	resp, err := s.searcher.Search(ctx, req)
	if err != nil {
		return nil, searchError(err)
	}

	hits := serializeHits(resp.Hits)

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"hits":        hits,
		"total":       len(hits),
		"degraded":    resp.Degraded,
		"cache_hit":   resp.CacheHit,
		"duration_ms": resp.Duration.Milliseconds(),
	})), nil
}

// handleAnalyzeQuery handles the analyze_query tool invocation
func (s *Server) handleAnalyzeQuery(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	query, ok := args["query"].(string)
	if !ok || query == "" {
		return nil, newMCPError(ErrorCodeEmptyQuery, "query parameter is required and cannot be empty", map[string]interface{}{
			"param":  "query",
			"reason": "missing or empty",
		})
	}
	k := getIntDefault(args, "k", 5)

	norm := textnorm.Normalize(query)
	toks := tokenizer.Tokenize(norm.Composed)
	tokens := make([]map[string]interface{}, len(toks))
	for i, tok := range toks {
		entry := map[string]interface{}{
			"text":  tok.Text,
			"start": tok.Start,
			"end":   tok.End,
			"lemma": nil,
			"morph": nil,
		}
		if tok.Lemma != nil {
			entry["lemma"] = *tok.Lemma
		}
		if tok.Morph != nil {
			entry["morph"] = tok.Morph
		}
		tokens[i] = entry
	}

	hits, block, err := s.retrieval.BuildContext(ctx, query, k)
	if err != nil {
		return nil, searchError(err)
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"normalized": norm.Composed,
		"folded":     norm.Folded,
		"tokens":     tokens,
		"retrieval":  serializeHits(hits),
		"context":    block,
		"hit_count":  len(hits),
	})), nil
}

// serializeHits converts hybrid hits into the JSON shape both the search
// and analyze tools return
func serializeHits(hits []types.HybridHit) []map[string]interface{} {
	out := make([]map[string]interface{}, len(hits))
	for i, hit := range hits {
		reasons := make([]string, len(hit.Reasons))
		for j, r := range hit.Reasons {
			reasons[j] = string(r)
		}
		out[i] = map[string]interface{}{
			"segment_id": hit.SegmentID,
			"work_ref":   hit.WorkRef,
			"text_nfc":   hit.TextNFC,
			"score":      hit.Score,
			"reasons":    reasons,
		}
	}
	return out
}

// handleGetStatus handles the get_status tool invocation
func (s *Server) handleGetStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	status, err := s.storage.GetStatus(ctx)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to get status", map[string]interface{}{
			"error": err.Error(),
		})
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"sources":        status.SourcesCount,
		"segments":       status.SegmentsCount,
		"embeddings":     status.EmbeddingsCount,
		"schema_version": status.SchemaVersion,
		"index_size_mb":  fmt.Sprintf("%.2f", status.IndexSizeMB),
	})), nil
}

// Helper functions

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	return &MCPError{Code: code, Message: message, Data: data}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

func missingParam(name string) error {
	return newMCPError(ErrorCodeInvalidParams, name+" parameter is required", map[string]interface{}{
		"param":  name,
		"reason": "missing or empty",
	})
}

// ingestError maps pipeline failures onto MCP error codes
func ingestError(err error) error {
	var parseErr *tei.ParseError
	switch {
	case errors.Is(err, types.ErrInvalidInput):
		return newMCPError(ErrorCodeInvalidParams, err.Error(), nil)
	case errors.As(err, &parseErr):
		return newMCPError(ErrorCodeParseFailed, err.Error(), nil)
	default:
		return newMCPError(ErrorCodeInternalError, "ingestion failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

// searchError maps search failures onto MCP error codes
func searchError(err error) error {
	switch {
	case errors.Is(err, types.ErrInvalidInput):
		return newMCPError(ErrorCodeEmptyQuery, err.Error(), nil)
	case errors.Is(err, types.ErrDependency):
		return newMCPError(ErrorCodeDependency, err.Error(), nil)
	default:
		return newMCPError(ErrorCodeInternalError, "search failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

// validateFile checks that a path names an existing readable file
func validateFile(path string) error {
	if !filepath.IsAbs(path) {
		return errors.New("path must be absolute")
	}
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return errors.New("path does not exist")
	}
	if err != nil {
		return errors.New("path is not readable")
	}
	if info.IsDir() {
		return errors.New("path is a directory, not a file")
	}
	return nil
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

func getBoolDefault(args map[string]interface{}, key string, defaultValue bool) bool {
	if val, ok := args[key].(bool); ok {
		return val
	}
	return defaultValue
}

func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

func getFloatDefault(args map[string]interface{}, key string, defaultValue float64) float64 {
	if val, ok := args[key].(float64); ok {
		return val
	}
	return defaultValue
}

func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}
