package mcp

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mark3labs/mcp-go/server"

	"github.com/palaios/grammata/internal/embedder"
	"github.com/palaios/grammata/internal/ingest"
	"github.com/palaios/grammata/internal/retrieval"
	"github.com/palaios/grammata/internal/searcher"
	"github.com/palaios/grammata/internal/storage"
)

const (
	// ServerName is the MCP server name
	ServerName = "grammata"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
	// EnvDBPath overrides the database location
	EnvDBPath = "GRAMMATA_DB_PATH"
)

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp       *server.MCPServer
	storage   storage.Storage
	pipeline  *ingest.Pipeline
	searcher  *searcher.Engine
	retrieval *retrieval.Builder
}

// NewServer creates a server rooted at dbPath. An empty path falls back
// to GRAMMATA_DB_PATH, then to ~/.grammata.
func NewServer(dbPath string) (*Server, error) {
	if dbPath == "" {
		dbPath = os.Getenv(EnvDBPath)
	}
	if dbPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		dbPath = filepath.Join(home, ".grammata")
	}

	if err := os.MkdirAll(dbPath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}
	dbFile := filepath.Join(dbPath, "grammata.db")

	store, err := storage.NewSQLiteStorage(dbFile)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	emb, err := embedder.NewFromEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	// One embedder serves both ingestion and query-time embedding so
	// they share the vector cache
	engine := searcher.New(store, emb)

	s := &Server{
		mcp:       server.NewMCPServer(ServerName, ServerVersion),
		storage:   store,
		pipeline:  ingest.New(store, emb),
		searcher:  engine,
		retrieval: retrieval.New(engine),
	}
	s.registerTools()
	return s, nil
}

// Serve starts the MCP server on stdio and blocks until shutdown
func (s *Server) Serve(ctx context.Context) error {
	defer func() { _ = s.storage.Close() }()
	return server.ServeStdio(s.mcp)
}

func (s *Server) registerTools() {
	s.mcp.AddTool(ingestSourceTool(), s.handleIngestSource)
	s.mcp.AddTool(searchTextsTool(), s.handleSearchTexts)
	s.mcp.AddTool(analyzeQueryTool(), s.handleAnalyzeQuery)
	s.mcp.AddTool(getStatusTool(), s.handleGetStatus)
}
