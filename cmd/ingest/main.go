// Command ingest runs the ingestion pipeline against a TEI document from
// the command line, without going through the MCP server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/palaios/grammata/internal/embedder"
	"github.com/palaios/grammata/internal/ingest"
	"github.com/palaios/grammata/internal/storage"
)

func main() {
	var (
		docPath    = flag.String("doc", "", "path to the TEI XML document (required)")
		tokensPath = flag.String("tokens", "", "path to a token-annotated TEI document")
		slug       = flag.String("slug", "", "stable source identifier, e.g. perseus-iliad (required)")
		title      = flag.String("title", "", "human-readable source title")
		language   = flag.String("lang", "grc", "language code")
		work       = flag.String("work", "", "citation prefix, e.g. Il (required)")
		book       = flag.Int("book", 1, "book number to extract")
		dbPath     = flag.String("db", "", "database directory (default: $GRAMMATA_DB_PATH or ~/.grammata)")
		noEmbed    = flag.Bool("no-embed", false, "store segments without vectors")
	)
	flag.Parse()

	log.SetOutput(os.Stderr)

	if *docPath == "" || *slug == "" || *work == "" {
		flag.Usage()
		os.Exit(2)
	}

	dir := *dbPath
	if dir == "" {
		dir = os.Getenv("GRAMMATA_DB_PATH")
	}
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			log.Fatalf("Failed to resolve home directory: %v", err)
		}
		dir = filepath.Join(home, ".grammata")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Fatalf("Failed to create database directory: %v", err)
	}

	store, err := storage.NewSQLiteStorage(filepath.Join(dir, "grammata.db"))
	if err != nil {
		log.Fatalf("Failed to open storage: %v", err)
	}
	defer func() { _ = store.Close() }()

	var emb embedder.Embedder
	if !*noEmbed {
		emb, err = embedder.NewFromEnv()
		if err != nil {
			log.Fatalf("Failed to initialize embedder: %v", err)
		}
		defer func() { _ = emb.Close() }()
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	pipeline := ingest.New(store, emb)
	summary, err := pipeline.Run(ctx, ingest.Options{
		DocPath:       *docPath,
		TokensPath:    *tokensPath,
		Slug:          *slug,
		Title:         *title,
		Language:      *language,
		Work:          *work,
		Book:          *book,
		SkipEmbedding: *noEmbed,
	})
	if err != nil {
		log.Fatalf("Ingestion failed: %v", err)
	}

	fmt.Printf("Ingested %s book %d\n", *slug, *book)
	fmt.Printf("  lines read: %d\n", summary.LinesRead)
	fmt.Printf("  inserted:   %d\n", summary.Inserted)
	fmt.Printf("  skipped:    %d\n", summary.Skipped)
	fmt.Printf("  failed:     %d\n", summary.Failed)
	if summary.Tokens > 0 {
		fmt.Printf("  tokens:     %d\n", summary.Tokens)
	}
	fmt.Printf("  embedded:   %d\n", summary.Embedded)
	fmt.Printf("  duration:   %s\n", summary.Duration)
}
