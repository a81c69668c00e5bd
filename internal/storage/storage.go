package storage

import (
	"context"
	"time"
)

// Storage defines the interface for persisting and querying ingested segments
type Storage interface {
	// Source operations
	CreateSource(ctx context.Context, source *Source) error
	GetSource(ctx context.Context, slug string) (*Source, error)
	UpdateSource(ctx context.Context, source *Source) error

	// Segment operations
	UpsertSegment(ctx context.Context, segment *Segment) error
	GetSegment(ctx context.Context, segmentID int64) (*Segment, error)
	GetSegmentByChunkID(ctx context.Context, chunkID string) (*Segment, error)
	CountSegments(ctx context.Context, sourceID int64) (int, error)

	// Embedding operations
	UpsertEmbedding(ctx context.Context, embedding *Embedding) error
	GetEmbedding(ctx context.Context, segmentID int64) (*Embedding, error)
	DeleteEmbedding(ctx context.Context, segmentID int64) error

	// Search operations
	SearchLexical(ctx context.Context, folded, language string, limit int, minSimilarity float64) ([]LexicalResult, error)
	SearchVector(ctx context.Context, vector []float32, language string, limit int) ([]VectorResult, error)

	// Status operations
	GetStatus(ctx context.Context) (*Status, error)

	// Database operations
	Close() error
	BeginTx(ctx context.Context) (Tx, error)
}

// Tx represents a database transaction
type Tx interface {
	Commit() error
	Rollback() error
	Storage // Embed Storage interface for transaction operations
}

// Source represents one ingested work
type Source struct {
	ID             int64
	Slug           string // Stable identifier, e.g. "perseus-iliad"
	Title          string
	Language       string // ISO-ish code, e.g. "grc", "lat"
	TotalSegments  int
	LastIngestedAt time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Segment represents one normalized, addressed unit of ingested text.
// Created and updated only by the ingestion pipeline; read-only to search.
type Segment struct {
	ID       int64
	SourceID int64
	ChunkID  string // Content address over (slug, kind, anchor, text_nfc)
	WorkRef  string // Human-readable citation, e.g. "Il.1.1"
	Kind     string // Structural unit: "line", "token"
	Anchor   string // Unique within (source, kind)

	TextNFC  string
	TextFold string

	// Enrichment from token-annotated sources; never computed here
	Lemma *string
	Morph *string // serialized tag map

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Embedding represents a vector embedding for a segment
type Embedding struct {
	ID        int64
	SegmentID int64
	Vector    []byte // Serialized float32 array, little-endian
	Dimension int
	Provider  string
	Model     string
	CreatedAt time.Time
}

// LexicalResult pairs a segment with its trigram similarity to a folded query
type LexicalResult struct {
	Segment    *Segment
	Similarity float64
}

// VectorResult pairs a segment with its cosine similarity to a query vector
type VectorResult struct {
	Segment    *Segment
	Similarity float64
}

// Status contains statistics about the segment store
type Status struct {
	SourcesCount    int
	SegmentsCount   int
	EmbeddingsCount int
	SchemaVersion   string
	IndexSizeMB     float64
}
