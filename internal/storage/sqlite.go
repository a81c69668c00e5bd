package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotFound is returned when a requested entity doesn't exist
	ErrNotFound = errors.New("not found")
)

// SQLiteStorage implements the Storage interface using SQLite
type SQLiteStorage struct {
	db *sql.DB
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// SQLite benefits from a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// NewSQLiteStorage creates a new SQLite storage instance
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// BeginTx starts a new transaction
func (s *SQLiteStorage) BeginTx(ctx context.Context) (Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &sqliteTx{tx: tx, storage: s}, nil
}

// querier is an interface that both *sql.DB and *sql.Tx implement
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// sqliteTx wraps a SQL transaction
type sqliteTx struct {
	tx      *sql.Tx
	storage *SQLiteStorage
}

func (t *sqliteTx) Commit() error {
	return t.tx.Commit()
}

func (t *sqliteTx) Rollback() error {
	return t.tx.Rollback()
}

func (t *sqliteTx) querier() querier {
	return t.tx
}

func (s *SQLiteStorage) querier() querier {
	return s.db
}

// Source operations

func (s *SQLiteStorage) createSourceWithQuerier(ctx context.Context, q querier, source *Source) error {
	query := `
		INSERT INTO sources (slug, title, language, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`
	now := time.Now()
	result, err := q.ExecContext(ctx, query,
		source.Slug, source.Title, source.Language, now, now)
	if err != nil {
		return fmt.Errorf("failed to create source: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	source.ID = id
	source.CreatedAt = now
	source.UpdatedAt = now
	return nil
}

func (s *SQLiteStorage) CreateSource(ctx context.Context, source *Source) error {
	return s.createSourceWithQuerier(ctx, s.querier(), source)
}

func (s *SQLiteStorage) getSourceWithQuerier(ctx context.Context, q querier, slug string) (*Source, error) {
	query := `
		SELECT id, slug, title, language, total_segments, last_ingested_at, created_at, updated_at
		FROM sources
		WHERE slug = ?
	`
	var source Source
	var title sql.NullString
	var lastIngestedAt sql.NullTime
	err := q.QueryRowContext(ctx, query, slug).Scan(
		&source.ID, &source.Slug, &title, &source.Language,
		&source.TotalSegments, &lastIngestedAt, &source.CreatedAt, &source.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if title.Valid {
		source.Title = title.String
	}
	if lastIngestedAt.Valid {
		source.LastIngestedAt = lastIngestedAt.Time
	}
	return &source, nil
}

func (s *SQLiteStorage) GetSource(ctx context.Context, slug string) (*Source, error) {
	return s.getSourceWithQuerier(ctx, s.querier(), slug)
}

func (s *SQLiteStorage) updateSourceWithQuerier(ctx context.Context, q querier, source *Source) error {
	query := `
		UPDATE sources
		SET title = ?, language = ?, total_segments = ?, last_ingested_at = ?, updated_at = ?
		WHERE id = ?
	`
	now := time.Now()
	_, err := q.ExecContext(ctx, query,
		source.Title, source.Language, source.TotalSegments,
		source.LastIngestedAt, now, source.ID)
	if err != nil {
		return fmt.Errorf("failed to update source: %w", err)
	}
	source.UpdatedAt = now
	return nil
}

func (s *SQLiteStorage) UpdateSource(ctx context.Context, source *Source) error {
	return s.updateSourceWithQuerier(ctx, s.querier(), source)
}

// Segment operations

// upsertSegmentWithQuerier inserts a segment or refreshes its content in
// place. The natural key (source_id, kind, anchor) is the conflict target;
// the content address changes with the composed text, so a refresh rewrites
// chunk_id along with the text columns. Conflict resolution lives in the
// database so concurrent ingestion cannot race into duplicates.
func (s *SQLiteStorage) upsertSegmentWithQuerier(ctx context.Context, q querier, segment *Segment) error {
	query := `
		INSERT INTO segments (
			source_id, chunk_id, work_ref, kind, anchor,
			text_nfc, text_fold, lemma, morph, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(source_id, kind, anchor)
		DO UPDATE SET
			chunk_id = excluded.chunk_id,
			work_ref = excluded.work_ref,
			text_nfc = excluded.text_nfc,
			text_fold = excluded.text_fold,
			lemma = excluded.lemma,
			morph = excluded.morph,
			updated_at = excluded.updated_at
		RETURNING id, created_at, updated_at
	`
	now := time.Now()
	err := q.QueryRowContext(ctx, query,
		segment.SourceID, segment.ChunkID, segment.WorkRef, segment.Kind, segment.Anchor,
		segment.TextNFC, segment.TextFold, segment.Lemma, segment.Morph,
		now, now,
	).Scan(&segment.ID, &segment.CreatedAt, &segment.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to upsert segment: %w", err)
	}

	return nil
}

func (s *SQLiteStorage) UpsertSegment(ctx context.Context, segment *Segment) error {
	return s.upsertSegmentWithQuerier(ctx, s.querier(), segment)
}

const segmentColumns = `id, source_id, chunk_id, work_ref, kind, anchor,
	       text_nfc, text_fold, lemma, morph, created_at, updated_at`

// scanSegment reads one segment row from a row scanner
func scanSegment(scan func(dest ...interface{}) error) (*Segment, error) {
	var seg Segment
	var lemma, morph sql.NullString
	err := scan(
		&seg.ID, &seg.SourceID, &seg.ChunkID, &seg.WorkRef, &seg.Kind, &seg.Anchor,
		&seg.TextNFC, &seg.TextFold, &lemma, &morph, &seg.CreatedAt, &seg.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if lemma.Valid {
		seg.Lemma = &lemma.String
	}
	if morph.Valid {
		seg.Morph = &morph.String
	}
	return &seg, nil
}

func (s *SQLiteStorage) getSegmentWithQuerier(ctx context.Context, q querier, segmentID int64) (*Segment, error) {
	query := `SELECT ` + segmentColumns + ` FROM segments WHERE id = ?`
	seg, err := scanSegment(q.QueryRowContext(ctx, query, segmentID).Scan)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return seg, nil
}

func (s *SQLiteStorage) GetSegment(ctx context.Context, segmentID int64) (*Segment, error) {
	return s.getSegmentWithQuerier(ctx, s.querier(), segmentID)
}

func (s *SQLiteStorage) getSegmentByChunkIDWithQuerier(ctx context.Context, q querier, chunkID string) (*Segment, error) {
	query := `SELECT ` + segmentColumns + ` FROM segments WHERE chunk_id = ?`
	seg, err := scanSegment(q.QueryRowContext(ctx, query, chunkID).Scan)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return seg, nil
}

func (s *SQLiteStorage) GetSegmentByChunkID(ctx context.Context, chunkID string) (*Segment, error) {
	return s.getSegmentByChunkIDWithQuerier(ctx, s.querier(), chunkID)
}

func (s *SQLiteStorage) countSegmentsWithQuerier(ctx context.Context, q querier, sourceID int64) (int, error) {
	var count int
	var err error
	if sourceID > 0 {
		err = q.QueryRowContext(ctx, "SELECT COUNT(*) FROM segments WHERE source_id = ?", sourceID).Scan(&count)
	} else {
		err = q.QueryRowContext(ctx, "SELECT COUNT(*) FROM segments").Scan(&count)
	}
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (s *SQLiteStorage) CountSegments(ctx context.Context, sourceID int64) (int, error) {
	return s.countSegmentsWithQuerier(ctx, s.querier(), sourceID)
}

// Embedding operations

func (s *SQLiteStorage) upsertEmbeddingWithQuerier(ctx context.Context, q querier, embedding *Embedding) error {
	query := `
		INSERT INTO embeddings (segment_id, vector, dimension, provider, model, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(segment_id) DO UPDATE SET
			vector = excluded.vector,
			dimension = excluded.dimension,
			provider = excluded.provider,
			model = excluded.model
	`
	now := time.Now()
	result, err := q.ExecContext(ctx, query,
		embedding.SegmentID, embedding.Vector, embedding.Dimension,
		embedding.Provider, embedding.Model, now)
	if err != nil {
		return fmt.Errorf("failed to upsert embedding: %w", err)
	}

	if embedding.ID == 0 {
		id, err := result.LastInsertId()
		if err == nil {
			embedding.ID = id
		}
	}

	embedding.CreatedAt = now
	return nil
}

func (s *SQLiteStorage) UpsertEmbedding(ctx context.Context, embedding *Embedding) error {
	return s.upsertEmbeddingWithQuerier(ctx, s.querier(), embedding)
}

func (s *SQLiteStorage) getEmbeddingWithQuerier(ctx context.Context, q querier, segmentID int64) (*Embedding, error) {
	query := `
		SELECT id, segment_id, vector, dimension, provider, model, created_at
		FROM embeddings
		WHERE segment_id = ?
	`
	var embedding Embedding
	err := q.QueryRowContext(ctx, query, segmentID).Scan(
		&embedding.ID, &embedding.SegmentID, &embedding.Vector,
		&embedding.Dimension, &embedding.Provider, &embedding.Model,
		&embedding.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &embedding, nil
}

func (s *SQLiteStorage) GetEmbedding(ctx context.Context, segmentID int64) (*Embedding, error) {
	return s.getEmbeddingWithQuerier(ctx, s.querier(), segmentID)
}

func (s *SQLiteStorage) deleteEmbeddingWithQuerier(ctx context.Context, q querier, segmentID int64) error {
	query := `DELETE FROM embeddings WHERE segment_id = ?`
	_, err := q.ExecContext(ctx, query, segmentID)
	return err
}

func (s *SQLiteStorage) DeleteEmbedding(ctx context.Context, segmentID int64) error {
	return s.deleteEmbeddingWithQuerier(ctx, s.querier(), segmentID)
}

// Search operations

func (s *SQLiteStorage) SearchLexical(ctx context.Context, folded, language string, limit int, minSimilarity float64) ([]LexicalResult, error) {
	return searchLexical(ctx, s.db, folded, language, limit, minSimilarity)
}

func (s *SQLiteStorage) SearchVector(ctx context.Context, vector []float32, language string, limit int) ([]VectorResult, error) {
	return searchVector(ctx, s.db, vector, language, limit)
}

// Status operations

func (s *SQLiteStorage) getStatusWithQuerier(ctx context.Context, q querier) (*Status, error) {
	status := &Status{SchemaVersion: CurrentSchemaVersion}

	if err := q.QueryRowContext(ctx, "SELECT COUNT(*) FROM sources").Scan(&status.SourcesCount); err != nil {
		return nil, err
	}
	if err := q.QueryRowContext(ctx, "SELECT COUNT(*) FROM segments").Scan(&status.SegmentsCount); err != nil {
		return nil, err
	}
	if err := q.QueryRowContext(ctx, "SELECT COUNT(*) FROM embeddings").Scan(&status.EmbeddingsCount); err != nil {
		return nil, err
	}

	var pageCount, pageSize int
	if err := q.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount); err == nil {
		_ = q.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize)
		status.IndexSizeMB = float64(pageCount*pageSize) / (1024 * 1024)
	}

	return status, nil
}

func (s *SQLiteStorage) GetStatus(ctx context.Context) (*Status, error) {
	return s.getStatusWithQuerier(ctx, s.querier())
}

// Transaction implementations

func (t *sqliteTx) CreateSource(ctx context.Context, source *Source) error {
	return t.storage.createSourceWithQuerier(ctx, t.querier(), source)
}

func (t *sqliteTx) GetSource(ctx context.Context, slug string) (*Source, error) {
	return t.storage.getSourceWithQuerier(ctx, t.querier(), slug)
}

func (t *sqliteTx) UpdateSource(ctx context.Context, source *Source) error {
	return t.storage.updateSourceWithQuerier(ctx, t.querier(), source)
}

func (t *sqliteTx) UpsertSegment(ctx context.Context, segment *Segment) error {
	return t.storage.upsertSegmentWithQuerier(ctx, t.querier(), segment)
}

func (t *sqliteTx) GetSegment(ctx context.Context, segmentID int64) (*Segment, error) {
	return t.storage.getSegmentWithQuerier(ctx, t.querier(), segmentID)
}

func (t *sqliteTx) GetSegmentByChunkID(ctx context.Context, chunkID string) (*Segment, error) {
	return t.storage.getSegmentByChunkIDWithQuerier(ctx, t.querier(), chunkID)
}

func (t *sqliteTx) CountSegments(ctx context.Context, sourceID int64) (int, error) {
	return t.storage.countSegmentsWithQuerier(ctx, t.querier(), sourceID)
}

func (t *sqliteTx) UpsertEmbedding(ctx context.Context, embedding *Embedding) error {
	return t.storage.upsertEmbeddingWithQuerier(ctx, t.querier(), embedding)
}

func (t *sqliteTx) GetEmbedding(ctx context.Context, segmentID int64) (*Embedding, error) {
	return t.storage.getEmbeddingWithQuerier(ctx, t.querier(), segmentID)
}

func (t *sqliteTx) DeleteEmbedding(ctx context.Context, segmentID int64) error {
	return t.storage.deleteEmbeddingWithQuerier(ctx, t.querier(), segmentID)
}

func (t *sqliteTx) SearchLexical(ctx context.Context, folded, language string, limit int, minSimilarity float64) ([]LexicalResult, error) {
	return searchLexical(ctx, t.querier(), folded, language, limit, minSimilarity)
}

func (t *sqliteTx) SearchVector(ctx context.Context, vector []float32, language string, limit int) ([]VectorResult, error) {
	return searchVector(ctx, t.querier(), vector, language, limit)
}

func (t *sqliteTx) GetStatus(ctx context.Context) (*Status, error) {
	return t.storage.getStatusWithQuerier(ctx, t.querier())
}

func (t *sqliteTx) Close() error {
	// Transactions don't close the underlying connection
	return nil
}

func (t *sqliteTx) BeginTx(ctx context.Context) (Tx, error) {
	// SQLite does not support true nested transactions
	return nil, errors.New("nested transactions not supported")
}
