package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/palaios/grammata/internal/embedder"
	"github.com/palaios/grammata/internal/storage"
	"github.com/palaios/grammata/internal/tei"
	"github.com/palaios/grammata/internal/textnorm"
	"github.com/palaios/grammata/pkg/types"
)

const (
	defaultBatchSize = 50
	segmentKindLine  = "line"
	segmentKindToken = "token"
)

// Pipeline coordinates the ingestion flow: read -> normalize -> address -> store
type Pipeline struct {
	reader   *tei.Reader
	storage  storage.Storage
	embedder embedder.Embedder
	workers  int
}

// Options configures one ingestion run
type Options struct {
	DocPath    string // TEI document with line divisions
	TokensPath string // Optional token-annotated TEI
	Slug       string // Stable source identifier
	Title      string
	Language   string // e.g. "grc", "lat"
	Work       string // Citation prefix, e.g. "Il"
	Book       int

	MaxFallbackLines int // Cap for documents without book divisions; 0 uses the reader default
	BatchSize        int // Segments per transaction
	SkipEmbedding    bool
}

// Summary reports what one ingestion run did
type Summary struct {
	LinesRead int
	Inserted  int
	Skipped   int
	Failed    int
	Tokens    int
	Embedded  int
	Duration  time.Duration
}

// New creates an ingestion pipeline. The embedder may be nil, in which
// case segments are stored without vectors.
func New(store storage.Storage, emb embedder.Embedder) *Pipeline {
	return &Pipeline{
		reader:   tei.NewReader(),
		storage:  store,
		embedder: emb,
		workers:  runtime.NumCPU(),
	}
}

func (o *Options) validate() error {
	if o.DocPath == "" {
		return fmt.Errorf("%w: document path is required", types.ErrInvalidInput)
	}
	if o.Slug == "" {
		return fmt.Errorf("%w: source slug is required", types.ErrInvalidInput)
	}
	if o.Language == "" {
		return fmt.Errorf("%w: language is required", types.ErrInvalidInput)
	}
	if o.Book < 1 {
		return fmt.Errorf("%w: book must be positive", types.ErrInvalidInput)
	}
	return nil
}

// Run executes one ingestion pass. Re-running over an unchanged document
// is a no-op: every line resolves to an existing content address and is
// counted as skipped.
func (p *Pipeline) Run(ctx context.Context, opts Options) (*Summary, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	summary := &Summary{}

	lines, err := p.readLines(opts)
	if err != nil {
		return nil, err
	}
	summary.LinesRead = len(lines)

	source, err := p.getOrCreateSource(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve source: %w", err)
	}

	pending, err := p.storeLines(ctx, source, lines, opts, summary)
	if err != nil {
		return nil, err
	}

	if opts.TokensPath != "" {
		if err := p.storeTokens(ctx, source, opts, summary); err != nil {
			return nil, err
		}
	}

	if p.embedder != nil && !opts.SkipEmbedding {
		summary.Embedded = p.embedPending(ctx, pending)
	}

	if err := p.updateSourceStats(ctx, source); err != nil {
		return nil, err
	}

	summary.Duration = time.Since(start)
	return summary, nil
}

func (p *Pipeline) readLines(opts Options) ([]tei.Line, error) {
	f, err := os.Open(opts.DocPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open document: %w", err)
	}
	defer func() { _ = f.Close() }()

	reader := p.reader
	if opts.MaxFallbackLines > 0 {
		reader = &tei.Reader{MaxFallbackLines: opts.MaxFallbackLines}
	}

	lines, err := reader.ReadLines(f, opts.Book)
	if err != nil {
		return nil, err
	}
	return lines, nil
}

func (p *Pipeline) getOrCreateSource(ctx context.Context, opts Options) (*storage.Source, error) {
	source, err := p.storage.GetSource(ctx, opts.Slug)
	if err == nil {
		return source, nil
	}
	if err != storage.ErrNotFound {
		return nil, err
	}

	source = &storage.Source{
		Slug:     opts.Slug,
		Title:    opts.Title,
		Language: opts.Language,
	}
	if err := p.storage.CreateSource(ctx, source); err != nil {
		return nil, err
	}
	return source, nil
}

// pendingEmbedding is a newly stored segment awaiting a vector
type pendingEmbedding struct {
	segmentID int64
	text      string
}

// storeLines writes line segments in batched transactions. Each batch
// commits independently so a failure late in a large document does not
// discard earlier work.
func (p *Pipeline) storeLines(ctx context.Context, source *storage.Source, lines []tei.Line, opts Options, summary *Summary) ([]pendingEmbedding, error) {
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	var (
		inserted atomic.Int32
		skipped  atomic.Int32
		failed   atomic.Int32

		mu      sync.Mutex
		pending []pendingEmbedding
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)

	for i := 0; i < len(lines); i += batchSize {
		end := i + batchSize
		if end > len(lines) {
			end = len(lines)
		}
		batch := lines[i:end]

		g.Go(func() error {
			fresh, err := p.storeLineBatch(gctx, source, batch, opts, &inserted, &skipped, &failed)
			if err != nil {
				return err
			}
			mu.Lock()
			pending = append(pending, fresh...)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	summary.Inserted += int(inserted.Load())
	summary.Skipped += int(skipped.Load())
	summary.Failed += int(failed.Load())
	return pending, nil
}

func (p *Pipeline) storeLineBatch(ctx context.Context, source *storage.Source, lines []tei.Line, opts Options, inserted, skipped, failed *atomic.Int32) ([]pendingEmbedding, error) {
	tx, err := p.storage.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var fresh []pendingEmbedding
	for _, line := range lines {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		seg, isNew, err := p.storeLine(ctx, tx, source, line, opts)
		if err != nil {
			failed.Add(1)
			log.Printf("ingest: line %s: %v", line.Ref, err)
			continue
		}
		if !isNew {
			skipped.Add(1)
			continue
		}
		inserted.Add(1)
		fresh = append(fresh, pendingEmbedding{segmentID: seg.ID, text: seg.TextNFC})
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit batch: %w", err)
	}
	return fresh, nil
}

// storeLine normalizes and addresses one line, then stores it unless the
// identical content is already present
func (p *Pipeline) storeLine(ctx context.Context, store storage.Storage, source *storage.Source, line tei.Line, opts Options) (*storage.Segment, bool, error) {
	norm := textnorm.Normalize(line.Text)
	if norm.Composed == "" {
		return nil, false, fmt.Errorf("%w: empty line after normalization", types.ErrInvalidInput)
	}

	anchor := fmt.Sprintf("%d.%s", opts.Book, line.Ref)
	chunkID := textnorm.ChunkID(opts.Slug, segmentKindLine, anchor, norm.Composed)

	// An existing segment with this content address means nothing
	// changed; the run stays idempotent.
	existing, err := store.GetSegmentByChunkID(ctx, chunkID)
	if err == nil {
		return existing, false, nil
	}
	if err != storage.ErrNotFound {
		return nil, false, err
	}

	seg := &storage.Segment{
		SourceID: source.ID,
		ChunkID:  chunkID,
		WorkRef:  fmt.Sprintf("%s.%s", opts.Work, anchor),
		Kind:     segmentKindLine,
		Anchor:   anchor,
		TextNFC:  norm.Composed,
		TextFold: norm.Folded,
	}
	if err := store.UpsertSegment(ctx, seg); err != nil {
		return nil, false, err
	}
	return seg, true, nil
}

// storeTokens ingests word-level annotations as token segments
func (p *Pipeline) storeTokens(ctx context.Context, source *storage.Source, opts Options, summary *Summary) error {
	f, err := os.Open(opts.TokensPath)
	if err != nil {
		return fmt.Errorf("failed to open token document: %w", err)
	}
	defer func() { _ = f.Close() }()

	tokens, err := p.reader.ReadTokens(f)
	if err != nil {
		return err
	}

	tx, err := p.storage.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for i, tok := range tokens {
		norm := textnorm.Normalize(tok.Surface)
		if norm.Composed == "" {
			summary.Failed++
			continue
		}

		anchor := fmt.Sprintf("%d.w%d", opts.Book, i+1)
		chunkID := textnorm.ChunkID(opts.Slug, segmentKindToken, anchor, norm.Composed)

		if _, err := tx.GetSegmentByChunkID(ctx, chunkID); err == nil {
			continue
		} else if err != storage.ErrNotFound {
			return err
		}

		seg := &storage.Segment{
			SourceID: source.ID,
			ChunkID:  chunkID,
			WorkRef:  fmt.Sprintf("%s.%d#%d", opts.Work, opts.Book, i+1),
			Kind:     segmentKindToken,
			Anchor:   anchor,
			TextNFC:  norm.Composed,
			TextFold: norm.Folded,
		}
		if tok.Lemma != "" {
			lemma := textnorm.NFC(tok.Lemma)
			seg.Lemma = &lemma
		}
		if len(tok.Morph) > 0 {
			morphJSON, err := json.Marshal(tok.Morph)
			if err == nil {
				morph := string(morphJSON)
				seg.Morph = &morph
			}
		}

		if err := tx.UpsertSegment(ctx, seg); err != nil {
			summary.Failed++
			log.Printf("ingest: token %s: %v", anchor, err)
			continue
		}
		summary.Tokens++
	}

	return tx.Commit()
}

// embedPending embeds newly inserted segments. Failures are logged, not
// fatal; unembedded segments remain searchable lexically.
func (p *Pipeline) embedPending(ctx context.Context, pending []pendingEmbedding) int {
	if len(pending) == 0 {
		return 0
	}

	embedded := 0
	batchSize := embedder.MaxBatchSize
	for i := 0; i < len(pending); i += batchSize {
		end := i + batchSize
		if end > len(pending) {
			end = len(pending)
		}
		batch := pending[i:end]

		texts := make([]string, len(batch))
		for j, pe := range batch {
			texts[j] = pe.text
		}

		vectors, err := p.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			log.Printf("ingest: embedding batch failed: %v", err)
			continue
		}

		for j, vec := range vectors {
			emb := &storage.Embedding{
				SegmentID: batch[j].segmentID,
				Vector:    storage.SerializeVector(vec),
				Dimension: len(vec),
				Provider:  p.embedder.Provider(),
				Model:     p.embedder.Model(),
			}
			if err := p.storage.UpsertEmbedding(ctx, emb); err != nil {
				log.Printf("ingest: storing embedding for segment %d: %v", batch[j].segmentID, err)
				continue
			}
			embedded++
		}
	}
	return embedded
}

func (p *Pipeline) updateSourceStats(ctx context.Context, source *storage.Source) error {
	count, err := p.storage.CountSegments(ctx, source.ID)
	if err != nil {
		return err
	}
	source.TotalSegments = count
	source.LastIngestedAt = time.Now()
	return p.storage.UpdateSource(ctx, source)
}
