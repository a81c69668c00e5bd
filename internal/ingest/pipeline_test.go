package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/palaios/grammata/internal/embedder"
	"github.com/palaios/grammata/internal/storage"
)

const iliadFixture = `<?xml version="1.0" encoding="UTF-8"?>
<TEI>
  <text>
    <body>
      <div type="book" n="1">
        <l n="1">Μῆνιν ἄειδε, θεά, Πηληϊάδεω Ἀχιλῆος</l>
        <l n="2">οὐλομένην, ἣ μυρί᾽ Ἀχαιοῖς ἄλγε᾽ ἔθηκε</l>
        <l n="3">πολλὰς δ᾽ ἰφθίμους ψυχὰς Ἄϊδι προΐαψεν</l>
      </div>
      <div type="book" n="2">
        <l n="1">ἄλλοι μέν ῥα θεοί τε καὶ ἀνέρες ἱπποκορυσταὶ</l>
      </div>
    </body>
  </text>
</TEI>`

const tokenFixture = `<?xml version="1.0" encoding="UTF-8"?>
<TEI>
  <text>
    <body>
      <w lemma="μῆνις" ana="n-s---fa-">Μῆνιν</w>
      <w lemma="ἀείδω" pos="verb">ἄειδε</w>
      <w>θεά</w>
    </body>
  </text>
</TEI>`

func writeFixture(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func setupPipeline(t *testing.T) (*Pipeline, *storage.SQLiteStorage) {
	t.Helper()
	store, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	emb, err := embedder.NewLocalProvider(nil)
	require.NoError(t, err)

	return New(store, emb), store
}

func baseOptions(docPath string) Options {
	return Options{
		DocPath:  docPath,
		Slug:     "perseus-iliad",
		Title:    "Homeri Ilias",
		Language: "grc",
		Work:     "Il",
		Book:     1,
	}
}

func TestRunIngestsBookOne(t *testing.T) {
	pipeline, store := setupPipeline(t)
	docPath := writeFixture(t, "iliad.xml", iliadFixture)

	summary, err := pipeline.Run(context.Background(), baseOptions(docPath))
	require.NoError(t, err)

	assert.Equal(t, 3, summary.LinesRead)
	assert.Equal(t, 3, summary.Inserted)
	assert.Equal(t, 0, summary.Skipped)
	assert.Equal(t, 3, summary.Embedded)

	ctx := context.Background()
	source, err := store.GetSource(ctx, "perseus-iliad")
	require.NoError(t, err)
	assert.Equal(t, 3, source.TotalSegments)
	assert.False(t, source.LastIngestedAt.IsZero())

	// Segments carry normalized text and citations
	results, err := store.SearchLexical(ctx, "μηνιν", "grc", 10, 0.05)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "Il.1.1", results[0].Segment.WorkRef)
	assert.Equal(t, "line", results[0].Segment.Kind)
}

func TestRunIsIdempotent(t *testing.T) {
	pipeline, store := setupPipeline(t)
	docPath := writeFixture(t, "iliad.xml", iliadFixture)
	ctx := context.Background()

	first, err := pipeline.Run(ctx, baseOptions(docPath))
	require.NoError(t, err)
	assert.Equal(t, 3, first.Inserted)

	second, err := pipeline.Run(ctx, baseOptions(docPath))
	require.NoError(t, err)
	assert.Equal(t, 0, second.Inserted)
	assert.Equal(t, 3, second.Skipped)

	count, err := store.CountSegments(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestRunRefreshesChangedLine(t *testing.T) {
	pipeline, store := setupPipeline(t)
	ctx := context.Background()

	docPath := writeFixture(t, "iliad.xml", iliadFixture)
	_, err := pipeline.Run(ctx, baseOptions(docPath))
	require.NoError(t, err)

	revised := `<?xml version="1.0"?>
<TEI><text><body>
  <div type="book" n="1">
    <l n="1">Μῆνιν ἄειδε, θεά, Πηληϊάδεω Ἀχιλῆος</l>
    <l n="2">corrected reading of line two</l>
    <l n="3">πολλὰς δ᾽ ἰφθίμους ψυχὰς Ἄϊδι προΐαψεν</l>
  </div>
</body></text></TEI>`
	revisedPath := writeFixture(t, "revised.xml", revised)

	opts := baseOptions(revisedPath)
	summary, err := pipeline.Run(ctx, opts)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Inserted)
	assert.Equal(t, 2, summary.Skipped)

	// Still three segments; the changed line was refreshed in place
	count, err := store.CountSegments(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestRunIngestsTokens(t *testing.T) {
	pipeline, store := setupPipeline(t)
	ctx := context.Background()

	opts := baseOptions(writeFixture(t, "iliad.xml", iliadFixture))
	opts.TokensPath = writeFixture(t, "tokens.xml", tokenFixture)

	summary, err := pipeline.Run(ctx, opts)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Tokens)

	// Annotated tokens keep lemma and morphology
	seg, err := store.GetSegmentByChunkID(ctx, segmentChunkID(t, store, "token", "1.w1"))
	require.NoError(t, err)
	require.NotNil(t, seg.Lemma)
	assert.Equal(t, "μῆνις", *seg.Lemma)
	require.NotNil(t, seg.Morph)
	assert.Contains(t, *seg.Morph, "n-s---fa-")

	// Unannotated tokens stay bare
	bare, err := store.GetSegmentByChunkID(ctx, segmentChunkID(t, store, "token", "1.w3"))
	require.NoError(t, err)
	assert.Nil(t, bare.Lemma)
	assert.Nil(t, bare.Morph)
}

// segmentChunkID finds a stored segment's content address by kind and anchor
func segmentChunkID(t *testing.T, store *storage.SQLiteStorage, kind, anchor string) string {
	t.Helper()
	ctx := context.Background()
	count, err := store.CountSegments(ctx, 0)
	require.NoError(t, err)
	for id := int64(1); int(id) <= count+10; id++ {
		seg, err := store.GetSegment(ctx, id)
		if err != nil {
			continue
		}
		if seg.Kind == kind && seg.Anchor == anchor {
			return seg.ChunkID
		}
	}
	t.Fatalf("no segment with kind %s anchor %s", kind, anchor)
	return ""
}

func TestRunValidatesOptions(t *testing.T) {
	pipeline, _ := setupPipeline(t)
	ctx := context.Background()

	_, err := pipeline.Run(ctx, Options{})
	assert.Error(t, err)

	opts := baseOptions("doc.xml")
	opts.Slug = ""
	_, err = pipeline.Run(ctx, opts)
	assert.Error(t, err)

	opts = baseOptions("doc.xml")
	opts.Book = 0
	_, err = pipeline.Run(ctx, opts)
	assert.Error(t, err)
}

func TestRunMissingDocument(t *testing.T) {
	pipeline, _ := setupPipeline(t)

	opts := baseOptions(filepath.Join(t.TempDir(), "absent.xml"))
	_, err := pipeline.Run(context.Background(), opts)
	assert.Error(t, err)
}

func TestRunSkipEmbedding(t *testing.T) {
	pipeline, store := setupPipeline(t)

	opts := baseOptions(writeFixture(t, "iliad.xml", iliadFixture))
	opts.SkipEmbedding = true

	summary, err := pipeline.Run(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Embedded)

	status, err := store.GetStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, status.EmbeddingsCount)
}
