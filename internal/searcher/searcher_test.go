package searcher

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/palaios/grammata/internal/embedder"
	"github.com/palaios/grammata/internal/storage"
	"github.com/palaios/grammata/internal/textnorm"
	"github.com/palaios/grammata/pkg/types"
)

// failingEmbedder simulates an unavailable embedding service
type failingEmbedder struct{}

func (f *failingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return nil, errors.New("embedding service unavailable")
}

func (f *failingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, errors.New("embedding service unavailable")
}

func (f *failingEmbedder) Dimension() int   { return 0 }
func (f *failingEmbedder) Provider() string { return "failing" }
func (f *failingEmbedder) Model() string    { return "failing" }
func (f *failingEmbedder) Close() error     { return nil }

func setupCorpus(t *testing.T, emb embedder.Embedder) *storage.SQLiteStorage {
	t.Helper()
	store, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	ctx := context.Background()
	src := &storage.Source{Slug: "perseus-iliad", Title: "Homeri Ilias", Language: "grc"}
	require.NoError(t, store.CreateSource(ctx, src))

	lines := []struct {
		anchor, text string
	}{
		{"1.1", "Μῆνιν ἄειδε, θεά, Πηληϊάδεω Ἀχιλῆος"},
		{"1.2", "οὐλομένην, ἣ μυρί᾽ Ἀχαιοῖς ἄλγε᾽ ἔθηκε"},
		{"1.3", "πολλὰς δ᾽ ἰφθίμους ψυχὰς Ἄϊδι προΐαψεν"},
	}
	for _, l := range lines {
		norm := textnorm.Normalize(l.text)
		seg := &storage.Segment{
			SourceID: src.ID,
			ChunkID:  textnorm.ChunkID("perseus-iliad", "line", l.anchor, norm.Composed),
			WorkRef:  "Il." + l.anchor,
			Kind:     "line",
			Anchor:   l.anchor,
			TextNFC:  norm.Composed,
			TextFold: norm.Folded,
		}
		require.NoError(t, store.UpsertSegment(ctx, seg))

		if emb != nil {
			vec, err := emb.Embed(ctx, norm.Composed)
			if err != nil {
				continue
			}
			require.NoError(t, store.UpsertEmbedding(ctx, &storage.Embedding{
				SegmentID: seg.ID,
				Vector:    storage.SerializeVector(vec),
				Dimension: len(vec),
				Provider:  emb.Provider(),
				Model:     emb.Model(),
			}))
		}
	}
	return store
}

func newLocalEmbedder(t *testing.T) embedder.Embedder {
	t.Helper()
	emb, err := embedder.NewLocalProvider(nil)
	require.NoError(t, err)
	return emb
}

func TestSearchRejectsEmptyQuery(t *testing.T) {
	// nil storage proves validation happens before any storage call
	engine := New(nil, nil)

	for _, query := range []string{"", "   ", "\t\n"} {
		_, err := engine.Search(context.Background(), Request{Query: query})
		assert.ErrorIs(t, err, types.ErrInvalidInput, "query %q", query)
	}
}

func TestSearchHybrid(t *testing.T) {
	emb := newLocalEmbedder(t)
	store := setupCorpus(t, emb)
	engine := New(store, emb)

	// Echoing the stored line guarantees both channels surface it
	resp, err := engine.Search(context.Background(), Request{
		Query:    "Μῆνιν ἄειδε, θεά, Πηληϊάδεω Ἀχιλῆος",
		Language: "grc",
		K:        10,
	})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Hits)
	assert.False(t, resp.Degraded)

	top := resp.Hits[0]
	assert.Equal(t, "Il.1.1", top.WorkRef)
	assert.NoError(t, top.Validate())

	// The top hit matched both channels, lexical listed first
	require.Len(t, top.Reasons, 2)
	assert.Equal(t, types.ReasonLexical, top.Reasons[0])
	assert.Equal(t, types.ReasonSemantic, top.Reasons[1])

	for i, hit := range resp.Hits {
		assert.GreaterOrEqual(t, hit.Score, 0.0)
		assert.LessOrEqual(t, hit.Score, 1.0)
		if i > 0 {
			assert.GreaterOrEqual(t, resp.Hits[i-1].Score, hit.Score)
		}
	}
}

func TestSearchAccentInsensitive(t *testing.T) {
	store := setupCorpus(t, nil)
	engine := New(store, nil)

	// Bare letters must match the fully accented stored line
	resp, err := engine.Search(context.Background(), Request{Query: "μηνιν αειδε"})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Hits)
	assert.Equal(t, "Il.1.1", resp.Hits[0].WorkRef)

	// And the accented query lands on the same segment
	accented, err := engine.Search(context.Background(), Request{Query: "Μῆνιν ἄειδε"})
	require.NoError(t, err)
	require.NotEmpty(t, accented.Hits)
	assert.Equal(t, resp.Hits[0].SegmentID, accented.Hits[0].SegmentID)
}

func TestSearchDegradesWithoutEmbedder(t *testing.T) {
	store := setupCorpus(t, nil)
	engine := New(store, &failingEmbedder{})

	resp, err := engine.Search(context.Background(), Request{Query: "μηνιν"})
	require.NoError(t, err)
	assert.True(t, resp.Degraded)
	assert.Zero(t, resp.SemanticCount)
	require.NotEmpty(t, resp.Hits)

	for _, hit := range resp.Hits {
		assert.Equal(t, []types.Reason{types.ReasonLexical}, hit.Reasons)
	}
}

func TestSearchNilEmbedderDegrades(t *testing.T) {
	store := setupCorpus(t, nil)
	engine := New(store, nil)

	resp, err := engine.Search(context.Background(), Request{Query: "μηνιν"})
	require.NoError(t, err)
	assert.True(t, resp.Degraded)
	require.NotEmpty(t, resp.Hits)
}

func TestSearchRespectsK(t *testing.T) {
	store := setupCorpus(t, nil)
	engine := New(store, nil)

	resp, err := engine.Search(context.Background(), Request{Query: "θεα αειδε ψυχας", K: 1})
	require.NoError(t, err)
	assert.LessOrEqual(t, len(resp.Hits), 1)
}

func TestSearchCache(t *testing.T) {
	store := setupCorpus(t, nil)
	engine := New(store, nil)
	ctx := context.Background()

	req := Request{Query: "μηνιν", UseCache: true}
	first, err := engine.Search(ctx, req)
	require.NoError(t, err)
	assert.False(t, first.CacheHit)

	second, err := engine.Search(ctx, req)
	require.NoError(t, err)
	assert.True(t, second.CacheHit)
	assert.Equal(t, first.Hits, second.Hits)

	// Cached hits are copies; mutating them must not leak back
	second.Hits[0].WorkRef = "mutated"
	third, err := engine.Search(ctx, req)
	require.NoError(t, err)
	assert.NotEqual(t, "mutated", third.Hits[0].WorkRef)

	engine.Invalidate()
	fourth, err := engine.Search(ctx, req)
	require.NoError(t, err)
	assert.False(t, fourth.CacheHit)
}

func TestFuseWeighting(t *testing.T) {
	segA := &storage.Segment{ChunkID: "aaa", WorkRef: "Il.1.1", TextNFC: "a"}
	segB := &storage.Segment{ChunkID: "bbb", WorkRef: "Il.1.2", TextNFC: "b"}

	lexical := []storage.LexicalResult{
		{Segment: segA, Similarity: 0.5},
		{Segment: segB, Similarity: 0.9},
	}
	semantic := []storage.VectorResult{
		{Segment: segA, Similarity: 0.9},
	}

	// Equal weighting: A gets 0.5*0.5 + 0.5*0.9 = 0.7, B gets 0.45
	hits := fuse(lexical, semantic, Weights{Lexical: 0.5, Semantic: 0.5})
	require.Len(t, hits, 2)
	assert.Equal(t, "aaa", hits[0].SegmentID)
	assert.InDelta(t, 0.7, hits[0].Score, 1e-9)
	assert.InDelta(t, 0.45, hits[1].Score, 1e-9)

	// Heavy lexical weighting flips the order
	hits = fuse(lexical, semantic, Weights{Lexical: 1, Semantic: 0})
	assert.Equal(t, "bbb", hits[0].SegmentID)
}

func TestFuseTiesKeepInputOrder(t *testing.T) {
	// Content addresses deliberately sort against the input order so the
	// tiebreak provably follows first-seen rank, not the address
	segZ := &storage.Segment{ChunkID: "zzz", WorkRef: "Il.1.1", TextNFC: "z"}
	segA := &storage.Segment{ChunkID: "aaa", WorkRef: "Il.1.2", TextNFC: "a"}
	segM := &storage.Segment{ChunkID: "mmm", WorkRef: "Il.1.3", TextNFC: "m"}

	lexical := []storage.LexicalResult{
		{Segment: segZ, Similarity: 0.6},
		{Segment: segA, Similarity: 0.6},
	}
	semantic := []storage.VectorResult{
		{Segment: segM, Similarity: 0.6},
	}

	hits := fuse(lexical, semantic, Weights{Lexical: 1, Semantic: 1})
	require.Len(t, hits, 3)
	assert.Equal(t, "zzz", hits[0].SegmentID)
	assert.Equal(t, "aaa", hits[1].SegmentID)
	assert.Equal(t, "mmm", hits[2].SegmentID)
}

func TestFuseUnnormalizedWeightsStayBounded(t *testing.T) {
	seg := &storage.Segment{ChunkID: "ccc", WorkRef: "Il.1.3", TextNFC: "c"}
	lexical := []storage.LexicalResult{{Segment: seg, Similarity: 1.0}}
	semantic := []storage.VectorResult{{Segment: seg, Similarity: 1.0}}

	hits := fuse(lexical, semantic, Weights{Lexical: 3, Semantic: 2})
	require.Len(t, hits, 1)
	assert.LessOrEqual(t, hits[0].Score, 1.0)
	assert.NoError(t, hits[0].Validate())
}
