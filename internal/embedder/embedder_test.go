package embedder

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalProviderDeterministic(t *testing.T) {
	emb, err := NewLocalProvider(nil)
	require.NoError(t, err)
	defer func() { _ = emb.Close() }()

	ctx := context.Background()
	a, err := emb.Embed(ctx, "μηνιν αειδε θεα")
	require.NoError(t, err)
	b, err := emb.Embed(ctx, "μηνιν αειδε θεα")
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Len(t, a, LocalDimension)

	other, err := emb.Embed(ctx, "arma virumque cano")
	require.NoError(t, err)
	assert.NotEqual(t, a, other)
}

func TestLocalProviderUnitLength(t *testing.T) {
	emb, err := NewLocalProvider(nil)
	require.NoError(t, err)

	vec, err := emb.Embed(context.Background(), "ουλομενην")
	require.NoError(t, err)

	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, sum, 1e-4)
}

func TestLocalProviderSharedVocabularyCloser(t *testing.T) {
	emb, err := NewLocalProvider(nil)
	require.NoError(t, err)
	ctx := context.Background()

	a, err := emb.Embed(ctx, "μηνιν αειδε θεα")
	require.NoError(t, err)
	shared, err := emb.Embed(ctx, "μηνιν ουλομενην")
	require.NoError(t, err)
	disjoint, err := emb.Embed(ctx, "arma virumque cano")
	require.NoError(t, err)

	dot := func(x, y []float32) float64 {
		var s float64
		for i := range x {
			s += float64(x[i]) * float64(y[i])
		}
		return s
	}
	assert.Greater(t, dot(a, shared), dot(a, disjoint))
}

func TestLocalProviderEmptyText(t *testing.T) {
	emb, err := NewLocalProvider(nil)
	require.NoError(t, err)

	_, err = emb.Embed(context.Background(), "")
	assert.ErrorIs(t, err, ErrEmptyText)
}

func TestEmbedBatchOrderAndValidation(t *testing.T) {
	emb, err := NewLocalProvider(nil)
	require.NoError(t, err)
	ctx := context.Background()

	vectors, err := emb.EmbedBatch(ctx, []string{"alpha", "beta"})
	require.NoError(t, err)
	require.Len(t, vectors, 2)

	single, err := emb.Embed(ctx, "beta")
	require.NoError(t, err)
	assert.Equal(t, single, vectors[1])

	_, err = emb.EmbedBatch(ctx, nil)
	assert.ErrorIs(t, err, ErrEmptyText)
	_, err = emb.EmbedBatch(ctx, []string{"ok", ""})
	assert.ErrorIs(t, err, ErrEmptyText)
}

func TestCacheHitReturnsCopy(t *testing.T) {
	cache := NewCache(10)
	emb, err := NewLocalProvider(cache)
	require.NoError(t, err)
	ctx := context.Background()

	first, err := emb.Embed(ctx, "θυμος")
	require.NoError(t, err)
	assert.Equal(t, 1, cache.Len())

	// Mutating the returned vector must not poison the cache
	first[0] = 99

	second, err := emb.Embed(ctx, "θυμος")
	require.NoError(t, err)
	assert.NotEqual(t, float32(99), second[0])
}

func TestCacheEviction(t *testing.T) {
	cache := NewCache(2)
	cache.Set("a", []float32{1})
	cache.Set("b", []float32{2})
	cache.Set("c", []float32{3})

	assert.Equal(t, 2, cache.Len())
	_, ok := cache.Get("a")
	assert.False(t, ok)
	_, ok = cache.Get("c")
	assert.True(t, ok)
}

func TestNewFromEnvDefaultsToLocal(t *testing.T) {
	t.Setenv(EnvProvider, "")
	t.Setenv(EnvOpenAIAPIKey, "")

	emb, err := NewFromEnv()
	require.NoError(t, err)
	assert.Equal(t, ProviderLocal, emb.Provider())
}

func TestNewFromEnvExplicitProvider(t *testing.T) {
	t.Setenv(EnvProvider, "openai")
	t.Setenv(EnvOpenAIAPIKey, "sk-test")

	emb, err := NewFromEnv()
	require.NoError(t, err)
	assert.Equal(t, ProviderOpenAI, emb.Provider())
	assert.Equal(t, DefaultOpenAIModel, emb.Model())
}

func TestNewFromEnvUnknownProvider(t *testing.T) {
	t.Setenv(EnvProvider, "quantum")

	_, err := NewFromEnv()
	assert.ErrorIs(t, err, ErrUnknownProvider)
}

func TestNewFromEnvOpenAIWithoutKey(t *testing.T) {
	t.Setenv(EnvProvider, "openai")
	t.Setenv(EnvOpenAIAPIKey, "")

	_, err := NewFromEnv()
	assert.ErrorIs(t, err, ErrNoProviderEnabled)
}

func TestDetectProvider(t *testing.T) {
	t.Setenv(EnvProvider, "")
	t.Setenv(EnvOpenAIAPIKey, "")
	assert.Equal(t, ProviderLocal, DetectProvider())

	t.Setenv(EnvOpenAIAPIKey, "sk-test")
	assert.Equal(t, ProviderOpenAI, DetectProvider())

	t.Setenv(EnvProvider, "LOCAL")
	assert.Equal(t, "local", DetectProvider())
}
