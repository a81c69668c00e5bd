package textnorm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChunkIDDeterministic(t *testing.T) {
	a := ChunkID("perseus-iliad", "line", "1", "Μῆνιν ἄειδε, θεά")
	b := ChunkID("perseus-iliad", "line", "1", "Μῆνιν ἄειδε, θεά")
	assert.Equal(t, a, b)
	assert.Len(t, a, ChunkIDLen)
}

func TestChunkIDChangesWithAnyInput(t *testing.T) {
	base := ChunkID("perseus-iliad", "line", "1", "Μῆνιν")

	variants := []string{
		ChunkID("perseus-odyssey", "line", "1", "Μῆνιν"),
		ChunkID("perseus-iliad", "token", "1", "Μῆνιν"),
		ChunkID("perseus-iliad", "line", "2", "Μῆνιν"),
		ChunkID("perseus-iliad", "line", "1", "Μηνιν"),
	}

	for i, v := range variants {
		assert.NotEqual(t, base, v, "variant %d collided with base", i)
		assert.Len(t, v, ChunkIDLen)
	}
}

func TestChunkIDFieldBoundaries(t *testing.T) {
	// Field content must not shift across the separator: ("ab","c") and
	// ("a","bc") are distinct chunks.
	a := ChunkID("ab", "c", "1", "x")
	b := ChunkID("a", "bc", "1", "x")
	assert.NotEqual(t, a, b)
}

func TestChunkIDLowercaseHex(t *testing.T) {
	id := ChunkID("slug", "line", "42", "text")
	for _, r := range id {
		ok := (r >= '0' && r <= '9') || (r >= 'a' && r <= 'f')
		assert.True(t, ok, "unexpected rune %q in chunk ID", r)
	}
}
