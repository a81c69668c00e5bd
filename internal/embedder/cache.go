package embedder

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

const defaultCacheSize = 10000

// Cache is an in-memory LRU of embedding vectors keyed by content hash
type Cache struct {
	cache *lru.Cache[string, []float32]
}

// NewCache creates an embedding cache with LRU eviction
func NewCache(maxLen int) *Cache {
	if maxLen <= 0 {
		maxLen = defaultCacheSize
	}
	cache, err := lru.New[string, []float32](maxLen)
	if err != nil {
		cache, _ = lru.New[string, []float32](defaultCacheSize)
	}
	return &Cache{cache: cache}
}

// Get returns a copy of the cached vector so callers cannot mutate the
// cached value
func (c *Cache) Get(hash string) ([]float32, bool) {
	vec, ok := c.cache.Get(hash)
	if !ok {
		return nil, false
	}
	out := make([]float32, len(vec))
	copy(out, vec)
	return out, true
}

// Set stores a vector, evicting the least recently used entry at capacity
func (c *Cache) Set(hash string, vec []float32) {
	c.cache.Add(hash, vec)
}

// Len returns the current number of cached vectors
func (c *Cache) Len() int {
	return c.cache.Len()
}

// Purge empties the cache
func (c *Cache) Purge() {
	c.cache.Purge()
}
