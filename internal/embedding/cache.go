package embedding

import (
	"container/list"
	"sync"
)

// EmbeddingCache is an LRU cache for text-query embeddings. Vectors are
// copied on both Set and Get so callers can mutate their slices freely.
type EmbeddingCache struct {
	mu       sync.Mutex
	capacity int
	entries  map[string]*list.Element
	order    *list.List // front is most recently used
}

type cacheEntry struct {
	text   string
	vector []float32
}

// NewEmbeddingCache creates a cache that holds at most capacity entries.
func NewEmbeddingCache(capacity int) *EmbeddingCache {
	return &EmbeddingCache{
		capacity: capacity,
		entries:  make(map[string]*list.Element),
		order:    list.New(),
	}
}

// Get returns a copy of the cached embedding for text, if present.
func (c *EmbeddingCache) Get(text string) ([]float32, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[text]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(elem)
	stored := elem.Value.(*cacheEntry).vector
	out := make([]float32, len(stored))
	copy(out, stored)
	return out, true
}

// Set stores a copy of vector for text, evicting the least recently used
// entry when the cache is full.
func (c *EmbeddingCache) Set(text string, vector []float32) {
	stored := make([]float32, len(vector))
	copy(stored, vector)

	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[text]; ok {
		c.order.MoveToFront(elem)
		elem.Value.(*cacheEntry).vector = stored
		return
	}
	c.entries[text] = c.order.PushFront(&cacheEntry{text: text, vector: stored})

	for c.order.Len() > c.capacity {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*cacheEntry).text)
	}
}

// Len returns the number of cached entries.
func (c *EmbeddingCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
