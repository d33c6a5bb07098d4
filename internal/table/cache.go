package table

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheCapacity is the default number of decompressed chunks
// the Chunk Cache retains.
const DefaultCacheCapacity = 8

// Cache is the fixed-capacity LRU of decompressed chunks, keyed by
// global chunk index. Entries are immutable once populated; GetOrLoad
// guarantees at-most-one decode per cache population.
type Cache struct {
	lru *lru.Cache[uint64, []byte]
}

// NewCache creates a Cache holding at most capacity decompressed
// chunks. capacity <= 0 falls back to DefaultCacheCapacity.
func NewCache(capacity int) *Cache {
	if capacity <= 0 {
		capacity = DefaultCacheCapacity
	}
	c, err := lru.New[uint64, []byte](capacity)
	if err != nil {
		// lru.New only fails for capacity <= 0, already guarded above.
		panic(err)
	}
	return &Cache{lru: c}
}

// Get returns the cached chunk for key, if present.
func (c *Cache) Get(key uint64) ([]byte, bool) {
	return c.lru.Get(key)
}

// Put installs data as the cached value for key, evicting the LRU
// entry if the cache is full.
func (c *Cache) Put(key uint64, data []byte) {
	c.lru.Add(key, data)
}

// GetOrLoad returns the cached chunk for key, decoding it via load and
// caching the result on a miss. Because a Handle (and therefore its
// Cache) is only ever touched from one goroutine at a time
// (single-threaded cooperative per handle), a plain Get-then-Put is
// sufficient to guarantee at-most-one decode per population — there is
// no concurrent caller that could race the miss.
func (c *Cache) GetOrLoad(key uint64, load func() ([]byte, error)) ([]byte, error) {
	if data, ok := c.lru.Get(key); ok {
		return data, nil
	}
	data, err := load()
	if err != nil {
		return nil, err
	}
	c.lru.Add(key, data)
	return data, nil
}

// Len reports the current number of cached chunks.
func (c *Cache) Len() int { return c.lru.Len() }

// Purge evicts every cached chunk.
func (c *Cache) Purge() { c.lru.Purge() }
