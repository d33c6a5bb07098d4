package table

import (
	"errors"
	"testing"
)

func TestCacheGetOrLoadDecodesOnceOnMiss(t *testing.T) {
	c := NewCache(4)
	calls := 0
	load := func() ([]byte, error) {
		calls++
		return []byte("decoded"), nil
	}

	data, err := c.GetOrLoad(1, load)
	if err != nil {
		t.Fatalf("GetOrLoad: %v", err)
	}
	if string(data) != "decoded" {
		t.Errorf("GetOrLoad data = %q, want %q", data, "decoded")
	}
	if calls != 1 {
		t.Fatalf("load called %d times on first GetOrLoad, want 1", calls)
	}

	if _, err := c.GetOrLoad(1, load); err != nil {
		t.Fatalf("GetOrLoad (cached): %v", err)
	}
	if calls != 1 {
		t.Errorf("load called %d times after cache hit, want still 1", calls)
	}
}

func TestCacheGetOrLoadPropagatesLoadError(t *testing.T) {
	c := NewCache(4)
	wantErr := errors.New("decompress failed")
	_, err := c.GetOrLoad(1, func() ([]byte, error) { return nil, wantErr })
	if !errors.Is(err, wantErr) {
		t.Fatalf("GetOrLoad error = %v, want %v", err, wantErr)
	}
	if _, ok := c.Get(1); ok {
		t.Error("a failed load must not populate the cache")
	}
}

func TestCacheEvictsLRU(t *testing.T) {
	c := NewCache(2)
	c.Put(1, []byte("a"))
	c.Put(2, []byte("b"))
	c.Put(3, []byte("c")) // evicts 1, the least recently used

	if _, ok := c.Get(1); ok {
		t.Error("Get(1) found after eviction, want evicted")
	}
	if _, ok := c.Get(2); !ok {
		t.Error("Get(2) not found, want present")
	}
	if _, ok := c.Get(3); !ok {
		t.Error("Get(3) not found, want present")
	}
}

func TestNewCacheDefaultCapacity(t *testing.T) {
	c := NewCache(0)
	for i := uint64(0); i < DefaultCacheCapacity+1; i++ {
		c.Put(i, []byte{byte(i)})
	}
	if c.Len() > DefaultCacheCapacity {
		t.Errorf("Len() = %d, want <= %d", c.Len(), DefaultCacheCapacity)
	}
}

func TestCachePurge(t *testing.T) {
	c := NewCache(4)
	c.Put(1, []byte("a"))
	c.Purge()
	if c.Len() != 0 {
		t.Errorf("Len() after Purge = %d, want 0", c.Len())
	}
}
