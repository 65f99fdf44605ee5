package cache

import (
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
)

// LRUCacheFactory creates LRU retention caches.
type LRUCacheFactory struct {
	maxSize int
}

// NewLRUCacheFactory creates a new LRU cache factory holding at most maxSize snapshots.
func NewLRUCacheFactory(maxSize int) LocalCacheFactory {
	return &LRUCacheFactory{maxSize: maxSize}
}

// Create creates a new LRU cache instance.
func (f *LRUCacheFactory) Create() (LocalCache, error) {
	return NewLRUCache(f.maxSize)
}

// LRUCache retains the most recently released snapshots.
type LRUCache struct {
	cache     *lru.Cache[string, any]
	hits      int64
	misses    int64
	evictions int64
}

// NewLRUCache creates a new LRU-based local cache.
func NewLRUCache(maxSize int) (*LRUCache, error) {
	lc := &LRUCache{}
	cache, err := lru.NewWithEvict[string, any](maxSize, func(string, any) {
		atomic.AddInt64(&lc.evictions, 1)
	})
	if err != nil {
		return nil, err
	}
	lc.cache = cache
	return lc, nil
}

// Get retrieves a snapshot.
func (lc *LRUCache) Get(key string) (any, bool) {
	value, found := lc.cache.Get(key)
	if found {
		atomic.AddInt64(&lc.hits, 1)
	} else {
		atomic.AddInt64(&lc.misses, 1)
	}
	return value, found
}

// Set stores a snapshot. The cost is ignored.
func (lc *LRUCache) Set(key string, value any, _ int64) bool {
	lc.cache.Add(key, value)
	return true
}

// Delete removes a snapshot.
func (lc *LRUCache) Delete(key string) {
	lc.cache.Remove(key)
}

// Clear removes every snapshot.
func (lc *LRUCache) Clear() {
	lc.cache.Purge()
}

// Close releases the cache contents.
func (lc *LRUCache) Close() {
	lc.cache.Purge()
}

// Metrics returns cache metrics.
func (lc *LRUCache) Metrics() LocalCacheMetrics {
	return LocalCacheMetrics{
		Hits:      atomic.LoadInt64(&lc.hits),
		Misses:    atomic.LoadInt64(&lc.misses),
		Evictions: atomic.LoadInt64(&lc.evictions),
		Size:      int64(lc.cache.Len()),
	}
}
