package cache

import (
	"sync"
	"sync/atomic"

	lfu "github.com/dgraph-io/ristretto"
	"github.com/dgraph-io/ristretto/z"
)

// LFUCacheFactory creates Ristretto-backed retention caches.
type LFUCacheFactory struct {
	config LocalCacheConfig
}

// NewLFUCacheFactory creates a new Ristretto cache factory.
func NewLFUCacheFactory(config LocalCacheConfig) LocalCacheFactory {
	return &LFUCacheFactory{config: config}
}

// Create creates a new Ristretto cache instance.
func (f *LFUCacheFactory) Create() (LocalCache, error) {
	return NewLFUCache(f.config)
}

// LFUCache retains snapshots in a Ristretto cache, admitting and evicting by
// access frequency. A snapshot costs its record count.
type LFUCache struct {
	cache     *lfu.Cache
	hits      int64
	misses    int64
	evictions int64
	clearing  int32

	// key hashes of admitted snapshots, kept in step through Ristretto's
	// evict and reject callbacks so Size never needs a Get
	mu     sync.Mutex
	stored map[uint64]struct{}
}

// NewLFUCache creates a new Ristretto-based local cache.
func NewLFUCache(config LocalCacheConfig) (*LFUCache, error) {
	lc := &LFUCache{stored: make(map[uint64]struct{})}
	cache, err := lfu.NewCache(&lfu.Config{
		NumCounters:        config.NumCounters,
		MaxCost:            config.MaxCost,
		BufferItems:        config.BufferItems,
		IgnoreInternalCost: config.IgnoreInternalCost,
		OnEvict: func(item *lfu.Item) {
			if atomic.LoadInt32(&lc.clearing) == 0 {
				atomic.AddInt64(&lc.evictions, 1)
			}
			lc.forget(item.Key)
		},
		OnReject: func(item *lfu.Item) {
			lc.forget(item.Key)
		},
	})
	if err != nil {
		return nil, err
	}
	lc.cache = cache
	return lc, nil
}

// Get retrieves a snapshot.
func (lc *LFUCache) Get(key string) (any, bool) {
	value, found := lc.cache.Get(key)
	if found {
		atomic.AddInt64(&lc.hits, 1)
	} else {
		atomic.AddInt64(&lc.misses, 1)
	}
	return value, found
}

// Set stores a snapshot. Writes are applied before Set returns, so a watcher
// created right after a release sees the retained list.
func (lc *LFUCache) Set(key string, value any, cost int64) bool {
	if cost < 1 {
		cost = 1
	}
	h, _ := z.KeyToHash(key)

	lc.mu.Lock()
	_, existed := lc.stored[h]
	lc.stored[h] = struct{}{}
	lc.mu.Unlock()

	if !lc.cache.Set(key, value, cost) {
		if !existed {
			lc.forget(h)
		}
		return false
	}
	lc.cache.Wait()
	return true
}

// Delete removes a snapshot.
func (lc *LFUCache) Delete(key string) {
	h, _ := z.KeyToHash(key)
	lc.forget(h)
	lc.cache.Del(key)
}

// Clear removes every snapshot.
func (lc *LFUCache) Clear() {
	atomic.StoreInt32(&lc.clearing, 1)
	lc.cache.Clear()
	atomic.StoreInt32(&lc.clearing, 0)

	lc.mu.Lock()
	lc.stored = make(map[uint64]struct{})
	lc.mu.Unlock()
}

// Close stops the cache's background goroutines.
func (lc *LFUCache) Close() {
	lc.cache.Close()
}

// Metrics returns cache metrics.
func (lc *LFUCache) Metrics() LocalCacheMetrics {
	lc.mu.Lock()
	size := int64(len(lc.stored))
	lc.mu.Unlock()

	return LocalCacheMetrics{
		Hits:      atomic.LoadInt64(&lc.hits),
		Misses:    atomic.LoadInt64(&lc.misses),
		Evictions: atomic.LoadInt64(&lc.evictions),
		Size:      size,
	}
}

func (lc *LFUCache) forget(h uint64) {
	lc.mu.Lock()
	delete(lc.stored, h)
	lc.mu.Unlock()
}
