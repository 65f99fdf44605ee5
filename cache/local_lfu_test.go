package cache

import (
	"testing"
)

func newTestLFU(t *testing.T) *LFUCache {
	t.Helper()
	cache, err := NewLFUCache(DefaultLocalCacheConfig())
	if err != nil {
		t.Fatalf("Failed to create cache: %v", err)
	}
	t.Cleanup(cache.Close)
	return cache
}

func TestLFUCacheSetGetSnapshot(t *testing.T) {
	cache := newTestLFU(t)

	snapshot := []Record{{"id": "a"}, {"id": "b"}}
	if !cache.Set(`["orders"]`, snapshot, int64(len(snapshot))) {
		t.Fatal("Set should succeed")
	}

	value, found := cache.Get(`["orders"]`)
	if !found {
		t.Fatal("Snapshot should be retained")
	}
	got, ok := value.([]Record)
	if !ok || len(got) != 2 || got[1]["id"] != "b" {
		t.Fatalf("Unexpected snapshot %v", value)
	}
}

func TestLFUCacheZeroCostSnapshot(t *testing.T) {
	cache := newTestLFU(t)

	if !cache.Set("empty", []Record{}, 0) {
		t.Fatal("Empty snapshot should be admitted")
	}
	if _, found := cache.Get("empty"); !found {
		t.Fatal("Empty snapshot should be retained")
	}
}

func TestLFUCacheDelete(t *testing.T) {
	cache := newTestLFU(t)

	cache.Set("key1", "value1", 1)
	cache.Delete("key1")

	if _, found := cache.Get("key1"); found {
		t.Fatal("Value should not be found after deletion")
	}
	if size := cache.Metrics().Size; size != 0 {
		t.Fatalf("Expected size 0, got %d", size)
	}
}

func TestLFUCacheClear(t *testing.T) {
	cache := newTestLFU(t)

	cache.Set("key1", "value1", 1)
	cache.Set("key2", "value2", 1)
	cache.Clear()

	_, found1 := cache.Get("key1")
	_, found2 := cache.Get("key2")
	if found1 || found2 {
		t.Fatal("Cache should be empty after clear")
	}
}

func TestLFUCacheMetrics(t *testing.T) {
	cache := newTestLFU(t)

	cache.Set("key1", "value1", 1)
	cache.Set("key1", "value2", 1)
	cache.Get("key1") // Hit
	cache.Get("key2") // Miss

	metrics := cache.Metrics()
	if metrics.Hits != 1 {
		t.Fatalf("Expected 1 hit, got %d", metrics.Hits)
	}
	if metrics.Misses != 1 {
		t.Fatalf("Expected 1 miss, got %d", metrics.Misses)
	}
	if metrics.Size != 1 {
		t.Fatalf("Expected size 1, got %d", metrics.Size)
	}
}

func TestLFUCacheFactory(t *testing.T) {
	cache, err := NewLFUCacheFactory(DefaultLocalCacheConfig()).Create()
	if err != nil {
		t.Fatalf("Failed to create cache from factory: %v", err)
	}
	defer cache.Close()

	cache.Set("test", "value", 1)
	if value, found := cache.Get("test"); !found || value != "value" {
		t.Fatalf("Expected 'value', got %v", value)
	}
}

func TestLFUCacheInvalidConfig(t *testing.T) {
	if _, err := NewLFUCache(LocalCacheConfig{}); err == nil {
		t.Fatal("Expected error for zero NumCounters")
	}
}

func TestLFUCacheSizeWithoutReads(t *testing.T) {
	cache := newTestLFU(t)

	cache.Set("key1", "value1", 1)
	cache.Set("key2", "value2", 1)
	cache.Set("key1", "value3", 1)
	if size := cache.Metrics().Size; size != 2 {
		t.Fatalf("Expected size 2, got %d", size)
	}

	cache.Delete("key2")
	cache.Delete("missing")
	metrics := cache.Metrics()
	if metrics.Size != 1 {
		t.Fatalf("Expected size 1, got %d", metrics.Size)
	}
	if metrics.Hits != 0 || metrics.Misses != 0 {
		t.Fatalf("Set and Delete must not count hits or misses, got %d and %d", metrics.Hits, metrics.Misses)
	}

	cache.Clear()
	metrics = cache.Metrics()
	if metrics.Size != 0 {
		t.Fatalf("Expected size 0 after clear, got %d", metrics.Size)
	}
	if metrics.Evictions != 0 {
		t.Fatalf("Clear must not count evictions, got %d", metrics.Evictions)
	}
}
