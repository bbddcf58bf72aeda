package cache

import (
	"errors"
	"expvar"
	"reflect"
	"testing"
)

func TestNewLRUCache(t *testing.T) {
	cache := NewLRUCache[string, []byte](10, nil)
	if cache == nil {
		t.Fatal("NewLRUCache returned nil")
	}
	if cache.Capacity() != 10 {
		t.Errorf("Expected capacity 10, got %d", cache.Capacity())
	}
	if cache.lruList.Len() != 0 {
		t.Errorf("Expected empty LRU list, got length %d", cache.lruList.Len())
	}
	if len(cache.cacheItems) != 0 {
		t.Errorf("Expected empty cache items map, got size %d", len(cache.cacheItems))
	}

	cacheInvalid := NewLRUCache[string, []byte](0, nil)
	if cacheInvalid.Capacity() != 0 {
		t.Errorf("Expected capacity 0 for disabled cache, got %d", cacheInvalid.Capacity())
	}
}

func TestLRUCache_PutAndGet(t *testing.T) {
	cache := NewLRUCache[string, []byte](3, nil)

	key1, val1 := "key1", []byte("value1")
	key2, val2 := "key2", []byte("value2")
	key3, val3 := "key3", []byte("value3")
	key4, val4 := "key4", []byte("value4")

	cache.Put(key1, val1)
	cache.Put(key2, val2)
	cache.Put(key3, val3)
	if cache.Len() != 3 {
		t.Errorf("Expected cache size 3 after 3 puts, got %d", cache.Len())
	}

	v, found := cache.Get(key3)
	if !found || !reflect.DeepEqual(v, val3) {
		t.Errorf("Get(%s) failed. Found: %v, Value: %s", key3, found, v)
	}
	v, found = cache.Get(key1)
	if !found || !reflect.DeepEqual(v, val1) {
		t.Errorf("Get(%s) failed. Found: %v, Value: %s", key1, found, v)
	}

	if _, found = cache.Get("nonexistent"); found {
		t.Error("Get(nonexistent) unexpectedly found item")
	}

	// key2 is least recently used now.
	cache.Put(key4, val4)
	if cache.Len() != 3 {
		t.Errorf("Expected cache size 3 after put exceeding capacity, got %d", cache.Len())
	}
	if _, found = cache.Get(key2); found {
		t.Errorf("Get(%s) unexpectedly found item after eviction", key2)
	}
	v, found = cache.Get(key4)
	if !found || !reflect.DeepEqual(v, val4) {
		t.Errorf("Get(%s) failed after put exceeding capacity. Found: %v, Value: %s", key4, found, v)
	}
}

func TestLRUCache_PutUpdate(t *testing.T) {
	cache := NewLRUCache[string, string](2, nil)
	cache.Put("k", "v1")
	cache.Put("k", "v2")
	if cache.Len() != 1 {
		t.Errorf("Expected cache size 1 after update put, got %d", cache.Len())
	}
	if v, found := cache.Get("k"); !found || v != "v2" {
		t.Errorf("Get(k) after update = %q, %v", v, found)
	}
}

func TestLRUCache_GetOrInsert(t *testing.T) {
	var evicted []int
	cache := NewLRUCache[int, string](2, func(key int, _ string) {
		evicted = append(evicted, key)
	})
	calls := 0
	factory := func(v string) func() (string, error) {
		return func() (string, error) {
			calls++
			return v, nil
		}
	}

	v, err := cache.GetOrInsert(1, factory("one"))
	if err != nil || v != "one" {
		t.Fatalf("GetOrInsert(1) = %q, %v", v, err)
	}
	v, err = cache.GetOrInsert(1, factory("other"))
	if err != nil || v != "one" {
		t.Fatalf("GetOrInsert(1) second call = %q, %v", v, err)
	}
	if calls != 1 {
		t.Errorf("Expected factory to run once, ran %d times", calls)
	}

	cache.GetOrInsert(2, factory("two"))
	cache.GetOrInsert(1, factory("one")) // touch 1, so 2 is the eviction victim
	cache.GetOrInsert(3, factory("three"))

	if !reflect.DeepEqual(evicted, []int{2}) {
		t.Errorf("Expected key 2 to be evicted, got %v", evicted)
	}
	if cache.Contains(2) || !cache.Contains(1) || !cache.Contains(3) {
		t.Errorf("Unexpected cache contents after eviction")
	}
	if calls != 3 {
		t.Errorf("Expected 3 factory calls, got %d", calls)
	}
}

func TestLRUCache_GetOrInsertFactoryError(t *testing.T) {
	cache := NewLRUCache[int, string](2, nil)
	boom := errors.New("boom")
	_, err := cache.GetOrInsert(1, func() (string, error) { return "", boom })
	if !errors.Is(err, boom) {
		t.Fatalf("Expected factory error, got %v", err)
	}
	if cache.Len() != 0 {
		t.Errorf("Failed factory must not insert, cache size %d", cache.Len())
	}
}

func TestLRUCache_Clear(t *testing.T) {
	var evicted []string
	cache := NewLRUCache[string, []byte](5, func(key string, _ []byte) {
		evicted = append(evicted, key)
	})
	cache.Put("k1", []byte("v1"))
	cache.Put("k2", []byte("v2"))

	cache.Clear()
	if cache.Len() != 0 {
		t.Errorf("Expected size 0 after clear, got %d", cache.Len())
	}
	if !reflect.DeepEqual(evicted, []string{"k1", "k2"}) {
		t.Errorf("Expected eviction callbacks from oldest to newest, got %v", evicted)
	}
	if _, found := cache.Get("k1"); found {
		t.Error("Get(k1) unexpectedly found item after clear")
	}
}

func TestLRUCache_GetHitRate(t *testing.T) {
	hits := new(expvar.Int)
	misses := new(expvar.Int)
	cache := NewLRUCache[string, []byte](2, nil)
	cache.SetMetrics(hits, misses)
	if rate := cache.GetHitRate(); rate != 0.0 {
		t.Errorf("Expected initial hit rate 0.0, got %f", rate)
	}

	cache.Get("k1") // Miss (0h, 1m)
	cache.Put("k1", []byte("v1"))
	cache.Get("k1") // Hit  (1h, 1m)
	cache.Put("k2", []byte("v2"))
	cache.Get("k2")               // Hit  (2h, 1m)
	cache.Put("k3", []byte("v3")) // Evicts k1
	cache.Get("k1")               // Miss (2h, 2m)
	cache.GetOrInsert("k3", func() ([]byte, error) { return nil, nil }) // Hit (3h, 2m)

	if hits.Value() != 3 || misses.Value() != 2 {
		t.Errorf("Final hits/misses mismatch: got hits=%d, misses=%d; want hits=3, misses=2", hits.Value(), misses.Value())
	}
	if rate := cache.GetHitRate(); rate != 3.0/5.0 {
		t.Errorf("Expected hit rate %f, got %f", 3.0/5.0, rate)
	}
}

func TestLRUCache_Disabled(t *testing.T) {
	hits := new(expvar.Int)
	misses := new(expvar.Int)
	cache := NewLRUCache[string, []byte](0, nil)
	cache.SetMetrics(hits, misses)

	cache.Put("k1", []byte("v1"))
	if cache.Len() != 0 {
		t.Errorf("Expected cache size 0 for disabled cache, got %d", cache.Len())
	}
	if _, found := cache.Get("k1"); found {
		t.Error("Get unexpectedly found item in disabled cache")
	}

	calls := 0
	for i := 0; i < 3; i++ {
		cache.GetOrInsert("k1", func() ([]byte, error) {
			calls++
			return []byte("v1"), nil
		})
	}
	if calls != 3 {
		t.Errorf("Disabled cache must build on every lookup, factory ran %d times", calls)
	}
	if hits.Value() != 0 || misses.Value() != 0 {
		t.Errorf("Metrics unexpectedly updated for disabled cache: hits=%d, misses=%d", hits.Value(), misses.Value())
	}
}
