package cache

import (
	"container/list"
	"expvar"
)

// cacheEntry holds the key and value for a cache item.
type cacheEntry[K comparable, V any] struct {
	key   K
	value V
}

// LRUCache is a fixed-capacity cache that evicts the least recently used
// entry. It is not safe for concurrent use; callers sharing a cache between
// goroutines must guard it with their own lock.
type LRUCache[K comparable, V any] struct {
	capacity   int
	lruList    *list.List
	cacheItems map[K]*list.Element
	onEvicted  func(key K, value V) // Optional callback on eviction

	hits   *expvar.Int
	misses *expvar.Int
}

// NewLRUCache creates a cache holding at most capacity entries. A capacity
// of zero or less disables caching: nothing is stored and every lookup is
// a miss.
func NewLRUCache[K comparable, V any](capacity int, onEvicted func(key K, value V)) *LRUCache[K, V] {
	return &LRUCache[K, V]{
		capacity:   capacity,
		lruList:    list.New(),
		cacheItems: make(map[K]*list.Element),
		onEvicted:  onEvicted,
	}
}

func (c *LRUCache[K, V]) SetMetrics(hits, misses *expvar.Int) {
	c.hits = hits
	c.misses = misses
}

// Capacity returns the maximum number of entries.
func (c *LRUCache[K, V]) Capacity() int { return c.capacity }

// Get retrieves a value and marks it most recently used.
func (c *LRUCache[K, V]) Get(key K) (value V, ok bool) {
	if c.capacity <= 0 {
		return value, false
	}
	if elem, ok := c.cacheItems[key]; ok {
		c.hit()
		c.lruList.MoveToFront(elem)
		return elem.Value.(*cacheEntry[K, V]).value, true
	}
	c.miss()
	return value, false
}

// Put adds or replaces a value.
func (c *LRUCache[K, V]) Put(key K, value V) {
	if c.capacity <= 0 {
		return
	}
	if elem, ok := c.cacheItems[key]; ok {
		c.lruList.MoveToFront(elem)
		elem.Value.(*cacheEntry[K, V]).value = value
		return
	}
	c.insert(key, value)
}

// GetOrInsert returns the value for key, building it with factory on a miss.
// A factory error is returned as is and nothing is inserted. The returned
// value stays valid after a later eviction; the cache only drops its own
// reference.
func (c *LRUCache[K, V]) GetOrInsert(key K, factory func() (V, error)) (V, error) {
	if c.capacity > 0 {
		if elem, ok := c.cacheItems[key]; ok {
			c.hit()
			c.lruList.MoveToFront(elem)
			return elem.Value.(*cacheEntry[K, V]).value, nil
		}
		c.miss()
	}
	value, err := factory()
	if err != nil {
		var zero V
		return zero, err
	}
	if c.capacity > 0 {
		c.insert(key, value)
	}
	return value, nil
}

// Contains reports whether key is cached without touching its recency.
func (c *LRUCache[K, V]) Contains(key K) bool {
	_, ok := c.cacheItems[key]
	return ok
}

// Len returns the current number of items in the cache.
func (c *LRUCache[K, V]) Len() int {
	return c.lruList.Len()
}

func (c *LRUCache[K, V]) insert(key K, value V) {
	element := c.lruList.PushFront(&cacheEntry[K, V]{key: key, value: value})
	c.cacheItems[key] = element
	if c.lruList.Len() > c.capacity {
		c.evict()
	}
}

// evict removes the least recently used item from the cache.
func (c *LRUCache[K, V]) evict() {
	if elem := c.lruList.Back(); elem != nil {
		removedEntry := c.lruList.Remove(elem).(*cacheEntry[K, V])
		delete(c.cacheItems, removedEntry.key)
		if c.onEvicted != nil {
			c.onEvicted(removedEntry.key, removedEntry.value)
		}
	}
}

// Clear removes all entries from the cache, calling onEvicted for each one.
func (c *LRUCache[K, V]) Clear() {
	if c.onEvicted != nil {
		for elem := c.lruList.Back(); elem != nil; elem = elem.Prev() {
			entry := elem.Value.(*cacheEntry[K, V])
			c.onEvicted(entry.key, entry.value)
		}
	}
	c.lruList.Init()
	c.cacheItems = make(map[K]*list.Element)
	if c.hits != nil {
		c.hits.Set(0)
	}
	if c.misses != nil {
		c.misses.Set(0)
	}
}

// GetHitRate calculates the cache hit rate.
func (c *LRUCache[K, V]) GetHitRate() float64 {
	var hits, misses float64
	if c.hits != nil {
		hits = float64(c.hits.Value())
	}
	if c.misses != nil {
		misses = float64(c.misses.Value())
	}
	total := hits + misses
	if total == 0 {
		return 0.0
	}
	return hits / total
}

func (c *LRUCache[K, V]) hit() {
	if c.hits != nil {
		c.hits.Add(1)
	}
}

func (c *LRUCache[K, V]) miss() {
	if c.misses != nil {
		c.misses.Add(1)
	}
}
