package cache

import "expvar"

// Interface defines the public API for a generic cache.
type Interface[K comparable, V any] interface {
	Get(key K) (value V, ok bool)
	Put(key K, value V)
	GetOrInsert(key K, factory func() (V, error)) (V, error)
	Clear()
	GetHitRate() float64
	SetMetrics(hits, misses *expvar.Int)
	Len() int
}

var _ Interface[int, []byte] = (*LRUCache[int, []byte])(nil)
