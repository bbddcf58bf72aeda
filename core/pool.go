package core

import (
	"bytes"
	"sync"
	"sync/atomic"
)

// DefaultEncodeBufferSize is the initial capacity of buffers used to stage
// an encoded block before it is written to the sink.
const DefaultEncodeBufferSize = 16 * 1024

// maxRetainedBufferSize bounds the capacity of buffers kept by the pool. A
// block built from one huge string would otherwise pin its buffer forever.
const maxRetainedBufferSize = 4 * 1024 * 1024

// initialPoolSize is the number of buffers created up front.
const initialPoolSize = 16

// bufferPool is a mutex-protected free list of buffers. Unlike sync.Pool its
// contents survive garbage collection, which keeps a long build from
// re-growing a staging buffer for every block.
type bufferPool struct {
	mu      sync.Mutex
	items   []*bytes.Buffer
	newFunc func() *bytes.Buffer

	hits      atomic.Uint64
	misses    atomic.Uint64
	created   atomic.Uint64
	discarded atomic.Uint64
}

var BufferPool = NewBufferPool(DefaultEncodeBufferSize)

// NewBufferPool creates a new buffer pool.
// initialCapacity is the pre-allocated capacity for each new buffer.
func NewBufferPool(initialCapacity ...int) *bufferPool {
	capacity := 0
	if len(initialCapacity) > 0 && initialCapacity[0] > 0 {
		capacity = initialCapacity[0]
	}
	bp := &bufferPool{
		items: make([]*bytes.Buffer, 0, initialPoolSize),
	}
	bp.newFunc = func() *bytes.Buffer {
		bp.created.Add(1)
		return bytes.NewBuffer(make([]byte, 0, capacity))
	}
	for i := 0; i < initialPoolSize; i++ {
		bp.items = append(bp.items, bp.newFunc())
	}
	return bp
}

// Get retrieves a buffer from the pool. If the pool is empty, it creates a new one.
func (bp *bufferPool) Get() *bytes.Buffer {
	bp.mu.Lock()
	if len(bp.items) == 0 {
		bp.mu.Unlock()
		bp.misses.Add(1)
		return bp.newFunc()
	}
	bp.hits.Add(1)
	item := bp.items[len(bp.items)-1]
	bp.items = bp.items[:len(bp.items)-1]
	bp.mu.Unlock()
	return item
}

// Put resets buf and returns it to the pool. Oversized buffers are dropped.
func (bp *bufferPool) Put(buf *bytes.Buffer) {
	if buf == nil {
		return
	}
	if buf.Cap() > maxRetainedBufferSize {
		bp.discarded.Add(1)
		return
	}
	buf.Reset()
	bp.mu.Lock()
	bp.items = append(bp.items, buf)
	bp.mu.Unlock()
}

// GetMetrics returns the current metrics for the pool.
func (bp *bufferPool) GetMetrics() (hits, misses, created, discarded uint64, currentSize int) {
	bp.mu.Lock()
	currentSize = len(bp.items)
	bp.mu.Unlock()
	return bp.hits.Load(), bp.misses.Load(), bp.created.Load(), bp.discarded.Load(), currentSize
}
