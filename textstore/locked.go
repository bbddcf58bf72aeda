package textstore

import "sync"

// SyncReader guards a Reader with a mutex so that one instance can serve
// several goroutines.
type SyncReader struct {
	mu sync.Mutex
	r  *Reader
}

// NewSyncReader wraps r. r must not be used directly afterwards.
func NewSyncReader(r *Reader) *SyncReader {
	return &SyncReader{r: r}
}

// NumStrings is Reader.NumStrings under the lock.
func (s *SyncReader) NumStrings() (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.r.NumStrings()
}

// ExtractString is Reader.ExtractString under the lock.
func (s *SyncReader) ExtractString(stringIx uint64) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.r.ExtractString(stringIx)
}

// Stats returns the counters of the wrapped Reader.
func (s *SyncReader) Stats() ReaderStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.r.Stats()
}
