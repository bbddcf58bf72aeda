package sys

import (
	"errors"
	"io"
)

// MemWriter is an in-memory io.WriteSeeker. Writes past the end grow the
// buffer; seeking beyond the end and writing zero-fills the gap.
type MemWriter struct {
	buf []byte
	pos int64
}

func NewMemWriter() *MemWriter { return &MemWriter{} }

func (w *MemWriter) Write(p []byte) (int, error) {
	end := w.pos + int64(len(p))
	if end > int64(len(w.buf)) {
		if end > int64(cap(w.buf)) {
			grown := make([]byte, end, max(end, 2*int64(cap(w.buf))))
			copy(grown, w.buf)
			w.buf = grown
		} else {
			w.buf = w.buf[:end]
		}
	}
	copy(w.buf[w.pos:], p)
	w.pos = end
	return len(p), nil
}

func (w *MemWriter) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = w.pos + offset
	case io.SeekEnd:
		abs = int64(len(w.buf)) + offset
	default:
		return 0, errors.New("memwriter: invalid whence")
	}
	if abs < 0 {
		return 0, errors.New("memwriter: negative position")
	}
	w.pos = abs
	return abs, nil
}

// Pos returns the current write position.
func (w *MemWriter) Pos() int64 { return w.pos }

// Bytes returns the written contents.
func (w *MemWriter) Bytes() []byte { return w.buf }
