package coding

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// ErrVarintOverflow is returned when a varint does not fit in 64 bits.
var ErrVarintOverflow = errors.New("varint overflows a 64-bit integer")

// WriteUvarint writes v to w as an unsigned LEB128 varint.
func WriteUvarint(w io.Writer, v uint64) error {
	var buf [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(buf[:], v)
	if _, err := w.Write(buf[:n]); err != nil {
		return fmt.Errorf("failed to write varint: %w", err)
	}
	return nil
}

// Source is a forward-only cursor over an in-memory byte range. Reads past
// the end return io.ErrUnexpectedEOF.
type Source struct {
	buf []byte
	pos int
}

// NewSource creates a Source positioned at the start of buf.
func NewSource(buf []byte) *Source {
	return &Source{buf: buf}
}

// Pos returns the number of bytes consumed so far.
func (s *Source) Pos() int { return s.pos }

// Remaining returns the number of unread bytes.
func (s *Source) Remaining() int { return len(s.buf) - s.pos }

// ReadUvarint reads an unsigned varint.
func (s *Source) ReadUvarint() (uint64, error) {
	v, n := binary.Uvarint(s.buf[s.pos:])
	switch {
	case n == 0:
		return 0, io.ErrUnexpectedEOF
	case n < 0:
		return 0, ErrVarintOverflow
	}
	s.pos += n
	return v, nil
}

// ReadByte reads a single byte.
func (s *Source) ReadByte() (byte, error) {
	if s.pos >= len(s.buf) {
		return 0, io.ErrUnexpectedEOF
	}
	b := s.buf[s.pos]
	s.pos++
	return b, nil
}

// Next returns the next n bytes without copying them.
func (s *Source) Next(n int) ([]byte, error) {
	if n < 0 || n > s.Remaining() {
		return nil, io.ErrUnexpectedEOF
	}
	b := s.buf[s.pos : s.pos+n]
	s.pos += n
	return b, nil
}

// rest returns the unread bytes without consuming them.
func (s *Source) rest() []byte { return s.buf[s.pos:] }

// skip consumes n bytes; callers guarantee n <= Remaining().
func (s *Source) skip(n int) { s.pos += n }
