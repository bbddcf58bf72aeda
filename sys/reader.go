package sys

import (
	"fmt"
	"io"
)

// Reader is a random-access, immutable byte range.
type Reader interface {
	io.ReaderAt
	// Size returns the length of the range in bytes.
	Size() int64
	// SubReader returns a view of [off, off+size) of this reader.
	SubReader(off, size int64) (Reader, error)
}

func checkRange(total, off, size int64) error {
	if off < 0 || size < 0 || off > total || size > total-off {
		return fmt.Errorf("sub-range [%d, %d+%d) outside reader of size %d: %w", off, off, size, total, io.ErrUnexpectedEOF)
	}
	return nil
}

// BytesReader serves reads from an in-memory slice.
type BytesReader struct {
	data []byte
}

// NewBytesReader wraps data without copying it. The caller must not modify
// data while the reader is in use.
func NewBytesReader(data []byte) *BytesReader {
	return &BytesReader{data: data}
}

func (r *BytesReader) Size() int64 { return int64(len(r.data)) }

func (r *BytesReader) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, fmt.Errorf("negative offset %d", off)
	}
	if off >= int64(len(r.data)) {
		if len(p) == 0 {
			return 0, nil
		}
		return 0, io.EOF
	}
	n := copy(p, r.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (r *BytesReader) SubReader(off, size int64) (Reader, error) {
	if err := checkRange(r.Size(), off, size); err != nil {
		return nil, err
	}
	return &BytesReader{data: r.data[off : off+size]}, nil
}

// Bytes returns the underlying slice.
func (r *BytesReader) Bytes() []byte { return r.data }

// FileReader reads a window of an io.ReaderAt, usually an open file.
type FileReader struct {
	ra   io.ReaderAt
	base int64
	size int64
}

// NewFileReader returns a reader over [base, base+size) of ra.
func NewFileReader(ra io.ReaderAt, base, size int64) *FileReader {
	return &FileReader{ra: ra, base: base, size: size}
}

func (r *FileReader) Size() int64 { return r.size }

func (r *FileReader) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, fmt.Errorf("negative offset %d", off)
	}
	if off >= r.size {
		if len(p) == 0 {
			return 0, nil
		}
		return 0, io.EOF
	}
	short := false
	if int64(len(p)) > r.size-off {
		p = p[:r.size-off]
		short = true
	}
	n, err := r.ra.ReadAt(p, r.base+off)
	if err == nil && short {
		err = io.EOF
	}
	return n, err
}

func (r *FileReader) SubReader(off, size int64) (Reader, error) {
	if err := checkRange(r.size, off, size); err != nil {
		return nil, err
	}
	return &FileReader{ra: r.ra, base: r.base + off, size: size}, nil
}

// ReadFull reads exactly len(p) bytes at off. A short read is reported as
// io.ErrUnexpectedEOF.
func ReadFull(r Reader, p []byte, off int64) error {
	n, err := r.ReadAt(p, off)
	if n == len(p) {
		return nil
	}
	if err == nil || err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	return fmt.Errorf("read %d bytes at offset %d: %w", len(p), off, err)
}
