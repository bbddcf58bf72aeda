package core

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"time"
)

// FileHeader precedes the section in a text storage container file.
type FileHeader struct {
	Magic          uint32
	Version        uint8
	CreatedAt      int64 // UnixNano timestamp
	CompressorType CompressionType
}

func (h *FileHeader) Size() int {
	return binary.Size(h)
}

// NewFileHeader creates a new header with the current time and specified magic number.
func NewFileHeader(magic uint32, compressorType CompressionType) FileHeader {
	return FileHeader{
		Magic:          magic,
		Version:        FormatVersion,
		CreatedAt:      time.Now().UnixNano(),
		CompressorType: compressorType,
	}
}

// ReadFileHeader parses a header from r and checks magic and version.
func ReadFileHeader(r io.ReaderAt, magic uint32) (FileHeader, error) {
	var h FileHeader
	raw := make([]byte, h.Size())
	if _, err := r.ReadAt(raw, 0); err != nil {
		return h, fmt.Errorf("failed to read file header: %w", err)
	}
	if err := binary.Read(bytes.NewReader(raw), binary.LittleEndian, &h); err != nil {
		return h, fmt.Errorf("failed to parse file header: %w", err)
	}
	if h.Magic != magic {
		return h, NewFormatError("invalid magic number %x, want %x", h.Magic, magic)
	}
	if h.Version != FormatVersion {
		return h, NewFormatError("unsupported format version %d, want %d", h.Version, FormatVersion)
	}
	return h, nil
}
