//go:build !unix

package sys

import (
	"fmt"
	"io"
)

// MmapReader falls back to reading the whole file into memory on platforms
// without mmap support.
type MmapReader struct {
	*BytesReader
}

func OpenMmap(path string) (*MmapReader, error) {
	f, err := Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return &MmapReader{BytesReader: NewBytesReader(data)}, nil
}

func (m *MmapReader) Close() error {
	m.BytesReader = NewBytesReader(nil)
	return nil
}
