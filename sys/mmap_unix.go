//go:build unix

package sys

import (
	"fmt"
	"syscall"

	"golang.org/x/sys/unix"
)

// MmapReader is a read-only memory mapping of a whole file.
type MmapReader struct {
	*BytesReader
	data []byte
}

// OpenMmap maps path read-only. Empty files are served from an empty slice
// since mmap rejects zero lengths.
func OpenMmap(path string) (*MmapReader, error) {
	f, err := Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if st.Size() == 0 {
		return &MmapReader{BytesReader: NewBytesReader(nil)}, nil
	}
	fd, ok := f.(interface{ Fd() uintptr })
	if !ok {
		return nil, fmt.Errorf("file handle for %s has no descriptor", path)
	}
	data, err := unix.Mmap(int(fd.Fd()), 0, int(st.Size()), syscall.PROT_READ, syscall.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("failed to mmap %s: %w", path, err)
	}
	return &MmapReader{BytesReader: NewBytesReader(data), data: data}, nil
}

// Close unmaps the file. Readers derived through SubReader are invalid
// afterwards.
func (m *MmapReader) Close() error {
	if m.data == nil {
		return nil
	}
	data := m.data
	m.data = nil
	m.BytesReader = NewBytesReader(nil)
	return unix.Munmap(data)
}
