package textstore

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/INLOpen/textstore/core"
	"github.com/INLOpen/textstore/sys"
)

// FileWriter builds a container file: a core.FileHeader followed by one
// section. It writes to path+".tmp" and renames on Finish.
type FileWriter struct {
	*Writer
	file    sys.FileHandle
	path    string
	tmpPath string
}

// CreateFile starts a container at path.
func CreateFile(path string, opts WriterOptions) (*FileWriter, error) {
	tmpPath := path + core.TempFileSuffix
	f, err := sys.Create(tmpPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create temporary store file %s: %w", tmpPath, err)
	}
	header := core.NewFileHeader(core.TextStoreMagicNumber, core.CompressionBWT)
	if err := binary.Write(f, binary.LittleEndian, &header); err != nil {
		f.Close()
		sys.Remove(tmpPath)
		return nil, fmt.Errorf("failed to write store header: %w", err)
	}
	w, err := NewWriter(f, opts)
	if err != nil {
		f.Close()
		sys.Remove(tmpPath)
		return nil, err
	}
	return &FileWriter{Writer: w, file: f, path: path, tmpPath: tmpPath}, nil
}

// Finish completes the section, syncs the file and moves it into place. On
// failure the temporary file is removed.
func (fw *FileWriter) Finish() error {
	if err := fw.Writer.Finish(); err != nil {
		fw.cleanup()
		return err
	}
	if err := fw.file.Sync(); err != nil {
		fw.cleanup()
		return fmt.Errorf("failed to sync store file %s: %w", fw.tmpPath, err)
	}
	if err := fw.file.Close(); err != nil {
		sys.Remove(fw.tmpPath)
		return fmt.Errorf("failed to close store file %s: %w", fw.tmpPath, err)
	}
	if err := sys.Rename(fw.tmpPath, fw.path); err != nil {
		sys.Remove(fw.tmpPath)
		return fmt.Errorf("failed to rename %s to %s: %w", fw.tmpPath, fw.path, err)
	}
	return nil
}

// Abort discards the file.
func (fw *FileWriter) Abort() {
	fw.Writer.Abort()
	fw.cleanup()
}

func (fw *FileWriter) cleanup() {
	fw.file.Close()
	if err := sys.Remove(fw.tmpPath); err != nil {
		fw.logger.Warn("Failed to remove temporary store file", "path", fw.tmpPath, "error", err)
	}
}

// Path returns the final path of the container.
func (fw *FileWriter) Path() string { return fw.path }

// WriteFile builds a container at path with the same finish-or-abort rule
// as Write.
func WriteFile(path string, opts WriterOptions, fn func(w *Writer) error) error {
	fw, err := CreateFile(path, opts)
	if err != nil {
		return err
	}
	defer func() {
		if r := recover(); r != nil {
			fw.Abort()
			panic(r)
		}
	}()
	if err := fn(fw.Writer); err != nil {
		fw.Abort()
		return err
	}
	return fw.Finish()
}

// Store is an open container file.
type Store struct {
	*Reader
	Header  core.FileHeader
	mapped  *sys.MmapReader
	section sys.Reader
}

// OpenFile maps the container at path and reads its index. A header that
// does not belong to a text store is a FormatError.
func OpenFile(path string, opts ReaderOptions) (*Store, error) {
	m, err := sys.OpenMmap(path)
	if err != nil {
		return nil, err
	}
	headerSize := int64((&core.FileHeader{}).Size())
	if m.Size() < headerSize {
		m.Close()
		return nil, core.NewFormatError("file %s of %d bytes is shorter than the store header", path, m.Size())
	}
	header, err := core.ReadFileHeader(m, core.TextStoreMagicNumber)
	if err != nil {
		m.Close()
		return nil, fmt.Errorf("invalid store file %s: %w", path, err)
	}
	if header.CompressorType != core.CompressionBWT {
		m.Close()
		return nil, core.NewFormatError("unsupported block codec %s in %s", header.CompressorType, path)
	}
	section, err := m.SubReader(headerSize, m.Size()-headerSize)
	if err != nil {
		m.Close()
		return nil, err
	}
	r := NewReader(section, opts)
	if err := r.InitializeIfNeeded(); err != nil {
		m.Close()
		return nil, fmt.Errorf("failed to open store %s: %w", path, err)
	}
	return &Store{Reader: r, Header: header, mapped: m, section: section}, nil
}

// Section returns the section bytes, for callers that want a Reader per
// goroutine instead of sharing the embedded one.
func (s *Store) Section() sys.Reader { return s.section }

// FileSize returns the size of the container file.
func (s *Store) FileSize() int64 { return s.mapped.Size() }

// Close releases the mapping. Strings returned earlier stay valid since
// they are copies.
func (s *Store) Close() error {
	return errors.Join(s.Reader.Close(), s.mapped.Close())
}
