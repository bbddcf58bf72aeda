package sys

import (
	"io"
	"os"
)

// FileHandle is the subset of *os.File used by the store container. Tests
// swap the package-level handlers below to inject failures.
type FileHandle interface {
	io.ReadWriteCloser
	io.ReaderAt
	io.Seeker

	Stat() (os.FileInfo, error)
	Sync() error
	Name() string
}

type CreateHandler func(name string) (FileHandle, error)
type OpenHandler func(name string) (FileHandle, error)
type RenameHandler func(oldpath, newpath string) error
type RemoveHandler func(name string) error

var Create CreateHandler = func(name string) (FileHandle, error) {
	f, err := os.OpenFile(name, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, err
	}
	return &RealFile{f: f}, nil
}

var Open OpenHandler = func(name string) (FileHandle, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	return &RealFile{f: f}, nil
}

var Rename RenameHandler = os.Rename

var Remove RemoveHandler = func(name string) error {
	err := os.Remove(name)
	if err != nil && os.IsNotExist(err) {
		return nil
	}
	return err
}
