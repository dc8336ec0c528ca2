// Package fs implements the filesystem port on top of afero.
package fs

import (
	"errors"
	"fmt"
	"io"
	iofs "io/fs"
	"syscall"

	"github.com/spf13/afero"
	"go.trai.ch/fsnap/internal/core/ports"
)

var _ ports.FileSystem = (*FileSystem)(nil)

// FileSystem implements ports.FileSystem over an afero.Fs.
type FileSystem struct {
	fs afero.Fs
}

// New returns a FileSystem reading through fsys.
func New(fsys afero.Fs) *FileSystem {
	return &FileSystem{fs: fsys}
}

// NewOS returns a FileSystem reading the real operating system filesystem.
func NewOS() *FileSystem {
	return New(afero.NewOsFs())
}

// Stat returns file info for path, following symlinks.
func (f *FileSystem) Stat(path string) (iofs.FileInfo, error) {
	info, err := f.fs.Stat(path)
	return info, normalize(err)
}

// Open opens path for streaming reads.
func (f *FileSystem) Open(path string) (io.ReadCloser, error) {
	file, err := f.fs.Open(path)
	if err != nil {
		return nil, normalize(err)
	}
	return file, nil
}

// ReadFile returns the full content of path.
func (f *FileSystem) ReadFile(path string) ([]byte, error) {
	data, err := afero.ReadFile(f.fs, path)
	return data, normalize(err)
}

// ReadDir returns the entries of the directory at path sorted by name. Entries
// describe symlinks themselves rather than their targets.
func (f *FileSystem) ReadDir(path string) ([]iofs.FileInfo, error) {
	entries, err := afero.ReadDir(f.fs, path)
	return entries, normalize(err)
}

// normalize folds "not a directory" into fs.ErrNotExist: a path below a file
// cannot exist either.
func normalize(err error) error {
	if err == nil || errors.Is(err, iofs.ErrNotExist) {
		return err
	}
	if errors.Is(err, syscall.ENOTDIR) {
		return fmt.Errorf("%w: %w", iofs.ErrNotExist, err)
	}
	return err
}
