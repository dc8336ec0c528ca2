// Package store persists encoded snapshots, either as one file per key or in a
// badger key-value database.
package store

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"go.trai.ch/fsnap/internal/core/domain"
	"go.trai.ch/fsnap/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.SnapshotStore = (*FileStore)(nil)

const fileExt = ".snap"

// FileStore implements ports.SnapshotStore using a file-per-key strategy.
type FileStore struct {
	dir string
}

// NewFileStore creates a store that keeps its files in dir. The directory is
// created on the first Put.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: filepath.Clean(dir)}
}

// Get retrieves the encoded snapshot stored under key.
func (s *FileStore) Get(key string) ([]byte, error) {
	filename := s.filename(key)
	//nolint:gosec // Path is constructed from the store directory and a hashed key
	data, err := os.ReadFile(filename)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, zerr.With(zerr.Wrap(err, domain.ErrStoreReadFailed.Error()), "key", key)
	}
	return data, nil
}

// Put stores data under key. The file is replaced atomically.
func (s *FileStore) Put(key string, data []byte) error {
	if err := os.MkdirAll(s.dir, domain.DirPerm); err != nil {
		return zerr.Wrap(err, domain.ErrStoreCreateFailed.Error())
	}

	tmp, err := os.CreateTemp(s.dir, "put-*")
	if err != nil {
		return zerr.Wrap(err, domain.ErrStoreWriteFailed.Error())
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // already renamed on success

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return zerr.With(zerr.Wrap(err, domain.ErrStoreWriteFailed.Error()), "key", key)
	}
	if err := tmp.Close(); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrStoreWriteFailed.Error()), "key", key)
	}
	if err := os.Chmod(tmp.Name(), domain.FilePerm); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrStoreWriteFailed.Error()), "key", key)
	}
	if err := os.Rename(tmp.Name(), s.filename(key)); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrStoreWriteFailed.Error()), "key", key)
	}
	return nil
}

// Delete removes the file stored under key.
func (s *FileStore) Delete(key string) error {
	err := os.Remove(s.filename(key))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return zerr.With(zerr.Wrap(err, domain.ErrStoreDeleteFailed.Error()), "key", key)
	}
	return nil
}

// Clear removes the store directory.
func (s *FileStore) Clear() error {
	if err := os.RemoveAll(s.dir); err != nil {
		return zerr.Wrap(err, domain.ErrStoreDeleteFailed.Error())
	}
	return nil
}

// Close is a no-op.
func (s *FileStore) Close() error {
	return nil
}

func (s *FileStore) filename(key string) string {
	hash := sha256.Sum256([]byte(key))
	return filepath.Join(s.dir, hex.EncodeToString(hash[:])+fileExt)
}
