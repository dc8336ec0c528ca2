package store_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/fsnap/internal/adapters/store"
	"go.trai.ch/fsnap/internal/core/domain"
	"go.trai.ch/fsnap/internal/core/ports"
)

func backends(t *testing.T) map[string]func(dir string) ports.SnapshotStore {
	t.Helper()
	return map[string]func(dir string) ports.SnapshotStore{
		domain.StoreBackendFile: func(dir string) ports.SnapshotStore {
			return store.NewFileStore(dir)
		},
		domain.StoreBackendBadger: func(dir string) ports.SnapshotStore {
			s, err := store.OpenBadger(dir)
			require.NoError(t, err)
			return s
		},
	}
}

func TestStore_PutGetDelete(t *testing.T) {
	t.Parallel()

	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			s := open(filepath.Join(t.TempDir(), "store"))
			defer s.Close() //nolint:errcheck // test cleanup

			got, err := s.Get("build/a")
			require.NoError(t, err)
			assert.Nil(t, got, "missing keys are not an error")

			require.NoError(t, s.Put("build/a", []byte("one")))
			require.NoError(t, s.Put("build/b", []byte("two")))
			require.NoError(t, s.Put("build/a", []byte("three")))

			got, err = s.Get("build/a")
			require.NoError(t, err)
			assert.Equal(t, []byte("three"), got)

			require.NoError(t, s.Delete("build/a"))
			require.NoError(t, s.Delete("build/a"), "deleting twice is fine")
			got, err = s.Get("build/a")
			require.NoError(t, err)
			assert.Nil(t, got)

			got, err = s.Get("build/b")
			require.NoError(t, err)
			assert.Equal(t, []byte("two"), got)
		})
	}
}

func TestStore_Clear(t *testing.T) {
	t.Parallel()

	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			s := open(filepath.Join(t.TempDir(), "store"))
			defer s.Close() //nolint:errcheck // test cleanup

			require.NoError(t, s.Put("a", []byte("1")))
			require.NoError(t, s.Put("b", []byte("2")))
			require.NoError(t, s.Clear())

			for _, key := range []string{"a", "b"} {
				got, err := s.Get(key)
				require.NoError(t, err)
				assert.Nil(t, got)
			}

			require.NoError(t, s.Put("c", []byte("3")), "the store is usable after clearing")
		})
	}
}

func TestStore_Persistence(t *testing.T) {
	t.Parallel()

	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			dir := filepath.Join(t.TempDir(), "store")
			first := open(dir)
			require.NoError(t, first.Put("key", []byte("value")))
			require.NoError(t, first.Close())

			second := open(dir)
			defer second.Close() //nolint:errcheck // test cleanup
			got, err := second.Get("key")
			require.NoError(t, err)
			assert.Equal(t, []byte("value"), got)
		})
	}
}

func TestFileStore_HashesKeys(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s := store.NewFileStore(dir)
	require.NoError(t, s.Put("../../escape", []byte("x")))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Len(t, entries[0].Name(), 64+len(".snap"))
}

func TestOpen(t *testing.T) {
	t.Parallel()

	s, err := store.Open(domain.StoreConfig{Backend: domain.StoreBackendFile, Path: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &store.FileStore{}, s)

	s, err = store.Open(domain.StoreConfig{Backend: domain.StoreBackendBadger})
	require.NoError(t, err)
	assert.IsType(t, &store.BadgerStore{}, s)
	require.NoError(t, s.Close())

	_, err = store.Open(domain.StoreConfig{Backend: "redis"})
	assert.ErrorContains(t, err, domain.ErrUnknownStoreBackend.Error())
}
