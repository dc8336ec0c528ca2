package store

import (
	"errors"

	"github.com/dgraph-io/badger/v4"
	"go.trai.ch/fsnap/internal/core/domain"
	"go.trai.ch/fsnap/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.SnapshotStore = (*BadgerStore)(nil)

const keyPrefix = "snapshot:"

// BadgerStore implements ports.SnapshotStore on a badger database.
type BadgerStore struct {
	db *badger.DB
}

// OpenBadger opens, or creates, the database in dir. An empty dir keeps the
// database in memory.
func OpenBadger(dir string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrStoreOpenFailed.Error()), "path", dir)
	}
	return &BadgerStore{db: db}, nil
}

func makeKey(key string) []byte {
	return []byte(keyPrefix + key)
}

// Get retrieves the encoded snapshot stored under key.
func (s *BadgerStore) Get(key string) ([]byte, error) {
	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(makeKey(key))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrStoreReadFailed.Error()), "key", key)
	}
	return data, nil
}

// Put stores data under key.
func (s *BadgerStore) Put(key string, data []byte) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(makeKey(key), data)
	})
	if err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrStoreWriteFailed.Error()), "key", key)
	}
	return nil
}

// Delete removes the value stored under key.
func (s *BadgerStore) Delete(key string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(makeKey(key))
	})
	if err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrStoreDeleteFailed.Error()), "key", key)
	}
	return nil
}

// Clear removes every stored snapshot.
func (s *BadgerStore) Clear() error {
	if err := s.db.DropPrefix([]byte(keyPrefix)); err != nil {
		return zerr.Wrap(err, domain.ErrStoreDeleteFailed.Error())
	}
	return nil
}

// Close closes the database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}
