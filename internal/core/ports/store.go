package ports

// SnapshotStore persists encoded snapshots keyed by the artifact they belong to.
//
//go:generate mockgen -source=store.go -destination=mocks/mock_store.go -package=mocks
type SnapshotStore interface {
	// Get retrieves the encoded snapshot stored under key.
	// Returns nil, nil if not found.
	Get(key string) ([]byte, error)

	// Put stores data under key, replacing any previous value.
	Put(key string, data []byte) error

	// Delete removes the value stored under key. Deleting a missing key is not an error.
	Delete(key string) error

	// Clear removes every stored snapshot.
	Clear() error

	// Close releases resources held by the store.
	Close() error
}
