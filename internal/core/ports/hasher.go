package ports

import "hash"

// ContentHasher provides the content hash primitive used for file and directory digests.
//
//go:generate mockgen -source=hasher.go -destination=mocks/mock_hasher.go -package=mocks
type ContentHasher interface {
	// New returns a fresh digest.
	New() hash.Hash

	// Name returns the configured hash function name.
	Name() string
}
