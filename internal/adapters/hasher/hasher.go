// Package hasher provides the content hash primitives used for snapshot digests.
package hasher

import (
	"crypto/sha256"
	"hash"

	"github.com/cespare/xxhash/v2"
	"go.trai.ch/fsnap/internal/core/domain"
	"go.trai.ch/fsnap/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.ContentHasher = (*Hasher)(nil)

// Hasher creates digests for the configured hash function.
type Hasher struct {
	name string
	new  func() hash.Hash
}

// New returns the hasher registered under name. An empty name selects xxhash64.
func New(name string) (*Hasher, error) {
	switch name {
	case "", domain.HashXXHash64:
		return &Hasher{name: domain.HashXXHash64, new: func() hash.Hash { return xxhash.New() }}, nil
	case domain.HashSHA256:
		return &Hasher{name: domain.HashSHA256, new: sha256.New}, nil
	default:
		return nil, zerr.With(domain.ErrUnknownHashFunction, "hash_function", name)
	}
}

// New returns a fresh digest.
func (h *Hasher) New() hash.Hash {
	return h.new()
}

// Name returns the hash function name.
func (h *Hasher) Name() string {
	return h.name
}
