package ports

import "go.trai.ch/fsnap/internal/core/domain"

// SnapshotCodec converts snapshot forests to and from their persisted binary form.
//
//go:generate mockgen -source=codec.go -destination=mocks/mock_codec.go -package=mocks
type SnapshotCodec interface {
	// Encode serializes the snapshot and all of its descendants.
	Encode(s *domain.Snapshot) ([]byte, error)

	// Decode rebuilds a snapshot forest from data produced by Encode.
	Decode(data []byte) (*domain.Snapshot, error)
}
