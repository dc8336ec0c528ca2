package snapshot

import (
	"context"

	"go.trai.ch/fsnap/internal/core/domain"
)

// Exported for white-box testing of the checker.

func CompareExported(ctx context.Context, s *Service, snap *domain.Snapshot) bool {
	return s.checker.compare(ctx, snap)
}

func GenerationExported(s *Service) uint64 {
	return s.checker.currentGeneration()
}

func RememberExported(s *Service, snap *domain.Snapshot, generation uint64) {
	s.checker.remember(snap, generation)
}

func KnownValidExported(s *Service, snap *domain.Snapshot) bool {
	return s.checker.knownValid(snap)
}
