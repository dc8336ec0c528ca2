package snapshot

import (
	"maps"

	"go.trai.ch/fsnap/internal/core/domain"
)

// MergeSnapshots returns a snapshot holding the facts of both a and b. Entries of
// b win on conflicting paths and the earlier start time is kept. The merged
// snapshot is known valid without a check only when both inputs already are.
func (s *Service) MergeSnapshots(a, b *domain.Snapshot) *domain.Snapshot {
	generation := s.checker.currentGeneration()
	merged := Merge(a, b)
	if s.checker.knownValid(a) && s.checker.knownValid(b) {
		s.checker.remember(merged, generation)
	}
	return merged
}

// Merge combines a and b without consulting any validity cache.
func Merge(a, b *domain.Snapshot) *domain.Snapshot {
	merged := domain.NewSnapshot()

	start, hasStart := a.StartTime()
	merged.SetMergedStartTime(start, hasStart, b)

	mergeField(domain.FileTimestamps, merged, a, b)
	mergeField(domain.FileHashes, merged, a, b)
	mergeField(domain.FileTshs, merged, a, b)
	mergeField(domain.ContextTimestamps, merged, a, b)
	mergeField(domain.ContextHashes, merged, a, b)
	mergeField(domain.ContextTshs, merged, a, b)
	mergeField(domain.MissingExistence, merged, a, b)
	mergeField(domain.ManagedItemInfo, merged, a, b)
	mergeField(domain.ManagedFiles, merged, a, b)
	mergeField(domain.ManagedContexts, merged, a, b)
	mergeField(domain.ManagedMissing, merged, a, b)

	for _, c := range a.Children() {
		merged.AddChild(c)
	}
	for _, c := range b.Children() {
		merged.AddChild(c)
	}

	return merged
}

func mergeField[V any](f domain.Field[V], merged, a, b *domain.Snapshot) {
	hasA, hasB := f.Has(a), f.Has(b)
	if !hasA && !hasB {
		return
	}
	m := f.Get(a)
	if m == nil {
		m = make(map[string]V)
	}
	maps.Copy(m, f.Get(b))
	f.Set(merged, m)
}
