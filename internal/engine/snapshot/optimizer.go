package snapshot

import (
	"maps"
	"slices"
	"sync"

	"go.trai.ch/fsnap/internal/core/domain"
)

// minSharedSize is the smallest overlap worth extracting into a shared child.
const minSharedSize = 3

// entry tracks the snapshot that holds a path for one category.
// An entry with shared == 0 belongs to a first-class snapshot which may still be
// split. Shared entries belong to carved children which are only ever reused as a
// whole or intersected further.
type entry struct {
	snapshot *domain.Snapshot
	shared   int
	content  map[string]struct{}
	children []*entry
}

// OptimizerStats counts how much sharing an Optimizer achieved.
type OptimizerStats struct {
	SharedItems     int
	UnsharedItems   int
	SharedSnapshots int
	ReusedSnapshots int
}

// Optimizer factors paths requested by a new snapshot that overlap with earlier
// snapshots into shared child snapshots, for one category.
type Optimizer[V any] struct {
	field        domain.Field[V]
	useStartTime bool

	mu      sync.Mutex
	entries map[string]*entry
	stats   OptimizerStats
}

// NewOptimizer returns an Optimizer for field. Start times are only compared for
// categories whose facts depend on when they were captured.
func NewOptimizer[V any](field domain.Field[V], useStartTime bool) *Optimizer[V] {
	return &Optimizer[V]{
		field:        field,
		useStartTime: useStartTime,
		entries:      make(map[string]*entry),
	}
}

// Optimize attaches shared children covering requested paths to s. Covered paths
// are removed from requested. It returns the requested paths no earlier snapshot
// knows about, which the caller registers with StoreUnsharedSnapshot once s holds them.
func (o *Optimizer[V]) Optimize(s *domain.Snapshot, requested map[string]struct{}) []string {
	o.mu.Lock()
	defer o.mu.Unlock()

	requestedSize := len(requested)
	newStart, newHasStart := s.StartTime()

	var (
		unset   []string
		seen    = make(map[*entry]struct{})
		ordered []*entry
	)
	for _, path := range slices.Sorted(maps.Keys(requested)) {
		e, ok := o.entries[path]
		if !ok {
			unset = append(unset, path)
			continue
		}
		if _, dup := seen[e]; !dup {
			seen[e] = struct{}{}
			ordered = append(ordered, e)
		}
	}

	for _, e := range ordered {
		if e.shared > 0 {
			o.reuseShared(s, e, requested, newStart, newHasStart)
		} else {
			o.splitUnshared(s, e, requested, newStart, newHasStart)
		}
	}

	unshared := len(requested)
	o.stats.UnsharedItems += unshared
	o.stats.SharedItems += requestedSize - unshared

	return unset
}

func (o *Optimizer[V]) reuseShared(
	s *domain.Snapshot, e *entry, requested map[string]struct{}, newStart int64, newHasStart bool,
) {
	old := e.snapshot
	if o.useStartTime && newHasStart {
		oldStart, oldHasStart := old.StartTime()
		if !oldHasStart || oldStart > newStart {
			return
		}
	}

	held := o.field.Get(old)
	notRequested := make(map[string]struct{})
	for path := range e.content {
		if _, ok := requested[path]; ok {
			continue
		}
		if _, ok := held[path]; !ok {
			// The path lives in a child of old and cannot be split off.
			return
		}
		notRequested[path] = struct{}{}
	}

	if len(notRequested) == 0 {
		s.AddChild(old)
		o.increaseShared(e, requested)
		o.stats.ReusedSnapshots++
		return
	}

	if len(e.content)-len(notRequested) < minSharedSize {
		return
	}

	common := domain.NewSnapshot()
	if o.useStartTime {
		common.SetMergedStartTime(newStart, newHasStart, old)
	}
	moved := o.field.Carve(old, common, func(path string) bool {
		_, skip := notRequested[path]
		return !skip
	}, 1)
	if len(moved) == 0 {
		return
	}
	s.AddChild(common)

	child := &entry{
		snapshot: common,
		shared:   e.shared + 1,
		content:  setOf(moved),
	}
	e.children = append(e.children, child)
	o.store(child, requested)
	o.stats.SharedSnapshots++
}

func (o *Optimizer[V]) splitUnshared(
	s *domain.Snapshot, e *entry, requested map[string]struct{}, newStart int64, newHasStart bool,
) {
	old := e.snapshot
	if !o.field.Has(old) {
		return
	}

	common := domain.NewSnapshot()
	if o.useStartTime {
		common.SetMergedStartTime(newStart, newHasStart, old)
	}
	moved := o.field.Carve(old, common, func(path string) bool {
		_, ok := requested[path]
		return ok
	}, minSharedSize)
	if len(moved) == 0 {
		return
	}
	s.AddChild(common)

	o.stats.UnsharedItems -= len(moved)
	o.stats.SharedItems += len(moved)

	o.store(&entry{
		snapshot: common,
		shared:   2,
		content:  setOf(moved),
	}, requested)
	o.stats.SharedSnapshots++
}

func (o *Optimizer[V]) increaseShared(e *entry, requested map[string]struct{}) {
	for _, c := range e.children {
		o.increaseShared(c, requested)
	}
	e.shared++
	o.store(e, requested)
}

// store points every path of e at e unless a more shared entry already covers it,
// and marks the paths as covered.
func (o *Optimizer[V]) store(e *entry, requested map[string]struct{}) {
	for path := range e.content {
		old, ok := o.entries[path]
		if !ok {
			panic("snapshot optimizer: path " + path + " has no entry in " + o.field.Name())
		}
		if old.shared < e.shared {
			o.entries[path] = e
		}
		delete(requested, path)
	}
}

// StoreUnsharedSnapshot records s as the holder of paths.
func (o *Optimizer[V]) StoreUnsharedSnapshot(s *domain.Snapshot, paths []string) {
	if len(paths) == 0 {
		return
	}
	o.mu.Lock()
	defer o.mu.Unlock()

	e := &entry{snapshot: s}
	for _, path := range paths {
		o.entries[path] = e
	}
}

// Stats returns the sharing counters.
func (o *Optimizer[V]) Stats() OptimizerStats {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.stats
}

// Name returns the category the optimizer works on.
func (o *Optimizer[V]) Name() string {
	return o.field.Name()
}

// Clear forgets every entry.
func (o *Optimizer[V]) Clear() {
	o.mu.Lock()
	defer o.mu.Unlock()
	clear(o.entries)
	o.stats = OptimizerStats{}
}

func setOf(paths []string) map[string]struct{} {
	m := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		m[p] = struct{}{}
	}
	return m
}
