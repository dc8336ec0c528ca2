package domain

import (
	"maps"
	"slices"
	"sync"
)

// Flags is the presence mask of a Snapshot. Each bit marks one fact category as recorded.
type Flags uint16

const (
	// FlagFileTimestamps marks recorded file timestamps.
	FlagFileTimestamps Flags = 1 << iota
	// FlagFileHashes marks recorded file content hashes.
	FlagFileHashes
	// FlagFileTshs marks recorded file timestamps combined with hashes.
	FlagFileTshs
	// FlagContextTimestamps marks recorded directory timestamps.
	FlagContextTimestamps
	// FlagContextHashes marks recorded directory hashes.
	FlagContextHashes
	// FlagContextTshs marks recorded directory timestamps combined with hashes.
	FlagContextTshs
	// FlagMissingExistence marks recorded existence of expected-missing paths.
	FlagMissingExistence
	// FlagManagedItemInfo marks recorded managed item identities.
	FlagManagedItemInfo
	// FlagManagedFiles marks the set of files covered by managed items.
	FlagManagedFiles
	// FlagManagedContexts marks the set of directories covered by managed items.
	FlagManagedContexts
	// FlagManagedMissing marks the set of missing paths covered by managed items.
	FlagManagedMissing
)

// Snapshot records facts about a set of paths captured at one instant, plus the
// child snapshots it subsumes. A path appears in at most one of this node's category
// and the same category of a reachable child.
//
// All access goes through the Field descriptors and methods below, which hold the
// snapshot's lock.
type Snapshot struct {
	mu sync.RWMutex

	flags        Flags
	startTime    int64
	hasStartTime bool

	fileTimestamps    map[string]*TimestampFact
	fileHashes        map[string]string
	fileTshs          map[string]*TimestampAndHash
	contextTimestamps map[string]*TimestampFact
	contextHashes     map[string]string
	contextTshs       map[string]*TimestampAndHash
	missingExistence  map[string]bool
	managedItemInfo   map[string]string
	managedFiles      map[string]struct{}
	managedContexts   map[string]struct{}
	managedMissing    map[string]struct{}

	children []*Snapshot
}

// NewSnapshot returns an empty snapshot.
func NewSnapshot() *Snapshot {
	return &Snapshot{}
}

// Flags returns the presence mask.
func (s *Snapshot) Flags() Flags {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.flags
}

// StartTime returns the unix millisecond capture start time, if one was recorded.
func (s *Snapshot) StartTime() (int64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.startTime, s.hasStartTime
}

// SetStartTime records the capture start time.
func (s *Snapshot) SetStartTime(t int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.startTime = t
	s.hasStartTime = true
}

// SetMergedStartTime records the earlier of t (when set) and other's start time.
func (s *Snapshot) SetMergedStartTime(t int64, hasT bool, other *Snapshot) {
	otherTime, otherHas := other.StartTime()
	switch {
	case hasT && otherHas:
		s.SetStartTime(min(t, otherTime))
	case hasT:
		s.SetStartTime(t)
	case otherHas:
		s.SetStartTime(otherTime)
	}
}

// Clone returns a copy of s read under one lock. Category maps are copied, while
// facts and children are shared with s.
func (s *Snapshot) Clone() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return &Snapshot{
		flags:             s.flags,
		startTime:         s.startTime,
		hasStartTime:      s.hasStartTime,
		fileTimestamps:    maps.Clone(s.fileTimestamps),
		fileHashes:        maps.Clone(s.fileHashes),
		fileTshs:          maps.Clone(s.fileTshs),
		contextTimestamps: maps.Clone(s.contextTimestamps),
		contextHashes:     maps.Clone(s.contextHashes),
		contextTshs:       maps.Clone(s.contextTshs),
		missingExistence:  maps.Clone(s.missingExistence),
		managedItemInfo:   maps.Clone(s.managedItemInfo),
		managedFiles:      maps.Clone(s.managedFiles),
		managedContexts:   maps.Clone(s.managedContexts),
		managedMissing:    maps.Clone(s.managedMissing),
		children:          slices.Clone(s.children),
	}
}

// Children returns the direct children.
func (s *Snapshot) Children() []*Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.children)
}

// HasChildren reports whether the snapshot has any children.
func (s *Snapshot) HasChildren() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.children) > 0
}

// AddChild attaches child unless it is already attached.
func (s *Snapshot) AddChild(child *Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !slices.Contains(s.children, child) {
		s.children = append(s.children, child)
	}
}

// Files returns every file path tracked by the snapshot and its descendants, sorted.
func (s *Snapshot) Files() []string {
	return s.collect(func(n *Snapshot, add func(string)) {
		keysInto(n.fileTimestamps, add)
		keysInto(n.fileHashes, add)
		keysInto(n.fileTshs, add)
		keysInto(n.managedFiles, add)
	})
}

// Directories returns every directory path tracked by the snapshot and its descendants, sorted.
func (s *Snapshot) Directories() []string {
	return s.collect(func(n *Snapshot, add func(string)) {
		keysInto(n.contextTimestamps, add)
		keysInto(n.contextHashes, add)
		keysInto(n.contextTshs, add)
		keysInto(n.managedContexts, add)
	})
}

// Missing returns every expected-missing path tracked by the snapshot and its descendants, sorted.
func (s *Snapshot) Missing() []string {
	return s.collect(func(n *Snapshot, add func(string)) {
		keysInto(n.missingExistence, add)
		keysInto(n.managedMissing, add)
	})
}

// ManagedItems returns every managed item root recorded by the snapshot and its
// descendants, sorted.
func (s *Snapshot) ManagedItems() []string {
	return s.collect(func(n *Snapshot, add func(string)) {
		keysInto(n.managedItemInfo, add)
	})
}

func (s *Snapshot) collect(visit func(n *Snapshot, add func(string))) []string {
	seen := make(map[string]struct{})
	add := func(p string) { seen[p] = struct{}{} }
	visited := make(map[*Snapshot]struct{})

	var walk func(n *Snapshot)
	walk = func(n *Snapshot) {
		if _, ok := visited[n]; ok {
			return
		}
		visited[n] = struct{}{}
		n.mu.RLock()
		visit(n, add)
		children := slices.Clone(n.children)
		n.mu.RUnlock()
		for _, c := range children {
			walk(c)
		}
	}
	walk(s)

	return slices.Sorted(maps.Keys(seen))
}

func keysInto[V any](m map[string]V, add func(string)) {
	for k := range m {
		add(k)
	}
}

// Field describes one fact category of a Snapshot. Values of type V are facts
// for mapping categories and struct{} for membership sets.
type Field[V any] struct {
	flag Flags
	name string
	ref  func(*Snapshot) *map[string]V
}

// Snapshot fact categories.
var (
	FileTimestamps = Field[*TimestampFact]{FlagFileTimestamps, "file timestamps",
		func(s *Snapshot) *map[string]*TimestampFact { return &s.fileTimestamps }}
	FileHashes = Field[string]{FlagFileHashes, "file hashes",
		func(s *Snapshot) *map[string]string { return &s.fileHashes }}
	FileTshs = Field[*TimestampAndHash]{FlagFileTshs, "file timestamps and hashes",
		func(s *Snapshot) *map[string]*TimestampAndHash { return &s.fileTshs }}
	ContextTimestamps = Field[*TimestampFact]{FlagContextTimestamps, "context timestamps",
		func(s *Snapshot) *map[string]*TimestampFact { return &s.contextTimestamps }}
	ContextHashes = Field[string]{FlagContextHashes, "context hashes",
		func(s *Snapshot) *map[string]string { return &s.contextHashes }}
	ContextTshs = Field[*TimestampAndHash]{FlagContextTshs, "context timestamps and hashes",
		func(s *Snapshot) *map[string]*TimestampAndHash { return &s.contextTshs }}
	MissingExistence = Field[bool]{FlagMissingExistence, "missing existence",
		func(s *Snapshot) *map[string]bool { return &s.missingExistence }}
	ManagedItemInfo = Field[string]{FlagManagedItemInfo, "managed item info",
		func(s *Snapshot) *map[string]string { return &s.managedItemInfo }}
	ManagedFiles = Field[struct{}]{FlagManagedFiles, "managed files",
		func(s *Snapshot) *map[string]struct{} { return &s.managedFiles }}
	ManagedContexts = Field[struct{}]{FlagManagedContexts, "managed contexts",
		func(s *Snapshot) *map[string]struct{} { return &s.managedContexts }}
	ManagedMissing = Field[struct{}]{FlagManagedMissing, "managed missing",
		func(s *Snapshot) *map[string]struct{} { return &s.managedMissing }}
)

// Flag returns the presence bit of the category.
func (f Field[V]) Flag() Flags { return f.flag }

// Name returns a human readable category name.
func (f Field[V]) Name() string { return f.name }

// Has reports whether the category is present on s.
func (f Field[V]) Has(s *Snapshot) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.flags&f.flag != 0
}

// Get returns a copy of the category, or nil when it is not present.
func (f Field[V]) Get(s *Snapshot) map[string]V {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.flags&f.flag == 0 {
		return nil
	}
	m := maps.Clone(*f.ref(s))
	if m == nil {
		m = make(map[string]V)
	}
	return m
}

// Len returns the number of entries held directly by s.
func (f Field[V]) Len(s *Snapshot) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(*f.ref(s))
}

// Lookup returns the entry for path held directly by s.
func (f Field[V]) Lookup(s *Snapshot, path string) (V, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := (*f.ref(s))[path]
	return v, ok
}

// Set replaces the category and marks it present. The map is owned by s afterwards.
func (f Field[V]) Set(s *Snapshot, m map[string]V) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m == nil {
		m = make(map[string]V)
	}
	*f.ref(s) = m
	s.flags |= f.flag
}

// Carve moves the entries of s selected by pick into child and attaches child to s.
// The move and the attachment happen under one lock so concurrent readers never see
// the entries in neither place. Nothing changes when fewer than minSize entries are
// selected. It returns the moved paths.
func (f Field[V]) Carve(s, child *Snapshot, pick func(path string) bool, minSize int) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	src := *f.ref(s)
	moved := make(map[string]V)
	for path, v := range src {
		if pick(path) {
			moved[path] = v
		}
	}
	if len(moved) < minSize || len(moved) == 0 {
		return nil
	}
	for path := range moved {
		delete(src, path)
	}

	f.Set(child, moved)
	if !slices.Contains(s.children, child) {
		s.children = append(s.children, child)
	}

	return slices.Collect(maps.Keys(moved))
}
