package snapshot

import (
	"context"
	"errors"
	"sync"

	"go.trai.ch/fsnap/internal/core/domain"
	"go.trai.ch/fsnap/internal/engine/managed"
	"golang.org/x/sync/errgroup"
)

// CreateOptions selects which facts a snapshot records. Timestamps are recorded
// when neither is set.
type CreateOptions struct {
	Timestamp bool
	Hash      bool
}

type mode uint8

const (
	modeTimestamp mode = iota
	modeHash
	modeBoth
)

func (o CreateOptions) mode() mode {
	switch {
	case o.Hash && o.Timestamp:
		return modeBoth
	case o.Hash:
		return modeHash
	default:
		return modeTimestamp
	}
}

// builder accumulates the facts of a snapshot under construction. Fetches complete
// concurrently, so every map is guarded by mu.
type builder struct {
	svc  *Service
	snap *domain.Snapshot
	mode mode

	mu                sync.Mutex
	fileTimestamps    map[string]*domain.TimestampFact
	fileHashes        map[string]string
	fileTshs          map[string]*domain.TimestampAndHash
	contextTimestamps map[string]*domain.TimestampFact
	contextHashes     map[string]string
	contextTshs       map[string]*domain.TimestampAndHash
	missingExistence  map[string]bool
	managedItemInfo   map[string]string
	managedFiles      map[string]struct{}
	managedContexts   map[string]struct{}
	managedMissing    map[string]struct{}

	unset map[string][]string
}

// CreateSnapshot captures the facts of files, directories and missing paths.
// startTime is the unix millisecond instant the caller started reading the paths;
// zero records no start time. On failure no snapshot is returned and the error
// wraps domain.ErrSnapshotFailed.
func (s *Service) CreateSnapshot(
	ctx context.Context,
	startTime int64,
	files, directories, missing []string,
	opts CreateOptions,
) (*domain.Snapshot, error) {
	snap := domain.NewSnapshot()
	if startTime > 0 {
		snap.SetStartTime(startTime)
	}

	b := &builder{
		svc:               s,
		snap:              snap,
		mode:              opts.mode(),
		fileTimestamps:    make(map[string]*domain.TimestampFact),
		fileHashes:        make(map[string]string),
		fileTshs:          make(map[string]*domain.TimestampAndHash),
		contextTimestamps: make(map[string]*domain.TimestampFact),
		contextHashes:     make(map[string]string),
		contextTshs:       make(map[string]*domain.TimestampAndHash),
		missingExistence:  make(map[string]bool),
		managedItemInfo:   make(map[string]string),
		managedFiles:      make(map[string]struct{}),
		managedContexts:   make(map[string]struct{}),
		managedMissing:    make(map[string]struct{}),
		unset:             make(map[string][]string),
	}

	if err := b.build(ctx, files, directories, missing); err != nil {
		return nil, errors.Join(domain.ErrSnapshotFailed, err)
	}

	b.freeze()
	s.created.Add(1)
	return snap, nil
}

type pathKind uint8

const (
	kindFile pathKind = iota
	kindDirectory
	kindMissing
)

func (b *builder) build(ctx context.Context, files, directories, missing []string) error {
	classifier := b.svc.reader.Classifier()

	plain := [3]map[string]struct{}{{}, {}, {}}
	managedSets := [3]map[string]struct{}{b.managedFiles, b.managedContexts, b.managedMissing}
	// Paths below each managed item, kept to fall back to when the item cannot be identified.
	byItem := make(map[string][]itemPath)

	for kind, paths := range [3][]string{files, directories, missing} {
		for _, p := range paths {
			switch c := classifier.Classify(p); c.Kind {
			case managed.KindImmutable:
				managedSets[kind][p] = struct{}{}
			case managed.KindManaged:
				managedSets[kind][p] = struct{}{}
				byItem[c.Item] = append(byItem[c.Item], itemPath{pathKind(kind), p})
			default:
				plain[kind][p] = struct{}{}
			}
		}
	}

	if err := b.captureManagedItems(ctx, byItem, plain, managedSets); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	b.captureFiles(gctx, g, plain[kindFile])
	b.captureDirectories(gctx, g, plain[kindDirectory])
	b.captureMissing(gctx, g, plain[kindMissing])
	return g.Wait()
}

type itemPath struct {
	kind pathKind
	path string
}

// captureManagedItems records the identity of every managed item. Paths below an
// item that cannot be identified move back to plain tracking.
func (b *builder) captureManagedItems(
	ctx context.Context,
	byItem map[string][]itemPath,
	plain, managedSets [3]map[string]struct{},
) error {
	if len(byItem) == 0 {
		return nil
	}

	requested := make(map[string]struct{}, len(byItem))
	for item := range byItem {
		requested[item] = struct{}{}
	}
	b.unset[domain.ManagedItemInfo.Name()] = b.svc.managedItemInfo.Optimize(b.snap, requested)

	reader := b.svc.reader
	fsys := reader.FileSystem()

	g, gctx := errgroup.WithContext(ctx)
	for item := range requested {
		g.Go(func() error {
			info, ok := reader.CachedManagedItem(item)
			if !ok {
				var err error
				if info, err = reader.ManagedItem(gctx, item); err != nil {
					return err
				}
			}

			b.mu.Lock()
			defer b.mu.Unlock()
			manifest := fsys.Join(item, domain.ManifestFileName)
			switch {
			case info == "":
				for _, ip := range byItem[item] {
					delete(managedSets[ip.kind], ip.path)
					plain[ip.kind][ip.path] = struct{}{}
				}
				return nil
			case info == domain.ManagedItemNested:
				b.managedMissing[manifest] = struct{}{}
			case domain.IsManifestIdentity(info):
				b.managedFiles[manifest] = struct{}{}
			}
			b.managedItemInfo[item] = info
			return nil
		})
	}
	return g.Wait()
}

func (b *builder) captureFiles(ctx context.Context, g *errgroup.Group, paths map[string]struct{}) {
	if len(paths) == 0 {
		return
	}
	r := b.svc.reader

	switch b.mode {
	case modeBoth:
		b.unset[domain.FileTshs.Name()] = b.svc.fileTshs.Optimize(b.snap, paths)
		for p := range paths {
			if tsh, ok := r.CachedFileTsh(p); ok {
				b.set(func() { b.fileTshs[p] = tsh })
				continue
			}
			g.Go(func() error {
				tsh, err := r.FileTsh(ctx, p)
				if err != nil {
					return err
				}
				b.set(func() { b.fileTshs[p] = tsh })
				return nil
			})
		}
	case modeHash:
		b.unset[domain.FileHashes.Name()] = b.svc.fileHashes.Optimize(b.snap, paths)
		for p := range paths {
			if h, ok := r.CachedFileHash(p); ok {
				b.set(func() { b.fileHashes[p] = h })
				continue
			}
			g.Go(func() error {
				h, err := r.FileHash(ctx, p)
				if err != nil {
					return err
				}
				b.set(func() { b.fileHashes[p] = h })
				return nil
			})
		}
	case modeTimestamp:
		b.unset[domain.FileTimestamps.Name()] = b.svc.fileTimestamps.Optimize(b.snap, paths)
		for p := range paths {
			if ts, ok := r.CachedFileTimestamp(p); ok {
				b.setTimestamp(b.fileTimestamps, p, ts)
				continue
			}
			g.Go(func() error {
				ts, err := r.FileTimestamp(ctx, p)
				if err != nil {
					return err
				}
				b.setTimestamp(b.fileTimestamps, p, ts)
				return nil
			})
		}
	}
}

func (b *builder) captureDirectories(ctx context.Context, g *errgroup.Group, paths map[string]struct{}) {
	if len(paths) == 0 {
		return
	}
	r := b.svc.reader

	switch b.mode {
	case modeBoth:
		b.unset[domain.ContextTshs.Name()] = b.svc.contextTshs.Optimize(b.snap, paths)
		for p := range paths {
			if tsh, ok := r.CachedContextTsh(p); ok {
				b.set(func() { b.contextTshs[p] = tsh })
				continue
			}
			g.Go(func() error {
				tsh, err := r.ContextTsh(ctx, p)
				if err != nil {
					return err
				}
				b.set(func() { b.contextTshs[p] = tsh })
				return nil
			})
		}
	case modeHash:
		b.unset[domain.ContextHashes.Name()] = b.svc.contextHashes.Optimize(b.snap, paths)
		for p := range paths {
			if h, ok := r.CachedContextHash(p); ok {
				b.set(func() { b.contextHashes[p] = h })
				continue
			}
			g.Go(func() error {
				h, err := r.ContextHash(ctx, p)
				if err != nil {
					return err
				}
				b.set(func() { b.contextHashes[p] = h })
				return nil
			})
		}
	case modeTimestamp:
		b.unset[domain.ContextTimestamps.Name()] = b.svc.contextTimestamps.Optimize(b.snap, paths)
		for p := range paths {
			if ts, ok := r.CachedContextTimestamp(p); ok {
				b.setTimestamp(b.contextTimestamps, p, ts)
				continue
			}
			g.Go(func() error {
				ts, err := r.ContextTimestamp(ctx, p)
				if err != nil {
					return err
				}
				b.setTimestamp(b.contextTimestamps, p, ts)
				return nil
			})
		}
	}
}

func (b *builder) captureMissing(ctx context.Context, g *errgroup.Group, paths map[string]struct{}) {
	if len(paths) == 0 {
		return
	}
	r := b.svc.reader

	b.unset[domain.MissingExistence.Name()] = b.svc.missingExistence.Optimize(b.snap, paths)
	record := func(p string, ts *domain.TimestampFact) {
		if ts != nil && ts.Ignore {
			return
		}
		b.set(func() { b.missingExistence[p] = ts != nil })
	}
	for p := range paths {
		if ts, ok := r.CachedFileTimestamp(p); ok {
			record(p, ts)
			continue
		}
		g.Go(func() error {
			ts, err := r.FileTimestamp(ctx, p)
			if err != nil {
				return err
			}
			record(p, ts)
			return nil
		})
	}
}

func (b *builder) set(fn func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fn()
}

// setTimestamp records ts unless the path is ignored.
func (b *builder) setTimestamp(m map[string]*domain.TimestampFact, path string, ts *domain.TimestampFact) {
	if ts != nil && ts.Ignore {
		return
	}
	b.set(func() { m[path] = ts })
}

// freeze moves the gathered facts into the snapshot and registers the paths it
// holds with the optimizers. A category is only recorded when it gathered entries.
func (b *builder) freeze() {
	sv, s := b.svc, b.snap

	for _, set := range []struct {
		opt *Optimizer[struct{}]
		m   map[string]struct{}
	}{
		{sv.managedFiles, b.managedFiles},
		{sv.managedContexts, b.managedContexts},
		{sv.managedMissing, b.managedMissing},
	} {
		if len(set.m) > 0 {
			b.unset[set.opt.Name()] = set.opt.Optimize(s, set.m)
		}
	}

	freezeField(sv.fileTimestamps, s, b.fileTimestamps, b.unset)
	freezeField(sv.fileHashes, s, b.fileHashes, b.unset)
	freezeField(sv.fileTshs, s, b.fileTshs, b.unset)
	freezeField(sv.contextTimestamps, s, b.contextTimestamps, b.unset)
	freezeField(sv.contextHashes, s, b.contextHashes, b.unset)
	freezeField(sv.contextTshs, s, b.contextTshs, b.unset)
	freezeField(sv.missingExistence, s, b.missingExistence, b.unset)
	freezeField(sv.managedItemInfo, s, b.managedItemInfo, b.unset)
	freezeField(sv.managedFiles, s, b.managedFiles, b.unset)
	freezeField(sv.managedContexts, s, b.managedContexts, b.unset)
	freezeField(sv.managedMissing, s, b.managedMissing, b.unset)
}

func freezeField[V any](o *Optimizer[V], s *domain.Snapshot, m map[string]V, unset map[string][]string) {
	if len(m) == 0 {
		return
	}
	o.field.Set(s, m)

	var held []string
	for _, p := range unset[o.Name()] {
		if _, ok := m[p]; ok {
			held = append(held, p)
		}
	}
	o.StoreUnsharedSnapshot(s, held)
}
