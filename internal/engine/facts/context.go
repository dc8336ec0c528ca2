package facts

import (
	"context"
	"encoding/hex"
	"errors"
	iofs "io/fs"
	"slices"
	"strconv"
	"strings"

	"go.trai.ch/fsnap/internal/core/domain"
	"go.trai.ch/fsnap/internal/engine/managed"
	"golang.org/x/sync/errgroup"
)

// fold describes how the fact of a directory is derived from the facts of its
// entries. The result is a pure function of the directory's recursive content.
type fold[T any] struct {
	queue         *queue[T]
	fromImmutable func() T
	fromManaged   func(info string) T
	fromFile      func(ctx context.Context, path string, info iofs.FileInfo) (T, error)
	fromDirectory func(ctx context.Context, path string) (T, error)
	// fromLinkedDirectory handles a symlink to a directory, which is not descended.
	fromLinkedDirectory func(path string, target iofs.FileInfo) T
	reduce              func(names []string, entries []T) T
}

type dirEntry struct {
	name string
	path string
	info iofs.FileInfo
}

// readContext lists dir and folds its entries. It reports false when dir does not exist.
func readContext[T any](ctx context.Context, r *Reader, dir string, f fold[T]) (T, bool, error) {
	var zero T

	infos, err := r.fs.ReadDir(dir)
	if err != nil {
		if errors.Is(err, iofs.ErrNotExist) {
			return zero, false, nil
		}
		return zero, false, wrapFact(err, dir)
	}

	entries := make([]dirEntry, 0, len(infos))
	for _, info := range infos {
		name := info.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		entries = append(entries, dirEntry{name: name, path: r.fs.Join(dir, name), info: info})
	}
	slices.SortFunc(entries, func(a, b dirEntry) int { return strings.Compare(a.name, b.name) })

	// A directory waiting on subdirectories of the same kind holds a queue slot, so
	// it hands one extra slot to the queue for as long as it waits.
	if slices.ContainsFunc(entries, func(e dirEntry) bool { return e.info.IsDir() }) {
		f.queue.widen()
		defer f.queue.narrow()
	}

	results := make([]T, len(entries))
	g, gctx := errgroup.WithContext(ctx)
	for i, e := range entries {
		g.Go(func() error {
			v, err := readEntry(gctx, r, e, f)
			results[i] = v
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return zero, false, err
	}

	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.name
	}
	return f.reduce(names, results), true, nil
}

func readEntry[T any](ctx context.Context, r *Reader, e dirEntry, f fold[T]) (T, error) {
	var zero T

	switch c := r.classifier.Classify(e.path); c.Kind {
	case managed.KindImmutable:
		return f.fromImmutable(), nil
	case managed.KindManaged:
		info, err := r.ManagedItem(ctx, c.Item)
		if err != nil {
			return zero, err
		}
		return f.fromManaged(info), nil
	case managed.KindPlain:
	}

	info := e.info
	if info.Mode()&iofs.ModeSymlink != 0 {
		target, err := r.fs.Stat(e.path)
		if err != nil {
			if errors.Is(err, iofs.ErrNotExist) {
				return zero, nil
			}
			return zero, wrapFact(err, e.path)
		}
		if target.IsDir() {
			return f.fromLinkedDirectory(e.path, target), nil
		}
		info = target
	}

	switch {
	case info.IsDir():
		return f.fromDirectory(ctx, e.path)
	case info.Mode().IsRegular():
		return f.fromFile(ctx, e.path, info)
	default:
		return zero, nil
	}
}

func (r *Reader) timestampFold() fold[*domain.TimestampFact] {
	return fold[*domain.TimestampFact]{
		queue:         r.contextTimestampQueue,
		fromImmutable: func() *domain.TimestampFact { return nil },
		fromManaged: func(info string) *domain.TimestampFact {
			return &domain.TimestampFact{TimestampHash: info}
		},
		fromFile: func(_ context.Context, path string, info iofs.FileInfo) (*domain.TimestampFact, error) {
			// Prefer the cached value to report results consistent with earlier reads.
			if ts, ok := r.fileTimestamps.peek(path); ok {
				return ts, nil
			}
			ts := r.timestampOf(info)
			r.fileTimestamps.set(path, ts)
			return ts, nil
		},
		fromDirectory: r.ContextTimestamp,
		fromLinkedDirectory: func(_ string, target iofs.FileInfo) *domain.TimestampFact {
			return r.timestampOf(target)
		},
		reduce: func(names []string, entries []*domain.TimestampFact) *domain.TimestampFact {
			h := r.hasher.New()
			for _, name := range names {
				writeField(h, name)
			}
			var safeTime int64
			for _, e := range entries {
				switch {
				case e == nil || e.Ignore:
					writeField(h, "n")
					continue
				case e.Timestamp != 0:
					writeField(h, "f")
					writeField(h, strconv.FormatInt(e.Timestamp, 10))
				case e.TimestampHash != "":
					writeField(h, "d")
					writeField(h, e.TimestampHash)
				default:
					writeField(h, "n")
				}
				safeTime = max(safeTime, e.SafeTime)
			}
			return &domain.TimestampFact{
				SafeTime:      safeTime,
				TimestampHash: hex.EncodeToString(h.Sum(nil)),
			}
		},
	}
}

func (r *Reader) hashFold() fold[string] {
	return fold[string]{
		queue:         r.contextHashQueue,
		fromImmutable: func() string { return "" },
		fromManaged:   func(info string) string { return info },
		fromFile: func(ctx context.Context, path string, _ iofs.FileInfo) (string, error) {
			return r.FileHash(ctx, path)
		},
		fromDirectory:       r.ContextHash,
		fromLinkedDirectory: func(string, iofs.FileInfo) string { return domain.HashDirectory },
		reduce: func(names []string, entries []string) string {
			h := r.hasher.New()
			for _, name := range names {
				writeField(h, name)
			}
			for _, e := range entries {
				writeField(h, e)
			}
			return hex.EncodeToString(h.Sum(nil))
		},
	}
}

func (r *Reader) readContextTimestamp(ctx context.Context, path string) (*domain.TimestampFact, error) {
	if ts, ok := r.contextTimestamps.peek(path); ok {
		return ts, nil
	}
	ts, ok, err := readContext(ctx, r, path, r.timestampFold())
	if err != nil {
		return nil, err
	}
	if !ok {
		ts = nil
	}
	r.contextTimestamps.set(path, ts)
	return ts, nil
}

func (r *Reader) readContextHash(ctx context.Context, path string) (string, error) {
	if h, ok := r.contextHashes.peek(path); ok {
		return h, nil
	}
	hash, ok, err := readContext(ctx, r, path, r.hashFold())
	if err != nil {
		return "", err
	}
	if !ok {
		hash = domain.HashAbsent
	}
	r.contextHashes.set(path, hash)
	return hash, nil
}

func (r *Reader) readContextTsh(ctx context.Context, path string) (*domain.TimestampAndHash, error) {
	if tsh, ok := r.contextTshs.peek(path); ok {
		return tsh, nil
	}

	var (
		ts   *domain.TimestampFact
		hash string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		ts, err = r.ContextTimestamp(gctx, path)
		return err
	})
	g.Go(func() (err error) {
		hash, err = r.ContextHash(gctx, path)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	tsh := combine(ts, hash)
	r.contextTshs.set(path, tsh)
	return tsh, nil
}

// writeField writes s followed by a separator so that adjacent fields cannot run
// into each other.
func writeField(w interface{ Write([]byte) (int, error) }, s string) {
	_, _ = w.Write([]byte(s))
	_, _ = w.Write([]byte{0})
}
