// Package facts reads and memoizes the raw filesystem facts snapshots are built from.
//
// Every fact kind has its own cache and its own bounded queue. A cache hit returns
// immediately; a miss is queued, and concurrent misses for the same path share one
// filesystem operation.
package facts

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"

	"go.trai.ch/fsnap/internal/core/domain"
	"go.trai.ch/fsnap/internal/core/ports"
	"go.trai.ch/fsnap/internal/engine/managed"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

// initialAccuracy is the assumed mtime granularity in milliseconds before any
// finer-grained mtime has been observed.
const initialAccuracy = 2000

// Options configures a Reader.
type Options struct {
	Concurrency domain.Concurrency
	// MaxHashSize is the largest file that is content hashed. Zero disables the limit.
	MaxHashSize int64
}

// Reader reads filesystem facts through per-kind caches and queues. It is safe for
// concurrent use and is meant to live for a whole build session.
type Reader struct {
	fs          ports.FileSystem
	hasher      ports.ContentHasher
	logger      ports.Logger
	classifier  *managed.Classifier
	maxHashSize int64

	accuracy atomic.Int64
	warned   sync.Map

	fileTimestamps    *cache[*domain.TimestampFact]
	fileHashes        *cache[string]
	contextTimestamps *cache[*domain.TimestampFact]
	contextHashes     *cache[string]
	contextTshs       *cache[*domain.TimestampAndHash]
	managedItems      *cache[string]
	listings          *cache[map[string]struct{}]

	fileTimestampQueue    *queue[*domain.TimestampFact]
	fileHashQueue         *queue[string]
	contextTimestampQueue *queue[*domain.TimestampFact]
	contextHashQueue      *queue[string]
	contextTshQueue       *queue[*domain.TimestampAndHash]
	managedItemQueue      *queue[string]
	listingQueue          *queue[map[string]struct{}]
}

// New creates a Reader.
func New(
	fsys ports.FileSystem,
	hasher ports.ContentHasher,
	logger ports.Logger,
	classifier *managed.Classifier,
	opts Options,
) *Reader {
	if classifier == nil {
		classifier = managed.NewClassifier(nil, nil, nil)
	}

	r := &Reader{
		fs:          fsys,
		hasher:      hasher,
		logger:      logger,
		classifier:  classifier,
		maxHashSize: opts.MaxHashSize,

		fileTimestamps:    newCache[*domain.TimestampFact](),
		fileHashes:        newCache[string](),
		contextTimestamps: newCache[*domain.TimestampFact](),
		contextHashes:     newCache[string](),
		contextTshs:       newCache[*domain.TimestampAndHash](),
		managedItems:      newCache[string](),
		listings:          newCache[map[string]struct{}](),
	}
	r.accuracy.Store(initialAccuracy)

	c := opts.Concurrency
	r.fileTimestampQueue = newQueue(c.FileTimestamps, r.readFileTimestamp)
	r.fileHashQueue = newQueue(c.FileHashes, r.readFileHash)
	r.contextTimestampQueue = newQueue(c.ContextTimestamps, r.readContextTimestamp)
	r.contextHashQueue = newQueue(c.ContextHashes, r.readContextHash)
	r.contextTshQueue = newQueue(c.ContextTshs, r.readContextTsh)
	r.managedItemQueue = newQueue(c.ManagedItems, r.readManagedItem)
	r.listingQueue = newQueue(c.Directories, r.readListing)

	return r
}

// Classifier returns the classifier the reader uses for directory children.
func (r *Reader) Classifier() *managed.Classifier {
	return r.classifier
}

// FileSystem returns the filesystem the reader reads from.
func (r *Reader) FileSystem() ports.FileSystem {
	return r.fs
}

// FileTimestamp returns the timestamp fact of a file, nil when it does not exist.
func (r *Reader) FileTimestamp(ctx context.Context, path string) (*domain.TimestampFact, error) {
	if ts, ok := r.fileTimestamps.get(path); ok {
		return ts, nil
	}
	return r.fileTimestampQueue.do(ctx, path)
}

// FileHash returns the content hash of a file, domain.HashAbsent when it does not exist.
func (r *Reader) FileHash(ctx context.Context, path string) (string, error) {
	if h, ok := r.fileHashes.get(path); ok {
		return h, nil
	}
	return r.fileHashQueue.do(ctx, path)
}

// FileTsh returns the timestamp and hash of a file, nil when it does not exist.
func (r *Reader) FileTsh(ctx context.Context, path string) (*domain.TimestampAndHash, error) {
	var (
		ts   *domain.TimestampFact
		hash string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		ts, err = r.FileTimestamp(gctx, path)
		return err
	})
	g.Go(func() (err error) {
		hash, err = r.FileHash(gctx, path)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return combine(ts, hash), nil
}

// ContextTimestamp returns the recursive timestamp fact of a directory, nil when it
// does not exist.
func (r *Reader) ContextTimestamp(ctx context.Context, path string) (*domain.TimestampFact, error) {
	if ts, ok := r.contextTimestamps.get(path); ok {
		return ts, nil
	}
	return r.contextTimestampQueue.do(ctx, path)
}

// ContextHash returns the recursive content hash of a directory, domain.HashAbsent
// when it does not exist.
func (r *Reader) ContextHash(ctx context.Context, path string) (string, error) {
	if h, ok := r.contextHashes.get(path); ok {
		return h, nil
	}
	return r.contextHashQueue.do(ctx, path)
}

// ContextTsh returns the recursive timestamp and hash of a directory, nil when it
// does not exist.
func (r *Reader) ContextTsh(ctx context.Context, path string) (*domain.TimestampAndHash, error) {
	if tsh, ok := r.contextTshs.get(path); ok {
		return tsh, nil
	}
	return r.contextTshQueue.do(ctx, path)
}

// ManagedItem returns the identity of the managed item at path: "name@version",
// one of the domain.ManagedItem* sentinels, or "" when it cannot be identified.
func (r *Reader) ManagedItem(ctx context.Context, path string) (string, error) {
	if info, ok := r.managedItems.get(path); ok {
		return info, nil
	}
	return r.managedItemQueue.do(ctx, path)
}

// CachedFileTimestamp returns the cached file timestamp without doing I/O.
func (r *Reader) CachedFileTimestamp(path string) (*domain.TimestampFact, bool) {
	return r.fileTimestamps.get(path)
}

// CachedFileHash returns the cached file hash without doing I/O.
func (r *Reader) CachedFileHash(path string) (string, bool) {
	return r.fileHashes.get(path)
}

// CachedFileTsh returns the cached timestamp and hash of a file without doing I/O.
func (r *Reader) CachedFileTsh(path string) (*domain.TimestampAndHash, bool) {
	ts, ok := r.fileTimestamps.peek(path)
	if !ok {
		return nil, false
	}
	hash, ok := r.fileHashes.peek(path)
	if !ok {
		return nil, false
	}
	return combine(ts, hash), true
}

// CachedContextTimestamp returns the cached directory timestamp without doing I/O.
func (r *Reader) CachedContextTimestamp(path string) (*domain.TimestampFact, bool) {
	return r.contextTimestamps.get(path)
}

// CachedContextHash returns the cached directory hash without doing I/O.
func (r *Reader) CachedContextHash(path string) (string, bool) {
	return r.contextHashes.get(path)
}

// CachedContextTsh returns the cached directory timestamp and hash without doing I/O.
func (r *Reader) CachedContextTsh(path string) (*domain.TimestampAndHash, bool) {
	return r.contextTshs.get(path)
}

// CachedManagedItem returns the cached managed item identity without doing I/O.
func (r *Reader) CachedManagedItem(path string) (string, bool) {
	return r.managedItems.get(path)
}

// AddFileTimestamps seeds the file timestamp cache, typically from a watcher.
// A nil fact records the path as absent and domain.IgnoredTimestamp marks it as
// never invalidating.
func (r *Reader) AddFileTimestamps(m map[string]*domain.TimestampFact) {
	r.fileTimestamps.setAll(m)
}

// AddContextTimestamps seeds the directory timestamp cache, typically from a watcher.
func (r *Reader) AddContextTimestamps(m map[string]*domain.TimestampFact) {
	r.contextTimestamps.setAll(m)
}

// Invalidate drops every cached fact for the given paths, for everything below
// them, for every directory above them and for the managed items containing them.
func (r *Reader) Invalidate(paths []string) {
	if len(paths) == 0 {
		return
	}

	exact := make(map[string]struct{})
	var prefixes []string
	for _, p := range paths {
		exact[p] = struct{}{}
		prefixes = append(prefixes, p+"/", p+`\`)

		for d, prev := r.fs.Dir(p), p; d != prev; d, prev = r.fs.Dir(d), d {
			exact[d] = struct{}{}
		}

		if c := r.classifier.Classify(p); c.Kind == managed.KindManaged {
			exact[c.Item] = struct{}{}
		}
	}

	match := func(path string) bool {
		if _, ok := exact[path]; ok {
			return true
		}
		for _, prefix := range prefixes {
			if strings.HasPrefix(path, prefix) {
				return true
			}
		}
		return false
	}

	r.fileTimestamps.deleteFunc(match)
	r.fileHashes.deleteFunc(match)
	r.contextTimestamps.deleteFunc(match)
	r.contextHashes.deleteFunc(match)
	r.contextTshs.deleteFunc(match)
	r.managedItems.deleteFunc(match)
	r.listings.deleteFunc(match)
}

// Clear drops every cached fact.
func (r *Reader) Clear() {
	r.fileTimestamps.clear()
	r.fileHashes.clear()
	r.contextTimestamps.clear()
	r.contextHashes.clear()
	r.contextTshs.clear()
	r.managedItems.clear()
	r.listings.clear()
}

func (r *Reader) warnOnce(key, msg string, args ...any) {
	if _, loaded := r.warned.LoadOrStore(key, struct{}{}); loaded {
		return
	}
	r.logger.Warn(msg, args...)
}

func wrapFact(err error, path string) error {
	return zerr.With(zerr.Wrap(err, domain.ErrFactReadFailed.Error()), "path", path)
}

// combine joins a timestamp and a hash. An ignored timestamp leaves a hash-only fact.
func combine(ts *domain.TimestampFact, hash string) *domain.TimestampAndHash {
	if ts == nil {
		return nil
	}
	if ts.Ignore {
		return &domain.TimestampAndHash{Hash: hash}
	}
	return &domain.TimestampAndHash{
		SafeTime:      ts.SafeTime,
		Timestamp:     ts.Timestamp,
		TimestampHash: ts.TimestampHash,
		Hash:          hash,
	}
}
