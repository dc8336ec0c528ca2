package snapshot

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.trai.ch/fsnap/internal/core/domain"
	"go.trai.ch/fsnap/internal/core/ports"
	"go.trai.ch/fsnap/internal/engine/facts"
	"golang.org/x/sync/errgroup"
)

// errInvalid stops the remaining comparisons once one has failed.
var errInvalid = errors.New("snapshot invalid")

// pending is a check in progress that any number of callers can wait for.
type pending struct {
	done  chan struct{}
	valid bool
}

// checker validates snapshots against the current facts and memoizes verdicts by
// snapshot identity.
type checker struct {
	reader *facts.Reader
	logger ports.Logger

	verdicts *lru.Cache[*domain.Snapshot, bool]

	mu       sync.Mutex
	inflight map[*domain.Snapshot]*pending
	// generation changes on every reset so that checks racing with a reset do not
	// memoize verdicts based on forgotten facts.
	generation uint64

	logBudget atomic.Int64
	logged    sync.Map

	checked atomic.Int64
	valid   atomic.Int64
	invalid atomic.Int64
}

func newChecker(reader *facts.Reader, logger ports.Logger, size, maxLogs int) (*checker, error) {
	verdicts, err := lru.New[*domain.Snapshot, bool](size)
	if err != nil {
		return nil, err
	}
	c := &checker{
		reader:   reader,
		logger:   logger,
		verdicts: verdicts,
		inflight: make(map[*domain.Snapshot]*pending),
	}
	c.logBudget.Store(int64(maxLogs))
	return c, nil
}

// CheckSnapshotValid reports whether every fact recorded in snap, and in its
// children, still holds. Read failures make the snapshot invalid. The only error
// returned is ctx's.
func (s *Service) CheckSnapshotValid(ctx context.Context, snap *domain.Snapshot) (bool, error) {
	return s.checker.check(ctx, snap)
}

func (c *checker) check(ctx context.Context, snap *domain.Snapshot) (bool, error) {
	if v, ok := c.verdicts.Get(snap); ok {
		return v, nil
	}

	c.mu.Lock()
	p, ok := c.inflight[snap]
	if !ok {
		// Another caller may have finished between the cache lookup and the lock.
		if v, ok := c.verdicts.Get(snap); ok {
			c.mu.Unlock()
			return v, nil
		}
		p = &pending{done: make(chan struct{})}
		c.inflight[snap] = p
		go c.run(context.WithoutCancel(ctx), snap, p, c.generation)
	}
	c.mu.Unlock()

	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case <-p.done:
		return p.valid, nil
	}
}

func (c *checker) run(ctx context.Context, snap *domain.Snapshot, p *pending, generation uint64) {
	valid := c.compute(ctx, snap)

	c.checked.Add(1)
	if valid {
		c.valid.Add(1)
	} else {
		c.invalid.Add(1)
	}

	c.mu.Lock()
	c.add(snap, valid, generation)
	delete(c.inflight, snap)
	c.mu.Unlock()

	p.valid = valid
	close(p.done)
}

func (c *checker) compute(ctx context.Context, snap *domain.Snapshot) bool {
	// The optimizer may move entries of snap into a new child at any time, so the
	// children and every category are read under one lock.
	return c.compare(ctx, snap.Clone())
}

// compare checks a snapshot that no one else modifies.
func (c *checker) compare(ctx context.Context, snap *domain.Snapshot) bool {
	start, hasStart := snap.StartTime()
	g, gctx := errgroup.WithContext(ctx)

	for _, child := range snap.Children() {
		g.Go(func() error {
			valid, err := c.check(gctx, child)
			if err != nil || !valid {
				return errInvalid
			}
			return nil
		})
	}

	cmp := comparison{c: c, ctx: gctx, g: g, start: start, hasStart: hasStart}

	compareEach(cmp, domain.FileTimestamps.Get(snap), c.reader.CachedFileTimestamp, c.reader.FileTimestamp,
		func(path string, cur, rec *domain.TimestampFact) bool {
			return cmp.timestamp(path, cur, rec, true)
		})
	compareEach(cmp, domain.FileHashes.Get(snap), c.reader.CachedFileHash, c.reader.FileHash, cmp.hash)
	compareEach(cmp, domain.FileTshs.Get(snap), c.reader.CachedFileTimestamp, c.reader.FileTimestamp,
		func(path string, cur *domain.TimestampFact, rec *domain.TimestampAndHash) bool {
			return cmp.timestampOrHash(path, cur, rec, c.reader.CachedFileHash, c.reader.FileHash)
		})
	compareEach(cmp, domain.ContextTimestamps.Get(snap), c.reader.CachedContextTimestamp, c.reader.ContextTimestamp,
		func(path string, cur, rec *domain.TimestampFact) bool {
			return cmp.timestamp(path, cur, rec, true)
		})
	compareEach(cmp, domain.ContextHashes.Get(snap), c.reader.CachedContextHash, c.reader.ContextHash, cmp.hash)
	compareEach(cmp, domain.ContextTshs.Get(snap), c.reader.CachedContextTimestamp, c.reader.ContextTimestamp,
		func(path string, cur *domain.TimestampFact, rec *domain.TimestampAndHash) bool {
			return cmp.timestampOrHash(path, cur, rec, c.reader.CachedContextHash, c.reader.ContextHash)
		})
	compareEach(cmp, domain.MissingExistence.Get(snap), c.reader.CachedFileTimestamp, c.reader.FileTimestamp,
		func(path string, cur *domain.TimestampFact, rec bool) bool {
			if cur != nil && cur.Ignore {
				return true
			}
			return cmp.existence(path, cur != nil, rec)
		})
	compareEach(cmp, domain.ManagedItemInfo.Get(snap), c.reader.CachedManagedItem, c.reader.ManagedItem,
		func(path, cur, rec string) bool {
			if cur != rec {
				cmp.c.invalidated(path, "managed item changed", "recorded", rec, "current", cur)
				return false
			}
			return true
		})

	return g.Wait() == nil
}

// comparison carries the state shared by all comparisons of one snapshot.
type comparison struct {
	c        *checker
	ctx      context.Context
	g        *errgroup.Group
	start    int64
	hasStart bool
}

// compareEach compares every recorded entry with the current fact, from the cache
// when possible and from the filesystem otherwise.
func compareEach[C, R any](
	cmp comparison,
	recorded map[string]R,
	cached func(string) (C, bool),
	fetch func(context.Context, string) (C, error),
	ok func(path string, cur C, rec R) bool,
) {
	for path, rec := range recorded {
		if cur, hit := cached(path); hit {
			if !ok(path, cur, rec) {
				cmp.g.Go(func() error { return errInvalid })
			}
			continue
		}
		cmp.g.Go(func() error {
			cur, err := fetch(cmp.ctx, path)
			if err != nil {
				cmp.c.failed(cmp.ctx, path, err)
				return errInvalid
			}
			if !ok(path, cur, rec) {
				return errInvalid
			}
			return nil
		})
	}
}

func (cmp comparison) existence(path string, current, recorded bool) bool {
	if current != recorded {
		cmp.c.invalidated(path, "existence changed", "recorded", recorded, "current", current)
		return false
	}
	return true
}

func (cmp comparison) timestamp(path string, cur, rec *domain.TimestampFact, log bool) bool {
	if cur != nil && cur.Ignore {
		return true
	}
	if cur == rec {
		return true
	}
	if (cur != nil) != (rec != nil) {
		if log {
			cmp.existence(path, cur != nil, rec != nil)
		}
		return false
	}
	if cur == nil {
		return true
	}
	if cmp.hasStart && cur.SafeTime > cmp.start {
		if log {
			cmp.c.invalidated(path, "changed after snapshot start",
				"safe_time", cur.SafeTime, "start_time", cmp.start)
		}
		return false
	}
	if cur.Timestamp != rec.Timestamp || cur.TimestampHash != rec.TimestampHash {
		if log {
			cmp.c.invalidated(path, "timestamp changed")
		}
		return false
	}
	return true
}

func (cmp comparison) hash(path, cur, rec string) bool {
	if cur != rec {
		cmp.c.invalidated(path, "hash changed", "recorded", rec, "current", cur)
		return false
	}
	return true
}

// timestampOrHash accepts a combined fact when its timestamp part still holds and
// otherwise falls back to comparing content hashes.
func (cmp comparison) timestampOrHash(
	path string,
	cur *domain.TimestampFact,
	rec *domain.TimestampAndHash,
	cached func(string) (string, bool),
	fetch func(context.Context, string) (string, error),
) bool {
	if (cur == nil || !cur.Ignore) && cmp.timestamp(path, cur, rec.AsTimestamp(), false) {
		return true
	}

	recHash := domain.HashAbsent
	if rec != nil {
		recHash = rec.Hash
	}

	h, ok := cached(path)
	if !ok {
		var err error
		if h, err = fetch(cmp.ctx, path); err != nil {
			cmp.c.failed(cmp.ctx, path, err)
			return false
		}
	}
	return cmp.hash(path, h, recHash)
}

// invalidated logs why path invalidated a snapshot, within the session's budget.
func (c *checker) invalidated(path, reason string, args ...any) {
	if !c.spend(path + "\x00" + reason) {
		return
	}
	c.logger.Debug(reason, append([]any{"path", path}, args...)...)
}

// failed logs a read failure, which counts as an invalidation. Failures caused by
// another comparison having already failed are not logged.
func (c *checker) failed(ctx context.Context, path string, err error) {
	if ctx.Err() != nil {
		return
	}
	if !c.spend(path + "\x00" + err.Error()) {
		return
	}
	c.logger.Debug("failed to read fact, treating snapshot as invalid", "path", path, "error", err)
}

func (c *checker) spend(key string) bool {
	if _, dup := c.logged.LoadOrStore(key, struct{}{}); dup {
		return false
	}
	left := c.logBudget.Add(-1)
	if left == -1 {
		c.logger.Debug("invalidation log limit reached, further reasons are not logged")
	}
	return left >= 0
}

func (c *checker) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	c.verdicts.Purge()
}

func (c *checker) currentGeneration() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation
}

func (c *checker) knownValid(snap *domain.Snapshot) bool {
	v, ok := c.verdicts.Peek(snap)
	return ok && v
}

// remember memoizes snap as valid unless a reset happened since generation.
func (c *checker) remember(snap *domain.Snapshot, generation uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.add(snap, true, generation)
}

// add requires c.mu.
func (c *checker) add(snap *domain.Snapshot, valid bool, generation uint64) {
	if generation == c.generation {
		c.verdicts.Add(snap, valid)
	}
}
