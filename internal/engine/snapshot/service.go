// Package snapshot captures, validates and merges filesystem snapshots.
//
// A Service lives for a build session. It owns the fact reader, one optimizer per
// snapshot category and the validity checker, so every snapshot created by the
// same Service shares facts and child snapshots with the others.
package snapshot

import (
	"context"
	"sync/atomic"

	"go.trai.ch/fsnap/internal/core/domain"
	"go.trai.ch/fsnap/internal/core/ports"
	"go.trai.ch/fsnap/internal/engine/facts"
	"go.trai.ch/fsnap/internal/engine/managed"
)

// Options configures a Service.
type Options struct {
	Concurrency       domain.Concurrency
	MaxHashSize       int64
	ValidityCacheSize int
	// MaxInvalidationLogs caps the invalidation reasons logged per session. Zero
	// selects the default and a negative value disables them.
	MaxInvalidationLogs int
}

// OptionsFromConfig derives the Service options from a resolved configuration.
func OptionsFromConfig(cfg *domain.Config) Options {
	return Options{
		Concurrency:         cfg.Concurrency,
		MaxHashSize:         cfg.MaxHashSize,
		ValidityCacheSize:   cfg.ValidityCacheSize,
		MaxInvalidationLogs: cfg.Log.MaxInvalidationLogs,
	}
}

// Service creates and validates snapshots.
type Service struct {
	reader  *facts.Reader
	logger  ports.Logger
	checker *checker

	fileTimestamps    *Optimizer[*domain.TimestampFact]
	fileHashes        *Optimizer[string]
	fileTshs          *Optimizer[*domain.TimestampAndHash]
	contextTimestamps *Optimizer[*domain.TimestampFact]
	contextHashes     *Optimizer[string]
	contextTshs       *Optimizer[*domain.TimestampAndHash]
	missingExistence  *Optimizer[bool]
	managedItemInfo   *Optimizer[string]
	managedFiles      *Optimizer[struct{}]
	managedContexts   *Optimizer[struct{}]
	managedMissing    *Optimizer[struct{}]

	created atomic.Int64
}

// New creates a Service reading through fsys.
func New(
	fsys ports.FileSystem,
	hasher ports.ContentHasher,
	logger ports.Logger,
	classifier *managed.Classifier,
	opts Options,
) (*Service, error) {
	if opts.ValidityCacheSize <= 0 {
		opts.ValidityCacheSize = domain.DefaultValidityCacheSize
	}
	if opts.MaxInvalidationLogs == 0 {
		opts.MaxInvalidationLogs = domain.DefaultInvalidationLogs
	}

	reader := facts.New(fsys, hasher, logger, classifier, facts.Options{
		Concurrency: opts.Concurrency,
		MaxHashSize: opts.MaxHashSize,
	})

	c, err := newChecker(reader, logger, opts.ValidityCacheSize, opts.MaxInvalidationLogs)
	if err != nil {
		return nil, err
	}

	return &Service{
		reader:  reader,
		logger:  logger,
		checker: c,

		fileTimestamps:    NewOptimizer(domain.FileTimestamps, true),
		fileHashes:        NewOptimizer(domain.FileHashes, false),
		fileTshs:          NewOptimizer(domain.FileTshs, true),
		contextTimestamps: NewOptimizer(domain.ContextTimestamps, true),
		contextHashes:     NewOptimizer(domain.ContextHashes, false),
		contextTshs:       NewOptimizer(domain.ContextTshs, true),
		missingExistence:  NewOptimizer(domain.MissingExistence, false),
		managedItemInfo:   NewOptimizer(domain.ManagedItemInfo, false),
		managedFiles:      NewOptimizer(domain.ManagedFiles, false),
		managedContexts:   NewOptimizer(domain.ManagedContexts, false),
		managedMissing:    NewOptimizer(domain.ManagedMissing, false),
	}, nil
}

// GetFileTimestamp returns the current timestamp fact of a file, nil when absent.
func (s *Service) GetFileTimestamp(ctx context.Context, path string) (*domain.TimestampFact, error) {
	return s.reader.FileTimestamp(ctx, path)
}

// GetFileHash returns the current content hash of a file.
func (s *Service) GetFileHash(ctx context.Context, path string) (string, error) {
	return s.reader.FileHash(ctx, path)
}

// GetContextTimestamp returns the current recursive timestamp fact of a directory.
func (s *Service) GetContextTimestamp(ctx context.Context, path string) (*domain.TimestampFact, error) {
	return s.reader.ContextTimestamp(ctx, path)
}

// GetContextHash returns the current recursive content hash of a directory.
func (s *Service) GetContextHash(ctx context.Context, path string) (string, error) {
	return s.reader.ContextHash(ctx, path)
}

// GetContextTsh returns the current recursive timestamp and hash of a directory.
func (s *Service) GetContextTsh(ctx context.Context, path string) (*domain.TimestampAndHash, error) {
	return s.reader.ContextTsh(ctx, path)
}

// GetManagedItemInfo returns the identity of the managed item at path.
func (s *Service) GetManagedItemInfo(ctx context.Context, path string) (string, error) {
	return s.reader.ManagedItem(ctx, path)
}

// AddFileTimestamps seeds the file timestamp cache. Seeded facts take precedence
// over the filesystem until they are invalidated.
func (s *Service) AddFileTimestamps(m map[string]*domain.TimestampFact) {
	s.reader.AddFileTimestamps(m)
	s.checker.reset()
}

// AddContextTimestamps seeds the directory timestamp cache.
func (s *Service) AddContextTimestamps(m map[string]*domain.TimestampFact) {
	s.reader.AddContextTimestamps(m)
	s.checker.reset()
}

// Invalidate forgets every fact about paths and every memoized verdict, so the
// next check observes the filesystem again.
func (s *Service) Invalidate(paths []string) {
	s.reader.Invalidate(paths)
	s.checker.reset()
}

// LogStatistics reports sharing and cache statistics at info level.
func (s *Service) LogStatistics() {
	s.logger.Info("snapshots",
		"created", s.created.Load(),
		"checked", s.checker.checked.Load(),
		"valid", s.checker.valid.Load(),
		"invalid", s.checker.invalid.Load(),
	)

	for _, o := range s.optimizers() {
		st := o.Stats()
		if st.SharedItems+st.UnsharedItems == 0 {
			continue
		}
		s.logger.Info("snapshot optimization",
			"category", o.Name(),
			"shared_items", st.SharedItems,
			"unshared_items", st.UnsharedItems,
			"shared_snapshots", st.SharedSnapshots,
			"reused_snapshots", st.ReusedSnapshots,
		)
	}

	rs := s.reader.Stats()
	for _, k := range []struct {
		name  string
		stats facts.KindStats
	}{
		{"file timestamps", rs.FileTimestamps},
		{"file hashes", rs.FileHashes},
		{"context timestamps", rs.ContextTimestamps},
		{"context hashes", rs.ContextHashes},
		{"context timestamps and hashes", rs.ContextTshs},
		{"managed items", rs.ManagedItems},
	} {
		s.logger.Info("fact cache",
			"kind", k.name,
			"entries", k.stats.Entries,
			"hits", k.stats.Hits,
			"misses", k.stats.Misses,
		)
	}
	s.logger.Info("timestamp accuracy", "ms", rs.Accuracy)
}

type statsReporter interface {
	Name() string
	Stats() OptimizerStats
}

func (s *Service) optimizers() []statsReporter {
	return []statsReporter{
		s.fileTimestamps,
		s.fileHashes,
		s.fileTshs,
		s.contextTimestamps,
		s.contextHashes,
		s.contextTshs,
		s.missingExistence,
		s.managedItemInfo,
		s.managedFiles,
		s.managedContexts,
		s.managedMissing,
	}
}
