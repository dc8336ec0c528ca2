// Package app implements the application layer for fsnap.
package app

import (
	"context"
	"errors"
	"path/filepath"
	"time"

	"github.com/samber/lo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.trai.ch/fsnap/internal/adapters/watcher" //nolint:depguard // Wired in app layer
	"go.trai.ch/fsnap/internal/core/domain"
	"go.trai.ch/fsnap/internal/core/ports"
	"go.trai.ch/fsnap/internal/engine/snapshot"
	"go.trai.ch/zerr"
)

// TracerName is the instrumentation name of the spans started by App.
const TracerName = "go.trai.ch/fsnap"

// App represents the main application logic.
type App struct {
	snapshots *snapshot.Service
	fsys      ports.FileSystem
	codec     ports.SnapshotCodec
	store     ports.SnapshotStore
	watcher   ports.Watcher
	logger    ports.Logger

	tracer   trace.Tracer
	now      func() time.Time
	debounce time.Duration
}

// New creates a new App instance.
func New(
	snapshots *snapshot.Service,
	fsys ports.FileSystem,
	codec ports.SnapshotCodec,
	store ports.SnapshotStore,
	w ports.Watcher,
	log ports.Logger,
) *App {
	return &App{
		snapshots: snapshots,
		fsys:      fsys,
		codec:     codec,
		store:     store,
		watcher:   w,
		logger:    log,
		tracer:    otel.Tracer(TracerName),
		now:       time.Now,
		debounce:  watcher.DefaultDebounceWindow,
	}
}

// WithTracerProvider makes App start its spans from tp instead of the global provider.
func (a *App) WithTracerProvider(tp trace.TracerProvider) *App {
	a.tracer = tp.Tracer(TracerName)
	return a
}

// WithClock replaces the clock used for snapshot start times.
func (a *App) WithClock(now func() time.Time) *App {
	a.now = now
	return a
}

// WithDebounce sets the quiet period Watch waits for before re-checking.
func (a *App) WithDebounce(window time.Duration) *App {
	a.debounce = window
	return a
}

// SnapshotOptions configuration for the Snapshot method.
type SnapshotOptions struct {
	Files       []string
	Directories []string
	Missing     []string
	Hash        bool
	Timestamp   bool
	Stats       bool
}

// Snapshot captures the given paths and stores the result under key.
func (a *App) Snapshot(ctx context.Context, key string, opts SnapshotOptions) (err error) {
	ctx, span := a.tracer.Start(ctx, "snapshot", trace.WithAttributes(attribute.String("key", key)))
	defer func() { endSpan(span, err) }()

	files, err := absolutePaths(opts.Files)
	if err != nil {
		return err
	}
	directories, err := absolutePaths(opts.Directories)
	if err != nil {
		return err
	}
	missing, err := absolutePaths(opts.Missing)
	if err != nil {
		return err
	}
	span.SetAttributes(
		attribute.Int("files", len(files)),
		attribute.Int("directories", len(directories)),
		attribute.Int("missing", len(missing)),
	)

	start := a.now().UnixMilli()
	snap, err := a.snapshots.CreateSnapshot(ctx, start, files, directories, missing, snapshot.CreateOptions{
		Hash:      opts.Hash,
		Timestamp: opts.Timestamp,
	})
	if err != nil {
		return zerr.With(err, "key", key)
	}

	data, err := a.codec.Encode(snap)
	if err != nil {
		return zerr.With(err, "key", key)
	}
	if err := a.store.Put(key, data); err != nil {
		return err
	}

	a.logger.Info("snapshot stored",
		"key", key,
		"files", len(files),
		"directories", len(directories),
		"missing", len(missing),
		"bytes", len(data),
	)
	if opts.Stats {
		a.snapshots.LogStatistics()
	}
	return nil
}

// Check reports whether the snapshot stored under key still matches the filesystem.
func (a *App) Check(ctx context.Context, key string, stats bool) (valid bool, err error) {
	ctx, span := a.tracer.Start(ctx, "check", trace.WithAttributes(attribute.String("key", key)))
	defer func() { endSpan(span, err) }()

	snap, err := a.load(key)
	if err != nil {
		return false, err
	}

	valid, err = a.snapshots.CheckSnapshotValid(ctx, snap)
	if err != nil {
		return false, err
	}
	span.SetAttributes(attribute.Bool("valid", valid))

	if stats {
		a.snapshots.LogStatistics()
	}
	return valid, nil
}

// Delete removes the snapshot stored under key.
func (a *App) Delete(_ context.Context, key string) error {
	if err := a.store.Delete(key); err != nil {
		return err
	}
	a.logger.Info("snapshot deleted", "key", key)
	return nil
}

// Clean removes every stored snapshot.
func (a *App) Clean(_ context.Context) error {
	a.logger.Info("removing snapshot store...")
	if err := a.store.Clear(); err != nil {
		return zerr.Wrap(err, "failed to remove snapshot store")
	}
	a.logger.Info("removed snapshot store")
	return nil
}

// load reads and decodes the snapshot stored under key.
func (a *App) load(key string) (*domain.Snapshot, error) {
	data, err := a.store.Get(key)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, zerr.With(domain.ErrSnapshotNotFound, "key", key)
	}

	snap, err := a.codec.Decode(data)
	if err != nil {
		return nil, zerr.With(err, "key", key)
	}
	return snap, nil
}

func absolutePaths(paths []string) ([]string, error) {
	var errs error
	abs := lo.FilterMap(paths, func(p string, _ int) (string, bool) {
		a, err := filepath.Abs(p)
		if err != nil {
			errs = errors.Join(errs, zerr.With(zerr.Wrap(err, "failed to resolve path"), "path", p))
			return "", false
		}
		return a, true
	})
	if errs != nil {
		return nil, errs
	}
	return lo.Uniq(abs), nil
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
