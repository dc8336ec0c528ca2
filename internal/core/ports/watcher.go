package ports

import (
	"context"
	"iter"
)

// WatchOp represents the type of file system operation.
type WatchOp uint8

const (
	// OpCreate indicates a file or directory was created.
	OpCreate WatchOp = iota
	// OpWrite indicates a file was modified.
	OpWrite
	// OpRemove indicates a file or directory was removed.
	OpRemove
	// OpRename indicates a file or directory was renamed.
	OpRename
)

// WatchEvent is a change to a tracked path.
type WatchEvent struct {
	Path      string
	Operation WatchOp
}

// Watcher reports changes below a set of directories.
//
//go:generate mockgen -source=watcher.go -destination=mocks/mock_watcher.go -package=mocks
type Watcher interface {
	// Start watches every directory below each root until ctx is done.
	// Roots that do not exist are skipped.
	Start(ctx context.Context, roots []string) error
	// Stop releases the underlying watches and closes the event stream.
	Stop() error
	// Events yields changes until the watcher stops.
	Events() iter.Seq[WatchEvent]
}
