package ports

import (
	"io"
	"io/fs"
)

// FileSystem defines the raw filesystem operations the snapshot engine relies on.
// Paths are absolute. Errors for paths that do not exist, or whose parent is not a
// directory, satisfy errors.Is(err, fs.ErrNotExist).
//
//go:generate mockgen -source=filesystem.go -destination=mocks/mock_filesystem.go -package=mocks
type FileSystem interface {
	// Stat returns file info for path, following symlinks.
	Stat(path string) (fs.FileInfo, error)

	// Open opens path for streaming reads.
	Open(path string) (io.ReadCloser, error)

	// ReadFile returns the full content of path.
	ReadFile(path string) ([]byte, error)

	// ReadDir returns the entries of the directory at path. A symlink entry carries
	// fs.ModeSymlink instead of the mode of its target.
	ReadDir(path string) ([]fs.FileInfo, error)

	// Join joins path elements using the separator style of the first element.
	Join(elem ...string) string

	// Dir returns all but the last element of path.
	Dir(path string) string

	// Rel returns target relative to base.
	Rel(base, target string) (string, error)
}
