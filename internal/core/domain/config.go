package domain

import "path/filepath"

// Hash function names accepted in the configuration.
const (
	HashXXHash64 = "xxhash64"
	HashSHA256   = "sha256"
)

// Store backends accepted in the configuration.
const (
	StoreBackendFile   = "file"
	StoreBackendBadger = "badger"
)

// DefaultMaxHashSize mirrors the largest buffer a single read is allowed to produce.
const DefaultMaxHashSize int64 = 2 << 30

// DefaultInvalidationLogs is how many invalidation reasons are logged per session.
const DefaultInvalidationLogs = 40

// DefaultValidityCacheSize bounds the number of memoized snapshot verdicts.
const DefaultValidityCacheSize = 16384

// Concurrency holds the maximum number of in-flight operations per fact kind.
type Concurrency struct {
	FileTimestamps    int
	FileHashes        int
	ContextTimestamps int
	ContextHashes     int
	ContextTshs       int
	ManagedItems      int
	Directories       int
}

// DefaultConcurrency returns the per-kind limits used when none are configured.
func DefaultConcurrency() Concurrency {
	return Concurrency{
		FileTimestamps:    30,
		FileHashes:        10,
		ContextTimestamps: 2,
		ContextHashes:     2,
		ContextTshs:       2,
		ManagedItems:      10,
		Directories:       10,
	}
}

// StoreConfig selects where snapshots are persisted.
type StoreConfig struct {
	Backend string
	Path    string
}

// Log output formats. Auto renders pretty output on an interactive terminal and
// plain output everywhere else.
const (
	LogFormatAuto   = "auto"
	LogFormatPretty = "pretty"
	LogFormatPlain  = "plain"
	LogFormatJSON   = "json"
)

// LogConfig configures the logger.
type LogConfig struct {
	Level               string
	Format              string
	File                string
	MaxInvalidationLogs int
}

// Config is the resolved configuration of a project. All paths are absolute.
type Config struct {
	Root              string
	ManagedPaths      []string
	ImmutablePaths    []string
	UnmanagedPaths    []string
	HashFunction      string
	MaxHashSize       int64
	Concurrency       Concurrency
	ValidityCacheSize int
	Store             StoreConfig
	Log               LogConfig
}

// DefaultConfig returns the configuration used for root when no config file exists.
func DefaultConfig(root string) *Config {
	return &Config{
		Root:              root,
		ManagedPaths:      []string{filepath.Join(root, NodeModulesDirName)},
		HashFunction:      HashXXHash64,
		MaxHashSize:       DefaultMaxHashSize,
		Concurrency:       DefaultConcurrency(),
		ValidityCacheSize: DefaultValidityCacheSize,
		Store: StoreConfig{
			Backend: StoreBackendFile,
			Path:    filepath.Join(root, DefaultStorePath()),
		},
		Log: LogConfig{
			Level:               "info",
			Format:              LogFormatAuto,
			MaxInvalidationLogs: DefaultInvalidationLogs,
		},
	}
}
