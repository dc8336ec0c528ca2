package domain

import "go.trai.ch/zerr"

var (
	// ErrSnapshotFailed is returned when a snapshot could not be captured.
	ErrSnapshotFailed = zerr.New("failed to create snapshot")

	// ErrSnapshotNotFound is returned when no snapshot is stored under the requested key.
	ErrSnapshotNotFound = zerr.New("snapshot not found")

	// ErrSnapshotInvalid is returned when a stored snapshot no longer matches the filesystem.
	ErrSnapshotInvalid = zerr.New("snapshot is no longer valid")

	// ErrFactReadFailed is returned when a filesystem fact cannot be read.
	ErrFactReadFailed = zerr.New("failed to read filesystem fact")

	// ErrManifestRead is returned when a package manifest exists but cannot be read.
	ErrManifestRead = zerr.New("failed to read package manifest")

	// ErrManifestParse is returned when a package manifest is not valid JSON.
	ErrManifestParse = zerr.New("failed to parse package manifest")

	// ErrCodecMalformed is returned when serialized snapshot data cannot be decoded.
	ErrCodecMalformed = zerr.New("malformed snapshot data")

	// ErrCodecUnsupported is returned when serialized data has an unknown magic or version.
	ErrCodecUnsupported = zerr.New("unsupported snapshot format")

	// ErrCodecCompress is returned when snapshot data cannot be compressed or decompressed.
	ErrCodecCompress = zerr.New("failed to compress snapshot data")

	// ErrStoreOpenFailed is returned when the snapshot store cannot be opened.
	ErrStoreOpenFailed = zerr.New("failed to open snapshot store")

	// ErrStoreCreateFailed is returned when the snapshot store directory cannot be created.
	ErrStoreCreateFailed = zerr.New("failed to create snapshot store directory")

	// ErrStoreReadFailed is returned when a stored snapshot cannot be read.
	ErrStoreReadFailed = zerr.New("failed to read stored snapshot")

	// ErrStoreWriteFailed is returned when a snapshot cannot be written to the store.
	ErrStoreWriteFailed = zerr.New("failed to write snapshot to store")

	// ErrStoreDeleteFailed is returned when a stored snapshot cannot be removed.
	ErrStoreDeleteFailed = zerr.New("failed to delete stored snapshot")

	// ErrConfigReadFailed is returned when the config file cannot be read.
	ErrConfigReadFailed = zerr.New("failed to read config file")

	// ErrConfigParseFailed is returned when the config file cannot be parsed.
	ErrConfigParseFailed = zerr.New("failed to parse config file")

	// ErrUnsupportedConfigVersion is returned when the config file declares an unknown version.
	ErrUnsupportedConfigVersion = zerr.New("unsupported config version")

	// ErrInvalidConcurrency is returned when a queue concurrency limit is not positive.
	ErrInvalidConcurrency = zerr.New("concurrency limits must be positive")

	// ErrUnknownHashFunction is returned when the configured hash function is not supported.
	ErrUnknownHashFunction = zerr.New("unknown hash function, expected 'xxhash64' or 'sha256'")

	// ErrUnknownLogFormat is returned when the configured log format is not supported.
	ErrUnknownLogFormat = zerr.New("unknown log format, expected 'auto', 'pretty', 'plain' or 'json'")

	// ErrUnknownStoreBackend is returned when the configured store backend is not supported.
	ErrUnknownStoreBackend = zerr.New("unknown store backend, expected 'file' or 'badger'")

	// ErrWatcherStartFailed is returned when the file watcher cannot be started.
	ErrWatcherStartFailed = zerr.New("failed to start file watcher")

	// ErrNoPathsSpecified is returned when a watch is requested for a snapshot that tracks nothing.
	ErrNoPathsSpecified = zerr.New("snapshot does not track any paths")
)
