package domain

import "math"

// SafeTimeNever is the safe time of an entry whose mtime is unknown. Such an entry
// is never considered stable relative to any snapshot start time.
const SafeTimeNever int64 = math.MaxInt64

// Hash sentinels recorded instead of a content digest.
const (
	// HashAbsent marks a path that did not exist when it was hashed.
	HashAbsent = ""
	// HashDirectory marks a path that was a directory when a file hash was requested.
	HashDirectory = "directory"
	// HashTooLarge marks a file that exceeded the configured hashing size limit.
	HashTooLarge = "too large"
)

// Managed item identities that do not come from a package manifest.
const (
	// ManagedItemMissing marks a managed item that does not exist.
	ManagedItemMissing = "missing"
	// ManagedItemExists marks a node_modules directory tracked only for existence.
	ManagedItemExists = "exists"
	// ManagedItemNested marks a grouping directory that only contains node_modules.
	ManagedItemNested = "nested"
)

// IsManifestIdentity reports whether info came from a package manifest ("name@version")
// rather than one of the sentinel identities.
func IsManifestIdentity(info string) bool {
	switch info {
	case "", ManagedItemMissing, ManagedItemExists, ManagedItemNested:
		return false
	default:
		return true
	}
}

// TimestampFact is the timestamp observation for a single path.
// A nil *TimestampFact means the path did not exist.
type TimestampFact struct {
	// SafeTime is the unix millisecond instant after which a change to the path
	// can no longer be ruled out.
	SafeTime int64
	// Timestamp is the file modification time in unix milliseconds.
	Timestamp int64
	// TimestampHash digests the recursive timestamps of a directory.
	TimestampHash string
	// Ignore marks a path that must never cause invalidation.
	Ignore bool
}

// IgnoredTimestamp is the cache entry for paths an external watcher asked to ignore.
var IgnoredTimestamp = &TimestampFact{Ignore: true}

// TimestampAndHash combines a timestamp fact with a content hash.
// A nil *TimestampAndHash means the path did not exist.
type TimestampAndHash struct {
	SafeTime      int64
	Timestamp     int64
	TimestampHash string
	Hash          string
}

// AsTimestamp returns the timestamp part of the combined fact.
func (t *TimestampAndHash) AsTimestamp() *TimestampFact {
	if t == nil {
		return nil
	}
	return &TimestampFact{
		SafeTime:      t.SafeTime,
		Timestamp:     t.Timestamp,
		TimestampHash: t.TimestampHash,
	}
}
