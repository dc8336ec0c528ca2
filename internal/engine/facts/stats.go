package facts

// KindStats describes the cache of one fact kind.
type KindStats struct {
	Entries int
	Hits    int64
	Misses  int64
}

// Stats describes every cache of a Reader.
type Stats struct {
	FileTimestamps    KindStats
	FileHashes        KindStats
	ContextTimestamps KindStats
	ContextHashes     KindStats
	ContextTshs       KindStats
	ManagedItems      KindStats
	Accuracy          int64
}

// Stats returns a point-in-time view of the caches.
func (r *Reader) Stats() Stats {
	return Stats{
		FileTimestamps:    r.fileTimestamps.stats(),
		FileHashes:        r.fileHashes.stats(),
		ContextTimestamps: r.contextTimestamps.stats(),
		ContextHashes:     r.contextHashes.stats(),
		ContextTshs:       r.contextTshs.stats(),
		ManagedItems:      r.managedItems.stats(),
		Accuracy:          r.Accuracy(),
	}
}
