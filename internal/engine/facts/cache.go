package facts

import (
	"sync"
	"sync/atomic"
)

// cache is a memo table for one fact kind. Absent paths are cached too, as the
// zero value of T.
type cache[T any] struct {
	mu      sync.RWMutex
	entries map[string]T
	hits    atomic.Int64
	misses  atomic.Int64
}

func newCache[T any]() *cache[T] {
	return &cache[T]{entries: make(map[string]T)}
}

// get looks up path and records a hit or a miss.
func (c *cache[T]) get(path string) (T, bool) {
	v, ok := c.peek(path)
	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return v, ok
}

// peek looks up path without touching the counters.
func (c *cache[T]) peek(path string) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.entries[path]
	return v, ok
}

func (c *cache[T]) set(path string, v T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[path] = v
}

func (c *cache[T]) setAll(m map[string]T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, v := range m {
		c.entries[k] = v
	}
}

// deleteFunc removes every entry whose path matches.
func (c *cache[T]) deleteFunc(match func(path string) bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.entries {
		if match(k) {
			delete(c.entries, k)
		}
	}
}

func (c *cache[T]) len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *cache[T]) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.entries)
}

func (c *cache[T]) stats() KindStats {
	return KindStats{
		Entries: c.len(),
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
	}
}
