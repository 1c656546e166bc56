package main

import "sync"

type cacheEntry[V any] struct {
	value   V
	version int64
	seq     uint64
}

// resultCache keeps up to limit entries and evicts the oldest insert on
// overflow. A lookup only hits when the stored version matches, which lets
// callers invalidate entries by file mtime.
type resultCache[V any] struct {
	mu      sync.RWMutex
	limit   int
	nextSeq uint64
	entries map[string]cacheEntry[V]
}

func newResultCache[V any](limit int) *resultCache[V] {
	return &resultCache[V]{limit: limit, entries: make(map[string]cacheEntry[V])}
}

func (c *resultCache[V]) load(key string, version int64) (V, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || entry.version != version {
		var zero V
		return zero, false
	}

	return entry.value, true
}

func (c *resultCache[V]) store(key string, version int64, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextSeq++
	c.entries[key] = cacheEntry[V]{value: value, version: version, seq: c.nextSeq}
	if len(c.entries) <= c.limit {
		return
	}

	oldestKey := ""
	var oldestSeq uint64
	for key, entry := range c.entries {
		if oldestKey == "" || entry.seq < oldestSeq {
			oldestKey = key
			oldestSeq = entry.seq
		}
	}
	delete(c.entries, oldestKey)
}

func (c *resultCache[V]) size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *resultCache[V]) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.entries)
}
