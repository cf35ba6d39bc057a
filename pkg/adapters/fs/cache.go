package fs

import (
	"sync"
	"time"

	"github.com/aretw0/livelist/pkg/core"
)

// cacheEntry is the last parse of a single file.
type cacheEntry struct {
	Collection   string
	ID           string
	Fields       core.Fields
	LastModified time.Time
	Size         int64
}

// cache remembers parsed files by relative path so rescans and the echo of
// our own writes do not parse unchanged files again.
type cache struct {
	mu      sync.RWMutex
	entries map[string]*cacheEntry // key is relative slash path, e.g. "tasks/a.json"
	hits    uint64
	misses  uint64
}

func newCache() *cache {
	return &cache{entries: make(map[string]*cacheEntry)}
}

// Get retrieves an entry if it exists and matches the file's mtime and size.
func (c *cache) Get(relPath string, mtime time.Time, size int64) (*cacheEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[relPath]
	if !ok || !entry.LastModified.Equal(mtime) || entry.Size != size {
		c.misses++
		return nil, false
	}
	c.hits++
	return entry, true
}

// Lookup returns the entry for relPath regardless of freshness.
func (c *cache) Lookup(relPath string) (*cacheEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[relPath]
	return entry, ok
}

// Set updates an entry in the cache.
func (c *cache) Set(relPath string, entry *cacheEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[relPath] = entry
}

// Delete removes a single entry from the cache.
func (c *cache) Delete(relPath string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, relPath)
}

// Prune removes entries that are not in the keep set and returns them.
func (c *cache) Prune(keep map[string]bool) map[string]*cacheEntry {
	c.mu.Lock()
	defer c.mu.Unlock()

	pruned := make(map[string]*cacheEntry)
	for path, entry := range c.entries {
		if !keep[path] {
			pruned[path] = entry
			delete(c.entries, path)
		}
	}
	return pruned
}

// Find returns the relative path holding a document.
func (c *cache) Find(collection, id string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for path, entry := range c.entries {
		if entry.Collection == collection && entry.ID == id {
			return path, true
		}
	}
	return "", false
}

// Len returns the number of entries in the cache.
func (c *cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *cache) stats() (hits, misses uint64) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits, c.misses
}
