package catalog

import (
	"fmt"
	"sync"
)

// queryCache provides thread-safe caching of cone search results within a
// sweep. Entries are immutable once written: fixed coordinates and fixed
// parameters always describe the same query, so the first result stands.
type queryCache struct {
	entries map[string][]Source
	mu      sync.RWMutex
}

func newQueryCache() *queryCache {
	return &queryCache{
		entries: make(map[string][]Source),
	}
}

// cacheKey identifies a query by everything that shapes its result set:
// position, field of view, catalog, and the catalog's matching parameters.
func cacheKey(q Querier, ra, dec, fov float64) string {
	return fmt.Sprintf("%s|%.8f|%.8f|%.3f|%s", q.Name(), ra, dec, fov, q.Params())
}

// get retrieves cached sources for a key.
func (c *queryCache) get(key string) ([]Source, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	sources, exists := c.entries[key]
	return sources, exists
}

// set stores sources for a key. A key already present keeps its original
// value.
func (c *queryCache) set(key string, sources []Source) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; exists {
		return
	}
	c.entries[key] = sources
}

// size returns the number of cached queries.
func (c *queryCache) size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
