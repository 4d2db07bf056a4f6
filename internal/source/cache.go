package source

import (
	"sync"

	"poolpulse/pkg/models"
)

// Cache is the session-scoped response cache shared by the adapters. Keys are
// populated once per session and never expire; Clear forces the next fetch of
// any key back to the network. Concurrent population of the same key is
// harmless, last write wins.
type Cache struct {
	mu      sync.RWMutex
	entries map[string][]models.RawPool
}

// NewCache creates an empty response cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string][]models.RawPool)}
}

// Get returns the cached records for key, if present.
func (c *Cache) Get(key string) ([]models.RawPool, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	records, ok := c.entries[key]
	return records, ok
}

// Set stores records under key, replacing any previous entry.
func (c *Cache) Set(key string, records []models.RawPool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = records
}

// Clear drops every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string][]models.RawPool)
}

// Len returns the number of cached keys.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
