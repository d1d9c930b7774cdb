// Package cache holds classification outcomes for the life of the process.
package cache

import (
	"sync"

	"github.com/sells-group/missedcall/internal/model"
)

// Cache maps a normalized phone number to its outcome. Entries never expire
// and are never evicted. Safe for concurrent use.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]model.Outcome
}

// New returns an empty cache.
func New() *Cache {
	return &Cache{entries: make(map[string]model.Outcome)}
}

// Lookup returns the stored outcome for phone.
func (c *Cache) Lookup(phone string) (model.Outcome, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	o, ok := c.entries[phone]
	return o, ok
}

// Store records the outcome for phone, replacing any previous entry.
func (c *Cache) Store(phone string, o model.Outcome) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[phone] = o
}

// Partition splits phones into cached outcomes and the misses still to query,
// preserving the order of misses.
func (c *Cache) Partition(phones []string) (map[string]model.Outcome, []string) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	hits := make(map[string]model.Outcome)
	var misses []string
	for _, p := range phones {
		if o, ok := c.entries[p]; ok {
			hits[p] = o
			continue
		}
		misses = append(misses, p)
	}
	return hits, misses
}

// Len returns the number of cached phones.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
