package history

import (
	"sync"

	"github.com/Dshy007/blockassign/core/model"
)

// Cache memoizes per-driver statistics for the duration of one run. Extraction
// walks the full record list, so scoring the same driver against dozens of
// blocks must not redo it each time.
type Cache struct {
	mu sync.Mutex
	m  map[string]*Stats
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{m: make(map[string]*Stats)}
}

// Get returns the cached statistics for the driver, extracting them from the
// records on first access.
func (c *Cache) Get(driverID string, recs []model.AssignmentRecord) *Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s, ok := c.m[driverID]; ok {
		return s
	}
	s := Extract(driverID, recs)
	c.m[driverID] = s
	return s
}

// Len reports how many drivers have been extracted so far.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.m)
}
