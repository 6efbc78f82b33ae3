package phase

import (
	"sync"

	"github.com/jthadison/bmad4-wyck-vol-sub011/models"
)

type cacheKey struct {
	symbol   string
	barCount int
}

// Cache stores classifications keyed by (symbol, bar count). Results are
// deterministic for identical inputs, so concurrent writers for the same
// key resolve by last-write-wins.
type Cache struct {
	mu      sync.RWMutex
	entries map[cacheKey]*models.PhaseClassification
}

// NewCache creates an empty classification cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[cacheKey]*models.PhaseClassification)}
}

// Get returns the cached classification for an unchanged bar count, or nil.
func (c *Cache) Get(symbol string, barCount int) *models.PhaseClassification {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.entries[cacheKey{symbol, barCount}]
}

// Put stores a classification.
func (c *Cache) Put(cls *models.PhaseClassification) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[cacheKey{cls.Symbol, cls.BarCount}] = cls
}

// Invalidate drops every cached entry for a symbol. Called when a new bar
// arrives for the symbol.
func (c *Cache) Invalidate(symbol string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.entries {
		if k.symbol == symbol {
			delete(c.entries, k)
		}
	}
}

// Len reports the number of cached entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
