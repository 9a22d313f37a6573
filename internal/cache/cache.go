// Package cache implements the byte-budgeted sound data cache. Entries are
// evicted in insertion order (oldest first) when an insert would exceed the
// budget.
package cache

import (
	"log/slog"
	"sync"

	"github.com/dustin/go-humanize"
)

// Cache stores raw loaded media bytes keyed by sound id under a byte budget.
// All methods are safe for concurrent use.
type Cache struct {
	mu      sync.Mutex
	maxSize int
	curSize int
	entries map[string][]byte
	order   []string // insertion order, oldest first
}

// New creates a cache with the given byte budget.
func New(maxSize int) *Cache {
	return &Cache{
		maxSize: maxSize,
		entries: make(map[string][]byte),
	}
}

// Set stores data under key, evicting oldest entries as needed. It returns
// false without mutating the cache when a single item exceeds the whole
// budget; that is an expected, recoverable condition, not an error.
func (c *Cache) Set(key string, data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(data) > c.maxSize {
		slog.Debug("cache: item exceeds budget, rejected",
			"key", key, "size", humanize.IBytes(uint64(len(data))), "budget", humanize.IBytes(uint64(c.maxSize)))
		return false
	}

	if old, ok := c.entries[key]; ok {
		c.curSize -= len(old)
		delete(c.entries, key)
		c.removeFromOrder(key)
	}

	for c.curSize+len(data) > c.maxSize && len(c.order) > 0 {
		oldest := c.order[0]
		c.order = c.order[1:]
		evicted := c.entries[oldest]
		delete(c.entries, oldest)
		c.curSize -= len(evicted)
		slog.Debug("cache: evicted", "key", oldest, "size", humanize.IBytes(uint64(len(evicted))))
	}

	c.entries[key] = data
	c.order = append(c.order, key)
	c.curSize += len(data)
	return true
}

// Get returns the data stored under key.
func (c *Cache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, ok := c.entries[key]
	return data, ok
}

// Has reports whether key is present.
func (c *Cache) Has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[key]
	return ok
}

// Delete removes key, reporting whether it was present.
func (c *Cache) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, ok := c.entries[key]
	if !ok {
		return false
	}
	delete(c.entries, key)
	c.removeFromOrder(key)
	c.curSize -= len(data)
	return true
}

// Clear resets the cache to empty.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string][]byte)
	c.order = nil
	c.curSize = 0
}

// Size returns the current byte usage.
func (c *Cache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.curSize
}

// MaxSize returns the byte budget.
func (c *Cache) MaxSize() int { return c.maxSize }

// Len returns the number of stored entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// UsageRate returns currentSize / maxSize.
func (c *Cache) UsageRate() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.maxSize == 0 {
		return 0
	}
	return float64(c.curSize) / float64(c.maxSize)
}

func (c *Cache) removeFromOrder(key string) {
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}
