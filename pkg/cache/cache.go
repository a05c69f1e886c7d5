// Package cache provides a process-local TTL cache used by read paths to
// avoid redundant storage round-trips. Entries expire lazily on access;
// there is no background sweeper. The cache is scoped to one process's
// memory and resets on restart, so it must not be relied on across replicas.
package cache

import (
	"strings"
	"sync"
	"time"

	"github.com/tcgvault/tcgvault/pkg/observability"
)

type item struct {
	payload    interface{}
	ttl        time.Duration
	insertedAt time.Time
}

// Cache is a TTL-keyed in-memory store. Safe for concurrent use.
type Cache struct {
	mu    sync.Mutex
	items map[string]item
	now   func() time.Time
}

// New creates an empty cache
func New() *Cache {
	return &Cache{
		items: make(map[string]item),
		now:   time.Now,
	}
}

// Get returns the cached payload for key if present and fresh. A stale entry
// is evicted and reported as a miss.
func (c *Cache) Get(key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	it, ok := c.items[key]
	if !ok {
		observability.CacheRequestsTotal.WithLabelValues("miss").Inc()
		return nil, false
	}

	if c.now().Sub(it.insertedAt) > it.ttl {
		delete(c.items, key)
		observability.CacheRequestsTotal.WithLabelValues("miss").Inc()

		return nil, false
	}

	observability.CacheRequestsTotal.WithLabelValues("hit").Inc()

	return it.payload, true
}

// Set stores payload under key, overwriting any existing entry.
func (c *Cache) Set(key string, payload interface{}, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[key] = item{
		payload:    payload,
		ttl:        ttl,
		insertedAt: c.now(),
	}
}

// Clear removes all keys containing substr, or every key when substr is
// empty. Used to invalidate related read paths after a sync writes new data.
func (c *Cache) Clear(substr string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if substr == "" {
		c.items = make(map[string]item)
		return
	}

	for key := range c.items {
		if strings.Contains(key, substr) {
			delete(c.items, key)
		}
	}
}

// Len returns the number of entries currently held, including not-yet-evicted
// stale ones.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.items)
}
