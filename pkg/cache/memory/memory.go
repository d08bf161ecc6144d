// Package memory provides the in-process cache backend: a bounded map
// with per-entry TTL and least-recently-used eviction.
package memory

import (
	"container/list"
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chatcore-ai/chatcore/pkg/cache"
	"github.com/chatcore-ai/chatcore/pkg/models"
)

// DefaultMaxEntries bounds the cache when no limit is configured.
const DefaultMaxEntries = 1024

type item struct {
	key       string
	entry     models.CacheEntry
	expiresAt time.Time
}

// Cache is a bounded in-process LRU cache with TTL expiry.
type Cache struct {
	mu         sync.Mutex
	maxEntries int
	ll         *list.List
	items      map[string]*list.Element

	hits   atomic.Int64
	misses atomic.Int64
}

var _ cache.Cache = (*Cache)(nil)

// New creates a Cache bounded to maxEntries. Non-positive values fall
// back to DefaultMaxEntries.
func New(maxEntries int) *Cache {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &Cache{
		maxEntries: maxEntries,
		ll:         list.New(),
		items:      make(map[string]*list.Element),
	}
}

// Startup implements cache.Cache. Nothing to prepare.
func (c *Cache) Startup(ctx context.Context) error { return nil }

// Shutdown drops all entries.
func (c *Cache) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ll.Init()
	c.items = make(map[string]*list.Element)
	return nil
}

// Get returns the entry for key if present and not expired. Expired
// entries are dropped lazily here rather than by a background sweeper.
func (c *Cache) Get(ctx context.Context, key string) (*models.CacheEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		c.misses.Add(1)
		return nil, false
	}

	it := elem.Value.(*item)
	if time.Now().After(it.expiresAt) {
		c.removeElement(elem)
		c.misses.Add(1)
		return nil, false
	}

	c.ll.MoveToFront(elem)
	c.hits.Add(1)
	entry := it.entry
	return &entry, true
}

// Set stores entry under key for ttl, evicting the least recently used
// entry when the cache is full.
func (c *Cache) Set(ctx context.Context, key string, entry *models.CacheEntry, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	expiresAt := time.Now().Add(ttl)
	if elem, ok := c.items[key]; ok {
		it := elem.Value.(*item)
		it.entry = *entry
		it.expiresAt = expiresAt
		c.ll.MoveToFront(elem)
		return nil
	}

	elem := c.ll.PushFront(&item{key: key, entry: *entry, expiresAt: expiresAt})
	c.items[key] = elem

	if c.ll.Len() > c.maxEntries {
		if oldest := c.ll.Back(); oldest != nil {
			c.removeElement(oldest)
		}
	}
	return nil
}

// Stats returns cache performance counters.
func (c *Cache) Stats() models.CacheStats {
	c.mu.Lock()
	entries := int64(c.ll.Len())
	c.mu.Unlock()
	return models.CacheStats{
		Entries: entries,
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
	}
}

// Len returns the current number of entries, expired or not.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}

func (c *Cache) removeElement(elem *list.Element) {
	c.ll.Remove(elem)
	delete(c.items, elem.Value.(*item).key)
}
