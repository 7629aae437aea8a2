package usgs

import (
	"context"
	"sync"

	"github.com/riverwatch/flood-risk-service/internal/domain"
)

// SiteCatalog resolves static metadata for gauge sites.
type SiteCatalog interface {
	SiteInfo(ctx context.Context, siteCode string) (domain.SiteInfo, error)
}

// CachedCatalog wraps a SiteCatalog with an in-memory LRU cache. Site
// metadata changes on a geological timescale, so entries never expire.
type CachedCatalog struct {
	inner   SiteCatalog
	cache   *lruCache
	onEvent func(result string) // cache hit/miss observer, may be nil
}

// NewCachedCatalog creates a cache decorator around a site catalog.
func NewCachedCatalog(inner SiteCatalog, maxEntries int) *CachedCatalog {
	return &CachedCatalog{
		inner: inner,
		cache: newLRUCache(maxEntries),
	}
}

// OnCacheEvent registers an observer called with "hit" or "miss" on every
// lookup. Used to feed the site-cache metric.
func (c *CachedCatalog) OnCacheEvent(fn func(result string)) {
	c.onEvent = fn
}

func (c *CachedCatalog) SiteInfo(ctx context.Context, siteCode string) (domain.SiteInfo, error) {
	if info, ok := c.cache.get(siteCode); ok {
		c.notify("hit")
		return info, nil
	}
	c.notify("miss")

	info, err := c.inner.SiteInfo(ctx, siteCode)
	if err != nil {
		return info, err
	}
	// Only cache resolved sites so transient failures can be retried.
	if info.Code != "" {
		c.cache.put(siteCode, info)
	}
	return info, nil
}

func (c *CachedCatalog) notify(result string) {
	if c.onEvent != nil {
		c.onEvent(result)
	}
}

// lruCache is a simple thread-safe LRU cache for SiteInfo values.
type lruCache struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*entry
	head       *entry // most recently used
	tail       *entry // least recently used
}

type entry struct {
	key   string
	value domain.SiteInfo
	prev  *entry
	next  *entry
}

func newLRUCache(maxEntries int) *lruCache {
	return &lruCache{
		maxEntries: maxEntries,
		entries:    make(map[string]*entry),
	}
}

func (c *lruCache) get(key string) (domain.SiteInfo, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return domain.SiteInfo{}, false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *lruCache) put(key string, value domain.SiteInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		c.moveToFront(e)
		return
	}

	e := &entry{key: key, value: value}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

func (c *lruCache) moveToFront(e *entry) {
	if e == c.head {
		return
	}
	c.remove(e)
	c.addToFront(e)
}

func (c *lruCache) addToFront(e *entry) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *lruCache) remove(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}

func (c *lruCache) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.remove(c.tail)
}
