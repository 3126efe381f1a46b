package assetdb

import (
	"context"
	"sync"
	"time"
)

// DefaultCacheLifetime is how long a cached lookup stays valid.
const DefaultCacheLifetime = 120 * time.Second

type cacheKey struct {
	project string
	name    string
}

type cacheItem struct {
	doc     *AssetDoc
	updated time.Time
}

// CacheOption configures Cached.
type CacheOption func(*Cached)

// WithLifetime overrides DefaultCacheLifetime. Non-positive values are ignored.
func WithLifetime(lifetime time.Duration) CacheOption {
	return func(c *Cached) {
		if lifetime > 0 {
			c.lifetime = lifetime
		}
	}
}

// WithClock replaces time.Now (primarily for tests).
func WithClock(now func() time.Time) CacheOption {
	return func(c *Cached) {
		if now != nil {
			c.now = now
		}
	}
}

// Cached memoizes AssetByName results, misses included, for a bounded
// lifetime. Errors are never cached.
type Cached struct {
	db       Database
	lifetime time.Duration
	now      func() time.Time

	mu    sync.Mutex
	items map[cacheKey]cacheItem
}

// NewCached wraps db.
func NewCached(db Database, opts ...CacheOption) *Cached {
	c := &Cached{
		db:       db,
		lifetime: DefaultCacheLifetime,
		now:      time.Now,
		items:    make(map[cacheKey]cacheItem),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Cached) AssetByName(ctx context.Context, project, name string) (*AssetDoc, error) {
	key := cacheKey{project: project, name: name}
	c.mu.Lock()
	item, ok := c.items[key]
	c.mu.Unlock()
	if ok && c.valid(item) {
		return cloneDoc(item.doc), nil
	}

	doc, err := c.db.AssetByName(ctx, project, name)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.items[key] = cacheItem{doc: cloneDoc(doc), updated: c.now()}
	c.mu.Unlock()
	return doc, nil
}

// Reset drops every cached entry.
func (c *Cached) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[cacheKey]cacheItem)
}

func (c *Cached) valid(item cacheItem) bool {
	return c.now().Sub(item.updated) < c.lifetime
}
