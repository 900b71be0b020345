// Package cache is a TTL key/value cache kept in the unified_cache namespace.
// Entries survive restarts; an expired entry behaves as missing and is purged
// on the lookup that notices it.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/cardsync/internal/client/models"
	"github.com/dmitrijs2005/cardsync/internal/client/repositories/kv"
	"github.com/dmitrijs2005/cardsync/internal/common"
)

// Cache serializes its writes with mu; a lookup that purges an expired entry
// holds it from the read to the delete.
type Cache struct {
	mu   sync.Mutex
	repo kv.Repository
	now  func() time.Time
}

type Option func(*Cache)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

func New(repo kv.Repository, opts ...Option) *Cache {
	c := &Cache{repo: repo, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetCached stores value, JSON-encoded, until now+ttl.
func (c *Cache) SetCached(ctx context.Context, key string, value any, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("cache %q: %w: %s", key, common.ErrInvalidTTL, ttl)
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return common.StorageFault("encode cache value", err)
	}
	entry := models.CacheEntry{
		Key:       key,
		Value:     raw,
		ExpiresAt: c.now().UTC().Add(ttl),
	}
	blob, err := json.Marshal(entry)
	if err != nil {
		return common.StorageFault("encode cache entry", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.repo.Set(ctx, common.NamespaceCache, key, blob); err != nil {
		return common.StorageFault("write cache entry", err)
	}
	return nil
}

// GetCached returns the raw JSON value for key. found is false for missing,
// expired and undecodable entries; the latter two are removed.
func (c *Cache) GetCached(ctx context.Context, key string) (value json.RawMessage, found bool, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	blob, err := c.repo.Get(ctx, common.NamespaceCache, key)
	if err != nil {
		return nil, false, common.StorageFault("read cache entry", err)
	}
	if blob == nil {
		return nil, false, nil
	}

	var entry models.CacheEntry
	if err := json.Unmarshal(blob, &entry); err != nil {
		return nil, false, c.purge(ctx, key)
	}
	if !c.now().Before(entry.ExpiresAt) {
		return nil, false, c.purge(ctx, key)
	}
	return entry.Value, true, nil
}

// Clear drops every entry.
func (c *Cache) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.repo.Clear(ctx, common.NamespaceCache); err != nil {
		return common.StorageFault("clear cache", err)
	}
	return nil
}

// purge must be called with mu held.
func (c *Cache) purge(ctx context.Context, key string) error {
	if err := c.repo.Delete(ctx, common.NamespaceCache, key); err != nil {
		return common.StorageFault("purge cache entry", err)
	}
	return nil
}
