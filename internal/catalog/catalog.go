// Package catalog caches store schema snapshots.
//
// A snapshot is fetched at most once per query; between queries it is served
// from a process-wide TTL cache keyed by connection identity. Entries are
// immutable once written and simply expire — concurrent readers only need
// the mutex, no transactional semantics.
package catalog

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sqlsage/sqlsage/internal/store"
	"github.com/sqlsage/sqlsage/pkg/models"
)

// DefaultTTL bounds snapshot reuse when no TTL is configured.
const DefaultTTL = 5 * time.Minute

// Cache is a TTL-expiring snapshot cache keyed by connection identity.
type Cache struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.RWMutex
	entries map[string]entry
}

type entry struct {
	snapshot *models.CatalogSnapshot
	storedAt time.Time
}

// NewCache creates a cache with the given TTL (DefaultTTL when ttl <= 0).
func NewCache(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]entry),
	}
}

// Snapshot returns the cached snapshot for the adapter's connection, fetching
// a fresh one when the cache is cold or the entry has expired.
func (c *Cache) Snapshot(ctx context.Context, adapter store.Adapter) (*models.CatalogSnapshot, error) {
	if adapter == nil {
		return nil, store.ErrNotConfigured
	}
	key := adapter.Identity()

	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if ok && c.now().Sub(e.storedAt) < c.ttl {
		return e.snapshot, nil
	}

	snapshot, err := adapter.FetchCatalog(ctx)
	if err != nil {
		return nil, err
	}
	if snapshot.FetchedAt.IsZero() {
		snapshot.FetchedAt = c.now().UTC()
	}

	c.mu.Lock()
	c.entries[key] = entry{snapshot: snapshot, storedAt: c.now()}
	c.mu.Unlock()

	log.Debug().Str("connection", key).Int("tables", len(snapshot.Tables)).Msg("catalog snapshot refreshed")
	return snapshot, nil
}

// Invalidate drops the cached entry for one connection.
func (c *Cache) Invalidate(identity string) {
	c.mu.Lock()
	delete(c.entries, identity)
	c.mu.Unlock()
}
