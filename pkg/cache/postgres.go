package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kestrelfm/spindle/pkg/database"
	"github.com/kestrelfm/spindle/pkg/track"
)

// PostgresCache adapts pkg/database.Manager's generic durable key/value
// store to RequestCache, JSON-encoding track lists into its opaque byte
// payload. This is the optional durable tier beyond the two backends
// config.CacheConfig enumerates (memory, sqlite) — useful when the engine
// already runs a Postgres instance for telemetry and would rather not add
// a second storage engine just for the cache.
type PostgresCache struct {
	manager *database.Manager
}

// NewPostgresCache wraps an already-open database.Manager as a RequestCache.
func NewPostgresCache(manager *database.Manager) *PostgresCache {
	return &PostgresCache{manager: manager}
}

// TryGet returns the cached track list for key, if present and unexpired.
func (c *PostgresCache) TryGet(ctx context.Context, key string) ([]track.Track, bool, error) {
	data, ok, err := c.manager.Get(key)
	if err != nil {
		return nil, false, fmt.Errorf("cache: get: %w", err)
	}
	if !ok {
		return nil, false, nil
	}

	var tracks []track.Track
	if err := json.Unmarshal(data, &tracks); err != nil {
		return nil, false, fmt.Errorf("cache: decode entry: %w", err)
	}
	return tracks, true, nil
}

// Set upserts tracks under key with an absolute expiry of now+ttl.
func (c *PostgresCache) Set(ctx context.Context, key string, tracks []track.Track, ttl time.Duration) error {
	data, err := json.Marshal(tracks)
	if err != nil {
		return fmt.Errorf("cache: encode entry: %w", err)
	}
	if err := c.manager.Put(key, data, time.Now().Add(ttl)); err != nil {
		return fmt.Errorf("cache: put: %w", err)
	}
	return nil
}

// Close closes the underlying database connection.
func (c *PostgresCache) Close() error {
	return c.manager.Close()
}

// Sweep deletes every expired row and returns the count removed, mirroring
// SQLiteCache.Sweep and MemoryCache.Sweep for the cron janitor in sweep.go.
func (c *PostgresCache) Sweep(ctx context.Context) (int64, error) {
	return c.manager.Sweep()
}
