package cache

import (
	"context"
	"sync"
	"time"

	"github.com/kestrelfm/spindle/pkg/track"
)

type memoryEntry struct {
	tracks    []track.Track
	expiresAt time.Time
}

// MemoryCache is an in-process RequestCache guarded by a single mutex,
// grounded on the same mutex-around-a-map shape the rest of this codebase
// uses for small, short-lived shared state.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
}

// NewMemoryCache creates an empty in-memory cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]memoryEntry)}
}

// TryGet returns the cached entry for key if present and unexpired.
func (c *MemoryCache) TryGet(ctx context.Context, key string) ([]track.Track, bool, error) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok || time.Now().After(entry.expiresAt) {
		return nil, false, nil
	}

	out := make([]track.Track, len(entry.tracks))
	copy(out, entry.tracks)
	return out, true, nil
}

// Set stores tracks under key with an absolute expiry of now+ttl.
func (c *MemoryCache) Set(ctx context.Context, key string, tracks []track.Track, ttl time.Duration) error {
	stored := make([]track.Track, len(tracks))
	copy(stored, tracks)

	c.mu.Lock()
	c.entries[key] = memoryEntry{tracks: stored, expiresAt: time.Now().Add(ttl)}
	c.mu.Unlock()
	return nil
}

// Close is a no-op; MemoryCache holds no external resources.
func (c *MemoryCache) Close() error {
	return nil
}

// Sweep drops every entry whose TTL has passed and returns the count
// removed, matching the Sweeper signature the cron janitor in sweep.go
// drives across all backends.
func (c *MemoryCache) Sweep(ctx context.Context) (int64, error) {
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()

	var removed int64
	for key, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed, nil
}
