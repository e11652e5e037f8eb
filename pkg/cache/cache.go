// Package cache implements the playback engine's advisory request cache
// (spec §4.G): an opaque string-keyed store of resolved track lists with an
// absolute TTL. Every backend treats failures as best-effort — callers log
// and move on rather than propagating a cache error into a user-facing
// failure.
package cache

import (
	"context"
	"time"

	"github.com/kestrelfm/spindle/pkg/track"
)

// RequestCache stores resolved track lists under opaque keys so repeated
// requests for the same video or playlist skip a fetcher round-trip.
// Implementations provide no durability or consistency guarantees beyond
// at-most-once best-effort.
type RequestCache interface {
	// TryGet returns the cached track list for key, if present and not
	// expired. A miss (including an expired entry) returns ok=false and a
	// nil error; only a genuine backend failure returns a non-nil error,
	// and even then callers are expected to treat it as a miss.
	TryGet(ctx context.Context, key string) (tracks []track.Track, ok bool, err error)

	// Set stores tracks under key with the given absolute TTL, overwriting
	// any existing entry.
	Set(ctx context.Context, key string, tracks []track.Track, ttl time.Duration) error

	// Close releases any resources the backend holds (e.g. a database
	// handle). Idempotent.
	Close() error
}
