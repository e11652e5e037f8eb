package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/kestrelfm/spindle/pkg/track"
)

// SQLiteCache is a disk-backed RequestCache using the pure-Go modernc.org
// sqlite driver, for engines that want cache persistence across restarts
// without standing up Postgres.
type SQLiteCache struct {
	db *sql.DB
}

// NewSQLiteCache opens (creating if necessary) a sqlite database at path
// and ensures its cache_entries table exists.
func NewSQLiteCache(path string) (*SQLiteCache, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("cache: open sqlite: %w", err)
	}

	const schema = `CREATE TABLE IF NOT EXISTS cache_entries (
		key TEXT PRIMARY KEY,
		data TEXT NOT NULL,
		expires_at INTEGER NOT NULL
	)`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("cache: create schema: %w", err)
	}

	return &SQLiteCache{db: db}, nil
}

// TryGet returns the cached track list for key, if present and unexpired.
func (c *SQLiteCache) TryGet(ctx context.Context, key string) ([]track.Track, bool, error) {
	row := c.db.QueryRowContext(ctx,
		`SELECT data, expires_at FROM cache_entries WHERE key = ?`, key)

	var data string
	var expiresAtUnix int64
	if err := row.Scan(&data, &expiresAtUnix); err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("cache: query: %w", err)
	}

	if time.Now().Unix() > expiresAtUnix {
		return nil, false, nil
	}

	var tracks []track.Track
	if err := json.Unmarshal([]byte(data), &tracks); err != nil {
		return nil, false, fmt.Errorf("cache: decode entry: %w", err)
	}
	return tracks, true, nil
}

// Set upserts tracks under key with an absolute expiry of now+ttl.
func (c *SQLiteCache) Set(ctx context.Context, key string, tracks []track.Track, ttl time.Duration) error {
	data, err := json.Marshal(tracks)
	if err != nil {
		return fmt.Errorf("cache: encode entry: %w", err)
	}

	expiresAt := time.Now().Add(ttl).Unix()
	_, err = c.db.ExecContext(ctx,
		`INSERT INTO cache_entries (key, data, expires_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET data = excluded.data, expires_at = excluded.expires_at`,
		key, string(data), expiresAt)
	if err != nil {
		return fmt.Errorf("cache: upsert: %w", err)
	}
	return nil
}

// Close closes the underlying database handle.
func (c *SQLiteCache) Close() error {
	return c.db.Close()
}

// Sweep deletes every row whose expiry has passed and returns the count
// removed.
func (c *SQLiteCache) Sweep(ctx context.Context) (int64, error) {
	res, err := c.db.ExecContext(ctx, `DELETE FROM cache_entries WHERE expires_at <= ?`, time.Now().Unix())
	if err != nil {
		return 0, fmt.Errorf("cache: sweep: %w", err)
	}
	return res.RowsAffected()
}
