package database

import (
	"time"

	"gorm.io/gorm"
)

// Manager wraps a GORM connection and exposes a generic, TTL-bearing
// key/value store on top of it. It backs the request cache's durable
// tier (pkg/cache) when the engine is configured against Postgres instead
// of the embedded sqlite backend.
type Manager struct {
	db *gorm.DB
}

// NewManager opens the cache_entries table against gormDB, creating it if
// it does not already exist.
func NewManager(gormDB *gorm.DB) (*Manager, error) {
	if err := gormDB.AutoMigrate(&CacheEntry{}); err != nil {
		return nil, err
	}
	return &Manager{db: gormDB}, nil
}

// Close closes the underlying database connection.
func (m *Manager) Close() error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Put upserts a cache entry under key, valid until expiresAt.
func (m *Manager) Put(key string, data []byte, expiresAt time.Time) error {
	entry := &CacheEntry{
		Key:       key,
		Data:      string(data),
		ExpiresAt: expiresAt,
	}
	return m.db.Save(entry).Error
}

// Get returns the cached payload for key, or ok=false if absent or expired.
func (m *Manager) Get(key string) (data []byte, ok bool, err error) {
	var entry CacheEntry
	res := m.db.Where("key = ? AND expires_at > ?", key, time.Now()).First(&entry)
	if res.Error == gorm.ErrRecordNotFound {
		return nil, false, nil
	}
	if res.Error != nil {
		return nil, false, res.Error
	}
	return []byte(entry.Data), true, nil
}

// Delete removes a cache entry, if present.
func (m *Manager) Delete(key string) error {
	return m.db.Where("key = ?", key).Delete(&CacheEntry{}).Error
}

// Sweep removes every entry whose expiry has passed and returns the count
// removed. Called periodically by pkg/cache's cron-driven janitor.
func (m *Manager) Sweep() (int64, error) {
	res := m.db.Where("expires_at <= ?", time.Now()).Delete(&CacheEntry{})
	return res.RowsAffected, res.Error
}

// Stats returns total/expired/active entry counts.
func (m *Manager) Stats() (map[string]interface{}, error) {
	var total, expired int64
	if err := m.db.Model(&CacheEntry{}).Count(&total).Error; err != nil {
		return nil, err
	}
	if err := m.db.Model(&CacheEntry{}).Where("expires_at <= ?", time.Now()).Count(&expired).Error; err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"total_entries":   total,
		"expired_entries": expired,
		"active_entries":  total - expired,
	}, nil
}

// CacheEntry is a single durable cache row.
type CacheEntry struct {
	ID        uint      `gorm:"primaryKey"`
	Key       string    `gorm:"column:key;uniqueIndex;not null"`
	Data      string    `gorm:"type:text;not null"`
	ExpiresAt time.Time `gorm:"index;not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// TableName specifies the table name for CacheEntry
func (CacheEntry) TableName() string {
	return "cache_entries"
}
