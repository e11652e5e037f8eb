package audio

import (
	"time"

	"github.com/kestrelfm/spindle/pkg/database/models"
	"gorm.io/gorm"
)

// GormRepository implements Repository using GORM against the telemetry
// tables shared across the playback engine.
type GormRepository struct {
	db *gorm.DB
}

// NewGormRepository creates a Repository backed by db.
func NewGormRepository(db *gorm.DB) Repository {
	return &GormRepository{db: db}
}

// SaveError persists a PlaybackError row.
func (r *GormRepository) SaveError(playbackError *models.PlaybackError) error {
	return r.db.Create(playbackError).Error
}

// SaveMetric persists a PlaybackMetric row.
func (r *GormRepository) SaveMetric(metric *models.PlaybackMetric) error {
	return r.db.Create(metric).Error
}

// GetErrorStats aggregates error history for one playback session.
func (r *GormRepository) GetErrorStats(sessionID string) (*ErrorStats, error) {
	stats := &ErrorStats{
		ErrorsByType: make(map[string]int),
	}

	var totalErrors int64
	if err := r.db.Model(&models.PlaybackError{}).
		Where("session_id = ?", sessionID).
		Count(&totalErrors).Error; err != nil {
		return nil, err
	}
	stats.TotalErrors = int(totalErrors)

	var errorTypeCounts []struct {
		ErrorType string
		Count     int64
	}
	if err := r.db.Model(&models.PlaybackError{}).
		Select("error_type, COUNT(*) as count").
		Where("session_id = ?", sessionID).
		Group("error_type").
		Scan(&errorTypeCounts).Error; err != nil {
		return nil, err
	}
	for _, tc := range errorTypeCounts {
		stats.ErrorsByType[tc.ErrorType] = int(tc.Count)
	}

	twentyFourHoursAgo := time.Now().Add(-24 * time.Hour)
	var recentErrors []models.PlaybackError
	if err := r.db.Where("session_id = ? AND timestamp > ?", sessionID, twentyFourHoursAgo).
		Order("timestamp DESC").
		Limit(10).
		Find(&recentErrors).Error; err != nil {
		return nil, err
	}
	stats.RecentErrors = recentErrors

	var lastError models.PlaybackError
	if err := r.db.Where("session_id = ?", sessionID).
		Order("timestamp DESC").
		First(&lastError).Error; err != nil {
		if err != gorm.ErrRecordNotFound {
			return nil, err
		}
		stats.LastErrorTime = time.Time{}
	} else {
		stats.LastErrorTime = lastError.Timestamp
	}

	return stats, nil
}

// GetMetricsStats aggregates performance metrics for one playback session.
func (r *GormRepository) GetMetricsStats(sessionID string) (*MetricsStats, error) {
	stats := &MetricsStats{}

	var totalPlaybackSeconds float64
	if err := r.db.Model(&models.PlaybackMetric{}).
		Select("COALESCE(SUM(value), 0)").
		Where("session_id = ? AND metric_type = ?", sessionID, "playback_duration").
		Scan(&totalPlaybackSeconds).Error; err != nil {
		return nil, err
	}
	stats.TotalPlaybackTime = time.Duration(totalPlaybackSeconds * float64(time.Second))

	var avgStartupSeconds float64
	if err := r.db.Model(&models.PlaybackMetric{}).
		Select("COALESCE(AVG(value), 0)").
		Where("session_id = ? AND metric_type = ?", sessionID, "startup_time").
		Scan(&avgStartupSeconds).Error; err != nil {
		return nil, err
	}
	stats.AverageStartupTime = time.Duration(avgStartupSeconds * float64(time.Second))

	var errorCount int64
	if err := r.db.Model(&models.PlaybackError{}).
		Where("session_id = ?", sessionID).
		Count(&errorCount).Error; err != nil {
		return nil, err
	}
	stats.ErrorCount = int(errorCount)

	var successfulPlays int64
	if err := r.db.Model(&models.PlaybackMetric{}).
		Where("session_id = ? AND metric_type = ?", sessionID, "playback_duration").
		Count(&successfulPlays).Error; err != nil {
		return nil, err
	}
	stats.SuccessfulPlays = int(successfulPlays)

	return stats, nil
}
