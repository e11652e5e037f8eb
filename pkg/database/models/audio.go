package models

import (
	"time"

	"github.com/google/uuid"
)

// PlaybackError represents an error surfaced by any playback-engine
// component (source, sink, session, resolver).
type PlaybackError struct {
	ID        uuid.UUID `gorm:"primaryKey" json:"id"`
	SessionID string    `gorm:"index;not null" json:"session_id"`
	ErrorType string    `gorm:"index;not null" json:"error_type"`
	ErrorMsg  string    `gorm:"type:text;not null" json:"error_msg"`
	Context   string    `gorm:"type:text" json:"context"`
	Timestamp time.Time `gorm:"index;not null" json:"timestamp"`
	Resolved  bool      `gorm:"default:false" json:"resolved"`
}

// PlaybackMetric represents a performance measurement emitted by the
// playback engine (startup latency, underrun count, session duration).
type PlaybackMetric struct {
	ID         uuid.UUID `gorm:"primaryKey" json:"id"`
	SessionID  string    `gorm:"index;not null" json:"session_id"`
	MetricType string    `gorm:"index;not null" json:"metric_type"`
	Value      float64   `gorm:"not null" json:"value"`
	Timestamp  time.Time `gorm:"index;not null" json:"timestamp"`
}

// PlaybackLog represents one persisted log entry from any component logger.
type PlaybackLog struct {
	ID          uuid.UUID              `gorm:"primaryKey" json:"id"`
	SessionID   string                 `gorm:"index" json:"session_id"`
	TrackURI    string                 `gorm:"index" json:"track_uri"`
	RequestedBy string                 `gorm:"index" json:"requested_by"`
	Component   string                 `gorm:"index;not null;default:'session'" json:"component"`
	Level       string                 `gorm:"index;not null" json:"level"`
	Message     string                 `gorm:"type:text;not null" json:"message"`
	Error       string                 `gorm:"type:text" json:"error"`
	Fields      map[string]interface{} `gorm:"serializer:json" json:"fields"`
	Timestamp   time.Time              `gorm:"index;not null" json:"timestamp"`
}

// TableName returns the table name for PlaybackError
func (PlaybackError) TableName() string {
	return "playback_errors"
}

// TableName returns the table name for PlaybackMetric
func (PlaybackMetric) TableName() string {
	return "playback_metrics"
}

// TableName returns the table name for PlaybackLog
func (PlaybackLog) TableName() string {
	return "playback_logs"
}
