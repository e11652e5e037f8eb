// Package audio implements the playback engine's audio-source layer: the
// local-file and remote two-process pipelines that turn a track into a
// stream of raw PCM bytes, plus the error classification, retry, and
// telemetry glue shared across them.
package audio

import (
	"context"
	"io"
	"time"

	"github.com/kestrelfm/spindle/pkg/database/models"
)

// Source produces a stream of decoded PCM audio for exactly one track. The
// io.ReadCloser Open returns is single-use: once it has been closed (or
// fully drained), it must not be read from again. Open itself may be
// called again on the same Source after a failed attempt ends it — both
// LocalFileSource and RemoteSource reset their child-process state on
// every call — which is what lets pkg/session retry a failed open/stream
// without requesting a fresh Source from the loop's SourceFactory.
type Source interface {
	// Open starts whatever external process(es) the source needs and
	// returns a reader of raw little-endian s16 PCM at the decoder's
	// configured sample rate and channel count. Open must respect ctx
	// cancellation; a canceled context while starting returns ctx.Err().
	Open(ctx context.Context) (io.ReadCloser, error)

	// Close releases any resources Open allocated, terminating child
	// processes if they are still running. Close is idempotent.
	Close() error
}

// ErrorHandler classifies playback errors and computes retry delays
// (spec §7).
type ErrorHandler interface {
	HandleError(err error, context string) (shouldRetry bool, delay time.Duration)
	LogError(err error, context string)
	IsRetryableError(err error) bool
	GetRetryDelay(attempt int) time.Duration
	GetMaxRetries() int
	ShouldRetryAfterAttempts(attempts int, err error) bool
}

// MetricsCollector records playback-engine performance counters.
type MetricsCollector interface {
	RecordStartupTime(duration time.Duration)
	RecordError(errorType string)
	RecordPlaybackDuration(duration time.Duration)
	GetStats() MetricsStats
	IsHealthy() bool
}

// Repository persists telemetry (errors, metrics) emitted by the audio
// layer. A nil Repository is valid: callers must treat persistence as
// best-effort and never let a storage failure interrupt playback.
type Repository interface {
	SaveError(err *models.PlaybackError) error
	SaveMetric(metric *models.PlaybackMetric) error
	GetErrorStats(sessionID string) (*ErrorStats, error)
	GetMetricsStats(sessionID string) (*MetricsStats, error)
}

// MetricsStats is aggregated, point-in-time performance data.
type MetricsStats struct {
	TotalPlaybackTime  time.Duration `json:"total_playback_time"`
	AverageStartupTime time.Duration `json:"average_startup_time"`
	ErrorCount         int           `json:"error_count"`
	SuccessfulPlays    int           `json:"successful_plays"`
}

// ErrorStats is aggregated error data for a session.
type ErrorStats struct {
	TotalErrors   int                    `json:"total_errors"`
	ErrorsByType  map[string]int         `json:"errors_by_type"`
	RecentErrors  []models.PlaybackError `json:"recent_errors"`
	LastErrorTime time.Time              `json:"last_error_time"`
}
