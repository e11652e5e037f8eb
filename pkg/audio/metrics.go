package audio

import (
	"sync"
	"time"
)

// BasicMetrics implements MetricsCollector with in-memory counters backed by
// best-effort persistence through a Repository.
type BasicMetrics struct {
	repository Repository
	sessionID  string

	startupTimes  []time.Duration
	errorCounts   map[string]int
	playbackTimes []time.Duration
	mu            sync.RWMutex
}

// NewBasicMetrics creates a metrics collector scoped to one playback session.
// repository may be nil, in which case metrics are kept in memory only.
func NewBasicMetrics(repository Repository, sessionID string) MetricsCollector {
	return &BasicMetrics{
		repository:    repository,
		sessionID:     sessionID,
		startupTimes:  make([]time.Duration, 0),
		errorCounts:   make(map[string]int),
		playbackTimes: make([]time.Duration, 0),
	}
}

// RecordStartupTime records the startup latency of one playback attempt
// (the session measures it as the time Source.Open takes to return).
func (m *BasicMetrics) RecordStartupTime(duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.startupTimes = append(m.startupTimes, duration)

	if m.repository != nil {
		metric := NewPlaybackMetric(m.sessionID, "startup_time", duration.Seconds())
		_ = m.repository.SaveMetric(metric)
	}
}

// RecordError increments the error counter for errorType and, if a
// repository is configured, persists both a metric sample and an error
// record.
func (m *BasicMetrics) RecordError(errorType string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.errorCounts[errorType]++

	if m.repository == nil {
		return
	}

	metric := NewPlaybackMetric(m.sessionID, "error_count", 1.0)
	_ = m.repository.SaveMetric(metric)

	playbackErr := NewPlaybackError(m.sessionID, errorType, "error recorded by metrics collector", "metrics")
	_ = m.repository.SaveError(playbackErr)
}

// RecordPlaybackDuration records the elapsed duration of a completed
// playback.
func (m *BasicMetrics) RecordPlaybackDuration(duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.playbackTimes = append(m.playbackTimes, duration)

	if m.repository != nil {
		metric := NewPlaybackMetric(m.sessionID, "playback_duration", duration.Seconds())
		_ = m.repository.SaveMetric(metric)
	}
}

// GetStats returns aggregated statistics, preferring the repository's
// historical view when available.
func (m *BasicMetrics) GetStats() MetricsStats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := MetricsStats{
		SuccessfulPlays: len(m.playbackTimes),
		ErrorCount:      m.totalErrorCount(),
	}

	if len(m.startupTimes) > 0 {
		var total time.Duration
		for _, d := range m.startupTimes {
			total += d
		}
		stats.AverageStartupTime = total / time.Duration(len(m.startupTimes))
	}

	if len(m.playbackTimes) > 0 {
		var total time.Duration
		for _, d := range m.playbackTimes {
			total += d
		}
		stats.TotalPlaybackTime = total
	}

	if m.repository != nil {
		if dbStats, err := m.repository.GetMetricsStats(m.sessionID); err == nil {
			stats.TotalPlaybackTime = dbStats.TotalPlaybackTime
			stats.AverageStartupTime = dbStats.AverageStartupTime
			stats.ErrorCount = dbStats.ErrorCount
			stats.SuccessfulPlays = dbStats.SuccessfulPlays
		}
	}

	return stats
}

// GetErrorBreakdown returns a copy of the in-memory error counts by type.
func (m *BasicMetrics) GetErrorBreakdown() map[string]int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	breakdown := make(map[string]int, len(m.errorCounts))
	for errorType, count := range m.errorCounts {
		breakdown[errorType] = count
	}
	return breakdown
}

func (m *BasicMetrics) totalErrorCount() int {
	total := 0
	for _, count := range m.errorCounts {
		total += count
	}
	return total
}

func (m *BasicMetrics) successRate() float64 {
	totalAttempts := len(m.playbackTimes) + m.totalErrorCount()
	if totalAttempts == 0 {
		return 0.0
	}
	return (float64(len(m.playbackTimes)) / float64(totalAttempts)) * 100.0
}

func (m *BasicMetrics) mostCommonError() (string, int) {
	var mostCommon string
	var maxCount int
	for errorType, count := range m.errorCounts {
		if count > maxCount {
			maxCount = count
			mostCommon = errorType
		}
	}
	return mostCommon, maxCount
}

// IsHealthy reports whether the session's recent performance looks sane:
// a success rate above 80% once enough samples exist, no single error type
// dominating, and startup times under ten seconds on average.
func (m *BasicMetrics) IsHealthy() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.successRate() < 80.0 && len(m.playbackTimes) > 5 {
		return false
	}

	totalErrors := m.totalErrorCount()
	if totalErrors > 10 {
		_, maxCount := m.mostCommonError()
		if float64(maxCount)/float64(totalErrors) > 0.5 {
			return false
		}
	}

	if len(m.startupTimes) > 0 {
		var total time.Duration
		for _, d := range m.startupTimes {
			total += d
		}
		if total/time.Duration(len(m.startupTimes)) > 10*time.Second {
			return false
		}
	}

	return true
}
