package logging

import "time"

// LogEntry is one persisted log line. Component loggers populate the
// generic Fields map; SessionID/TrackURI/RequestedBy are promoted to their
// own columns by a LogRepository because they are the dimensions the
// telemetry store is queried by most often.
type LogEntry struct {
	SessionID   string
	TrackURI    string
	RequestedBy string
	Component   string
	Level       string
	Message     string
	Error       string
	Fields      map[string]interface{}
	Timestamp   time.Time
}

// LogRepository persists LogEntry values. Implementations must not block
// the caller on failure; SaveLog errors are logged locally and swallowed
// by DatabaseLogger rather than propagated into application control flow.
type LogRepository interface {
	SaveLog(entry LogEntry) error
}
