package logging

// Logger defines the core logging interface used throughout the system
type Logger interface {
	// Info logs informational messages
	Info(msg string, fields map[string]interface{})

	// Error logs error messages with optional error object
	Error(msg string, err error, fields map[string]interface{})

	// Warn logs warning messages
	Warn(msg string, fields map[string]interface{})

	// Debug logs debug messages
	Debug(msg string, fields map[string]interface{})

	// WithPipeline creates a new logger with pipeline context
	WithPipeline(pipeline string) Logger

	// WithContext creates a new logger with additional context fields
	WithContext(ctx map[string]interface{}) Logger
}

// LoggerFactory creates different types of loggers for various components
type LoggerFactory interface {
	// CreateLogger creates a basic logger for the specified component
	CreateLogger(component string) Logger

	// CreateSessionLogger creates a logger scoped to one playback session
	CreateSessionLogger(sessionID string) Logger

	// CreateResolverLogger creates a logger for track-resolver operations
	CreateResolverLogger(resolverName string) Logger

	// CreateQueueLogger creates a logger for track-queue operations
	CreateQueueLogger(scope string) Logger
}
