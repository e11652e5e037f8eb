package logging

import (
	"fmt"
)

// PipelineLogger wraps a base logger with pipeline-specific context
type PipelineLogger struct {
	base     Logger
	pipeline string
	context  map[string]interface{}
}

// NewPipelineLogger creates a new pipeline-specific logger
func NewPipelineLogger(base Logger, pipeline string) *PipelineLogger {
	return &PipelineLogger{
		base:     base,
		pipeline: pipeline,
		context:  make(map[string]interface{}),
	}
}

// Info logs informational messages with pipeline context
func (p *PipelineLogger) Info(msg string, fields map[string]interface{}) {
	enrichedFields := p.enrichFields(fields)
	p.base.Info(fmt.Sprintf("[%s] %s", p.pipeline, msg), enrichedFields)
}

// Error logs error messages with pipeline context
func (p *PipelineLogger) Error(msg string, err error, fields map[string]interface{}) {
	enrichedFields := p.enrichFields(fields)
	p.base.Error(fmt.Sprintf("[%s] %s", p.pipeline, msg), err, enrichedFields)
}

// Warn logs warning messages with pipeline context
func (p *PipelineLogger) Warn(msg string, fields map[string]interface{}) {
	enrichedFields := p.enrichFields(fields)
	p.base.Warn(fmt.Sprintf("[%s] %s", p.pipeline, msg), enrichedFields)
}

// Debug logs debug messages with pipeline context
func (p *PipelineLogger) Debug(msg string, fields map[string]interface{}) {
	enrichedFields := p.enrichFields(fields)
	p.base.Debug(fmt.Sprintf("[%s] %s", p.pipeline, msg), enrichedFields)
}

// WithPipeline creates a new logger with updated pipeline context
func (p *PipelineLogger) WithPipeline(pipeline string) Logger {
	return &PipelineLogger{
		base:     p.base,
		pipeline: pipeline,
		context:  p.copyContext(),
	}
}

// WithContext creates a new logger with additional context fields
func (p *PipelineLogger) WithContext(ctx map[string]interface{}) Logger {
	newContext := p.copyContext()
	for k, v := range ctx {
		newContext[k] = v
	}

	return &PipelineLogger{
		base:     p.base,
		pipeline: p.pipeline,
		context:  newContext,
	}
}

// enrichFields combines pipeline context with provided fields
func (p *PipelineLogger) enrichFields(fields map[string]interface{}) map[string]interface{} {
	enriched := make(map[string]interface{})

	// Add pipeline context
	for k, v := range p.context {
		enriched[k] = v
	}

	// Add provided fields (these can override context)
	for k, v := range fields {
		enriched[k] = v
	}

	// Always add pipeline identifier
	enriched["pipeline"] = p.pipeline

	return enriched
}

// copyContext creates a copy of the current context
func (p *PipelineLogger) copyContext() map[string]interface{} {
	newContext := make(map[string]interface{})
	for k, v := range p.context {
		newContext[k] = v
	}
	return newContext
}

// SessionPipelineLogger creates a logger specifically for playback-session
// operations (source fetch, decode, pacing, sink write).
type SessionPipelineLogger struct {
	*PipelineLogger
	sessionID string
}

// NewSessionPipelineLogger creates a new session pipeline logger.
func NewSessionPipelineLogger(base Logger, sessionID string) *SessionPipelineLogger {
	pipelineLogger := NewPipelineLogger(base, "session")

	sessionContext := map[string]interface{}{
		"session_id": sessionID,
	}

	return &SessionPipelineLogger{
		PipelineLogger: pipelineLogger.WithContext(sessionContext).(*PipelineLogger),
		sessionID:      sessionID,
	}
}

// WithTrack adds the active track's URI to the session logger.
func (a *SessionPipelineLogger) WithTrack(uri string) Logger {
	return a.WithContext(map[string]interface{}{
		"track_uri": uri,
	})
}

// WithRequestedBy adds the originating requester to the session logger.
func (a *SessionPipelineLogger) WithRequestedBy(requestedBy string) Logger {
	return a.WithContext(map[string]interface{}{
		"requested_by": requestedBy,
	})
}

// ResolverLogger creates a logger specifically for track-resolver operations.
type ResolverLogger struct {
	*PipelineLogger
	resolverName string
}

// NewResolverLogger creates a new resolver logger.
func NewResolverLogger(base Logger, resolverName string) *ResolverLogger {
	pipelineLogger := NewPipelineLogger(base, "resolver")

	resolverContext := map[string]interface{}{
		"resolver": resolverName,
	}

	return &ResolverLogger{
		PipelineLogger: pipelineLogger.WithContext(resolverContext).(*PipelineLogger),
		resolverName:   resolverName,
	}
}

// WithRequest adds the raw user request string to the resolver logger.
func (c *ResolverLogger) WithRequest(raw string) Logger {
	return c.WithContext(map[string]interface{}{
		"request": raw,
	})
}
