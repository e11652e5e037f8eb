// Package session drives exactly one track end to end: open a Source,
// stream its PCM into a Sink with real-time pacing, and report how
// playback ended.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/kestrelfm/spindle/pkg/audio"
	"github.com/kestrelfm/spindle/pkg/logging"
	"github.com/kestrelfm/spindle/pkg/sink"
	"github.com/kestrelfm/spindle/pkg/track"
)

// EndReason classifies how a PlaybackSession stopped.
type EndReason int

const (
	// Completed means the source reached a normal EOF and the sink was
	// flushed.
	Completed EndReason = iota
	// Cancelled means an external cancellation signal interrupted playback.
	Cancelled
	// Failed means an unexpected error, other than cancellation, ended
	// playback early.
	Failed
)

func (r EndReason) String() string {
	switch r {
	case Completed:
		return "completed"
	case Cancelled:
		return "cancelled"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// PlaybackEndResult reports the terminal outcome of one session run.
type PlaybackEndResult struct {
	Track   track.Track
	Reason  EndReason
	Err     error
	Details map[string]interface{}
}

// readBufferBytes is the chunk size the session reads from the source and
// forwards to the sink per iteration (spec §4.C: typical 4-64 KiB).
const readBufferBytes = 32 * 1024

// PauseGate is a binary condition the copy loop awaits before each read. Pause
// closes it; Resume opens it and wakes any waiter. Closing the gate never
// interrupts an in-flight read or write — it only blocks the next
// iteration.
type PauseGate struct {
	mu     sync.Mutex
	paused bool
	ch     chan struct{}
}

// NewPauseGate returns an open gate (not paused).
func NewPauseGate() *PauseGate {
	return &PauseGate{ch: make(chan struct{})}
}

// Pause closes the gate so the next Wait call blocks.
func (g *PauseGate) Pause() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.paused = true
}

// Resume opens the gate, waking any current waiter.
func (g *PauseGate) Resume() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.paused {
		g.paused = false
		close(g.ch)
		g.ch = make(chan struct{})
	}
}

// Wait blocks while the gate is paused, returning early if ctx is canceled.
func (g *PauseGate) Wait(ctx context.Context) error {
	for {
		g.mu.Lock()
		if !g.paused {
			g.mu.Unlock()
			return nil
		}
		waitCh := g.ch
		g.mu.Unlock()

		select {
		case <-waitCh:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// PlaybackSession drives one track from a Source to a Sink.
type PlaybackSession struct {
	track  track.Track
	source audio.Source
	output sink.Sink
	gate   *PauseGate
	logger logging.Logger
	deps   *audio.Dependencies
}

// New creates a session for one track. gate may be shared by the caller so
// pause/resume commands issued between tracks carry over naturally. deps
// may be nil, in which case the session runs a single attempt with no
// retry, error persistence, or metrics recording.
func New(t track.Track, source audio.Source, output sink.Sink, gate *PauseGate, logger logging.Logger, deps *audio.Dependencies) *PlaybackSession {
	return &PlaybackSession{
		track:  t,
		source: source,
		output: output,
		gate:   gate,
		logger: logger.WithPipeline("session"),
		deps:   deps,
	}
}

// Run drives the session to completion: open the source, copy PCM into the
// sink respecting the pause gate, and report the terminal outcome.
// Cancelling ctx ends the session promptly with Cancelled regardless of
// pause state; any other error ends it with Failed. When deps carries an
// ErrorHandler, a Failed attempt is classified and retried with the
// handler's backoff up to its configured retry ceiling before giving up.
func (s *PlaybackSession) Run(ctx context.Context) PlaybackEndResult {
	sessionStart := time.Now()
	attempt := 0

	for {
		result := s.runOnce(ctx)
		if result.Reason != Failed {
			if result.Reason == Completed && s.deps != nil && s.deps.Metrics != nil {
				s.deps.Metrics.RecordPlaybackDuration(time.Since(sessionStart))
			}
			return result
		}

		if s.deps == nil || s.deps.ErrorHandler == nil {
			return result
		}

		shouldRetry, delay := s.deps.ErrorHandler.HandleError(result.Err,
			fmt.Sprintf("session track=%s attempt=%d", s.track.URI, attempt))
		if !shouldRetry || attempt >= s.deps.ErrorHandler.GetMaxRetries() {
			return result
		}

		attempt++
		s.logger.Warn("retrying track after playback error", map[string]interface{}{
			"track": s.track.URI, "attempt": attempt, "delay": delay.String(),
		})

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return PlaybackEndResult{Track: s.track, Reason: Cancelled, Err: ctx.Err()}
		}
	}
}

// runOnce opens the source exactly once and streams it to completion or
// failure; Run wraps it with the retry policy above.
func (s *PlaybackSession) runOnce(ctx context.Context) PlaybackEndResult {
	attemptStart := time.Now()
	reader, err := s.source.Open(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return PlaybackEndResult{Track: s.track, Reason: Cancelled, Err: ctx.Err()}
		}
		return PlaybackEndResult{Track: s.track, Reason: Failed, Err: fmt.Errorf("open source: %w", err)}
	}
	defer reader.Close()

	if s.deps != nil && s.deps.Metrics != nil {
		s.deps.Metrics.RecordStartupTime(time.Since(attemptStart))
	}

	buf := make([]byte, readBufferBytes)

	for {
		if ctx.Err() != nil {
			return PlaybackEndResult{Track: s.track, Reason: Cancelled, Err: ctx.Err()}
		}

		if err := s.gate.Wait(ctx); err != nil {
			return PlaybackEndResult{Track: s.track, Reason: Cancelled, Err: err}
		}

		n, readErr := reader.Read(buf)
		if n > 0 {
			if writeErr := s.output.Write(ctx, buf[:n]); writeErr != nil {
				if ctx.Err() != nil {
					return PlaybackEndResult{Track: s.track, Reason: Cancelled, Err: ctx.Err()}
				}
				return PlaybackEndResult{Track: s.track, Reason: Failed, Err: fmt.Errorf("write sink: %w", writeErr)}
			}
		}

		if ctx.Err() != nil {
			return PlaybackEndResult{Track: s.track, Reason: Cancelled, Err: ctx.Err()}
		}

		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				if err := s.output.Complete(ctx); err != nil {
					s.logger.Warn("sink flush failed at end of track", map[string]interface{}{
						"error": err.Error(),
						"track": s.track.URI,
					})
				}
				return PlaybackEndResult{Track: s.track, Reason: Completed}
			}
			return PlaybackEndResult{Track: s.track, Reason: Failed, Err: fmt.Errorf("read source: %w", readErr)}
		}

		if n == 0 {
			if err := s.output.Complete(ctx); err != nil {
				s.logger.Warn("sink flush failed at end of track", map[string]interface{}{
					"error": err.Error(),
					"track": s.track.URI,
				})
			}
			return PlaybackEndResult{Track: s.track, Reason: Completed}
		}
	}
}
