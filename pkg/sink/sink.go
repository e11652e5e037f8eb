// Package sink implements the playback engine's real-time output stage: a
// pacing wrapper around any Output that throttles writes to the fixed
// 48kHz/16-bit/stereo PCM byte rate, plus a concrete Opus/Discord adapter.
package sink

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// bytesPerSecond is the fixed PCM contract: 48000 Hz * 2 bytes/sample * 2
// channels.
const bytesPerSecond = 192000

// Sink consumes decoded PCM and enforces real-time pacing so that writing
// faster than real time never outruns a downstream stream with no
// back-pressure of its own.
type Sink interface {
	// Write forwards buffer to the underlying output, pacing the call so it
	// returns no sooner than real time would allow. Returns early if ctx is
	// canceled while sleeping.
	Write(ctx context.Context, buffer []byte) error

	// Complete flushes the underlying stream and resets pacing state so the
	// next track starts from a fresh clock baseline.
	Complete(ctx context.Context) error

	// Close releases the output stream. Idempotent.
	Close() error
}

// stallThreshold and maxSleep are configurable at construction time (spec
// §4.C default: stall after 1s of inactivity, never sleep more than 2s).

// PacingSink wraps an io.Writer-like output with the core real-time pacing
// algorithm: bytes_sent accumulates since clock_start, and each write
// sleeps just long enough to keep wall-clock delivery at 192000 B/s.
type PacingSink struct {
	output Output

	stallThreshold time.Duration
	maxSleep       time.Duration

	mu         sync.Mutex
	clockStart time.Time
	bytesSent  int64
	lastWrite  time.Time
	closed     bool
}

// Output is the minimal write surface a PacingSink paces. Concrete adapters
// (e.g. an Opus encoder feeding a discordgo voice connection) implement
// this directly instead of io.Writer so they can reject malformed PCM
// buffers with a typed error.
type Output interface {
	WritePCM(buffer []byte) error
	Flush() error
	Close() error
}

// NewPacingSink creates a Sink around output. stallThreshold and maxSleep
// correspond to spec §4.C's reset-on-stall and sleep-clamp behavior.
func NewPacingSink(output Output, stallThreshold, maxSleep time.Duration) *PacingSink {
	return &PacingSink{
		output:         output,
		stallThreshold: stallThreshold,
		maxSleep:       maxSleep,
	}
}

// Write implements the pacing algorithm described in spec §4.C:
//  1. reset the clock baseline on first write, or after a stall;
//  2. forward bytes to the output;
//  3. compute how far ahead of real time the cumulative bytes put us;
//  4. sleep that amount if it lies strictly between 0 and maxSleep; a delay
//     outside that range skips the sleep entirely.
func (s *PacingSink) Write(ctx context.Context, buffer []byte) error {
	if len(buffer) == 0 {
		return nil
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return fmt.Errorf("sink: write on closed sink")
	}

	now := time.Now()
	if s.clockStart.IsZero() || now.Sub(s.lastWrite) > s.stallThreshold {
		s.clockStart = now
		s.bytesSent = 0
	}

	if err := s.output.WritePCM(buffer); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("sink: write pcm: %w", err)
	}

	s.bytesSent += int64(len(buffer))
	expected := time.Duration(s.bytesSent) * time.Second / bytesPerSecond
	target := s.clockStart.Add(expected)
	delay := time.Until(target)
	s.lastWrite = now
	s.mu.Unlock()

	if delay <= 0 || delay >= s.maxSleep {
		return nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

// Complete flushes the output and resets pacing state so the next Write
// call begins a fresh clock baseline.
func (s *PacingSink) Complete(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	err := s.output.Flush()

	s.clockStart = time.Time{}
	s.bytesSent = 0
	s.lastWrite = time.Time{}

	if err != nil {
		return fmt.Errorf("sink: flush: %w", err)
	}
	return nil
}

// Close releases the underlying output. Safe to call more than once.
func (s *PacingSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.output.Close()
}
