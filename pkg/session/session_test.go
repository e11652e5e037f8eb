package session_test

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/kestrelfm/spindle/pkg/audio"
	"github.com/kestrelfm/spindle/pkg/logging"
	"github.com/kestrelfm/spindle/pkg/session"
	"github.com/kestrelfm/spindle/pkg/track"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type noopLogger struct{}

func (noopLogger) Info(string, map[string]interface{})               {}
func (noopLogger) Error(string, error, map[string]interface{})       {}
func (noopLogger) Warn(string, map[string]interface{})               {}
func (noopLogger) Debug(string, map[string]interface{})              {}
func (noopLogger) WithPipeline(string) logging.Logger                { return noopLogger{} }
func (noopLogger) WithContext(map[string]interface{}) logging.Logger { return noopLogger{} }

// fakeSink records writes and completions, mirroring pkg/player's test fake.
type fakeSink struct {
	mu        sync.Mutex
	written   [][]byte
	completed int
}

func (f *fakeSink) Write(ctx context.Context, buffer []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := make([]byte, len(buffer))
	copy(cp, buffer)
	f.written = append(f.written, cp)
	return nil
}

func (f *fakeSink) Complete(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.completed++
	return nil
}

func (f *fakeSink) Close() error { return nil }

func (f *fakeSink) writeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.written)
}

// onceReader yields data once, then EOF.
type onceReader struct {
	data []byte
	read bool
}

func (r *onceReader) Read(p []byte) (int, error) {
	if r.read {
		return 0, io.EOF
	}
	r.read = true
	n := copy(p, r.data)
	return n, nil
}
func (r *onceReader) Close() error { return nil }

// blockingReader never returns until its context is canceled.
type blockingReader struct{ ctx context.Context }

func (b *blockingReader) Read(p []byte) (int, error) {
	<-b.ctx.Done()
	return 0, b.ctx.Err()
}
func (b *blockingReader) Close() error { return nil }

// failSource fails its first N Open calls, then succeeds, recording how
// many times Open was called.
type failSource struct {
	mu        sync.Mutex
	failTimes int
	opens     int
	data      []byte
}

func (s *failSource) Open(ctx context.Context) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opens++
	if s.opens <= s.failTimes {
		return nil, fmt.Errorf("fake source: open failed (attempt %d)", s.opens)
	}
	return &onceReader{data: s.data}, nil
}

func (s *failSource) Close() error { return nil }

func (s *failSource) openCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opens
}

// blockingSource returns a reader that blocks until ctx is canceled.
type blockingSource struct{}

func (blockingSource) Open(ctx context.Context) (io.ReadCloser, error) {
	return &blockingReader{ctx: ctx}, nil
}
func (blockingSource) Close() error { return nil }

// alwaysRetryHandler retries every error up to maxRetries with a fixed,
// short delay, so retry tests don't depend on the real classifier's
// network/process/etc. heuristics.
type alwaysRetryHandler struct {
	maxRetries int
	delay      time.Duration
}

func (h *alwaysRetryHandler) HandleError(err error, context string) (bool, time.Duration) {
	return true, h.delay
}
func (h *alwaysRetryHandler) LogError(err error, context string)    {}
func (h *alwaysRetryHandler) IsRetryableError(err error) bool       { return true }
func (h *alwaysRetryHandler) GetRetryDelay(attempt int) time.Duration { return h.delay }
func (h *alwaysRetryHandler) GetMaxRetries() int                    { return h.maxRetries }
func (h *alwaysRetryHandler) ShouldRetryAfterAttempts(attempts int, err error) bool {
	return attempts < h.maxRetries
}

// neverRetryHandler always declines to retry.
type neverRetryHandler struct{}

func (neverRetryHandler) HandleError(err error, context string) (bool, time.Duration) {
	return false, 0
}
func (neverRetryHandler) LogError(err error, context string)                     {}
func (neverRetryHandler) IsRetryableError(err error) bool                        { return false }
func (neverRetryHandler) GetRetryDelay(attempt int) time.Duration                { return 0 }
func (neverRetryHandler) GetMaxRetries() int                                     { return 0 }
func (neverRetryHandler) ShouldRetryAfterAttempts(attempts int, err error) bool  { return false }

func newTrack(uri string) track.Track {
	return track.Track{URI: uri, Title: uri, InputKind: track.InputLocalFile}
}

func TestPauseGate_PauseBlocksWaitUntilResume(t *testing.T) {
	gate := session.NewPauseGate()
	gate.Pause()

	done := make(chan struct{})
	go func() {
		_ = gate.Wait(context.Background())
		close(done)
	}()

	select {
	case <-done:
		require.Fail(t, "Wait returned before Resume was called")
	case <-time.After(30 * time.Millisecond):
	}

	gate.Resume()

	select {
	case <-done:
	case <-time.After(time.Second):
		require.Fail(t, "Wait did not unblock after Resume")
	}
}

// releaseReader blocks its first Read until release is closed, then returns
// data once and EOF after, letting a test pause the gate while a read is
// genuinely in flight.
type releaseReader struct {
	data     []byte
	entered  chan struct{}
	release  chan struct{}
	enteredOnce sync.Once
	read     bool
}

func (r *releaseReader) Read(p []byte) (int, error) {
	if r.read {
		return 0, io.EOF
	}
	r.enteredOnce.Do(func() { close(r.entered) })
	<-r.release
	r.read = true
	n := copy(p, r.data)
	return n, nil
}
func (r *releaseReader) Close() error { return nil }

// staticSource hands back a single, already-constructed reader from Open.
type staticSource struct{ reader io.ReadCloser }

func (s staticSource) Open(ctx context.Context) (io.ReadCloser, error) { return s.reader, nil }
func (s staticSource) Close() error                                    { return nil }

func TestPauseGate_DoesNotInterruptInFlightRead(t *testing.T) {
	// Pausing the gate only blocks the *next* Wait call; a read already in
	// flight when Pause happens must still complete and reach the sink.
	reader := &releaseReader{
		data:    []byte("hello"),
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	out := &fakeSink{}
	gate := session.NewPauseGate()
	sess := session.New(newTrack("a"), staticSource{reader: reader}, out, gate, noopLogger{}, nil)

	resultCh := make(chan session.PlaybackEndResult, 1)
	go func() { resultCh <- sess.Run(context.Background()) }()

	<-reader.entered
	gate.Pause()
	close(reader.release)

	// The read that was already in flight when Pause took effect must still
	// complete and reach the sink; only the *next* loop iteration's gate
	// check should block, holding Run from finishing until Resume.
	require.Eventually(t, func() bool { return out.writeCount() == 1 }, time.Second, 5*time.Millisecond)

	select {
	case result := <-resultCh:
		t.Fatalf("Run returned %v before Resume; paused gate should have blocked the next iteration", result.Reason)
	case <-time.After(50 * time.Millisecond):
	}

	gate.Resume()

	select {
	case result := <-resultCh:
		assert.Equal(t, session.Completed, result.Reason)
		assert.Equal(t, 1, out.writeCount())
	case <-time.After(time.Second):
		require.Fail(t, "Run did not finish after Resume")
	}
}

func TestPlaybackSession_CancelEndsSessionRegardlessOfPauseState(t *testing.T) {
	out := &fakeSink{}
	gate := session.NewPauseGate()
	// Gate left open (not paused) — cancellation alone must still end the
	// session promptly via the blocked read, not via the gate.
	sess := session.New(newTrack("a"), blockingSource{}, out, gate, noopLogger{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	result := sess.Run(ctx)
	assert.Equal(t, session.Cancelled, result.Reason)
	assert.ErrorIs(t, result.Err, context.Canceled)
}

func TestPlaybackSession_CancelWhilePausedStillEndsSession(t *testing.T) {
	out := &fakeSink{}
	gate := session.NewPauseGate()
	gate.Pause()
	sess := session.New(newTrack("a"), blockingSource{}, out, gate, noopLogger{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	// Paused gate's Wait is itself ctx-aware, so a cancellation during a
	// pause ends the session with Cancelled rather than hanging forever.
	result := sess.Run(ctx)
	assert.Equal(t, session.Cancelled, result.Reason)
}

func TestPlaybackSession_NilDepsRunsSingleAttempt(t *testing.T) {
	out := &fakeSink{}
	src := &failSource{failTimes: 1}
	sess := session.New(newTrack("a"), src, out, session.NewPauseGate(), noopLogger{}, nil)

	result := sess.Run(context.Background())
	assert.Equal(t, session.Failed, result.Reason)
	assert.Equal(t, 1, src.openCount())
}

func TestPlaybackSession_RetriesUpToErrorHandlerCeiling(t *testing.T) {
	out := &fakeSink{}
	src := &failSource{failTimes: 2, data: []byte("hi")}
	deps := &audio.Dependencies{ErrorHandler: &alwaysRetryHandler{maxRetries: 3, delay: time.Millisecond}}
	sess := session.New(newTrack("a"), src, out, session.NewPauseGate(), noopLogger{}, deps)

	result := sess.Run(context.Background())
	assert.Equal(t, session.Completed, result.Reason)
	assert.Equal(t, 3, src.openCount())
}

func TestPlaybackSession_GivesUpWhenHandlerDeclinesRetry(t *testing.T) {
	out := &fakeSink{}
	src := &failSource{failTimes: 5}
	deps := &audio.Dependencies{ErrorHandler: neverRetryHandler{}}
	sess := session.New(newTrack("a"), src, out, session.NewPauseGate(), noopLogger{}, deps)

	result := sess.Run(context.Background())
	assert.Equal(t, session.Failed, result.Reason)
	assert.Equal(t, 1, src.openCount())
}
