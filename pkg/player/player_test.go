package player_test

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/kestrelfm/spindle/pkg/audio"
	"github.com/kestrelfm/spindle/pkg/logging"
	"github.com/kestrelfm/spindle/pkg/player"
	"github.com/kestrelfm/spindle/pkg/session"
	"github.com/kestrelfm/spindle/pkg/track"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// noopLogger implements logging.Logger as a no-op, mirroring the teacher's
// MockAudioLogger pattern.
type noopLogger struct{}

func (noopLogger) Info(string, map[string]interface{})         {}
func (noopLogger) Error(string, error, map[string]interface{}) {}
func (noopLogger) Warn(string, map[string]interface{})         {}
func (noopLogger) Debug(string, map[string]interface{})        {}
func (noopLogger) WithPipeline(string) logging.Logger           { return noopLogger{} }
func (noopLogger) WithContext(map[string]interface{}) logging.Logger { return noopLogger{} }

// fakeSink records every write and lets a test synchronize on completion.
type fakeSink struct {
	mu        sync.Mutex
	written   [][]byte
	completed int
	closed    bool
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

func (f *fakeSink) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// fakeSource yields data once then EOF, or blocks until ctx is canceled if
// block is true.
type fakeSource struct {
	data  []byte
	block bool
}

func (s *fakeSource) Open(ctx context.Context) (io.ReadCloser, error) {
	if s.block {
		return &blockingReader{ctx: ctx}, nil
	}
	return io.NopCloser(bytesReaderNoSeek(s.data)), nil
}

func (s *fakeSource) Close() error { return nil }

type blockingReader struct{ ctx context.Context }

func (b *blockingReader) Read(p []byte) (int, error) {
	<-b.ctx.Done()
	return 0, b.ctx.Err()
}
func (b *blockingReader) Close() error { return nil }

func bytesReaderNoSeek(data []byte) io.Reader {
	return &onceReader{data: data}
}

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

func newTrack(uri string) track.Track {
	return track.Track{URI: uri, Title: uri, InputKind: track.InputLocalFile}
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	require.Fail(t, "condition not met before timeout")
}

func TestLoop_EnqueueStartsPlaybackAndReachesIdle(t *testing.T) {
	output := &fakeSink{}
	src := &fakeSource{data: []byte("hello")}

	var endedMu sync.Mutex
	var ended []session.PlaybackEndResult

	l := player.New(player.Config{}, output, func(track.Track) (audio.Source, error) {
		return src, nil
	}, noopLogger{}, player.Listeners{
		OnSessionEnded: func(tr track.Track, result session.PlaybackEndResult) {
			endedMu.Lock()
			ended = append(ended, result)
			endedMu.Unlock()
		},
	})
	defer l.Close()

	l.EnqueueTracks([]track.Track{newTrack("a")})

	waitFor(t, time.Second, func() bool {
		endedMu.Lock()
		defer endedMu.Unlock()
		return len(ended) == 1
	})

	assert.Equal(t, session.Completed, ended[0].Reason)
	waitFor(t, time.Second, func() bool { return l.State() == player.Idle })
}

func TestLoop_StopCancelsSessionAndClearsQueue(t *testing.T) {
	output := &fakeSink{}
	src := &fakeSource{block: true}

	var endedMu sync.Mutex
	var endedReason session.EndReason
	var gotEnded bool

	l := player.New(player.Config{}, output, func(track.Track) (audio.Source, error) {
		return src, nil
	}, noopLogger{}, player.Listeners{
		OnSessionEnded: func(tr track.Track, result session.PlaybackEndResult) {
			endedMu.Lock()
			endedReason = result.Reason
			gotEnded = true
			endedMu.Unlock()
		},
	})
	defer l.Close()

	l.EnqueueTracks([]track.Track{newTrack("a"), newTrack("b")})
	waitFor(t, time.Second, func() bool { return l.State() == player.Playing })

	l.Stop()

	// Stop clears the pending queue and cancels the in-flight session
	// immediately; once that session's cancellation unwinds, the loop
	// settles at Idle since nothing remains queued.
	waitFor(t, time.Second, func() bool { return l.State() == player.Idle })
	assert.Empty(t, l.QueueSnapshot())

	waitFor(t, time.Second, func() bool {
		endedMu.Lock()
		defer endedMu.Unlock()
		return gotEnded
	})
	assert.Equal(t, session.Cancelled, endedReason)
}

func TestLoop_PauseResumeTogglesState(t *testing.T) {
	output := &fakeSink{}
	src := &fakeSource{block: true}

	var states []player.State
	var mu sync.Mutex

	l := player.New(player.Config{}, output, func(track.Track) (audio.Source, error) {
		return src, nil
	}, noopLogger{}, player.Listeners{
		OnStateChanged: func(s player.State) {
			mu.Lock()
			states = append(states, s)
			mu.Unlock()
		},
	})
	defer l.Close()

	l.EnqueueTracks([]track.Track{newTrack("a")})
	waitFor(t, time.Second, func() bool { return l.State() == player.Playing })

	l.Pause()
	waitFor(t, time.Second, func() bool { return l.State() == player.Paused })

	l.Resume()
	waitFor(t, time.Second, func() bool { return l.State() == player.Playing })
}

func TestLoop_RepeatOneReplaysSameTrack(t *testing.T) {
	output := &fakeSink{}

	var opened int
	var mu sync.Mutex

	var l *player.Loop
	l = player.New(player.Config{DefaultRepeatMode: player.RepeatOne}, output, func(tr track.Track) (audio.Source, error) {
		mu.Lock()
		opened++
		n := opened
		mu.Unlock()
		if n >= 2 {
			// Stop the repeat chain once the replay is observed, rather
			// than looping forever.
			l.SetRepeatMode(player.RepeatNone)
		}
		return &fakeSource{data: []byte("x")}, nil
	}, noopLogger{}, player.Listeners{})
	defer l.Close()

	l.EnqueueTracks([]track.Track{newTrack("loop-me")})

	waitFor(t, time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return opened >= 2
	})

	waitFor(t, time.Second, func() bool { return l.State() == player.Idle })

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 2, opened)
}
