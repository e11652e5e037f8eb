package player

import (
	"context"
	"sync"
	"time"

	"github.com/kestrelfm/spindle/pkg/audio"
	"github.com/kestrelfm/spindle/pkg/logging"
	"github.com/kestrelfm/spindle/pkg/queue"
	"github.com/kestrelfm/spindle/pkg/session"
	"github.com/kestrelfm/spindle/pkg/sink"
	"github.com/kestrelfm/spindle/pkg/track"
)

// defaultQueueCapacity is used when a Config leaves CommandQueueCapacity
// unset or non-positive.
const defaultQueueCapacity = 256

// Config configures a Loop's command buffering and initial playback
// settings (spec §4.E, §6).
type Config struct {
	CommandQueueCapacity int
	DefaultRepeatMode    RepeatMode
	DefaultShuffle       bool

	// NewDependencies builds the telemetry bundle (error handler, metrics,
	// repository) a session should use for t, or nil to run without
	// retry/telemetry wiring. Left nil, sessions still play tracks; they
	// just never retry a failed attempt and never record metrics.
	NewDependencies func(t track.Track) *audio.Dependencies
}

// Loop is the playback supervisor: it owns the pending queue, the current
// session slot, and playback state, and is the single consumer of its
// command channel. Queue, session and state changes happen on the loop's
// own goroutine; everything else reaches it by posting commands or reading
// a mutex-guarded snapshot. The repeat and shuffle settings are the
// exception: SetRepeatMode and SetShuffle write them directly under the
// mutex from the caller's goroutine.
type Loop struct {
	commands  chan command
	queue     *queue.Queue
	output    sink.Sink
	newSource SourceFactory
	newDeps   func(t track.Track) *audio.Dependencies
	logger    logging.Logger
	listeners Listeners

	loopCtx    context.Context
	loopCancel context.CancelFunc
	done       chan struct{}
	closeOnce  sync.Once

	sessionMu     sync.Mutex
	sessionCancel context.CancelFunc
	sessionActive bool
	sessionWG     sync.WaitGroup

	mu           sync.RWMutex
	state        State
	repeatMode   RepeatMode
	shuffle      bool
	currentTrack *track.Track
	startedAt    time.Time
	gate         *session.PauseGate
}

// New creates a Loop and immediately starts its command-processing
// goroutine. output is disposed once, at loop shutdown, not between
// tracks. newSource is called once per dequeue to build the Source for the
// next track.
func New(cfg Config, output sink.Sink, newSource SourceFactory, logger logging.Logger, listeners Listeners) *Loop {
	capacity := cfg.CommandQueueCapacity
	if capacity <= 0 {
		capacity = defaultQueueCapacity
	}

	ctx, cancel := context.WithCancel(context.Background())
	l := &Loop{
		commands:   make(chan command, capacity),
		queue:      queue.New(),
		output:     output,
		newSource:  newSource,
		newDeps:    cfg.NewDependencies,
		logger:     logger.WithPipeline("player"),
		listeners:  listeners,
		loopCtx:    ctx,
		loopCancel: cancel,
		done:       make(chan struct{}),
		state:      Idle,
		repeatMode: cfg.DefaultRepeatMode,
		shuffle:    cfg.DefaultShuffle,
	}

	go l.run()
	return l
}

// send posts cmd to the command channel, or drops it silently if the loop
// has already been signaled to shut down.
func (l *Loop) send(cmd command) {
	select {
	case l.commands <- cmd:
	case <-l.loopCtx.Done():
	}
}

func (l *Loop) run() {
	defer close(l.done)
	for {
		select {
		case <-l.loopCtx.Done():
			l.shutdown()
			return
		case cmd := <-l.commands:
			l.handle(cmd)
		}
	}
}

func (l *Loop) handle(cmd command) {
	switch cmd.kind {
	case cmdEnqueue:
		l.handleEnqueue(cmd.tracks)
	case cmdPlayNow:
		l.handlePlayNow(cmd.track)
	case cmdSkip:
		l.cancelSession()
	case cmdPause:
		l.handlePause()
	case cmdResume:
		l.handleResume()
	case cmdClear:
		l.queue.Clear()
	case cmdStop:
		l.handleStop()
	case cmdSessionEnded:
		l.handleSessionEnded(cmd.track, cmd.result)
	}
}

func (l *Loop) handleEnqueue(tracks []track.Track) {
	l.queue.AppendMany(tracks)
	if st := l.getState(); st == Idle || st == Stopped {
		l.tryStartNext()
	}
}

func (l *Loop) handlePlayNow(t track.Track) {
	l.queue.RemoveWhereID(t.URI)
	l.queue.PushFront(t)

	l.sessionMu.Lock()
	active := l.sessionActive
	l.sessionMu.Unlock()

	st := l.getState()
	if !active || st == Idle || st == Stopped {
		l.tryStartNext()
		return
	}
	// A session is already running: cancel it and let the SessionEnded
	// command that follows drive the next start.
	l.cancelSession()
}

func (l *Loop) handlePause() {
	l.mu.Lock()
	if l.state != Playing || l.gate == nil {
		l.mu.Unlock()
		return
	}
	l.gate.Pause()
	l.state = Paused
	l.mu.Unlock()
	l.emitStateChanged(Paused)
}

func (l *Loop) handleResume() {
	l.mu.Lock()
	if l.state != Paused || l.gate == nil {
		l.mu.Unlock()
		return
	}
	l.gate.Resume()
	l.state = Playing
	l.mu.Unlock()
	l.emitStateChanged(Playing)
}

func (l *Loop) handleStop() {
	l.queue.Clear()
	l.cancelSession()
	l.setState(Stopped)
}

func (l *Loop) handleSessionEnded(t track.Track, result session.PlaybackEndResult) {
	l.sessionMu.Lock()
	l.sessionActive = false
	l.sessionCancel = nil
	l.sessionMu.Unlock()

	l.mu.Lock()
	l.currentTrack = nil
	l.startedAt = time.Time{}
	l.gate = nil
	l.mu.Unlock()

	l.emitSessionEnded(t, result)

	if result.Reason != session.Cancelled {
		switch l.getRepeatMode() {
		case RepeatAll:
			l.queue.AppendMany([]track.Track{t})
		case RepeatOne:
			l.queue.PushFront(t)
		}
	}

	if l.queue.Count() > 0 {
		l.tryStartNext()
	} else {
		l.setState(Idle)
	}
}

// tryStartNext dequeues and starts the next track if no session is
// currently occupying the slot. It always emits OnTrackChanged, even when
// the queue is empty.
func (l *Loop) tryStartNext() {
	l.sessionMu.Lock()
	if l.sessionActive {
		l.sessionMu.Unlock()
		return
	}
	l.sessionMu.Unlock()

	next, ok := l.queue.DequeueNext(l.getShuffle())
	if !ok {
		l.emitTrackChanged(nil)
		l.setState(Idle)
		return
	}
	l.emitTrackChanged(&next)
	l.setState(Playing)

	src, err := l.newSource(next)
	if err != nil {
		l.logger.Error("building source for track failed", err, map[string]interface{}{"track": next.URI})
		l.mu.Lock()
		l.currentTrack = &next
		l.startedAt = time.Now()
		l.mu.Unlock()
		l.startSessionGoroutine(l.loopCtx, next, func(ctx context.Context) session.PlaybackEndResult {
			return session.PlaybackEndResult{Track: next, Reason: session.Failed, Err: err}
		})
		return
	}

	gate := session.NewPauseGate()
	sessionCtx, cancel := context.WithCancel(l.loopCtx)

	l.sessionMu.Lock()
	l.sessionCancel = cancel
	l.sessionActive = true
	l.sessionMu.Unlock()

	l.mu.Lock()
	l.currentTrack = &next
	l.startedAt = time.Now()
	l.gate = gate
	l.mu.Unlock()

	var deps *audio.Dependencies
	if l.newDeps != nil {
		deps = l.newDeps(next)
	}
	sess := session.New(next, src, l.output, gate, l.logger, deps)
	l.startSessionGoroutine(sessionCtx, next, func(ctx context.Context) session.PlaybackEndResult {
		return sess.Run(ctx)
	})
}

// startSessionGoroutine runs run in the background under ctx and posts its
// result back as a SessionEnded command once it finishes.
func (l *Loop) startSessionGoroutine(ctx context.Context, t track.Track, run func(ctx context.Context) session.PlaybackEndResult) {
	l.sessionWG.Add(1)
	go func() {
		defer l.sessionWG.Done()
		result := run(ctx)
		l.send(command{kind: cmdSessionEnded, track: t, result: result})
	}()
}

func (l *Loop) cancelSession() {
	l.sessionMu.Lock()
	cancel := l.sessionCancel
	l.sessionMu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (l *Loop) shutdown() {
	l.cancelSession()
	l.sessionWG.Wait()
	if err := l.output.Close(); err != nil {
		l.logger.Warn("sink close failed during loop shutdown", map[string]interface{}{"error": err.Error()})
	}
}

func (l *Loop) setState(s State) {
	l.mu.Lock()
	changed := l.state != s
	l.state = s
	l.mu.Unlock()
	if changed {
		l.emitStateChanged(s)
	}
}

func (l *Loop) getState() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

func (l *Loop) getShuffle() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.shuffle
}

func (l *Loop) getRepeatMode() RepeatMode {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.repeatMode
}

func (l *Loop) emitStateChanged(s State) {
	if l.listeners.OnStateChanged != nil {
		l.listeners.OnStateChanged(s)
	}
}

func (l *Loop) emitTrackChanged(t *track.Track) {
	if l.listeners.OnTrackChanged != nil {
		l.listeners.OnTrackChanged(t)
	}
}

func (l *Loop) emitSessionEnded(t track.Track, result session.PlaybackEndResult) {
	if l.listeners.OnSessionEnded != nil {
		l.listeners.OnSessionEnded(t, result)
	}
}
