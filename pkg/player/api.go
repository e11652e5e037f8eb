package player

import "github.com/kestrelfm/spindle/pkg/track"

// EnqueueTracks appends tracks to the pending queue, starting playback if
// the loop is currently idle or stopped. Returns as soon as the command is
// enqueued; its effect is observable only via state and events.
func (l *Loop) EnqueueTracks(tracks []track.Track) {
	l.send(command{kind: cmdEnqueue, tracks: tracks})
}

// PlayNow moves t to the front of the queue and pre-empts whatever is
// currently playing.
func (l *Loop) PlayNow(t track.Track) {
	l.send(command{kind: cmdPlayNow, track: t})
}

// Pause closes the current session's pause gate, if one is playing.
func (l *Loop) Pause() {
	l.send(command{kind: cmdPause})
}

// Resume opens the current session's pause gate, if one is paused.
func (l *Loop) Resume() {
	l.send(command{kind: cmdResume})
}

// Skip cancels the current session. The loop advances to the next track
// once the cancellation unwinds and posts SessionEnded.
func (l *Loop) Skip() {
	l.send(command{kind: cmdSkip})
}

// Clear empties the pending queue without touching the current session.
func (l *Loop) Clear() {
	l.send(command{kind: cmdClear})
}

// Stop clears the queue, cancels the current session, and moves to the
// Stopped state, which suppresses auto-advance until a new command starts
// the loop again.
func (l *Loop) Stop() {
	l.send(command{kind: cmdStop})
}

// SetRepeatMode changes how a normally-ended track is requeued.
func (l *Loop) SetRepeatMode(m RepeatMode) {
	l.mu.Lock()
	l.repeatMode = m
	l.mu.Unlock()
}

// SetShuffle changes whether future dequeues pick a random track instead of
// the queue head.
func (l *Loop) SetShuffle(shuffle bool) {
	l.mu.Lock()
	l.shuffle = shuffle
	l.mu.Unlock()
}

// QueueSnapshot returns a consistent point-in-time copy of the pending
// queue. Safe to call from any goroutine.
func (l *Loop) QueueSnapshot() []track.Track {
	return l.queue.Snapshot()
}

// CurrentTrack returns the track the current session is playing, if any.
func (l *Loop) CurrentTrack() (track.Track, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.currentTrack == nil {
		return track.Track{}, false
	}
	return *l.currentTrack, true
}

// State returns the loop's current coarse playback state.
func (l *Loop) State() State {
	return l.getState()
}

// CurrentSession returns a point-in-time snapshot of the active session
// (track, coarse state, and when it started), or ok=false if no session
// is currently owned by the loop.
func (l *Loop) CurrentSession() (CurrentSessionInfo, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.currentTrack == nil {
		return CurrentSessionInfo{}, false
	}
	return CurrentSessionInfo{
		Track:     *l.currentTrack,
		State:     l.state,
		StartedAt: l.startedAt,
	}, true
}

// Close cancels the loop, waits for any active session and the supervisor
// goroutine to unwind, and disposes the sink. Idempotent.
func (l *Loop) Close() error {
	l.closeOnce.Do(l.loopCancel)
	<-l.done
	return nil
}
