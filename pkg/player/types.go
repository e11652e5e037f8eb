// Package player implements the playback engine's supervisor: a
// single-consumer command loop that owns the pending queue, the current
// session, and playback state, and drives tracks one at a time through
// pkg/session.
package player

import (
	"strings"
	"time"

	"github.com/kestrelfm/spindle/pkg/audio"
	"github.com/kestrelfm/spindle/pkg/session"
	"github.com/kestrelfm/spindle/pkg/track"
)

// State is the supervisor's coarse playback state.
type State int

const (
	// Idle means the queue is empty and no session is running.
	Idle State = iota
	// Playing means a session is actively streaming.
	Playing
	// Paused means a session exists but its pause gate is closed.
	Paused
	// Stopped means Stop was called; the loop will not auto-advance until
	// a new command (Enqueue, PlayNow) starts it again.
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// RepeatMode controls what happens to a track once its session ends
// normally (not cancelled).
type RepeatMode int

const (
	// RepeatNone never re-enqueues a finished track.
	RepeatNone RepeatMode = iota
	// RepeatAll re-appends the finished track to the tail of the queue.
	RepeatAll
	// RepeatOne re-enqueues the finished track at the front of the queue,
	// so it plays again immediately.
	RepeatOne
)

func (r RepeatMode) String() string {
	switch r {
	case RepeatAll:
		return "all"
	case RepeatOne:
		return "one"
	default:
		return "off"
	}
}

// ParseRepeatMode maps config.PlaybackConfig.DefaultRepeatMode's vocabulary
// ("off", "one", "all", case-insensitive) onto RepeatMode. An unrecognized
// value returns RepeatNone, matching the config layer's own default.
func ParseRepeatMode(mode string) RepeatMode {
	switch strings.ToLower(mode) {
	case "all":
		return RepeatAll
	case "one":
		return RepeatOne
	default:
		return RepeatNone
	}
}

// SourceFactory builds the audio.Source a session should read from for one
// track. The loop calls this once per dequeue, choosing local-file vs.
// remote construction as appropriate for the track's InputKind.
type SourceFactory func(t track.Track) (audio.Source, error)

// CurrentSessionInfo is a read-only, point-in-time snapshot of the
// session the loop currently owns, derived on demand from Loop state.
// The zero value paired with ok=false means no session is active.
type CurrentSessionInfo struct {
	Track     track.Track
	State     State
	StartedAt time.Time
}

// Listeners are fire-and-forget observer hooks, invoked synchronously from
// the loop's own goroutine. Any of them may be nil.
type Listeners struct {
	// OnStateChanged fires only when State actually changes.
	OnStateChanged func(State)
	// OnTrackChanged fires on every dequeue attempt, including a nil
	// track when the queue was empty.
	OnTrackChanged func(*track.Track)
	// OnSessionEnded fires once per session, before the loop decides
	// whether to requeue or advance.
	OnSessionEnded func(track.Track, session.PlaybackEndResult)
}
