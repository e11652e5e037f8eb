// Package queue implements the playback engine's pending-track queue.
//
// Grounded on latoulicious-HKTM's pkg/common.MusicQueue: a mutex-guarded
// slice with append/next/clear/remove operations, generalized here to the
// shuffle-dequeue and dedup-by-uri semantics the playback loop requires.
package queue

import (
	"math/rand"
	"sync"

	"github.com/kestrelfm/spindle/pkg/track"
)

// Queue is an ordered, mutable sequence of pending tracks.
//
// Mutation is restricted by convention to the playback loop's single
// consumer goroutine (see pkg/player); Snapshot is the one method safe to
// call from any goroutine, returning a consistent point-in-time copy.
type Queue struct {
	mu    sync.RWMutex
	items []track.Track
	rng   *rand.Rand
}

// New creates an empty queue.
func New() *Queue {
	return &Queue{
		rng: rand.New(rand.NewSource(randSeed())),
	}
}

// AppendMany appends tracks to the tail of the queue. A zero-length slice is
// a no-op.
func (q *Queue) AppendMany(tracks []track.Track) {
	if len(tracks) == 0 {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, tracks...)
}

// PushFront removes any prior occurrence of t (by URI) and inserts t at the
// head of the queue.
func (q *Queue) PushFront(t track.Track) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.removeWhereIDLocked(t.URI)
	q.items = append([]track.Track{t}, q.items...)
}

// RemoveWhereID removes every queued track whose URI matches uri.
func (q *Queue) RemoveWhereID(uri string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.removeWhereIDLocked(uri)
}

func (q *Queue) removeWhereIDLocked(uri string) {
	if len(q.items) == 0 {
		return
	}
	kept := q.items[:0:0]
	for _, item := range q.items {
		if item.URI != uri {
			kept = append(kept, item)
		}
	}
	q.items = kept
}

// Clear empties the pending queue. It never touches an in-flight session.
func (q *Queue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = nil
}

// DequeueNext removes and returns the next track to play. With shuffle
// false it is the head of the queue (FIFO); with shuffle true it is a
// uniformly random element. Returns false if the queue is empty.
func (q *Queue) DequeueNext(shuffle bool) (track.Track, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return track.Track{}, false
	}

	index := 0
	if shuffle {
		index = q.rng.Intn(len(q.items))
	}

	next := q.items[index]
	q.items = append(q.items[:index], q.items[index+1:]...)
	return next, true
}

// Snapshot returns an ordered copy of the pending queue. Safe to call from
// any goroutine; mutations after the call never alter the returned slice.
func (q *Queue) Snapshot() []track.Track {
	q.mu.RLock()
	defer q.mu.RUnlock()

	out := make([]track.Track, len(q.items))
	copy(out, q.items)
	return out
}

// Count returns the number of pending tracks.
func (q *Queue) Count() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return len(q.items)
}
