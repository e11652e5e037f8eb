package queue_test

import (
	"testing"

	"github.com/kestrelfm/spindle/pkg/queue"
	"github.com/kestrelfm/spindle/pkg/track"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTrack(uri string) track.Track {
	return track.Track{URI: uri, Title: uri, InputKind: track.InputLocalFile}
}

func TestQueue_AppendManyThenDequeueIsFIFO(t *testing.T) {
	q := queue.New()
	q.AppendMany([]track.Track{newTrack("a"), newTrack("b"), newTrack("c")})
	require.Equal(t, 3, q.Count())

	first, ok := q.DequeueNext(false)
	require.True(t, ok)
	assert.Equal(t, "a", first.URI)

	second, ok := q.DequeueNext(false)
	require.True(t, ok)
	assert.Equal(t, "b", second.URI)

	assert.Equal(t, 1, q.Count())
}

func TestQueue_DequeueNextOnEmptyQueueReturnsFalse(t *testing.T) {
	q := queue.New()
	_, ok := q.DequeueNext(false)
	assert.False(t, ok)
}

func TestQueue_PushFrontDedupsPriorOccurrence(t *testing.T) {
	q := queue.New()
	q.AppendMany([]track.Track{newTrack("a"), newTrack("b"), newTrack("a")})

	q.PushFront(newTrack("a"))

	snapshot := q.Snapshot()
	require.Len(t, snapshot, 2)
	assert.Equal(t, "a", snapshot[0].URI)
	assert.Equal(t, "b", snapshot[1].URI)
}

func TestQueue_RemoveWhereIDRemovesAllMatches(t *testing.T) {
	q := queue.New()
	q.AppendMany([]track.Track{newTrack("a"), newTrack("b"), newTrack("a"), newTrack("c")})

	q.RemoveWhereID("a")

	snapshot := q.Snapshot()
	require.Len(t, snapshot, 2)
	assert.Equal(t, "b", snapshot[0].URI)
	assert.Equal(t, "c", snapshot[1].URI)
}

func TestQueue_ClearEmptiesQueue(t *testing.T) {
	q := queue.New()
	q.AppendMany([]track.Track{newTrack("a"), newTrack("b")})
	q.Clear()

	assert.Equal(t, 0, q.Count())
	assert.Empty(t, q.Snapshot())
	_, ok := q.DequeueNext(false)
	assert.False(t, ok)
}

func TestQueue_DequeueNextShuffleReturnsQueuedTrack(t *testing.T) {
	q := queue.New()
	q.AppendMany([]track.Track{newTrack("a"), newTrack("b"), newTrack("c")})

	next, ok := q.DequeueNext(true)
	require.True(t, ok)
	assert.Contains(t, []string{"a", "b", "c"}, next.URI)
	assert.Equal(t, 2, q.Count())
}

func TestQueue_SnapshotIsIndependentCopy(t *testing.T) {
	q := queue.New()
	q.AppendMany([]track.Track{newTrack("a")})

	snapshot := q.Snapshot()
	q.AppendMany([]track.Track{newTrack("b")})

	assert.Len(t, snapshot, 1)
	assert.Equal(t, 2, q.Count())
}
