package sink_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/kestrelfm/spindle/pkg/sink"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeOutput records every PCM buffer handed to it and can be made to fail
// on demand, mirroring the teacher's mock output pattern.
type fakeOutput struct {
	mu       sync.Mutex
	written  [][]byte
	flushes  int
	closed   bool
	failNext bool
}

func (f *fakeOutput) WritePCM(buffer []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failNext {
		f.failNext = false
		return fmt.Errorf("fake output: write failed")
	}
	cp := make([]byte, len(buffer))
	copy(cp, buffer)
	f.written = append(f.written, cp)
	return nil
}

func (f *fakeOutput) Flush() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flushes++
	return nil
}

func (f *fakeOutput) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeOutput) writeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.written)
}

// A buffer large enough that pacing would sleep a noticeable amount if the
// clock baseline weren't reset between the two writes under test.
func secondOfSilence() []byte {
	return make([]byte, 192000)
}

func TestPacingSink_StallResetsClockBaseline(t *testing.T) {
	output := &fakeOutput{}
	s := sink.NewPacingSink(output, 20*time.Millisecond, 2*time.Second)
	defer s.Close()

	ctx := context.Background()

	// First write establishes a clock baseline and a full second of audio
	// as backlog. Its context is already canceled, so it returns without
	// sleeping that second out; the backlog stays on the clock.
	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, s.Write(cancelled, secondOfSilence()), context.Canceled)

	// Wait well past the configured stall threshold before writing again.
	time.Sleep(40 * time.Millisecond)

	start := time.Now()
	require.NoError(t, s.Write(ctx, []byte("x")))
	elapsed := time.Since(start)

	// Had the clock baseline carried over, the accumulated bytes_sent would
	// have pushed this write's target far into the future. Because the gap
	// exceeded stallThreshold, Write must reset clockStart/bytesSent instead
	// of sleeping out the first write's backlog.
	assert.Less(t, elapsed, 50*time.Millisecond)
	assert.Equal(t, 2, output.writeCount())
}

func TestPacingSink_DelayClampedToMaxSleep(t *testing.T) {
	output := &fakeOutput{}
	maxSleep := 30 * time.Millisecond
	s := sink.NewPacingSink(output, time.Second, maxSleep)
	defer s.Close()

	ctx := context.Background()

	// A full second of PCM computes to a ~1s ideal delay, far past
	// maxSleep. Write must clamp instead of actually sleeping that long.
	start := time.Now()
	require.NoError(t, s.Write(ctx, secondOfSilence()))
	elapsed := time.Since(start)

	assert.Less(t, elapsed, 200*time.Millisecond)
}

func TestPacingSink_ZeroDelaySkipsSleep(t *testing.T) {
	output := &fakeOutput{}
	s := sink.NewPacingSink(output, time.Second, 2*time.Second)
	defer s.Close()

	ctx := context.Background()

	// A tiny buffer computes an expected delivery time at or before now, so
	// Write should return immediately rather than sleeping.
	start := time.Now()
	require.NoError(t, s.Write(ctx, []byte{0x01, 0x02}))
	elapsed := time.Since(start)

	assert.Less(t, elapsed, 20*time.Millisecond)
}

func TestPacingSink_WriteSurfacesOutputError(t *testing.T) {
	output := &fakeOutput{failNext: true}
	s := sink.NewPacingSink(output, time.Second, 2*time.Second)
	defer s.Close()

	err := s.Write(context.Background(), []byte("x"))
	assert.Error(t, err)
}

func TestPacingSink_WriteCancelsWithContext(t *testing.T) {
	output := &fakeOutput{}
	s := sink.NewPacingSink(output, time.Second, 2*time.Second)
	defer s.Close()

	ctx, cancel := context.WithCancel(context.Background())

	// Queue up a write with a long pending sleep, then cancel before it
	// would naturally wake.
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	err := s.Write(ctx, secondOfSilence())
	elapsed := time.Since(start)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, elapsed, 200*time.Millisecond)
}

func TestPacingSink_CompleteResetsStateForNextTrack(t *testing.T) {
	output := &fakeOutput{}
	s := sink.NewPacingSink(output, time.Second, 2*time.Second)
	defer s.Close()

	ctx := context.Background()

	// Leave a full second of backlog on the clock: the canceled context
	// makes this write return without sleeping it out.
	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, s.Write(cancelled, secondOfSilence()), context.Canceled)
	require.NoError(t, s.Complete(ctx))
	assert.Equal(t, 1, output.flushes)

	// After Complete resets the clock baseline, the next track's first write
	// must not inherit the prior track's accumulated bytes_sent.
	start := time.Now()
	require.NoError(t, s.Write(ctx, []byte("x")))
	elapsed := time.Since(start)
	assert.Less(t, elapsed, 50*time.Millisecond)
}

func TestPacingSink_WriteAfterCloseErrors(t *testing.T) {
	output := &fakeOutput{}
	s := sink.NewPacingSink(output, time.Second, 2*time.Second)
	require.NoError(t, s.Close())

	err := s.Write(context.Background(), []byte("x"))
	assert.Error(t, err)
}

func TestPacingSink_EmptyBufferIsNoop(t *testing.T) {
	output := &fakeOutput{}
	s := sink.NewPacingSink(output, time.Second, 2*time.Second)
	defer s.Close()

	require.NoError(t, s.Write(context.Background(), nil))
	assert.Equal(t, 0, output.writeCount())
}
