package relay_test

import (
	"io"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notsogambhir/Instacom/internal/relay"
)

func newTestLogger() *log.Logger {
	return log.New(io.Discard)
}

func TestTracker_StartAssignsUniqueIDs(t *testing.T) {
	tracker := relay.NewTracker(newTestLogger())

	senderA := uuid.New()
	senderB := uuid.New()

	msgA := tracker.Start(senderA, relay.BroadcastTarget(uuid.New()))
	msgB := tracker.Start(senderB, relay.DirectTarget(uuid.New()))

	require.NotEqual(t, uuid.Nil, msgA.ID)
	require.NotEqual(t, uuid.Nil, msgB.ID)
	assert.NotEqual(t, msgA.ID, msgB.ID)
	assert.True(t, tracker.InFlight(senderA))
	assert.True(t, tracker.InFlight(senderB))
}

func TestTracker_AppendBuffersInOrder(t *testing.T) {
	tracker := relay.NewTracker(newTestLogger())
	sender := uuid.New()

	msg := tracker.Start(sender, relay.DirectTarget(uuid.New()))

	frames := [][]float32{
		{0.1, 0.2},
		{0.3},
		{0.4, 0.5, 0.6},
	}
	for _, frame := range frames {
		_, ok := tracker.Append(sender, msg.ID, frame)
		require.True(t, ok)
	}

	ended, ok := tracker.End(sender, msg.ID)
	require.True(t, ok)
	assert.Equal(t, frames, ended.Frames())
	assert.False(t, tracker.InFlight(sender))
}

func TestTracker_DropsFrameWithUnknownMessageID(t *testing.T) {
	tracker := relay.NewTracker(newTestLogger())
	sender := uuid.New()

	msg := tracker.Start(sender, relay.DirectTarget(uuid.New()))

	_, ok := tracker.Append(sender, uuid.New(), []float32{0.5})
	assert.False(t, ok, "mismatched message id must be dropped")

	_, ok = tracker.Append(uuid.New(), msg.ID, []float32{0.5})
	assert.False(t, ok, "frame from a sender with no stream must be dropped")

	ended, ok := tracker.End(sender, msg.ID)
	require.True(t, ok)
	assert.Empty(t, ended.Frames())
}

func TestTracker_EndWithUnknownIDIsNoOp(t *testing.T) {
	tracker := relay.NewTracker(newTestLogger())
	sender := uuid.New()

	_, ok := tracker.End(sender, uuid.New())
	assert.False(t, ok)

	msg := tracker.Start(sender, relay.DirectTarget(uuid.New()))
	_, ok = tracker.End(sender, uuid.New())
	assert.False(t, ok)
	assert.True(t, tracker.InFlight(sender), "mismatched end must not consume the stream")

	_, ok = tracker.End(sender, msg.ID)
	assert.True(t, ok)
}

func TestTracker_SecondStartSupersedesFirst(t *testing.T) {
	tracker := relay.NewTracker(newTestLogger())
	sender := uuid.New()

	first := tracker.Start(sender, relay.DirectTarget(uuid.New()))
	_, ok := tracker.Append(sender, first.ID, []float32{0.1})
	require.True(t, ok)

	second := tracker.Start(sender, relay.DirectTarget(uuid.New()))
	require.NotEqual(t, first.ID, second.ID)

	// The orphaned stream no longer accepts frames or ends
	_, ok = tracker.Append(sender, first.ID, []float32{0.2})
	assert.False(t, ok)
	_, ok = tracker.End(sender, first.ID)
	assert.False(t, ok)

	// The replacement stream works normally
	_, ok = tracker.Append(sender, second.ID, []float32{0.3})
	assert.True(t, ok)
	ended, ok := tracker.End(sender, second.ID)
	require.True(t, ok)
	assert.Equal(t, [][]float32{{0.3}}, ended.Frames())
}

func TestTracker_AbortDiscardsStream(t *testing.T) {
	tracker := relay.NewTracker(newTestLogger())
	sender := uuid.New()

	msg := tracker.Start(sender, relay.BroadcastTarget(uuid.New()))
	tracker.Append(sender, msg.ID, []float32{0.1})

	aborted, ok := tracker.Abort(sender)
	require.True(t, ok)
	assert.Equal(t, msg.ID, aborted.ID)
	assert.False(t, tracker.InFlight(sender))

	// Nothing left to abort
	_, ok = tracker.Abort(sender)
	assert.False(t, ok)
}

func TestTracker_AbortIfOnlyMatchesOwnedStream(t *testing.T) {
	tracker := relay.NewTracker(newTestLogger())
	sender := uuid.New()

	first := tracker.Start(sender, relay.DirectTarget(uuid.New()))
	second := tracker.Start(sender, relay.DirectTarget(uuid.New()))

	// A stale connection aborting its superseded stream must not
	// touch the newer one
	_, ok := tracker.AbortIf(sender, first.ID)
	assert.False(t, ok)
	assert.True(t, tracker.InFlight(sender))

	_, ok = tracker.AbortIf(sender, second.ID)
	assert.True(t, ok)
	assert.False(t, tracker.InFlight(sender))
}

func TestTracker_EndRacingAppendsKeepsBufferConsistent(t *testing.T) {
	tracker := relay.NewTracker(newTestLogger())
	sender := uuid.New()

	msg := tracker.Start(sender, relay.DirectTarget(uuid.New()))

	var wg sync.WaitGroup
	appended := make(chan int, 64)

	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, ok := tracker.Append(sender, msg.ID, []float32{1}); ok {
				appended <- 1
			}
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		tracker.End(sender, msg.ID)
	}()

	wg.Wait()
	close(appended)

	accepted := 0
	for range appended {
		accepted++
	}

	// Every accepted append landed in the buffer exactly once; frames
	// racing past the end were refused, not half-written
	assert.Len(t, msg.Frames(), accepted)
}

func TestTracker_SweepIdleReturnsStaleStreams(t *testing.T) {
	tracker := relay.NewTracker(newTestLogger())
	staleSender := uuid.New()
	freshSender := uuid.New()

	stale := tracker.Start(staleSender, relay.DirectTarget(uuid.New()))

	time.Sleep(20 * time.Millisecond)

	fresh := tracker.Start(freshSender, relay.DirectTarget(uuid.New()))
	tracker.Append(freshSender, fresh.ID, []float32{0.1})

	expired := tracker.SweepIdle(10 * time.Millisecond)
	require.Len(t, expired, 1)
	assert.Equal(t, stale.ID, expired[0].ID)

	assert.False(t, tracker.InFlight(staleSender))
	assert.True(t, tracker.InFlight(freshSender))
}
