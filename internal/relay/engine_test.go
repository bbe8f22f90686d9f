package relay_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notsogambhir/Instacom/internal/relay"
)

type fakePresence struct {
	activeUsers map[uuid.UUID]bool
	activeByGrp map[uuid.UUID][]uuid.UUID
}

func newFakePresence() *fakePresence {
	return &fakePresence{
		activeUsers: make(map[uuid.UUID]bool),
		activeByGrp: make(map[uuid.UUID][]uuid.UUID),
	}
}

func (f *fakePresence) IsActive(_ context.Context, userID uuid.UUID) (bool, error) {
	return f.activeUsers[userID], nil
}

func (f *fakePresence) ListActive(_ context.Context, groupID uuid.UUID) ([]uuid.UUID, error) {
	return f.activeByGrp[groupID], nil
}

func (f *fakePresence) setActive(userID uuid.UUID, groupID *uuid.UUID) {
	f.activeUsers[userID] = true
	if groupID != nil {
		f.activeByGrp[*groupID] = append(f.activeByGrp[*groupID], userID)
	}
}

func TestEngine_BroadcastReachesActiveMembersInOrder(t *testing.T) {
	presenceSvc := newFakePresence()
	registry := relay.NewRegistry(nil, newTestLogger())
	tracker := relay.NewTracker(newTestLogger())
	engine := relay.NewEngine(registry, presenceSvc, newTestLogger())

	groupID := uuid.New()
	sender := memberIdentity(groupID)
	receiverB := memberIdentity(groupID)
	receiverC := memberIdentity(groupID)

	senderConn := newFakeTransport()
	connB := newFakeTransport()
	connC := newFakeTransport()
	registry.Register(sender, senderConn)
	registry.Register(receiverB, connB)
	registry.Register(receiverC, connC)

	presenceSvc.setActive(sender.UserID, &groupID)
	presenceSvc.setActive(receiverB.UserID, &groupID)
	presenceSvc.setActive(receiverC.UserID, &groupID)

	msg := tracker.Start(sender.UserID, relay.BroadcastTarget(groupID))

	frames := [][]float32{
		make([]float32, 480),
		make([]float32, 480),
		make([]float32, 480),
	}
	for i, samples := range frames {
		samples[0] = float32(i + 1)
		tracker.Append(sender.UserID, msg.ID, samples)
		engine.Relay(context.Background(), msg, senderConn.ID(), samples)
	}

	for _, conn := range []*fakeTransport{connB, connC} {
		received := conn.received()
		require.Len(t, received, 3)
		for i, frame := range received {
			assert.Equal(t, msg.ID, frame.MessageID)
			assert.Equal(t, senderConn.ID(), frame.SenderConnID)
			assert.Equal(t, float32(i+1), frame.Samples[0], "frames must arrive in send order")
		}
	}

	// Echo suppression: the sender's own transport saw nothing
	assert.Empty(t, senderConn.received())
}

func TestEngine_BroadcastSkipsBusyMembers(t *testing.T) {
	presenceSvc := newFakePresence()
	registry := relay.NewRegistry(nil, newTestLogger())
	tracker := relay.NewTracker(newTestLogger())
	engine := relay.NewEngine(registry, presenceSvc, newTestLogger())

	groupID := uuid.New()
	sender := memberIdentity(groupID)
	busy := memberIdentity(groupID)

	senderConn := newFakeTransport()
	busyConn := newFakeTransport()
	registry.Register(sender, senderConn)
	registry.Register(busy, busyConn)

	// busy is connected but not presence-active: connectivity alone is
	// not eligibility
	presenceSvc.setActive(sender.UserID, &groupID)

	msg := tracker.Start(sender.UserID, relay.BroadcastTarget(groupID))
	engine.Relay(context.Background(), msg, senderConn.ID(), []float32{0.5})

	assert.Empty(t, busyConn.received())
}

func TestEngine_DirectDeliversToActiveRecipientOnly(t *testing.T) {
	presenceSvc := newFakePresence()
	registry := relay.NewRegistry(nil, newTestLogger())
	tracker := relay.NewTracker(newTestLogger())
	engine := relay.NewEngine(registry, presenceSvc, newTestLogger())

	sender := relay.Identity{UserID: uuid.New(), Role: "MEMBER"}
	recipient := relay.Identity{UserID: uuid.New(), Role: "MEMBER"}

	senderConn := newFakeTransport()
	recipientConn := newFakeTransport()
	registry.Register(sender, senderConn)
	registry.Register(recipient, recipientConn)

	msg := tracker.Start(sender.UserID, relay.DirectTarget(recipient.UserID))

	// Recipient connected but not active: no delivery
	engine.Relay(context.Background(), msg, senderConn.ID(), []float32{0.1})
	assert.Empty(t, recipientConn.received())

	presenceSvc.setActive(recipient.UserID, nil)

	engine.Relay(context.Background(), msg, senderConn.ID(), []float32{0.2})
	received := recipientConn.received()
	require.Len(t, received, 1)
	assert.Equal(t, []float32{0.2}, received[0].Samples)
}

func TestEngine_DirectToSelfIsSuppressed(t *testing.T) {
	presenceSvc := newFakePresence()
	registry := relay.NewRegistry(nil, newTestLogger())
	tracker := relay.NewTracker(newTestLogger())
	engine := relay.NewEngine(registry, presenceSvc, newTestLogger())

	sender := relay.Identity{UserID: uuid.New(), Role: "MEMBER"}
	phone := newFakeTransport()
	laptop := newFakeTransport()
	registry.Register(sender, phone)
	registry.Register(sender, laptop)
	presenceSvc.setActive(sender.UserID, nil)

	msg := tracker.Start(sender.UserID, relay.DirectTarget(sender.UserID))
	engine.Relay(context.Background(), msg, phone.ID(), []float32{0.3})

	assert.Empty(t, phone.received())
	assert.Empty(t, laptop.received())
}

func TestEngine_DeadTransportIsSkippedSilently(t *testing.T) {
	presenceSvc := newFakePresence()
	registry := relay.NewRegistry(nil, newTestLogger())
	tracker := relay.NewTracker(newTestLogger())
	engine := relay.NewEngine(registry, presenceSvc, newTestLogger())

	groupID := uuid.New()
	sender := memberIdentity(groupID)
	dead := memberIdentity(groupID)
	alive := memberIdentity(groupID)

	senderConn := newFakeTransport()
	deadConn := newFakeTransport()
	deadConn.fail = true
	aliveConn := newFakeTransport()
	registry.Register(sender, senderConn)
	registry.Register(dead, deadConn)
	registry.Register(alive, aliveConn)

	presenceSvc.setActive(dead.UserID, &groupID)
	presenceSvc.setActive(alive.UserID, &groupID)

	msg := tracker.Start(sender.UserID, relay.BroadcastTarget(groupID))
	engine.Relay(context.Background(), msg, senderConn.ID(), []float32{0.7})

	// The dead recipient costs nothing to the live one
	require.Len(t, aliveConn.received(), 1)
}
