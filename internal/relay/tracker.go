package relay

import (
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// TrackedMessage is an in-flight voice message: the frames received so
// far for one sender's current stream. Frames are append-only and keep
// arrival order. Once the message leaves the tracker (end, abort or
// supersede) further appends are refused.
type TrackedMessage struct {
	ID        uuid.UUID
	SenderID  uuid.UUID
	Target    Target
	StartedAt time.Time

	mu          sync.Mutex
	frames      [][]float32
	lastFrameAt time.Time
	closed      bool
}

// append adds a frame to the buffer, refusing once the message is
// closed (an end event racing a late frame)
func (m *TrackedMessage) append(samples []float32) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return false
	}
	m.frames = append(m.frames, samples)
	m.lastFrameAt = time.Now()
	return true
}

// close seals the buffer and returns the frames in arrival order
func (m *TrackedMessage) close() [][]float32 {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	return m.frames
}

// Frames returns the buffered frames of a message that already left
// the tracker
func (m *TrackedMessage) Frames() [][]float32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.frames
}

func (m *TrackedMessage) idleSince() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.lastFrameAt.IsZero() {
		return m.StartedAt
	}
	return m.lastFrameAt
}

// Tracker holds at most one in-flight voice message per sender and
// serializes all state transitions for it. Safe for concurrent use.
type Tracker struct {
	mu       sync.Mutex
	bySender map[uuid.UUID]*TrackedMessage
	logger   *log.Logger
}

// NewTracker creates a new session tracker
func NewTracker(logger *log.Logger) *Tracker {
	return &Tracker{
		bySender: make(map[uuid.UUID]*TrackedMessage),
		logger:   logger,
	}
}

// Start begins a new tracked message for a sender and returns it with a
// freshly generated id. A second start while one is streaming
// force-aborts the prior message: its buffer is discarded, never
// persisted.
func (t *Tracker) Start(senderID uuid.UUID, target Target) *TrackedMessage {
	msg := &TrackedMessage{
		ID:        uuid.New(),
		SenderID:  senderID,
		Target:    target,
		StartedAt: time.Now(),
	}

	t.mu.Lock()
	prior := t.bySender[senderID]
	t.bySender[senderID] = msg
	t.mu.Unlock()

	if prior != nil {
		prior.close()
		t.logger.Warn(
			"New stream superseded an in-flight message",
			"sender_id", senderID,
			"orphaned_message_id", prior.ID,
			"new_message_id", msg.ID,
		)
	}

	return msg
}

// Append buffers a frame for the sender's in-flight message. The frame
// is dropped when the sender has no stream or the message id does not
// match; the connection stays healthy either way.
func (t *Tracker) Append(senderID, messageID uuid.UUID, samples []float32) (*TrackedMessage, bool) {
	t.mu.Lock()
	msg := t.bySender[senderID]
	t.mu.Unlock()

	if msg == nil || msg.ID != messageID {
		t.logger.Warn(
			"Dropping frame for unknown message",
			"sender_id", senderID,
			"message_id", messageID,
		)
		return nil, false
	}

	if !msg.append(samples) {
		// Lost the race against end/abort
		return nil, false
	}

	return msg, true
}

// End finalizes the sender's in-flight message and removes it from the
// tracker, returning it for assembly. An end with an unknown or
// mismatched id is a logged no-op.
func (t *Tracker) End(senderID, messageID uuid.UUID) (*TrackedMessage, bool) {
	t.mu.Lock()
	msg := t.bySender[senderID]
	if msg == nil || msg.ID != messageID {
		t.mu.Unlock()
		t.logger.Warn(
			"End event for unknown message",
			"sender_id", senderID,
			"message_id", messageID,
		)
		return nil, false
	}
	delete(t.bySender, senderID)
	t.mu.Unlock()

	msg.close()
	return msg, true
}

// Abort discards the sender's in-flight message, if any. Used on
// disconnect; the buffered frames are released without persistence.
func (t *Tracker) Abort(senderID uuid.UUID) (*TrackedMessage, bool) {
	t.mu.Lock()
	msg := t.bySender[senderID]
	if msg == nil {
		t.mu.Unlock()
		return nil, false
	}
	delete(t.bySender, senderID)
	t.mu.Unlock()

	msg.close()
	t.logger.Info(
		"In-flight message aborted",
		"sender_id", senderID,
		"message_id", msg.ID,
		"frames_discarded", len(msg.Frames()),
	)
	return msg, true
}

// AbortIf discards the sender's in-flight message only when its id
// matches. Lets a disconnecting connection abort the stream it owns
// without touching a newer stream started from another device.
func (t *Tracker) AbortIf(senderID, messageID uuid.UUID) (*TrackedMessage, bool) {
	t.mu.Lock()
	msg := t.bySender[senderID]
	if msg == nil || msg.ID != messageID {
		t.mu.Unlock()
		return nil, false
	}
	delete(t.bySender, senderID)
	t.mu.Unlock()

	msg.close()
	t.logger.Info(
		"In-flight message aborted",
		"sender_id", senderID,
		"message_id", msg.ID,
		"frames_discarded", len(msg.Frames()),
	)
	return msg, true
}

// SweepIdle removes every message that received no frame for longer
// than maxIdle and returns them so the caller can finalize them as if
// the sender had sent an end event
func (t *Tracker) SweepIdle(maxIdle time.Duration) []*TrackedMessage {
	cutoff := time.Now().Add(-maxIdle)

	t.mu.Lock()
	var expired []*TrackedMessage
	for senderID, msg := range t.bySender {
		if msg.idleSince().Before(cutoff) {
			delete(t.bySender, senderID)
			expired = append(expired, msg)
		}
	}
	t.mu.Unlock()

	for _, msg := range expired {
		msg.close()
		t.logger.Warn(
			"Auto-ending idle stream",
			"sender_id", msg.SenderID,
			"message_id", msg.ID,
		)
	}
	return expired
}

// InFlight reports whether a sender currently has a streaming message
func (t *Tracker) InFlight(senderID uuid.UUID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.bySender[senderID] != nil
}
