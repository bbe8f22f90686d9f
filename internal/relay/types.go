package relay

import (
	"fmt"

	"github.com/google/uuid"
)

// Identity describes the authenticated owner of a connection. The
// payload comes from token claims at registration time and is trusted
// as-is.
type Identity struct {
	UserID  uuid.UUID
	Name    string
	Role    string
	GroupID *uuid.UUID
}

// Target describes where a voice message is headed: the whole group or
// a single recipient. Exactly one field is set.
type Target struct {
	GroupID     *uuid.UUID
	RecipientID *uuid.UUID
}

// BroadcastTarget targets all active members of a group
func BroadcastTarget(groupID uuid.UUID) Target {
	return Target{GroupID: &groupID}
}

// DirectTarget targets one specific recipient
func DirectTarget(recipientID uuid.UUID) Target {
	return Target{RecipientID: &recipientID}
}

// IsBroadcast reports whether the target is a group broadcast
func (t Target) IsBroadcast() bool {
	return t.GroupID != nil
}

// Validate checks that exactly one of group or recipient is set
func (t Target) Validate() error {
	if t.GroupID == nil && t.RecipientID == nil {
		return fmt.Errorf("target must name a group or a recipient")
	}
	if t.GroupID != nil && t.RecipientID != nil {
		return fmt.Errorf("target cannot name both a group and a recipient")
	}
	return nil
}

// Frame is one relayed chunk of audio. SenderConnID lets receivers do
// their own echo suppression.
type Frame struct {
	MessageID    uuid.UUID
	SenderConnID string
	Samples      []float32
}

// Transport is the outbound side of one live client connection.
// SendFrame must preserve the order of calls made from a single
// goroutine and must not block; delivery is best-effort.
type Transport interface {
	ID() string
	SendFrame(frame Frame) error
}
