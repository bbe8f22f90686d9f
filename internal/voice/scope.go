package voice

import (
	"bytes"
	"fmt"

	"github.com/google/uuid"

	"github.com/notsogambhir/Instacom/internal/relay"
)

// Retention caps per conversation scope
const (
	GroupRetention  = 10
	DirectRetention = 5
)

// Scope is the retention boundary of a conversation: one group's
// messages, or one unordered sender-recipient pair's direct messages.
type Scope struct {
	GroupID *uuid.UUID
	// Canonical pair for direct scopes: UserA sorts before UserB so
	// both directions map to the same scope.
	UserA uuid.UUID
	UserB uuid.UUID
}

// ScopeFor derives the conversation scope of a message from its sender
// and target
func ScopeFor(senderID uuid.UUID, target relay.Target) Scope {
	if target.IsBroadcast() {
		return Scope{GroupID: target.GroupID}
	}

	a, b := senderID, *target.RecipientID
	if bytes.Compare(b[:], a[:]) < 0 {
		a, b = b, a
	}
	return Scope{UserA: a, UserB: b}
}

// IsGroup reports whether the scope covers a group conversation
func (s Scope) IsGroup() bool {
	return s.GroupID != nil
}

// Cap returns how many messages the scope retains
func (s Scope) Cap() int {
	if s.IsGroup() {
		return GroupRetention
	}
	return DirectRetention
}

// Key is a stable string form used for scope-level serialization
func (s Scope) Key() string {
	if s.IsGroup() {
		return fmt.Sprintf("group:%s", s.GroupID)
	}
	return fmt.Sprintf("direct:%s:%s", s.UserA, s.UserB)
}
