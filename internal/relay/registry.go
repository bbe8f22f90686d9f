package relay

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/notsogambhir/Instacom/internal/presence"
)

// StatusSignaler receives best-effort presence updates as connections
// come and go
type StatusSignaler interface {
	SetStatus(ctx context.Context, userID uuid.UUID, groupID *uuid.UUID, status string) error
}

type registration struct {
	identity  Identity
	transport Transport
}

// Registry maps authenticated identities to their live transports and
// tracks group room membership. One identity may hold several
// registrations at once (multi-device); each transport is a distinct
// entry. All methods are safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	conns  map[string]*registration            // connection id -> entry
	byUser map[uuid.UUID]map[string]*registration // user id -> connection id -> entry
	rooms  map[uuid.UUID]map[string]*registration // group id -> connection id -> entry

	signaler StatusSignaler
	logger   *log.Logger
}

// NewRegistry creates a new connection registry
func NewRegistry(signaler StatusSignaler, logger *log.Logger) *Registry {
	return &Registry{
		conns:    make(map[string]*registration),
		byUser:   make(map[uuid.UUID]map[string]*registration),
		rooms:    make(map[uuid.UUID]map[string]*registration),
		signaler: signaler,
		logger:   logger,
	}
}

// Register binds a connection to its identity and joins the group room
// when the identity carries a group id. Registering the same transport
// twice is idempotent.
func (r *Registry) Register(identity Identity, transport Transport) {
	connID := transport.ID()
	entry := &registration{identity: identity, transport: transport}

	r.mu.Lock()
	r.conns[connID] = entry

	userConns, ok := r.byUser[identity.UserID]
	if !ok {
		userConns = make(map[string]*registration)
		r.byUser[identity.UserID] = userConns
	}
	userConns[connID] = entry

	if identity.GroupID != nil {
		room, ok := r.rooms[*identity.GroupID]
		if !ok {
			room = make(map[string]*registration)
			r.rooms[*identity.GroupID] = room
		}
		room[connID] = entry
	}
	r.mu.Unlock()

	r.logger.Info(
		"Connection registered",
		"conn_id", connID,
		"user_id", identity.UserID,
		"group_id", identity.GroupID,
	)

	r.signalStatus(identity, presence.StatusActive)
}

// Unregister removes a connection and all its room memberships. It is
// a no-op for unknown transports. The offline presence signal fires
// only once the identity's last transport is gone.
func (r *Registry) Unregister(transport Transport) {
	connID := transport.ID()

	r.mu.Lock()
	entry, ok := r.conns[connID]
	if !ok {
		r.mu.Unlock()
		return
	}
	delete(r.conns, connID)

	identity := entry.identity
	lastForUser := false

	if userConns, ok := r.byUser[identity.UserID]; ok {
		delete(userConns, connID)
		if len(userConns) == 0 {
			delete(r.byUser, identity.UserID)
			lastForUser = true
		}
	}

	if identity.GroupID != nil {
		if room, ok := r.rooms[*identity.GroupID]; ok {
			delete(room, connID)
			if len(room) == 0 {
				delete(r.rooms, *identity.GroupID)
			}
		}
	}
	r.mu.Unlock()

	r.logger.Info(
		"Connection unregistered",
		"conn_id", connID,
		"user_id", identity.UserID,
	)

	if lastForUser {
		r.signalStatus(identity, presence.StatusOffline)
	}
}

// IdentityFor resolves the identity bound to a connection id
func (r *Registry) IdentityFor(connID string) (Identity, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.conns[connID]
	if !ok {
		return Identity{}, false
	}
	return entry.identity, true
}

// UserTransports returns all live transports of a user, excluding every
// transport owned by the excluded identity. Echo suppression is
// identity-based: asking for the sender's own transports yields nothing.
func (r *Registry) UserTransports(userID, excluding uuid.UUID) []Transport {
	if userID == excluding {
		return nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	userConns, ok := r.byUser[userID]
	if !ok {
		return nil
	}

	transports := make([]Transport, 0, len(userConns))
	for _, entry := range userConns {
		transports = append(transports, entry.transport)
	}
	return transports
}

// RoomTransports returns the live transports of the given group room
// members whose user id is in the eligible set, excluding every
// transport owned by the excluded identity
func (r *Registry) RoomTransports(groupID uuid.UUID, eligible []uuid.UUID, excluding uuid.UUID) []Transport {
	eligibleSet := make(map[uuid.UUID]struct{}, len(eligible))
	for _, id := range eligible {
		eligibleSet[id] = struct{}{}
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	room, ok := r.rooms[groupID]
	if !ok {
		return nil
	}

	transports := make([]Transport, 0, len(room))
	for _, entry := range room {
		if entry.identity.UserID == excluding {
			continue
		}
		if _, ok := eligibleSet[entry.identity.UserID]; !ok {
			continue
		}
		transports = append(transports, entry.transport)
	}
	return transports
}

// signalStatus fires a presence update without blocking the connection
// lifecycle; failures are logged and swallowed
func (r *Registry) signalStatus(identity Identity, status string) {
	if r.signaler == nil {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()

		if err := r.signaler.SetStatus(ctx, identity.UserID, identity.GroupID, status); err != nil {
			r.logger.Warn(
				"Failed to signal presence",
				"user_id", identity.UserID,
				"status", status,
				"error", err,
			)
		}
	}()
}
