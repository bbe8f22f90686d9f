package presence

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/valkey-io/valkey-go"
)

// User availability states. Active is the only state eligible for live
// relay; a user can be connected yet busy.
const (
	StatusActive  = "active"
	StatusBusy    = "busy"
	StatusOffline = "offline"
)

// Valid reports whether s is a known presence state
func Valid(s string) bool {
	switch s {
	case StatusActive, StatusBusy, StatusOffline:
		return true
	}
	return false
}

// Manager handles key-value storage operations for user presence
type Manager struct {
	client valkey.Client
}

// NewManager creates a new presence manager
func NewManager(addr, password string) (*Manager, error) {
	client, err := valkey.NewClient(valkey.ClientOption{
		InitAddress: []string{addr},
		Password:    password,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to valkey: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pingCmd := client.B().Ping().Build()
	if err := client.Do(ctx, pingCmd).Error(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping valkey: %w", err)
	}

	return &Manager{client: client}, nil
}

// SetStatus records a user's availability and maintains the group's
// active-member set used for broadcast recipient resolution
func (m *Manager) SetStatus(ctx context.Context, userID uuid.UUID, groupID *uuid.UUID, status string) error {
	if !Valid(status) {
		return fmt.Errorf("unknown presence status: %q", status)
	}

	statusKey := fmt.Sprintf("presence:%s", userID.String())

	if status == StatusOffline {
		delCmd := m.client.B().Del().Key(statusKey).Build()
		if err := m.client.Do(ctx, delCmd).Error(); err != nil {
			return fmt.Errorf("failed to clear presence: %w", err)
		}
	} else {
		setCmd := m.client.B().Set().
			Key(statusKey).
			Value(status).
			Build()

		if err := m.client.Do(ctx, setCmd).Error(); err != nil {
			return fmt.Errorf("failed to set presence: %w", err)
		}
	}

	if groupID == nil {
		return nil
	}

	groupKey := fmt.Sprintf("group:%s:active", groupID.String())

	if status == StatusActive {
		saddCmd := m.client.B().Sadd().
			Key(groupKey).
			Member(userID.String()).
			Build()

		if err := m.client.Do(ctx, saddCmd).Error(); err != nil {
			return fmt.Errorf("failed to add to active set: %w", err)
		}
	} else {
		sremCmd := m.client.B().Srem().
			Key(groupKey).
			Member(userID.String()).
			Build()

		if err := m.client.Do(ctx, sremCmd).Error(); err != nil {
			return fmt.Errorf("failed to remove from active set: %w", err)
		}
	}

	return nil
}

// Status retrieves a user's availability; absent keys read as offline
func (m *Manager) Status(ctx context.Context, userID uuid.UUID) (string, error) {
	key := fmt.Sprintf("presence:%s", userID.String())

	getCmd := m.client.B().Get().Key(key).Build()

	result := m.client.Do(ctx, getCmd)

	if err := result.Error(); err != nil {
		if valkey.IsValkeyNil(err) {
			return StatusOffline, nil
		}
		return "", fmt.Errorf("failed to get presence: %w", err)
	}

	status, err := result.ToString()
	if err != nil {
		return "", fmt.Errorf("failed to parse presence: %w", err)
	}

	return status, nil
}

// IsActive checks whether a user is currently available for live relay
func (m *Manager) IsActive(ctx context.Context, userID uuid.UUID) (bool, error) {
	status, err := m.Status(ctx, userID)
	if err != nil {
		return false, err
	}
	return status == StatusActive, nil
}

// ListActive returns the ids of all active members of a group
func (m *Manager) ListActive(ctx context.Context, groupID uuid.UUID) ([]uuid.UUID, error) {
	key := fmt.Sprintf("group:%s:active", groupID.String())

	smembersCmd := m.client.B().Smembers().Key(key).Build()

	members, err := m.client.Do(ctx, smembersCmd).AsStrSlice()
	if err != nil {
		return nil, fmt.Errorf("failed to list active members: %w", err)
	}

	ids := make([]uuid.UUID, 0, len(members))
	for _, member := range members {
		id, err := uuid.Parse(member)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}

	return ids, nil
}

// Close closes the client connection
func (m *Manager) Close() {
	m.client.Close()
}
