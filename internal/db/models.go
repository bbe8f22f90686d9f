package db

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID         uuid.UUID  `json:"id"`
	Email      string     `json:"email"`
	Name       string     `json:"name"`
	Password   string     `json:"-"`
	Role       string     `json:"role"`
	GroupID    *uuid.UUID `json:"group_id,omitempty"`
	IsActive   bool       `json:"is_active"`
	LastSeenAt *time.Time `json:"last_seen_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// VoiceMessage is the persisted form of a completed voice stream.
// Exactly one of RecipientID or GroupID is set.
type VoiceMessage struct {
	ID           uuid.UUID  `json:"id"`
	SenderID     uuid.UUID  `json:"sender_id"`
	RecipientID  *uuid.UUID `json:"recipient_id,omitempty"`
	GroupID      *uuid.UUID `json:"group_id,omitempty"`
	AudioPath    string     `json:"audio_path"`
	DurationSecs int        `json:"duration_seconds"`
	IsPlayed     bool       `json:"is_played"`
	CreatedAt    time.Time  `json:"created_at"`
	ExpiresAt    time.Time  `json:"expires_at"`
}

const (
	RoleSuperAdmin = "SUPER_ADMIN"
	RoleGroupAdmin = "GROUP_ADMIN"
	RoleMember     = "MEMBER"
)
