package httpserver

import (
	"time"

	"github.com/google/uuid"

	"github.com/notsogambhir/Instacom/internal/db"
)

type SigninRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type SigninResponse struct {
	Token string   `json:"token"`
	User  *db.User `json:"user"`
}

type UpdateStatusRequest struct {
	Status string `json:"status"`
}

type MemberResponse struct {
	ID         uuid.UUID  `json:"id"`
	Name       string     `json:"name"`
	Email      string     `json:"email"`
	Role       string     `json:"role"`
	Status     string     `json:"status"`
	LastSeenAt *time.Time `json:"last_seen_at,omitempty"`
}

type AudioURLResponse struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}
