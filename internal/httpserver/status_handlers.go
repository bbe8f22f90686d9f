package httpserver

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/notsogambhir/Instacom/internal/presence"
)

// HandleUpdateStatus sets the caller's availability. A connected user
// can go busy and stop receiving live relays without disconnecting.
func (s *Server) HandleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(r)
	if !ok {
		s.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	req := new(UpdateStatusRequest)
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		s.respondError(w, http.StatusBadRequest, "Invalid JSON format")
		return
	}

	if !presence.Valid(req.Status) {
		s.handleError(w, NewValidationError("status must be active, busy or offline"))
		return
	}

	if err := s.presence.SetStatus(r.Context(), claims.UserID, claims.GroupID, req.Status); err != nil {
		s.handleError(w, err)
		return
	}

	if err := s.users.UpdateLastSeen(r.Context(), claims.UserID); err != nil {
		s.log.Warn("Failed to update last seen", "user_id", claims.UserID, "error", err)
	}

	s.log.Info("User status updated", "user_id", claims.UserID, "status", req.Status)

	s.respondJSON(w, http.StatusOK, map[string]any{"success": true, "status": req.Status})
}

// HandleGroupMembers lists a group's members with their live presence
func (s *Server) HandleGroupMembers(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(r)
	if !ok {
		s.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	groupID, err := uuid.Parse(chi.URLParam(r, "groupID"))
	if err != nil {
		s.handleError(w, NewValidationError("Invalid group id"))
		return
	}

	if claims.GroupID == nil || *claims.GroupID != groupID {
		s.respondError(w, http.StatusForbidden, "Forbidden")
		return
	}

	members, err := s.users.ListGroupMembers(r.Context(), groupID)
	if err != nil {
		s.handleError(w, err)
		return
	}

	response := make([]MemberResponse, 0, len(members))
	for _, member := range members {
		status, err := s.presence.Status(r.Context(), member.ID)
		if err != nil {
			s.log.Warn("Failed to read presence", "user_id", member.ID, "error", err)
			status = presence.StatusOffline
		}

		response = append(response, MemberResponse{
			ID:         member.ID,
			Name:       member.Name,
			Email:      member.Email,
			Role:       member.Role,
			Status:     status,
			LastSeenAt: member.LastSeenAt,
		})
	}

	s.respondJSON(w, http.StatusOK, response)
}
