package httpserver

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/notsogambhir/Instacom/internal/db"
	"github.com/notsogambhir/Instacom/internal/voice"
)

// HandleHistory returns the caller's voice message history, newest
// first, bounded by the scope's retention cap
func (s *Server) HandleHistory(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(r)
	if !ok {
		s.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	historyType := r.URL.Query().Get("type")

	var messages []*db.VoiceMessage
	var err error

	switch historyType {
	case "group":
		if claims.GroupID == nil {
			s.handleError(w, NewValidationError("You are not in a group"))
			return
		}
		messages, err = s.messages.ListGroupMessages(r.Context(), *claims.GroupID, voice.GroupRetention)

	case "direct":
		peer := r.URL.Query().Get("peer")
		peerID, parseErr := uuid.Parse(peer)
		if parseErr != nil {
			s.handleError(w, NewValidationError("Valid peer id is required for direct history"))
			return
		}
		messages, err = s.messages.ListDirectMessages(r.Context(), claims.UserID, peerID, voice.DirectRetention)

	default:
		s.handleError(w, NewValidationError("type must be group or direct"))
		return
	}

	if err != nil {
		s.handleError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, messages)
}

// HandlePending returns the caller's unplayed messages
func (s *Server) HandlePending(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(r)
	if !ok {
		s.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	messages, err := s.messages.ListPendingMessages(r.Context(), claims.UserID, claims.GroupID)
	if err != nil {
		s.handleError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, messages)
}

// HandleMarkPlayed flips the played flag on a message
func (s *Server) HandleMarkPlayed(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.handleError(w, NewValidationError("Invalid message id"))
		return
	}

	if err := s.messages.MarkPlayed(r.Context(), id); err != nil {
		s.handleError(w, NewNotFoundError("Message not found"))
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// HandleAudioURL resolves a message's stored audio into a time-limited
// download URL for playback
func (s *Server) HandleAudioURL(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(r)
	if !ok {
		s.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.handleError(w, NewValidationError("Invalid message id"))
		return
	}

	msg, err := s.messages.GetMessageByID(r.Context(), id)
	if err != nil {
		s.handleError(w, NewNotFoundError("Message not found"))
		return
	}

	if !canAccessMessage(claims.UserID, claims.GroupID, msg) {
		s.respondError(w, http.StatusForbidden, "Forbidden")
		return
	}

	expiry := 15 * time.Minute
	url, err := s.storage.PresignedURL(r.Context(), msg.AudioPath, expiry)
	if err != nil {
		s.handleError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, AudioURLResponse{
		URL:       url,
		ExpiresAt: time.Now().Add(expiry),
	})
}

// canAccessMessage allows the sender, the direct recipient and fellow
// group members to fetch a message's audio
func canAccessMessage(userID uuid.UUID, groupID *uuid.UUID, msg *db.VoiceMessage) bool {
	if msg.SenderID == userID {
		return true
	}
	if msg.RecipientID != nil && *msg.RecipientID == userID {
		return true
	}
	if msg.GroupID != nil && groupID != nil && *msg.GroupID == *groupID {
		return true
	}
	return false
}
