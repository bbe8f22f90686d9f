package httpserver

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/notsogambhir/Instacom/pkg/password"
)

// HandleSignin authenticates a user by email and password and issues
// an access token
func (s *Server) HandleSignin(w http.ResponseWriter, r *http.Request) {
	req := new(SigninRequest)
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		s.respondError(w, http.StatusBadRequest, "Invalid JSON format")
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" {
		s.handleError(w, NewValidationError("Email and password are required"))
		return
	}

	user, err := s.users.GetUserByEmail(r.Context(), email)
	if err != nil {
		// Same response for unknown email and bad password
		s.handleError(w, NewUnauthorizedError("Invalid credentials"))
		return
	}

	if !user.IsActive {
		s.handleError(w, NewUnauthorizedError("Account is suspended"))
		return
	}

	if !password.Verify(user.Password, req.Password) {
		s.handleError(w, NewUnauthorizedError("Invalid credentials"))
		return
	}

	token, err := s.jwtService.GenerateToken(user.ID, user.Email, user.Name, user.Role, user.GroupID)
	if err != nil {
		s.handleError(w, err)
		return
	}

	s.log.Info("User signed in", "user_id", user.ID, "email", user.Email)

	s.respondJSON(w, http.StatusOK, SigninResponse{
		Token: token,
		User:  user,
	})
}
