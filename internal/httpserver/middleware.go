package httpserver

import (
	"context"
	"net/http"
	"strings"

	"github.com/notsogambhir/Instacom/pkg/jwt"
)

type contextKey string

const claimsContextKey contextKey = "claims"

// AuthMiddleware validates the bearer token and stashes its claims in
// the request context
func (s *Server) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			s.respondError(w, http.StatusUnauthorized, "Missing bearer token")
			return
		}

		claims, err := s.jwtService.ValidateToken(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			s.respondError(w, http.StatusUnauthorized, "Invalid token")
			return
		}

		ctx := context.WithValue(r.Context(), claimsContextKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// claimsFrom extracts the authenticated claims set by AuthMiddleware
func claimsFrom(r *http.Request) (*jwt.Claims, bool) {
	claims, ok := r.Context().Value(claimsContextKey).(*jwt.Claims)
	return claims, ok
}
