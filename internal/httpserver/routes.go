package httpserver

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func (s *Server) setupRoutes() *chi.Mux {
	r := chi.NewRouter()

	// Middleware block
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	// Voice relay websocket endpoint (token-authenticated itself)
	r.Get("/ws", s.wsHandler.ServeHTTP)

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Public auth routes (no auth required)
		r.Route("/auth", func(r chi.Router) {
			r.Post("/signin", s.HandleSignin)
		})

		// Protected routes (auth required)
		r.Group(func(r chi.Router) {
			r.Use(s.AuthMiddleware)

			r.Route("/voice-messages", func(r chi.Router) {
				r.Get("/history", s.HandleHistory)
				r.Get("/pending", s.HandlePending)
				r.Post("/{id}/played", s.HandleMarkPlayed)
				r.Get("/{id}/audio", s.HandleAudioURL)
			})

			r.Post("/user/status", s.HandleUpdateStatus)
			r.Get("/groups/{groupID}/members", s.HandleGroupMembers)
		})
	})

	return r
}
