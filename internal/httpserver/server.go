package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/notsogambhir/Instacom/internal/db"
	"github.com/notsogambhir/Instacom/pkg/jwt"
)

// PresenceStore is the availability collaborator used by the status
// and member routes
type PresenceStore interface {
	SetStatus(ctx context.Context, userID uuid.UUID, groupID *uuid.UUID, status string) error
	Status(ctx context.Context, userID uuid.UUID) (string, error)
}

// AudioStorage resolves stored audio into time-limited download URLs
type AudioStorage interface {
	PresignedURL(ctx context.Context, objectName string, expiry time.Duration) (string, error)
}

type Server struct {
	users      db.UserStore
	messages   db.MessageStore
	presence   PresenceStore
	storage    AudioStorage
	jwtService *jwt.Service
	wsHandler  http.Handler
	log        *log.Logger
	httpServer *http.Server
}

func New(
	addr string,
	users db.UserStore,
	messages db.MessageStore,
	presence PresenceStore,
	storage AudioStorage,
	jwtService *jwt.Service,
	wsHandler http.Handler,
	log *log.Logger,
) *Server {
	s := &Server{
		users:      users,
		messages:   messages,
		presence:   presence,
		storage:    storage,
		jwtService: jwtService,
		wsHandler:  wsHandler,
		log:        log,
	}

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.setupRoutes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Start runs the HTTP server until Shutdown
func (s *Server) Start() error {
	s.log.Info("HTTP server started", "address", s.httpServer.Addr)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
