package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/notsogambhir/Instacom/internal/config"
	"github.com/notsogambhir/Instacom/internal/relay"
	"github.com/notsogambhir/Instacom/internal/voice"
	"github.com/notsogambhir/Instacom/pkg/jwt"
)

const maxFrameBytes = 1 << 20

// Server upgrades authenticated clients to websocket connections and
// drives the voice relay: start/frame/end events in, message id acks
// and relayed frames out. It is mounted as an http.Handler on the API
// router.
type Server struct {
	jwtService *jwt.Service
	registry   *relay.Registry
	tracker    *relay.Tracker
	engine     *relay.Engine
	pipeline   *voice.Pipeline
	params     config.RelayParams
	logger     *log.Logger
	upgrader   websocket.Upgrader

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a new websocket relay server. When the configured stream
// idle timeout is positive a janitor goroutine auto-ends streams that
// stopped sending frames.
func New(
	jwtService *jwt.Service,
	registry *relay.Registry,
	tracker *relay.Tracker,
	engine *relay.Engine,
	pipeline *voice.Pipeline,
	params config.RelayParams,
	logger *log.Logger,
) *Server {
	ctx, cancel := context.WithCancel(context.Background())

	s := &Server{
		jwtService: jwtService,
		registry:   registry,
		tracker:    tracker,
		engine:     engine,
		pipeline:   pipeline,
		params:     params,
		logger:     logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		ctx:    ctx,
		cancel: cancel,
	}

	if params.StreamIdleTimeout > 0 {
		s.wg.Add(1)
		go s.janitor()
	}

	return s
}

// ServeHTTP authenticates the client, upgrades the connection and runs
// its read loop until disconnect
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}

	claims, err := s.jwtService.ValidateToken(token)
	if err != nil {
		s.logger.Warn("Rejected websocket with invalid token", "error", err)
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	identity := relay.Identity{
		UserID:  claims.UserID,
		Name:    claims.Name,
		Role:    claims.Role,
		GroupID: claims.GroupID,
	}

	conn := newConn(ws, identity, s.params.OutboundQueueSize, s.logger)

	s.registry.Register(identity, conn)
	go conn.writePump()

	s.readLoop(conn)

	// Disconnect: abort the stream this connection owns, drop the
	// registration, close the socket
	if streamID := conn.currentStream(); streamID != uuid.Nil {
		s.tracker.AbortIf(identity.UserID, streamID)
	}
	s.registry.Unregister(conn)
	conn.close()
}

func (s *Server) readLoop(conn *Conn) {
	ws := conn.ws
	ws.SetReadLimit(maxFrameBytes)
	_ = ws.SetReadDeadline(time.Now().Add(pongTimeout))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongTimeout))
	})

	for {
		messageType, data, err := ws.ReadMessage()
		if err != nil {
			s.logger.Debug("Connection read ended", "conn_id", conn.id, "error", err)
			return
		}
		_ = ws.SetReadDeadline(time.Now().Add(pongTimeout))

		switch messageType {
		case websocket.TextMessage:
			s.handleEvent(conn, data)
		case websocket.BinaryMessage:
			s.handleAudioFrame(conn, data)
		}
	}
}

func (s *Server) handleEvent(conn *Conn, data []byte) {
	var event ClientEvent
	if err := json.Unmarshal(data, &event); err != nil {
		s.sendError(conn, "invalid event payload")
		return
	}

	switch event.Type {
	case EventStart:
		s.handleStart(conn, event)
	case EventEnd:
		s.handleEnd(conn, event)
	default:
		s.logger.Warn("Unknown event type", "conn_id", conn.id, "type", event.Type)
	}
}

// handleStart opens a new tracked message and acks the generated id so
// the client can tag its frames
func (s *Server) handleStart(conn *Conn, event ClientEvent) {
	target := relay.Target{GroupID: event.GroupID, RecipientID: event.RecipientID}
	if err := target.Validate(); err != nil {
		s.sendError(conn, err.Error())
		return
	}

	// Broadcasts are confined to the sender's own group
	if target.IsBroadcast() {
		if conn.identity.GroupID == nil || *conn.identity.GroupID != *target.GroupID {
			s.sendError(conn, "cannot broadcast outside your group")
			return
		}
	}

	msg := s.tracker.Start(conn.identity.UserID, target)
	conn.setStream(msg.ID)

	s.logger.Info(
		"Voice stream started",
		"conn_id", conn.id,
		"sender_id", conn.identity.UserID,
		"message_id", msg.ID,
		"broadcast", target.IsBroadcast(),
	)

	ack, err := json.Marshal(ServerEvent{Type: EventMessageID, MessageID: &msg.ID})
	if err != nil {
		return
	}
	if err := conn.sendEvent(ack); err != nil {
		s.logger.Warn("Failed to ack stream start", "conn_id", conn.id, "error", err)
	}
}

// handleAudioFrame buffers the frame unconditionally, then fans it out
// to live recipients. Buffering never waits on relay.
func (s *Server) handleAudioFrame(conn *Conn, data []byte) {
	messageID, samples, err := DecodeAudioFrame(data)
	if err != nil {
		s.logger.Warn("Dropping malformed audio frame", "conn_id", conn.id, "error", err)
		return
	}

	msg, ok := s.tracker.Append(conn.identity.UserID, messageID, samples)
	if !ok {
		return
	}

	s.engine.Relay(s.ctx, msg, conn.id, samples)
}

func (s *Server) handleEnd(conn *Conn, event ClientEvent) {
	if event.MessageID == nil {
		s.sendError(conn, "end event requires message_id")
		return
	}

	msg, ok := s.tracker.End(conn.identity.UserID, *event.MessageID)
	if !ok {
		return
	}
	conn.clearStream(msg.ID)

	s.pipeline.FinalizeAsync(msg)
}

func (s *Server) sendError(conn *Conn, message string) {
	data, err := json.Marshal(ServerEvent{Type: EventError, Error: message})
	if err != nil {
		return
	}
	_ = conn.sendEvent(data)
}

// janitor auto-ends streams that stopped sending frames, finalizing
// whatever audio was already buffered
func (s *Server) janitor() {
	defer s.wg.Done()

	interval := s.params.StreamIdleTimeout / 2
	if interval < time.Second {
		interval = time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			for _, msg := range s.tracker.SweepIdle(s.params.StreamIdleTimeout) {
				s.pipeline.FinalizeAsync(msg)
			}
		}
	}
}

// Shutdown stops the janitor and waits for in-flight assemblies
func (s *Server) Shutdown(ctx context.Context) error {
	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		s.pipeline.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
