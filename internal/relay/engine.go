package relay

import (
	"context"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// PresenceService answers availability questions for recipient
// resolution. Connectivity alone does not make a recipient eligible; a
// connected user who set themselves busy misses the live relay.
type PresenceService interface {
	IsActive(ctx context.Context, userID uuid.UUID) (bool, error)
	ListActive(ctx context.Context, groupID uuid.UUID) ([]uuid.UUID, error)
}

// Engine forwards live frames to every eligible recipient transport.
// Delivery is at-most-once with no buffering for unreachable
// recipients; per sender-recipient pair order is preserved because
// Relay is called from the sender's single read loop and each transport
// enqueues without reordering.
type Engine struct {
	registry *Registry
	presence PresenceService
	logger   *log.Logger
}

// NewEngine creates a new relay engine
func NewEngine(registry *Registry, presence PresenceService, logger *log.Logger) *Engine {
	return &Engine{
		registry: registry,
		presence: presence,
		logger:   logger,
	}
}

// Relay fans one frame out to the message's eligible recipients. It
// never fails the caller: resolution errors and per-recipient delivery
// errors only cost that frame's delivery, never the stream.
func (e *Engine) Relay(ctx context.Context, msg *TrackedMessage, senderConnID string, samples []float32) {
	transports := e.resolveTransports(ctx, msg)
	if len(transports) == 0 {
		return
	}

	frame := Frame{
		MessageID:    msg.ID,
		SenderConnID: senderConnID,
		Samples:      samples,
	}

	for _, transport := range transports {
		if err := transport.SendFrame(frame); err != nil {
			// Recipient gone or queue full between lookup and send
			e.logger.Debug(
				"Skipped frame delivery",
				"conn_id", transport.ID(),
				"message_id", msg.ID,
				"error", err,
			)
		}
	}
}

func (e *Engine) resolveTransports(ctx context.Context, msg *TrackedMessage) []Transport {
	if msg.Target.IsBroadcast() {
		active, err := e.presence.ListActive(ctx, *msg.Target.GroupID)
		if err != nil {
			e.logger.Warn(
				"Failed to resolve active group members",
				"group_id", msg.Target.GroupID,
				"error", err,
			)
			return nil
		}
		return e.registry.RoomTransports(*msg.Target.GroupID, active, msg.SenderID)
	}

	recipientID := *msg.Target.RecipientID
	active, err := e.presence.IsActive(ctx, recipientID)
	if err != nil {
		e.logger.Warn(
			"Failed to resolve recipient presence",
			"recipient_id", recipientID,
			"error", err,
		)
		return nil
	}
	if !active {
		return nil
	}
	return e.registry.UserTransports(recipientID, msg.SenderID)
}
