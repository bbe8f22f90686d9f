package voice

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/notsogambhir/Instacom/internal/db"
	"github.com/notsogambhir/Instacom/internal/relay"
)

// MessageExpiry is how long a persisted message stays retrievable
const MessageExpiry = 7 * 24 * time.Hour

// Storage is the durable object store for assembled audio
type Storage interface {
	Upload(ctx context.Context, messageID uuid.UUID, data []byte, scopeHint string) (string, error)
	Delete(ctx context.Context, objectName string) error
}

// Pipeline assembles a completed voice stream into one audio artifact,
// persists it and enforces retention for its scope. A failure anywhere
// only drops that one message's persistence; the live relay already
// happened and the connection is unaffected.
type Pipeline struct {
	storage  Storage
	messages db.MessageStore
	enforcer *Enforcer
	logger   *log.Logger
	wg       sync.WaitGroup
}

// NewPipeline creates a new assembly pipeline
func NewPipeline(storage Storage, messages db.MessageStore, enforcer *Enforcer, logger *log.Logger) *Pipeline {
	return &Pipeline{
		storage:  storage,
		messages: messages,
		enforcer: enforcer,
		logger:   logger,
	}
}

// FinalizeAsync runs assembly in the background so the sender can
// start its next message immediately. The end-of-stream instant is
// captured now; duration is wall-clock time from start to end.
func (p *Pipeline) FinalizeAsync(msg *relay.TrackedMessage) {
	endedAt := time.Now()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := p.Finalize(ctx, msg, endedAt); err != nil {
			p.logger.Error(
				"Failed to persist voice message",
				"message_id", msg.ID,
				"sender_id", msg.SenderID,
				"error", err,
			)
		}
	}()
}

// Finalize concatenates the buffered frames, uploads the encoded
// artifact and records the message metadata. An empty buffer still
// produces a zero-duration artifact.
func (p *Pipeline) Finalize(ctx context.Context, msg *relay.TrackedMessage, endedAt time.Time) error {
	frames := msg.Frames()
	data := EncodePCM16(frames)

	scope := ScopeFor(msg.SenderID, msg.Target)

	scopeHint := msg.SenderID.String()
	if scope.IsGroup() {
		scopeHint = scope.GroupID.String()
	}

	audioPath, err := p.storage.Upload(ctx, msg.ID, data, scopeHint)
	if err != nil {
		return fmt.Errorf("failed to upload audio: %w", err)
	}

	createdAt := time.Now()
	record := &db.VoiceMessage{
		ID:           msg.ID,
		SenderID:     msg.SenderID,
		RecipientID:  msg.Target.RecipientID,
		GroupID:      msg.Target.GroupID,
		AudioPath:    audioPath,
		DurationSecs: int(endedAt.Sub(msg.StartedAt).Seconds()),
		CreatedAt:    createdAt,
		ExpiresAt:    createdAt.Add(MessageExpiry),
	}

	if err := p.messages.CreateMessage(ctx, record); err != nil {
		return fmt.Errorf("failed to record message metadata: %w", err)
	}

	p.logger.Info(
		"Voice message persisted",
		"message_id", msg.ID,
		"sender_id", msg.SenderID,
		"frames", len(frames),
		"duration_seconds", record.DurationSecs,
		"audio_path", audioPath,
	)

	if err := p.enforcer.Enforce(ctx, scope); err != nil {
		// The new message is already safe; trimming failures only
		// delay the bound until the next completion in this scope
		p.logger.Warn(
			"Retention enforcement failed",
			"scope", scope.Key(),
			"error", err,
		)
	}

	return nil
}

// Wait blocks until all in-flight assemblies finish. Used during
// shutdown.
func (p *Pipeline) Wait() {
	p.wg.Wait()
}
