package voice

import (
	"context"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/notsogambhir/Instacom/internal/db"
)

// Enforcer trims each conversation scope down to its retention cap
// right after a new message lands in it, so the bound holds immediately
// after every write. Safe for concurrent use; enforcement is
// serialized per scope so two completions in one scope cannot both
// observe a stale count.
type Enforcer struct {
	storage  Storage
	messages db.MessageStore
	logger   *log.Logger

	mu         sync.Mutex
	scopeLocks map[string]*sync.Mutex
}

// NewEnforcer creates a new retention enforcer
func NewEnforcer(storage Storage, messages db.MessageStore, logger *log.Logger) *Enforcer {
	return &Enforcer{
		storage:    storage,
		messages:   messages,
		logger:     logger,
		scopeLocks: make(map[string]*sync.Mutex),
	}
}

// Enforce deletes every message in the scope beyond its cap, oldest
// first: storage object best-effort, then the metadata row. Re-running
// on a scope at or under its cap is a no-op.
func (e *Enforcer) Enforce(ctx context.Context, scope Scope) error {
	lock := e.lockFor(scope)
	lock.Lock()
	defer lock.Unlock()

	messages, err := e.listScope(ctx, scope)
	if err != nil {
		return fmt.Errorf("failed to list scope messages: %w", err)
	}

	keep := scope.Cap()
	if len(messages) <= keep {
		return nil
	}

	// Newest-first ordering: everything past the cap is excess
	excess := messages[keep:]
	deleted := 0

	for _, msg := range excess {
		if err := e.storage.Delete(ctx, msg.AudioPath); err != nil {
			// Orphaned objects are acceptable; not retried
			e.logger.Warn(
				"Failed to delete audio object",
				"message_id", msg.ID,
				"audio_path", msg.AudioPath,
				"error", err,
			)
		}

		if err := e.messages.DeleteMessage(ctx, msg.ID); err != nil {
			e.logger.Warn(
				"Failed to delete message record",
				"message_id", msg.ID,
				"error", err,
			)
			continue
		}
		deleted++
	}

	e.logger.Info(
		"Retention enforced",
		"scope", scope.Key(),
		"deleted", deleted,
		"kept", keep,
	)
	return nil
}

func (e *Enforcer) listScope(ctx context.Context, scope Scope) ([]*db.VoiceMessage, error) {
	if scope.IsGroup() {
		return e.messages.ListGroupMessages(ctx, *scope.GroupID, 0)
	}
	return e.messages.ListDirectMessages(ctx, scope.UserA, scope.UserB, 0)
}

func (e *Enforcer) lockFor(scope Scope) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()

	key := scope.Key()
	lock, ok := e.scopeLocks[key]
	if !ok {
		lock = &sync.Mutex{}
		e.scopeLocks[key] = lock
	}
	return lock
}
