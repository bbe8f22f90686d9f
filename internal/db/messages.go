package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const messageColumns = `
	id, sender_id, recipient_id, group_id, audio_path,
	duration_seconds, is_played, created_at, expires_at
`

// CreateMessage creates a new voice message record
func (s *PostgresStore) CreateMessage(ctx context.Context, msg *VoiceMessage) error {
	query := `
		INSERT INTO voice_messages (
			id, sender_id, recipient_id, group_id, audio_path,
			duration_seconds, is_played, created_at, expires_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	if msg.ID == uuid.Nil {
		msg.ID = uuid.New()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}

	_, err := s.db.Exec(ctx, query,
		msg.ID,
		msg.SenderID,
		msg.RecipientID,
		msg.GroupID,
		msg.AudioPath,
		msg.DurationSecs,
		msg.IsPlayed,
		msg.CreatedAt,
		msg.ExpiresAt,
	)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("operation cancelled: %w", ctx.Err())
		}
		return fmt.Errorf("failed to create message: %w", err)
	}

	return nil
}

// GetMessageByID retrieves a message by ID
func (s *PostgresStore) GetMessageByID(ctx context.Context, id uuid.UUID) (*VoiceMessage, error) {
	query := `SELECT ` + messageColumns + ` FROM voice_messages WHERE id = $1`

	msg := &VoiceMessage{}
	err := s.db.QueryRow(ctx, query, id).Scan(
		&msg.ID,
		&msg.SenderID,
		&msg.RecipientID,
		&msg.GroupID,
		&msg.AudioPath,
		&msg.DurationSecs,
		&msg.IsPlayed,
		&msg.CreatedAt,
		&msg.ExpiresAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("message not found")
		}
		return nil, fmt.Errorf("failed to get message: %w", err)
	}

	return msg, nil
}

// ListGroupMessages retrieves messages for a group scope, newest first.
// A limit of 0 means no limit.
func (s *PostgresStore) ListGroupMessages(ctx context.Context, groupID uuid.UUID, limit int) ([]*VoiceMessage, error) {
	query := `
		SELECT ` + messageColumns + `
		FROM voice_messages
		WHERE group_id = $1
		ORDER BY created_at DESC
	`
	args := []any{groupID}

	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	return s.queryMessages(ctx, query, args...)
}

// ListDirectMessages retrieves messages exchanged between two users in
// either direction, newest first. A limit of 0 means no limit.
func (s *PostgresStore) ListDirectMessages(ctx context.Context, userA, userB uuid.UUID, limit int) ([]*VoiceMessage, error) {
	query := `
		SELECT ` + messageColumns + `
		FROM voice_messages
		WHERE (sender_id = $1 AND recipient_id = $2)
		   OR (sender_id = $2 AND recipient_id = $1)
		ORDER BY created_at DESC
	`
	args := []any{userA, userB}

	if limit > 0 {
		query += ` LIMIT $3`
		args = append(args, limit)
	}

	return s.queryMessages(ctx, query, args...)
}

// ListPendingMessages retrieves unplayed messages addressed to a user,
// directly or through their group, newest first
func (s *PostgresStore) ListPendingMessages(ctx context.Context, userID uuid.UUID, groupID *uuid.UUID) ([]*VoiceMessage, error) {
	query := `
		SELECT ` + messageColumns + `
		FROM voice_messages
		WHERE is_played = FALSE
		  AND (recipient_id = $1 OR ($2::uuid IS NOT NULL AND group_id = $2 AND sender_id <> $1))
		ORDER BY created_at DESC
	`

	return s.queryMessages(ctx, query, userID, groupID)
}

// MarkPlayed sets the played flag on a message
func (s *PostgresStore) MarkPlayed(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE voice_messages SET is_played = TRUE WHERE id = $1`

	result, err := s.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to mark message played: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("message not found")
	}

	return nil
}

// DeleteMessage deletes a message
func (s *PostgresStore) DeleteMessage(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM voice_messages WHERE id = $1`

	result, err := s.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("message not found")
	}

	return nil
}

func (s *PostgresStore) queryMessages(ctx context.Context, query string, args ...any) ([]*VoiceMessage, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get messages: %w", err)
	}
	defer rows.Close()

	messages := []*VoiceMessage{}
	for rows.Next() {
		msg := &VoiceMessage{}
		err := rows.Scan(
			&msg.ID,
			&msg.SenderID,
			&msg.RecipientID,
			&msg.GroupID,
			&msg.AudioPath,
			&msg.DurationSecs,
			&msg.IsPlayed,
			&msg.CreatedAt,
			&msg.ExpiresAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, msg)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating messages: %w", err)
	}

	return messages, nil
}
