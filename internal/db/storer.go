package db

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// To abstract db methods from pgxpool api
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, arguments ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type PostgresStore struct {
	db DBTX
}

func NewPostgresStore(pool DBTX) *PostgresStore {
	return &PostgresStore{
		db: pool,
	}
}

type UserStore interface {
	GetUserByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	ListGroupMembers(ctx context.Context, groupID uuid.UUID) ([]*User, error)
	UpdateLastSeen(ctx context.Context, id uuid.UUID) error
}

type MessageStore interface {
	CreateMessage(ctx context.Context, msg *VoiceMessage) error
	GetMessageByID(ctx context.Context, id uuid.UUID) (*VoiceMessage, error)
	ListGroupMessages(ctx context.Context, groupID uuid.UUID, limit int) ([]*VoiceMessage, error)
	ListDirectMessages(ctx context.Context, userA, userB uuid.UUID, limit int) ([]*VoiceMessage, error)
	ListPendingMessages(ctx context.Context, userID uuid.UUID, groupID *uuid.UUID) ([]*VoiceMessage, error)
	MarkPlayed(ctx context.Context, id uuid.UUID) error
	DeleteMessage(ctx context.Context, id uuid.UUID) error
}

func CreatePostgresPool(parentCtx context.Context, dburl string) (*pgxpool.Pool, error) {
	ctx, cancel := context.WithTimeout(parentCtx, time.Second*3)
	defer cancel()

	pool, err := pgxpool.New(ctx, dburl)
	if err != nil {
		return nil, err
	}

	if err = pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return pool, nil
}
