// Package repository persists chat sessions and message history.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrSessionNotFound is returned when a session does not exist.
var ErrSessionNotFound = errors.New("chat session not found")

// Session is a persisted conversation.
type Session struct {
	ID           string
	CreatedAt    time.Time
	LastActiveAt time.Time
}

// Message is one persisted conversation turn fragment. Role is "user" or
// "assistant".
type Message struct {
	ID        int64
	SessionID string
	Role      string
	Content   string
	CreatedAt time.Time
}

// Repository defines chat persistence operations.
type Repository interface {
	// EnsureSession creates the session if needed and bumps last_active_at.
	EnsureSession(ctx context.Context, id string) error
	GetSession(ctx context.Context, id string) (*Session, error)
	AppendMessage(ctx context.Context, sessionID, role, content string) error
	ListMessages(ctx context.Context, sessionID string) ([]Message, error)
	DeleteSession(ctx context.Context, sessionID string) error
}

// PGRepository provides PostgreSQL-backed chat persistence.
type PGRepository struct {
	pool *pgxpool.Pool
}

// New creates a new chat repository.
func New(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// EnsureSession creates the session if needed and bumps last_active_at.
func (r *PGRepository) EnsureSession(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO chat_sessions (id) VALUES ($1)
		ON CONFLICT (id) DO UPDATE SET last_active_at = now()`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to ensure session: %w", err)
	}
	return nil
}

// GetSession retrieves a session by id.
func (r *PGRepository) GetSession(ctx context.Context, id string) (*Session, error) {
	var s Session
	err := r.pool.QueryRow(ctx,
		`SELECT id, created_at, last_active_at FROM chat_sessions WHERE id = $1`,
		id,
	).Scan(&s.ID, &s.CreatedAt, &s.LastActiveAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return &s, nil
}

// AppendMessage stores one message in the session transcript.
func (r *PGRepository) AppendMessage(ctx context.Context, sessionID, role, content string) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO chat_messages (session_id, role, content) VALUES ($1, $2, $3)`,
		sessionID, role, content,
	)
	if err != nil {
		return fmt.Errorf("failed to append message: %w", err)
	}
	return nil
}

// ListMessages returns the session transcript in insertion order.
func (r *PGRepository) ListMessages(ctx context.Context, sessionID string) ([]Message, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, session_id, role, content, created_at
		FROM chat_messages WHERE session_id = $1 ORDER BY id ASC`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate messages: %w", err)
	}
	return messages, nil
}

// DeleteSession removes a session and, through the cascade, its messages.
func (r *PGRepository) DeleteSession(ctx context.Context, sessionID string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM chat_sessions WHERE id = $1`, sessionID)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// Compile-time check that PGRepository implements Repository
var _ Repository = (*PGRepository)(nil)
