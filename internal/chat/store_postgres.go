package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PgxPool is the subset of pgxpool.Pool the store uses.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore persists chat messages to PostgreSQL.
type PostgresStore struct {
	pool PgxPool
}

// NewPostgresStore builds a Postgres-backed MessageStore.
func NewPostgresStore(pool PgxPool) *PostgresStore {
	if pool == nil {
		panic("chat: pgx pool cannot be nil")
	}
	return &PostgresStore{pool: pool}
}

var _ MessageStore = (*PostgresStore)(nil)

// Persist inserts the message, generating its ID.
func (s *PostgresStore) Persist(ctx context.Context, msg *Message) error {
	if msg == nil {
		return errors.New("chat: message cannot be nil")
	}
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.SentAt.IsZero() {
		msg.SentAt = time.Now().UTC()
	}

	if _, err := s.pool.Exec(ctx, `
		INSERT INTO messages (id, sender_id, receiver_id, content, appointment_id, sent_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, msg.ID, msg.Sender, msg.Receiver, msg.Content, nullString(msg.AppointmentID), msg.SentAt); err != nil {
		return fmt.Errorf("chat: failed to persist message: %w", err)
	}
	return nil
}

// Conversation loads both directions of the a<->b exchange, oldest first.
func (s *PostgresStore) Conversation(ctx context.Context, a, b string) ([]Message, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, sender_id, receiver_id, content, COALESCE(appointment_id, ''), sent_at
		FROM messages
		WHERE (sender_id = $1 AND receiver_id = $2)
		   OR (sender_id = $2 AND receiver_id = $1)
		ORDER BY sent_at ASC, id ASC
	`, a, b)
	if err != nil {
		return nil, fmt.Errorf("chat: failed to query conversation: %w", err)
	}
	defer rows.Close()

	messages := make([]Message, 0)
	for rows.Next() {
		var msg Message
		if err := rows.Scan(&msg.ID, &msg.Sender, &msg.Receiver, &msg.Content, &msg.AppointmentID, &msg.SentAt); err != nil {
			return nil, fmt.Errorf("chat: failed to scan message: %w", err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("chat: failed to read conversation: %w", err)
	}
	return messages, nil
}

func nullString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}
