package chat

import (
	"context"
	"errors"
	"time"
)

// Message is a single direct message between two users. Messages are
// append-only; nothing in this package updates or deletes them.
type Message struct {
	ID            string    `json:"id"`
	Sender        string    `json:"sender"`
	Receiver      string    `json:"receiver"`
	Content       string    `json:"content"`
	AppointmentID string    `json:"appointment_id,omitempty"`
	SentAt        time.Time `json:"sent_at"`
}

// MessageStore is the durable record of every direct message.
type MessageStore interface {
	// Persist stores the message, filling in a generated ID.
	Persist(ctx context.Context, msg *Message) error
	// Conversation returns every message exchanged between a and b in either
	// direction, ordered by sent time ascending.
	Conversation(ctx context.Context, a, b string) ([]Message, error)
}

var (
	// ErrIdentityNotBound is returned when a session sends before joining.
	ErrIdentityNotBound = errors.New("chat: session has no identity bound")
	// ErrSessionClosed is returned for events on a disconnected session.
	ErrSessionClosed = errors.New("chat: session closed")
	// ErrStorageUnavailable wraps persist failures surfaced to the sender.
	ErrStorageUnavailable = errors.New("chat: message store unavailable")
)
