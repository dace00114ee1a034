package chat

import (
	"context"
	"fmt"
	"time"

	"github.com/rolacode/telehealth-platform/internal/observability/metrics"
	"github.com/rolacode/telehealth-platform/pkg/logging"
)

// DeliverFunc pushes a message to the peer behind a session. Supplied by the
// transport when the connection is accepted; must be safe to call from other
// sessions' goroutines.
type DeliverFunc func(msg Message) error

// Session is one live connection. A session holds at most one identity at a
// time; identity and closed are touched only by the owning connection
// goroutine, which processes that connection's events strictly in order.
type Session struct {
	deliver  DeliverFunc
	identity string
	closed   bool
}

// Identity returns the identity currently bound to the session, if any.
func (s *Session) Identity() string {
	return s.identity
}

// Relay is the connection-event engine: it accepts sessions, binds
// identities, persists outgoing messages and fans them out to the receiver's
// live session when there is one.
type Relay struct {
	directory      *Directory
	store          MessageStore
	metrics        *metrics.ChatMetrics
	logger         *logging.Logger
	persistTimeout time.Duration
	now            func() time.Time
}

// NewRelay builds a relay over the given message store.
func NewRelay(store MessageStore, m *metrics.ChatMetrics, logger *logging.Logger, persistTimeout time.Duration) *Relay {
	if store == nil {
		panic("chat: message store cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if persistTimeout <= 0 {
		persistTimeout = 5 * time.Second
	}
	return &Relay{
		directory:      NewDirectory(),
		store:          store,
		metrics:        m,
		logger:         logger,
		persistTimeout: persistTimeout,
		now:            time.Now,
	}
}

// Directory exposes presence state for read-side callers.
func (r *Relay) Directory() *Directory {
	return r.directory
}

// Connect registers a new session around the transport's delivery callback.
func (r *Relay) Connect(deliver DeliverFunc) *Session {
	s := &Session{deliver: deliver}
	r.metrics.ObserveConnectionOpened()
	return s
}

// Join binds identity to the session. Re-joining with a different identity
// releases the old binding first.
func (r *Relay) Join(s *Session, identity string) error {
	if s.closed {
		return ErrSessionClosed
	}
	if identity == "" {
		return fmt.Errorf("chat: join requires an identity")
	}
	s.identity = identity
	r.directory.Register(identity, s)
	r.logger.Info("chat: identity joined", "identity", identity)
	return nil
}

// Send persists the message and, when the receiver has a live session,
// delivers it there. The write is unconditional: an offline receiver still
// gets a durable record retrievable through history. The sender's own
// session never receives an echo. The boolean result reports whether a live
// delivery happened.
func (r *Relay) Send(ctx context.Context, s *Session, receiver, content, appointmentID string) (Message, bool, error) {
	if s.closed {
		return Message{}, false, ErrSessionClosed
	}
	if s.identity == "" {
		return Message{}, false, ErrIdentityNotBound
	}

	msg := Message{
		Sender:        s.identity,
		Receiver:      receiver,
		Content:       content,
		AppointmentID: appointmentID,
		SentAt:        r.now().UTC(),
	}

	start := r.now()
	pctx, cancel := context.WithTimeout(ctx, r.persistTimeout)
	err := r.store.Persist(pctx, &msg)
	cancel()
	r.metrics.ObservePersist(r.now().Sub(start).Seconds(), err)
	if err != nil {
		r.logger.Error("chat: persist failed", "sender", msg.Sender, "receiver", receiver, "error", err)
		return Message{}, false, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	// Resolve after persisting so the presence lock is never held across
	// durable I/O.
	target, online := r.directory.Resolve(receiver)
	if !online {
		r.metrics.ObserveDelivery("offline")
		return msg, false, nil
	}
	if err := target.deliver(msg); err != nil {
		// The receiver's connection is going away; its read loop will
		// unregister it. The message is already durable.
		r.logger.Warn("chat: delivery failed", "receiver", receiver, "error", err)
		r.metrics.ObserveDelivery("failed")
		return msg, false, nil
	}
	r.metrics.ObserveDelivery("delivered")
	return msg, true, nil
}

// Disconnect releases the session's presence binding and closes it.
// Terminal: no further events are accepted for this session.
func (r *Relay) Disconnect(s *Session) {
	if s.closed {
		return
	}
	s.closed = true
	r.directory.Unregister(s)
	r.metrics.ObserveConnectionClosed()
	if s.identity != "" {
		r.logger.Info("chat: identity left", "identity", s.identity)
	}
}
