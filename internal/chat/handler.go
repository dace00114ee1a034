package chat

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"golang.org/x/net/websocket"

	"github.com/rolacode/telehealth-platform/pkg/logging"
)

// InboundEvent is what a client sends over the socket.
type InboundEvent struct {
	Type          string `json:"type"` // "join", "send_message", "private_message", "ping"
	Identity      string `json:"identity,omitempty"`
	Receiver      string `json:"receiver,omitempty"`
	Content       string `json:"content,omitempty"`
	AppointmentID string `json:"appointment_id,omitempty"`
}

// OutboundEvent is what the server pushes to a client.
type OutboundEvent struct {
	Type    string   `json:"type"` // "receive_message", "joined", "pong", "error"
	From    string   `json:"from,omitempty"`
	Message *Message `json:"message,omitempty"`
	Error   string   `json:"error,omitempty"`
}

// Handler is the transport seam: it turns socket events into relay calls and
// history requests into store reads.
type Handler struct {
	relay  *Relay
	store  MessageStore
	logger *logging.Logger
}

// NewHandler creates the chat boundary handler.
func NewHandler(relay *Relay, store MessageStore, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{relay: relay, store: store, logger: logger}
}

// wsConn serializes writes to one websocket; deliveries from other sessions'
// goroutines interleave with pongs and error replies from the read loop.
type wsConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *wsConn) send(event OutboundEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return websocket.JSON.Send(c.conn, event)
}

// HandleWebSocket upgrades to WebSocket and runs the session's event loop.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	websocket.Handler(func(conn *websocket.Conn) {
		h.serveWS(conn, r)
	}).ServeHTTP(w, r)
}

func (h *Handler) serveWS(conn *websocket.Conn, r *http.Request) {
	wsc := &wsConn{conn: conn}
	session := h.relay.Connect(func(msg Message) error {
		return wsc.send(OutboundEvent{Type: "receive_message", From: msg.Sender, Message: &msg})
	})
	defer h.relay.Disconnect(session)

	// A client may announce its identity up front instead of a join event.
	if identity := r.URL.Query().Get("user"); identity != "" {
		if err := h.relay.Join(session, identity); err == nil {
			_ = wsc.send(OutboundEvent{Type: "joined"})
		}
	}

	for {
		var event InboundEvent
		if err := websocket.JSON.Receive(conn, &event); err != nil {
			h.logger.Debug("chat: connection closed", "identity", session.Identity(), "error", err)
			return
		}
		h.handleEvent(r, wsc, session, event)
	}
}

// handleEvent processes one inbound event. Event errors keep the session
// open; only transport errors end it.
func (h *Handler) handleEvent(r *http.Request, wsc *wsConn, session *Session, event InboundEvent) {
	switch event.Type {
	case "ping":
		_ = wsc.send(OutboundEvent{Type: "pong"})

	case "join":
		if strings.TrimSpace(event.Identity) == "" {
			_ = wsc.send(OutboundEvent{Type: "error", Error: "join requires identity"})
			return
		}
		if err := h.relay.Join(session, event.Identity); err != nil {
			_ = wsc.send(OutboundEvent{Type: "error", Error: err.Error()})
			return
		}
		_ = wsc.send(OutboundEvent{Type: "joined"})

	case "send_message", "private_message":
		if strings.TrimSpace(event.Receiver) == "" || strings.TrimSpace(event.Content) == "" {
			_ = wsc.send(OutboundEvent{Type: "error", Error: "send_message requires receiver and content"})
			return
		}
		_, _, err := h.relay.Send(r.Context(), session, event.Receiver, event.Content, event.AppointmentID)
		switch {
		case errors.Is(err, ErrIdentityNotBound):
			_ = wsc.send(OutboundEvent{Type: "error", Error: "join before sending messages"})
		case errors.Is(err, ErrStorageUnavailable):
			_ = wsc.send(OutboundEvent{Type: "error", Error: "message could not be saved, try again"})
		case err != nil:
			_ = wsc.send(OutboundEvent{Type: "error", Error: err.Error()})
		}

	default:
		_ = wsc.send(OutboundEvent{Type: "error", Error: "unknown event type"})
	}
}

// HandleHistory returns the full conversation between two users.
// GET /api/chat/history/{userA}/{userB}
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	userA := chi.URLParam(r, "userA")
	userB := chi.URLParam(r, "userB")
	if userA == "" || userB == "" {
		http.Error(w, "both user ids are required", http.StatusBadRequest)
		return
	}

	messages, err := h.store.Conversation(r.Context(), userA, userB)
	if err != nil {
		h.logger.Error("chat: failed to load history", "error", err)
		http.Error(w, "failed to load chat history", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"messages": messages})
}
