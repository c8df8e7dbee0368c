package chat

import (
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	sse "github.com/likerRr/sse-express"
)

// Event names sent to chat clients.
const (
	EventConnected = "connected"
	EventMessage   = "message"
)

// Message is a chat message broadcasted to every connected client.
type Message struct {
	Text   string `json:"text"`
	UserID string `json:"userId"`
}

// Connected is sent to a client right after it connects.
type Connected struct {
	ID int64 `json:"id"`
}

// Handler serves chat HTTP endpoints.
type Handler struct {
	hub     *Hub
	history *History
	log     logrus.FieldLogger

	// mu orders message IDs, history and broadcasts, and makes replay and
	// registration of a new client atomic with respect to them.
	mu       sync.Mutex
	clients  int64
	messages int64
}

// NewHandler creates chat endpoints broadcasting through hub.
func NewHandler(hub *Hub, history *History, log logrus.FieldLogger) *Handler {
	return &Handler{
		hub:     hub,
		history: history,
		log:     log,
	}
}

// Updates streams chat messages to a client. It must be wrapped with
// sse.Middleware.
func (h *Handler) Updates(w http.ResponseWriter, r *http.Request) {
	s, ok := sse.FromContext(r.Context())
	if !ok {
		http.Error(w, "sse session missing", http.StatusInternalServerError)
		return
	}

	// Missed messages and the greeting are queued ahead of any broadcast
	// made after registration.
	h.mu.Lock()
	var backlog []*sse.Event
	if lastID, ok := s.LastEventID(); ok {
		backlog = h.history.Since(lastID)
	}
	h.clients++
	client := h.clients
	backlog = append(backlog, &sse.Event{Event: EventConnected, Data: Connected{ID: client}})
	id, gone := h.hub.Add(s, backlog...)
	h.mu.Unlock()

	defer func() {
		h.hub.Remove(id)
		h.log.WithField("clients", h.hub.Len()).Info("client disconnected")
	}()
	h.log.WithFields(logrus.Fields{
		"client":  client,
		"clients": h.hub.Len(),
		"replay":  len(backlog) - 1,
	}).Info("client connected")

	select {
	case <-r.Context().Done():
	case <-s.Done():
	case <-gone:
		// Fail a write stuck on a client that stopped reading, so the
		// session can close.
		if err := http.NewResponseController(w).SetWriteDeadline(time.Now()); err != nil {
			h.log.WithError(err).Debug("write deadline not supported")
		}
	}
}

// SendMessage broadcasts a message posted as form fields message and userId.
func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	msg := Message{
		Text:   r.PostFormValue("message"),
		UserID: r.PostFormValue("userId"),
	}
	if msg.Text == "" {
		http.Error(w, "message is required", http.StatusBadRequest)
		return
	}

	h.mu.Lock()
	h.messages++
	event := &sse.Event{
		ID:    h.messages,
		Event: EventMessage,
		Data:  msg,
	}
	if err := h.history.Add(event); err != nil {
		h.log.WithError(err).Warn("message not stored in history")
	}
	delivered := h.hub.Broadcast(event)
	h.mu.Unlock()

	h.log.WithFields(logrus.Fields{
		"id":        event.ID,
		"user":      msg.UserID,
		"queued":    delivered,
	}).Debug("message broadcasted")

	w.WriteHeader(http.StatusOK)
}
