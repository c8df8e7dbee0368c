package chat

import (
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	sse "github.com/likerRr/sse-express"
)

// DefaultQueueSize is the number of pending broadcasts a client may lag
// behind before it is dropped.
const DefaultQueueSize = 64

// Sender is a connected client able to receive events, *sse.Session
// satisfies it.
type Sender interface {
	Send(events ...*sse.Event) error
}

// client is a registered sender with its own delivery queue. Each queue item
// is a batch of events written with a single Send call.
type client struct {
	sender Sender
	queue  chan []*sse.Event
	gone   chan struct{}
}

// Hub is a registry of connected clients used for broadcasting. Every client
// is fed by its own goroutine, so a client that stops reading never blocks
// Broadcast or other clients. Hub is safe for concurrent use.
type Hub struct {
	log       logrus.FieldLogger
	queueSize int

	mu      sync.RWMutex
	clients map[string]*client
}

// NewHub creates an empty hub. Non-positive queueSize means
// DefaultQueueSize.
func NewHub(log logrus.FieldLogger, queueSize int) *Hub {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Hub{
		log:       log,
		queueSize: queueSize,
		clients:   make(map[string]*client),
	}
}

// Add registers a client and returns its registration ID along with a
// channel closed when the client is removed from the hub. Backlog events, if
// any, are delivered to the client before any broadcast made after Add.
func (h *Hub) Add(s Sender, backlog ...*sse.Event) (string, <-chan struct{}) {
	id := uuid.NewString()
	c := &client{
		sender: s,
		queue:  make(chan []*sse.Event, h.queueSize),
		gone:   make(chan struct{}),
	}
	if len(backlog) > 0 {
		c.queue <- backlog
	}

	h.mu.Lock()
	h.clients[id] = c
	h.mu.Unlock()

	go h.deliver(id, c)
	return id, c.gone
}

// Remove unregisters a client, unknown IDs are ignored. Events still queued
// for the client are discarded.
func (h *Hub) Remove(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(id)
}

func (h *Hub) removeLocked(id string) {
	c, ok := h.clients[id]
	if !ok {
		return
	}
	delete(h.clients, id)
	close(c.queue)
	close(c.gone)
}

// Len returns number of registered clients.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast queues events for all registered clients and returns the number
// of clients they were queued for. Broadcast never waits for delivery.
// Clients whose queue is full are removed, they are expected to reconnect
// with their last event ID.
func (h *Hub) Broadcast(events ...*sse.Event) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	var queued int
	for id, c := range h.clients {
		select {
		case c.queue <- events:
			queued++
		default:
			h.log.WithField("client", id).Info("dropping slow client")
			h.removeLocked(id)
		}
	}
	return queued
}

// deliver writes queued events to the client until it is removed or a write
// fails.
func (h *Hub) deliver(id string, c *client) {
	for events := range c.queue {
		if err := c.sender.Send(events...); err != nil {
			h.log.WithError(err).WithField("client", id).Info("dropping client")
			h.Remove(id)
			return
		}
	}
}
