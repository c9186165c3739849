// internal/serialport/hub.go
package serialport

import (
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Hub is the shared publish point for framed messages. Every session's read
// loop publishes into the same hub, and every subscriber receives the
// interleaved stream from the moment it subscribed onward. There is no
// historical replay.
type Hub struct {
	mu          sync.Mutex
	subscribers map[string]chan string
	buffer      int
	closed      bool
	logger      *zap.Logger
}

// NewHub creates a broadcast hub whose subscribers each get a delivery
// buffer of the given size.
func NewHub(buffer int, logger *zap.Logger) *Hub {
	if buffer <= 0 {
		buffer = DefaultConfig().SubscriberBuffer
	}
	return &Hub{
		subscribers: make(map[string]chan string),
		buffer:      buffer,
		logger:      logger.With(zap.String("component", "broadcast-hub")),
	}
}

// Subscribe registers a new consumer and returns its id together with the
// channel it receives messages on. The channel is closed on Unsubscribe or
// when the hub shuts down.
func (h *Hub) Subscribe() (string, <-chan string) {
	id := uuid.New().String()
	ch := make(chan string, h.buffer)

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(ch)
		return id, ch
	}
	h.subscribers[id] = ch

	h.logger.Debug("Subscriber registered",
		zap.String("subscriber_id", id),
		zap.Int("subscribers", len(h.subscribers)),
	)
	return id, ch
}

// Unsubscribe removes a consumer and closes its channel. Calling it again
// with the same id is a no-op.
func (h *Hub) Unsubscribe(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch, ok := h.subscribers[id]
	if !ok {
		return
	}
	close(ch)
	delete(h.subscribers, id)

	h.logger.Debug("Subscriber removed",
		zap.String("subscriber_id", id),
		zap.Int("subscribers", len(h.subscribers)),
	)
}

// Publish delivers a message to every current subscriber. It never blocks
// the producer: a subscriber whose buffer is full misses the message. For
// telemetry-style data freshness matters more than completeness.
func (h *Hub) Publish(message string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}

	for id, ch := range h.subscribers {
		select {
		case ch <- message:
		default:
			h.logger.Debug("Subscriber buffer full, message dropped",
				zap.String("subscriber_id", id),
			)
		}
	}
}

// SubscriberCount reports the number of active subscribers.
func (h *Hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers)
}

// Close shuts the hub down, closing every subscriber channel. Publishes
// after Close are discarded.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true

	for id, ch := range h.subscribers {
		close(ch)
		delete(h.subscribers, id)
	}
}
