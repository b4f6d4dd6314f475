package settings

import (
	"log/slog"
	"sync"

	"github.com/dtnitsch/news-insight/models"
	"github.com/dtnitsch/news-insight/pkg/metrics"
)

// DefaultSubscriberBuffer is the per-subscriber queue length.
const DefaultSubscriberBuffer = 16

// Hub fans broadcast messages out to subscribers. Broadcast never blocks:
// a subscriber whose queue is full is dropped and its channel closed.
type Hub struct {
	mu     sync.Mutex
	subs   map[*Subscriber]struct{}
	logger *slog.Logger
}

// Subscriber receives broadcast messages until it is closed or dropped.
type Subscriber struct {
	hub  *Hub
	ch   chan models.Message
	once sync.Once
}

func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{subs: make(map[*Subscriber]struct{}), logger: logger}
}

// Subscribe registers a subscriber with the given queue length.
func (h *Hub) Subscribe(buffer int) *Subscriber {
	if buffer <= 0 {
		buffer = DefaultSubscriberBuffer
	}
	s := &Subscriber{hub: h, ch: make(chan models.Message, buffer)}
	h.mu.Lock()
	h.subs[s] = struct{}{}
	h.mu.Unlock()
	metrics.EventSubscribers.Inc()
	return s
}

// Broadcast delivers msg to every subscriber without waiting on any of
// them. It returns the number of subscribers that received it.
func (h *Hub) Broadcast(msg models.Message) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	delivered := 0
	for s := range h.subs {
		select {
		case s.ch <- msg:
			delivered++
		default:
			h.logger.Warn("Dropping slow subscriber", "type", msg.Type)
			h.removeLocked(s)
		}
	}
	return delivered
}

// Len returns the number of active subscribers.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Close drops every subscriber.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.subs {
		h.removeLocked(s)
	}
}

func (h *Hub) removeLocked(s *Subscriber) {
	if _, ok := h.subs[s]; !ok {
		return
	}
	delete(h.subs, s)
	s.once.Do(func() { close(s.ch) })
	metrics.EventSubscribers.Dec()
}

// C returns the delivery channel. It is closed when the subscriber is
// closed or dropped.
func (s *Subscriber) C() <-chan models.Message {
	return s.ch
}

// Close unsubscribes. It is safe to call more than once.
func (s *Subscriber) Close() {
	s.hub.mu.Lock()
	defer s.hub.mu.Unlock()
	s.hub.removeLocked(s)
}
