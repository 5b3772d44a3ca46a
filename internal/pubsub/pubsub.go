// Package pubsub fans change events out to realtime clients, optionally
// relaying them through NATS JetStream so every instance sees every event.
package pubsub

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Billy-Davies-2/esccup-draft/internal/logger"
)

// Event types published by the service
const (
	TypeDraftAssign     = "draft:assign"
	TypeDraftAssignAll  = "draft:assignAll"
	TypePlayerAdded     = "players:added"
	TypePlayerUpdated   = "players:updated"
	TypePlayerDeleted   = "players:deleted"
	TypePlayersCleared  = "players:cleared"
	TypeTeamAdded       = "teams:added"
	TypeTeamUpdated     = "teams:updated"
	TypeTeamDeleted     = "teams:deleted"
	TypeTeamsCleared    = "teams:cleared"
	TypeMatchCreated    = "matches:created"
	TypeMatchUpdated    = "matches:updated"
	TypeMatchDeleted    = "matches:deleted"
	TypeBracketCreated  = "tournament:created"
	TypeBracketAdvanced = "tournament:updated"
)

const subscriberBuffer = 32

// Event is a change notification
type Event struct {
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	Time    time.Time       `json:"time"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewEvent builds an event with a fresh id. A payload that cannot be
// encoded is dropped and logged.
func NewEvent(eventType string, payload any) Event {
	e := Event{ID: uuid.NewString(), Type: eventType, Time: time.Now().UTC()}
	if payload == nil {
		return e
	}
	data, err := json.Marshal(payload)
	if err != nil {
		logger.Error("Failed to encode event payload", "type", eventType, "error", err)
		return e
	}
	e.Payload = data
	return e
}

// Decode unmarshals the payload into v
func (e Event) Decode(v any) error {
	return json.Unmarshal(e.Payload, v)
}

// Transport carries events between instances
type Transport interface {
	Publish(Event) error
	// Events delivers every event published through the transport, including our own
	Events() <-chan Event
	Close() error
}

// Hub delivers events to in-process subscribers. With a transport, published
// events go out through it and come back in through Events.
type Hub struct {
	mu        sync.RWMutex
	subs      map[uint64]chan Event
	nextID    uint64
	transport Transport
	closed    bool
}

// New creates a hub that delivers locally only
func New() *Hub {
	return &Hub{subs: make(map[uint64]chan Event)}
}

// NewWithTransport creates a hub relayed through t
func NewWithTransport(t Transport) *Hub {
	h := New()
	h.transport = t
	go func() {
		for e := range t.Events() {
			h.deliver(e)
		}
		logger.Debug("Event transport drained")
	}()
	return h
}

// Subscribe registers a subscriber. Calling cancel closes the channel.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	id := h.nextID
	h.nextID++
	h.subs[id] = ch
	n := len(h.subs)
	h.mu.Unlock()

	logger.Debug("Event subscriber added", "subscribers", n)

	var once sync.Once
	return ch, func() {
		once.Do(func() { h.remove(id) })
	}
}

func (h *Hub) remove(id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ch, ok := h.subs[id]; ok {
		delete(h.subs, id)
		close(ch)
	}
}

// Publish sends e to every subscriber, through the transport when there is one
func (h *Hub) Publish(e Event) {
	if h.transport == nil {
		h.deliver(e)
		return
	}
	if err := h.transport.Publish(e); err != nil {
		logger.Warn("Event transport publish failed, delivering locally", "type", e.Type, "error", err)
		h.deliver(e)
	}
}

// SubscriberCount returns the number of live subscribers
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Close closes every subscriber and the transport
func (h *Hub) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	for id, ch := range h.subs {
		delete(h.subs, id)
		close(ch)
	}
	h.mu.Unlock()

	if h.transport != nil {
		return h.transport.Close()
	}
	return nil
}

// deliver never blocks; a full subscriber misses the event
func (h *Hub) deliver(e Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, ch := range h.subs {
		select {
		case ch <- e:
		default:
			logger.Warn("Skipping slow event subscriber", "type", e.Type)
		}
	}
}
