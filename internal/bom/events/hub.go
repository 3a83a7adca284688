// Package events fans BOM change notifications out to a user's open
// Server-Sent Event streams.
package events

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Event types written to the stream.
const (
	TypeConnected = "connected"
	TypeBomUpdate = "bom_update"
)

// Change describes one committed mutation. ProjectID is zero for changes to
// inventory parts, which may affect every project of the user.
type Change struct {
	ProjectID int64     `json:"projectId"`
	Action    string    `json:"action"`
	At        time.Time `json:"at"`
}

// Event is one Server-Sent Event.
type Event struct {
	Type string
	Data string
}

// Subscriber is a connected stream.
type Subscriber struct {
	ID     string
	UserID string
	Events chan Event
}

// Hub tracks subscribers per user.
type Hub struct {
	mu     sync.RWMutex
	subs   map[string]*Subscriber
	logger *zap.Logger
}

// NewHub creates an empty hub.
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{subs: make(map[string]*Subscriber), logger: logger}
}

// Subscribe registers a new stream for userID. buffer bounds how many events
// may queue before further events are dropped for that stream.
func (h *Hub) Subscribe(userID string, buffer int) *Subscriber {
	sub := &Subscriber{
		ID:     uuid.NewString(),
		UserID: userID,
		Events: make(chan Event, buffer),
	}
	h.mu.Lock()
	h.subs[sub.ID] = sub
	total := len(h.subs)
	h.mu.Unlock()
	h.logger.Debug("event stream opened", zap.String("id", sub.ID), zap.String("user_id", userID), zap.Int("total", total))
	return sub
}

// Unsubscribe removes a stream and closes its channel.
func (h *Hub) Unsubscribe(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if sub, ok := h.subs[id]; ok {
		close(sub.Events)
		delete(h.subs, id)
		h.logger.Debug("event stream closed", zap.String("id", id), zap.Int("total", len(h.subs)))
	}
}

// Close ends every open stream.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, sub := range h.subs {
		close(sub.Events)
		delete(h.subs, id)
	}
}

// Subscribers returns the number of open streams.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Publish sends a change to every stream of userID. It never blocks: a
// stream whose buffer is full misses the event.
func (h *Hub) Publish(userID string, change Change) {
	if change.At.IsZero() {
		change.At = time.Now().UTC()
	}
	data, err := json.Marshal(change)
	if err != nil {
		h.logger.Error("marshal change event", zap.Error(err))
		return
	}
	event := Event{Type: TypeBomUpdate, Data: string(data)}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, sub := range h.subs {
		if sub.UserID != userID {
			continue
		}
		select {
		case sub.Events <- event:
		default:
			h.logger.Warn("event stream buffer full, dropping event", zap.String("id", sub.ID))
		}
	}
}
