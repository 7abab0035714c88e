// services/events.go - In-memory ledger event broker
package services

import (
	"sync"
	"time"
)

// LedgerEvent is a change notification fanned out to realtime subscribers.
// Consumers re-derive their state from the API on receipt; events carry just
// enough to know what changed.
type LedgerEvent struct {
	Type      string                 `json:"type"` // transfer, grant, rank_up, badge_change, plan_change
	UserID    uint                   `json:"user_id"`
	Payload   map[string]interface{} `json:"payload,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// EventBroker fans ledger events out to websocket subscribers. Slow
// subscribers are skipped rather than blocking the publisher.
type EventBroker struct {
	mu   sync.RWMutex
	subs map[chan LedgerEvent]struct{}
}

var broker *EventBroker

// InitEventBroker initializes the singleton broker.
func InitEventBroker() {
	broker = NewEventBroker()
}

// GetEventBroker returns the initialized broker.
func GetEventBroker() *EventBroker {
	return broker
}

func NewEventBroker() *EventBroker {
	return &EventBroker{subs: make(map[chan LedgerEvent]struct{})}
}

// Subscribe registers a new subscriber channel.
func (b *EventBroker) Subscribe() chan LedgerEvent {
	ch := make(chan LedgerEvent, 32)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes and closes a subscriber channel.
func (b *EventBroker) Unsubscribe(ch chan LedgerEvent) {
	b.mu.Lock()
	if _, ok := b.subs[ch]; ok {
		delete(b.subs, ch)
		close(ch)
	}
	b.mu.Unlock()
}

// Publish delivers an event to every subscriber with room in its buffer.
func (b *EventBroker) Publish(event LedgerEvent) {
	if b == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs {
		select {
		case ch <- event:
		default:
		}
	}
}
