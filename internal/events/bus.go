// Package events is the engine's single-writer pub/sub bus. The core
// worker is the only publisher; the GUI/metrics observer subscribes
// read-only, matching the single-writer rule in SPEC_FULL.md §5.
package events

import (
	"sync"
	"time"
)

// EventType identifies the kind of thing that happened during a tick.
type EventType string

const (
	EventModeChanged          EventType = "MODE_CHANGED"
	EventRoleAssigned         EventType = "ROLE_ASSIGNED"
	EventRoleEvolved          EventType = "ROLE_EVOLVED"
	EventSignalGenerated      EventType = "SIGNAL_GENERATED"
	EventOrderSubmitted       EventType = "ORDER_SUBMITTED"
	EventOrderRejected        EventType = "ORDER_REJECTED"
	EventCloseActionExecuted  EventType = "CLOSE_ACTION_EXECUTED"
	EventCloseActionFailed    EventType = "CLOSE_ACTION_FAILED"
	EventRiskRejected         EventType = "RISK_REJECTED"
	EventEmergencyStopTripped EventType = "EMERGENCY_STOP_TRIPPED"
	EventTickCompleted        EventType = "TICK_COMPLETED"
	EventInvariantBreach      EventType = "INVARIANT_BREACH"
	EventSnapshotsRefreshed   EventType = "SNAPSHOTS_REFRESHED"
)

// Event is one published occurrence, with a free-form payload.
type Event struct {
	Type      EventType
	Timestamp time.Time
	Data      map[string]interface{}
}

// Subscriber handles one published event.
type Subscriber func(Event)

// Bus fans an Event out to subscribers. Publish never blocks the
// caller on subscriber work.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[EventType][]Subscriber
	allSubs     []Subscriber
}

// NewBus creates an empty event bus.
func NewBus() *Bus {
	return &Bus{subscribers: make(map[EventType][]Subscriber)}
}

// Subscribe registers a subscriber for one event type.
func (b *Bus) Subscribe(t EventType, sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[t] = append(b.subscribers[t], sub)
}

// SubscribeAll registers a subscriber for every event type, the shape
// the out-of-scope observer uses to mirror the whole snapshot stream.
func (b *Bus) SubscribeAll(sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.allSubs = append(b.allSubs, sub)
}

// Publish fans the event out to matching and all-event subscribers.
// Each subscriber runs in its own goroutine so a slow observer never
// stalls the tick loop.
func (b *Bus) Publish(e Event) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, sub := range b.subscribers[e.Type] {
		go sub(e)
	}
	for _, sub := range b.allSubs {
		go sub(e)
	}
}
