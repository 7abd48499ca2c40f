package events

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPublish_DeliversOnlyToMatchingTypeSubscriber(t *testing.T) {
	b := NewBus()
	var mu sync.Mutex
	var got []EventType
	done := make(chan struct{}, 2)

	b.Subscribe(EventOrderSubmitted, func(e Event) {
		mu.Lock()
		got = append(got, e.Type)
		mu.Unlock()
		done <- struct{}{}
	})
	b.Subscribe(EventOrderRejected, func(e Event) {
		t.Error("should not receive ORDER_SUBMITTED on ORDER_REJECTED subscriber")
		done <- struct{}{}
	})

	b.Publish(Event{Type: EventOrderSubmitted})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("subscriber never ran")
	}
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []EventType{EventOrderSubmitted}, got)
}

func TestSubscribeAll_ReceivesEveryEventType(t *testing.T) {
	b := NewBus()
	done := make(chan EventType, 2)
	b.SubscribeAll(func(e Event) { done <- e.Type })

	b.Publish(Event{Type: EventRoleAssigned})
	b.Publish(Event{Type: EventTickCompleted})

	seen := map[EventType]bool{}
	for i := 0; i < 2; i++ {
		select {
		case et := <-done:
			seen[et] = true
		case <-time.After(time.Second):
			t.Fatal("missing event")
		}
	}
	assert.True(t, seen[EventRoleAssigned])
	assert.True(t, seen[EventTickCompleted])
}

func TestPublish_FillsZeroTimestamp(t *testing.T) {
	b := NewBus()
	done := make(chan Event, 1)
	b.SubscribeAll(func(e Event) { done <- e })
	b.Publish(Event{Type: EventInvariantBreach})
	select {
	case e := <-done:
		assert.False(t, e.Timestamp.IsZero())
	case <-time.After(time.Second):
		t.Fatal("missing event")
	}
}
