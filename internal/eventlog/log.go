// Package eventlog keeps a bounded, most-recent-first history of processed
// webhook deliveries for the dashboard to poll.
package eventlog

import (
	"sync"
	"time"

	"github.com/Veraticus/fieldwise/internal/model"
)

// DefaultCapacity is the number of events kept when none is configured.
const DefaultCapacity = 50

// Log is a fixed-capacity event history. The zero value is not usable; call New.
type Log struct {
	now      func() time.Time
	events   []model.WebhookEvent
	capacity int
	lastID   int64
	mu       sync.RWMutex
}

// New creates a log holding at most capacity events.
func New(capacity int) *Log {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Log{
		capacity: capacity,
		events:   make([]model.WebhookEvent, 0, capacity),
		now:      time.Now,
	}
}

// Append inserts event at the head, evicting the oldest entry once the log is
// full. It assigns ReceivedAt when unset and an ID derived from the receipt
// time in milliseconds, bumped when needed so IDs strictly increase.
// The stored event is returned.
func (l *Log) Append(event model.WebhookEvent) model.WebhookEvent {
	l.mu.Lock()
	defer l.mu.Unlock()

	if event.ReceivedAt.IsZero() {
		event.ReceivedAt = l.now().UTC()
	}
	id := event.ReceivedAt.UnixMilli()
	if id <= l.lastID {
		id = l.lastID + 1
	}
	event.ID = id
	l.lastID = id

	if len(l.events) == l.capacity {
		l.events = l.events[:l.capacity-1]
	}
	l.events = append(l.events, model.WebhookEvent{})
	copy(l.events[1:], l.events[:len(l.events)-1])
	l.events[0] = event

	return event
}

// List returns a copy of the events, most recent first.
func (l *Log) List() []model.WebhookEvent {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]model.WebhookEvent, len(l.events))
	copy(out, l.events)
	return out
}

// Len returns the number of stored events.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.events)
}

// Capacity returns the maximum number of stored events.
func (l *Log) Capacity() int {
	return l.capacity
}

// Clear removes every event.
func (l *Log) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = l.events[:0]
}
