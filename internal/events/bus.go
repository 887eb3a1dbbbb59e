// Package events provides a simple publish-subscribe event bus for SSE delivery.
package events

import (
	"sync"
	"time"
)

const subBufferSize = 16

// Kind classifies an Event.
type Kind string

const (
	// KindSettings is published after a settings area is flushed.
	KindSettings Kind = "settings"
	// KindRecords is published when prompts, dictionary or clipboard records change.
	KindRecords Kind = "records"
	// KindStatus is published when the keyboard enabled/active status changes.
	KindStatus Kind = "status"
)

// Event is a change notification delivered to subscribers.
type Event struct {
	Kind    Kind           `json:"kind"`
	Area    string         `json:"area,omitempty"`
	Changed []string       `json:"changed,omitempty"`
	Values  map[string]any `json:"values,omitempty"`
	At      time.Time      `json:"at"`
}

// Bus is a non-blocking publish-subscribe event bus.
// Subscribers that are slow to consume events will have events dropped rather
// than blocking publishers.
type Bus struct {
	mu   sync.Mutex
	subs map[string]chan Event
}

// NewBus creates a new event bus.
func NewBus() *Bus {
	return &Bus{
		subs: make(map[string]chan Event),
	}
}

// Subscribe creates a new subscription with the given ID.
// Call Unsubscribe when done to clean up.
func (b *Bus) Subscribe(id string) <-chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	if old, ok := b.subs[id]; ok {
		close(old)
	}
	ch := make(chan Event, subBufferSize)
	b.subs[id] = ch
	return ch
}

// Unsubscribe removes a subscription and closes its channel.
func (b *Bus) Unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if ch, ok := b.subs[id]; ok {
		delete(b.subs, id)
		close(ch)
	}
}

// Publish sends an event to all subscribers. A zero At is stamped with the
// current time. If a subscriber's channel is full, the event is dropped.
// Publish on a nil Bus is a no-op.
func (b *Bus) Publish(ev Event) {
	if b == nil {
		return
	}
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			// Drop if subscriber is slow
		}
	}
}

// SubscriberCount returns the current number of subscribers.
func (b *Bus) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
