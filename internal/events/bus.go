// Package events provides the typed publish-subscribe bus carrying sound
// lifecycle events to UI observers and the SSE endpoint.
package events

import (
	"sync"
	"time"
)

const subBufferSize = 16

// Kind identifies an outbound event.
type Kind string

const (
	SoundLoaded   Kind = "sound:loaded"
	SoundPlay     Kind = "sound:play"
	SoundPause    Kind = "sound:pause"
	SoundStop     Kind = "sound:stop"
	SoundEnd      Kind = "sound:end"
	SoundError    Kind = "sound:error"
	VolumeChanged Kind = "volume:changed"
	MuteChanged   Kind = "mute:changed"
	LoadProgress  Kind = "load:progress"
	LoadComplete  Kind = "load:complete"
)

// Event is one sound lifecycle notification.
type Event struct {
	Kind      Kind      `json:"kind"`
	SoundID   string    `json:"sound_id,omitempty"`
	GroupID   string    `json:"group_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Error     string    `json:"error,omitempty"`
	Volume    *float64  `json:"volume,omitempty"`
	Muted     *bool     `json:"muted,omitempty"`
	Loaded    int       `json:"loaded,omitempty"`
	Total     int       `json:"total,omitempty"`
	Failed    []string  `json:"failed,omitempty"`
}

// New builds an event stamped with the current time.
func New(kind Kind, soundID string) Event {
	return Event{Kind: kind, SoundID: soundID, Timestamp: time.Now()}
}

// Bus is a non-blocking publish-subscribe event bus. Subscribers that are
// slow to consume events will have events dropped rather than blocking
// publishers. Delivery order to a single subscriber matches emission order.
type Bus struct {
	mu   sync.Mutex
	subs map[string]chan Event
}

// NewBus creates a new event bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[string]chan Event)}
}

// Subscribe creates a new subscription with the given ID.
// Call Unsubscribe when done to clean up.
func (b *Bus) Subscribe(id string) <-chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()
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

// Publish sends an event to all subscribers.
// If a subscriber's channel is full, the event is dropped (non-blocking).
func (b *Bus) Publish(evt Event) {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now()
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- evt:
		default:
			// Drop if subscriber is slow
		}
	}
}

// Reset removes every subscription, closing all channels. Used on manager
// teardown.
func (b *Bus) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}

// SubscriberCount returns the current number of subscribers.
func (b *Bus) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
