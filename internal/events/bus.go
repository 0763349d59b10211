// Package events provides the in-memory listener bus interactions are
// re-emitted on.
package events

import (
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	ErrBusClosed = errors.New("event bus is closed")
)

// EventType names a listener.
type EventType string

const (
	// Every interaction, before anything more specific.
	EventInteractionReceived EventType = "interaction_received"

	// Components
	EventComponent   EventType = "component"
	EventButtonPress EventType = "button_press"
	EventMenuSelect  EventType = "menu_select"

	// Commands
	EventSlashCommand   EventType = "slash_command"
	EventContextCommand EventType = "context_command"
)

// Event is one emission on the bus. Payload holds the typed interaction
// object (see the interaction package).
type Event struct {
	ID        string
	Type      EventType
	Timestamp time.Time
	MessageID string
	Payload   any
}

// NewEvent creates an event with a fresh id and the current timestamp.
func NewEvent(eventType EventType, payload any) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now(),
		Payload:   payload,
	}
}

// NewMessageEvent is NewEvent tagged with the message the interaction came
// from.
func NewMessageEvent(eventType EventType, messageID string, payload any) Event {
	e := NewEvent(eventType, payload)
	e.MessageID = messageID
	return e
}

// Subscriber is a function that receives events.
type Subscriber func(Event)

type subscription struct {
	id         int
	eventTypes []EventType
	handler    Subscriber
}

// Bus fans events out to subscribers. Each delivery runs in its own
// goroutine; nothing is dropped.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[int]*subscription
	nextID      int
	history     *history
	inflight    sync.WaitGroup
	closed      bool
}

// NewBus creates a bus keeping the last historySize events for History.
func NewBus(historySize int) *Bus {
	if historySize <= 0 {
		historySize = 1
	}
	return &Bus{
		subscribers: make(map[int]*subscription),
		history:     newHistory(historySize),
	}
}

func (b *Bus) matches(sub *subscription, event Event) bool {
	if len(sub.eventTypes) == 0 {
		return true
	}
	for _, t := range sub.eventTypes {
		if t == event.Type {
			return true
		}
	}
	return false
}

// Publish delivers event to every matching subscriber and returns how many
// received it.
func (b *Bus) Publish(event Event) (int, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return 0, ErrBusClosed
	}
	b.history.add(event)

	n := 0
	for _, sub := range b.subscribers {
		if !b.matches(sub, event) {
			continue
		}
		n++
		b.inflight.Add(1)
		go func(h Subscriber) {
			defer b.inflight.Done()
			h(event)
		}(sub.handler)
	}
	return n, nil
}

// Subscribe registers a handler for specific event types, or for every event
// when none are given. Returns an unsubscribe function.
func (b *Bus) Subscribe(handler Subscriber, eventTypes ...EventType) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++

	b.subscribers[id] = &subscription{
		id:         id,
		eventTypes: eventTypes,
		handler:    handler,
	}

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subscribers, id)
	}
}

// SubscribeChan returns a channel that receives events. Events arriving while
// the channel is full are discarded.
func (b *Bus) SubscribeChan(bufSize int, eventTypes ...EventType) (<-chan Event, func()) {
	ch := make(chan Event, bufSize)
	var mu sync.Mutex
	open := true

	unsubscribe := b.Subscribe(func(e Event) {
		mu.Lock()
		defer mu.Unlock()
		if !open {
			return
		}
		select {
		case ch <- e:
		default:
		}
	}, eventTypes...)

	return ch, func() {
		unsubscribe()
		mu.Lock()
		defer mu.Unlock()
		if open {
			open = false
			close(ch)
		}
	}
}

// History returns up to limit recent events, oldest first.
func (b *Bus) History(limit int) []Event {
	return b.history.last(limit, nil)
}

// MessageHistory returns up to limit recent events published for messageID,
// oldest first.
func (b *Bus) MessageHistory(messageID string, limit int) []Event {
	return b.history.last(limit, func(e Event) bool { return e.MessageID == messageID })
}

// Close rejects further publishes and waits for running handlers.
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	b.mu.Unlock()

	b.inflight.Wait()
}

// history keeps the most recent events in a fixed slice, overwriting the
// oldest once full.
type history struct {
	mu     sync.Mutex
	events []Event
	next   int
	filled int
}

func newHistory(size int) *history {
	return &history{events: make([]Event, size)}
}

func (h *history) add(e Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events[h.next] = e
	h.next = (h.next + 1) % len(h.events)
	if h.filled < len(h.events) {
		h.filled++
	}
}

// last walks back from the newest event collecting up to limit events that
// keep accepts (all when keep is nil).
func (h *history) last(limit int, keep func(Event) bool) []Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	if limit <= 0 {
		return nil
	}

	var out []Event
	for i := 1; i <= h.filled && len(out) < limit; i++ {
		e := h.events[(h.next-i+len(h.events))%len(h.events)]
		if keep == nil || keep(e) {
			out = append(out, e)
		}
	}
	slices.Reverse(out)
	return out
}
