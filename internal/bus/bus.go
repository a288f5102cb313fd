// Package bus is the session-scoped change-notification point. Components
// publish named, payload-free events after a mutation; subscribers
// re-fetch rather than rely on event contents.
package bus

import "sync"

// Named events. Both are deliberately payload-free.
const (
	// EventDataUpdate fires after any ledger mutation.
	EventDataUpdate = "data-update"
	// EventChatCleared fires when the assistant history is wiped.
	EventChatCleared = "chat-cleared"
)

type subscriber struct {
	id int
	fn func()
}

// Bus delivers notifications synchronously to current subscribers in
// registration order, before the triggering call returns. It is owned by
// the user session and torn down with it; it is not a process global.
type Bus struct {
	mu     sync.Mutex
	nextID int
	subs   map[string][]subscriber
	closed bool
}

func New() *Bus {
	return &Bus{subs: make(map[string][]subscriber)}
}

// Subscribe registers fn for the named event and returns an unsubscribe
// function. Subscribing on a closed bus returns a no-op unsubscribe.
func (b *Bus) Subscribe(event string, fn func()) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return func() {}
	}

	b.nextID++
	id := b.nextID
	b.subs[event] = append(b.subs[event], subscriber{id: id, fn: fn})

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		list := b.subs[event]
		for i, s := range list {
			if s.id == id {
				b.subs[event] = append(list[:i:i], list[i+1:]...)
				return
			}
		}
	}
}

// Publish invokes every current subscriber of the event synchronously, in
// registration order. Subscribers run outside the bus lock so they may
// themselves subscribe, unsubscribe or publish.
func (b *Bus) Publish(event string) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	list := make([]subscriber, len(b.subs[event]))
	copy(list, b.subs[event])
	b.mu.Unlock()

	for _, s := range list {
		s.fn()
	}
}

// Close drops all subscribers. Called on session end (logout) so handlers
// never leak across user switches.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.subs = make(map[string][]subscriber)
}
