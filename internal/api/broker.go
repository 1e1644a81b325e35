package api

import "sync"

// UpdateKind tags what changed so a stream subscriber knows what to
// re-emit.
type UpdateKind int

const (
	// KindTasks signals a new list snapshot.
	KindTasks UpdateKind = iota
	// KindPresence signals a presence slot change.
	KindPresence
)

// UpdateBroker fans change signals out to SSE subscribers. Signals carry no
// payload; the stream handler re-fetches current state, so a dropped signal
// costs nothing once a later one lands.
type UpdateBroker struct {
	mu   sync.Mutex
	subs map[chan UpdateKind]struct{}
}

// NewUpdateBroker creates an empty broker.
func NewUpdateBroker() *UpdateBroker {
	return &UpdateBroker{subs: make(map[chan UpdateKind]struct{})}
}

// Subscribe registers a new subscriber channel.
func (b *UpdateBroker) Subscribe() chan UpdateKind {
	ch := make(chan UpdateKind, 8)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes a subscriber channel.
func (b *UpdateBroker) Unsubscribe(ch chan UpdateKind) {
	b.mu.Lock()
	delete(b.subs, ch)
	b.mu.Unlock()
}

// Notify wakes every subscriber without blocking; slow subscribers miss the
// signal rather than stall the fan-out.
func (b *UpdateBroker) Notify(kind UpdateKind) {
	b.mu.Lock()
	for ch := range b.subs {
		select {
		case ch <- kind:
		default:
		}
	}
	b.mu.Unlock()
}
