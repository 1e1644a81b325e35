// Package presence broadcasts transient drag-in-progress records so
// concurrent users can see who is reordering what. Records are advisory:
// they carry no list data and losing one costs nothing but a highlight.
package presence

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/AnnaOlkh/todolist/internal/domain"
	"github.com/AnnaOlkh/todolist/internal/identity"
)

// SlotStore is the single shared remote presence slot.
type SlotStore interface {
	Publish(ctx context.Context, rec domain.DragPresence) error
	Clear(ctx context.Context) error
	Subscribe(ctx context.Context, fn func(*domain.DragPresence))
}

const writeTimeout = 5 * time.Second

// Broadcaster publishes this session's drag state to the shared slot and
// exposes the remote state of other sessions. Records originating from the
// broadcaster's own session are suppressed so a client never reacts to an
// echo of its own drag.
type Broadcaster struct {
	id     identity.Identity
	store  SlotStore
	logger *log.Logger

	mu       sync.Mutex
	current  *domain.DragPresence
	onChange func(*domain.DragPresence)
}

// BroadcasterOption configures a Broadcaster.
type BroadcasterOption func(*Broadcaster)

// WithPresenceChange registers a callback fired when the exposed remote
// state changes, including to absence.
func WithPresenceChange(fn func(*domain.DragPresence)) BroadcasterOption {
	return func(b *Broadcaster) { b.onChange = fn }
}

// NewBroadcaster creates a broadcaster for the given session over store.
func NewBroadcaster(id identity.Identity, store SlotStore, logger *log.Logger, opts ...BroadcasterOption) *Broadcaster {
	if logger == nil {
		logger = log.StandardLogger()
	}
	b := &Broadcaster{id: id, store: store, logger: logger}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Run subscribes to the remote slot until ctx is cancelled. It blocks; run
// it in its own goroutine.
func (b *Broadcaster) Run(ctx context.Context) {
	b.store.Subscribe(ctx, b.apply)
}

// DragStart announces that this session began dragging itemID.
func (b *Broadcaster) DragStart(itemID string) {
	b.publish(domain.DragPresence{ItemID: itemID, SessionID: b.id.SessionID})
}

// DragMove updates the hovered item; overID may be empty when the drag is
// over nothing.
func (b *Broadcaster) DragMove(itemID, overID string) {
	b.publish(domain.DragPresence{ItemID: itemID, OverID: overID, SessionID: b.id.SessionID})
}

// DragEnd retracts this session's record.
func (b *Broadcaster) DragEnd() {
	b.clear()
}

// Close retracts the record on teardown so an abandoned session does not
// leave a stale drag indicator for others.
func (b *Broadcaster) Close() {
	b.clear()
}

// Current returns the remote drag in progress, nil when there is none or
// when the slot holds this session's own record.
func (b *Broadcaster) Current() *domain.DragPresence {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current
}

func (b *Broadcaster) publish(rec domain.DragPresence) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := b.store.Publish(ctx, rec); err != nil {
		b.logger.Errorf("publish presence: %v", err)
	}
}

func (b *Broadcaster) clear() {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := b.store.Clear(ctx); err != nil {
		b.logger.Errorf("clear presence: %v", err)
	}
}

// apply folds a pushed slot value into the exposed state. Own-session
// records are treated as absence regardless of their contents.
func (b *Broadcaster) apply(rec *domain.DragPresence) {
	if rec != nil && rec.SessionID == b.id.SessionID {
		rec = nil
	}
	b.mu.Lock()
	changed := !presenceEqual(b.current, rec)
	b.current = rec
	fn := b.onChange
	b.mu.Unlock()
	if changed && fn != nil {
		fn(rec)
	}
}

func presenceEqual(a, b *domain.DragPresence) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
