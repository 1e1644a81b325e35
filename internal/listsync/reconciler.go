// Package listsync owns the client-side half of the sync loop: an
// in-memory copy of the shared list, optimistic local mutations, and
// wholesale replacement whenever the remote store pushes a snapshot.
package listsync

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/AnnaOlkh/todolist/internal/domain"
	"github.com/AnnaOlkh/todolist/internal/identity"
)

// SnapshotSubscriber is the read half of the remote list store.
type SnapshotSubscriber interface {
	Subscribe(ctx context.Context, fn func(domain.Snapshot))
}

// Reconciler keeps two copies of the list: draft carries optimistic local
// mutations and is what the presentation layer renders; confirmed is the
// last snapshot pushed by the store. A pushed snapshot always wins: it
// replaces both copies wholesale, with no diffing or merge.
type Reconciler struct {
	id     identity.Identity
	writer *Writer
	logger *log.Logger
	now    func() time.Time

	mu        sync.Mutex
	draft     domain.Snapshot
	confirmed domain.Snapshot
	lastStamp int64

	onChange func([]domain.Task)
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithClock overrides the time source, used by tests.
func WithClock(now func() time.Time) Option {
	return func(r *Reconciler) { r.now = now }
}

// WithOnChange registers a callback invoked with the sorted task list after
// every draft change, local or remote. The callback runs under the
// reconciler lock; keep it cheap.
func WithOnChange(fn func([]domain.Task)) Option {
	return func(r *Reconciler) { r.onChange = fn }
}

// NewReconciler creates a reconciler stamping mutations with id, writing
// through writer.
func NewReconciler(id identity.Identity, writer *Writer, logger *log.Logger, opts ...Option) *Reconciler {
	if logger == nil {
		logger = log.StandardLogger()
	}
	r := &Reconciler{
		id:        id,
		writer:    writer,
		logger:    logger,
		now:       time.Now,
		draft:     domain.Snapshot{},
		confirmed: domain.Snapshot{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run subscribes to the store and applies every pushed snapshot until ctx
// is cancelled. It blocks; run it in its own goroutine.
func (r *Reconciler) Run(ctx context.Context, sub SnapshotSubscriber) {
	sub.Subscribe(ctx, r.ApplySnapshot)
}

// ApplySnapshot replaces the local state with the pushed snapshot. This is
// the sole mechanism by which remote changes reach the local list,
// including echoes of this client's own writes.
func (r *Reconciler) ApplySnapshot(snap domain.Snapshot) {
	if snap == nil {
		snap = domain.Snapshot{}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.confirmed = snap.Clone()
	r.draft = snap.Clone()
	r.notifyLocked()
}

// Tasks returns the draft list in display order.
func (r *Reconciler) Tasks() []domain.Task {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.draft.Sorted()
}

// Add appends a new task with the given text at the end of the list.
// Whitespace-only text is a no-op: no task is created and no write issued.
func (r *Reconciler) Add(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	t := domain.Task{
		ID:        uuid.NewString(),
		Text:      text,
		Order:     r.draft.MaxOrder() + 1,
		UpdatedAt: r.stampLocked(),
		UpdatedBy: r.id.ClientID,
	}
	r.draft[t.ID] = t
	r.writeLocked()
}

// Toggle flips the done flag of the task with the given id. Unknown ids
// are a no-op.
func (r *Reconciler) Toggle(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.draft[id]
	if !ok {
		return
	}
	t.Done = !t.Done
	t.UpdatedAt = r.stampLocked()
	t.UpdatedBy = r.id.ClientID
	r.draft[id] = t
	r.writeLocked()
}

// Delete removes the task with the given id. Unknown ids are a no-op.
func (r *Reconciler) Delete(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.draft[id]; !ok {
		return
	}
	delete(r.draft, id)
	r.writeLocked()
}

// Reorder moves activeID onto overID's position and renumbers the whole
// list densely. Every task is re-stamped because every order value may
// change.
func (r *Reconciler) Reorder(activeID, overID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	before := r.draft.Sorted()
	after := domain.Reorder(before, activeID, overID)
	if len(after) == len(before) {
		same := true
		for i := range after {
			if after[i] != before[i] {
				same = false
				break
			}
		}
		if same {
			return
		}
	}
	stamp := r.stampLocked()
	next := make(domain.Snapshot, len(after))
	for _, t := range after {
		t.UpdatedAt = stamp
		t.UpdatedBy = r.id.ClientID
		next[t.ID] = t
	}
	r.draft = next
	r.writeLocked()
}

// stampLocked returns a strictly increasing unix-millisecond timestamp so
// that back-to-back mutations never share an updatedAt.
func (r *Reconciler) stampLocked() int64 {
	now := r.now().UnixMilli()
	if now <= r.lastStamp {
		now = r.lastStamp + 1
	}
	r.lastStamp = now
	return now
}

// writeLocked fires the full draft at the remote store and notifies the
// presentation layer. The optimistic draft stays visible regardless of the
// write outcome; a future snapshot push confirms or silently overrides it.
func (r *Reconciler) writeLocked() {
	if r.writer != nil {
		r.writer.Enqueue(r.draft.Clone())
	}
	r.notifyLocked()
}

func (r *Reconciler) notifyLocked() {
	if r.onChange != nil {
		r.onChange(r.draft.Sorted())
	}
}
