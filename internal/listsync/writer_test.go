package listsync

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/AnnaOlkh/todolist/internal/domain"
)

type blockingStore struct {
	mu      sync.Mutex
	saves   int
	release chan struct{}
}

func (b *blockingStore) Save(ctx context.Context, snap domain.Snapshot) error {
	if b.release != nil {
		select {
		case <-b.release:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	b.mu.Lock()
	b.saves++
	b.mu.Unlock()
	return nil
}

func (b *blockingStore) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.saves
}

func TestWriterDeliversSnapshots(t *testing.T) {
	store := &blockingStore{}
	w := newWriter(store, nil, writerConfig{workers: 2, buffer: 8, writeTimeout: time.Second, handoffTimeout: time.Millisecond})

	for i := 0; i < 5; i++ {
		w.Enqueue(domain.Snapshot{"a": {ID: "a", Order: 1}})
	}
	w.Close()

	if got := store.count(); got != 5 {
		t.Fatalf("expected 5 saves after close, got %d", got)
	}
}

func TestWriterSaturationFallsBackInline(t *testing.T) {
	store := &blockingStore{release: make(chan struct{})}
	w := newWriter(store, nil, writerConfig{workers: 1, buffer: 1, writeTimeout: 100 * time.Millisecond, handoffTimeout: time.Millisecond})
	defer w.Close()

	// Fill the worker and the buffer, then force the inline path. The
	// blocked store makes every save time out, which is fine: the point is
	// that Enqueue returns instead of blocking indefinitely.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 4; i++ {
			w.Enqueue(domain.Snapshot{})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Enqueue blocked on a saturated writer")
	}
	close(store.release)
}

func TestWriterEnqueueAfterCloseDropsSnapshot(t *testing.T) {
	store := &blockingStore{}
	w := newWriter(store, nil, writerConfig{workers: 1, buffer: 4, writeTimeout: time.Second, handoffTimeout: time.Millisecond})

	w.Enqueue(domain.Snapshot{"a": {ID: "a", Order: 1}})
	w.Close()
	before := store.count()

	done := make(chan struct{})
	go func() {
		w.Enqueue(domain.Snapshot{"b": {ID: "b", Order: 2}})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Enqueue blocked after Close")
	}

	if got := store.count(); got != before {
		t.Fatalf("snapshot written after close: %d saves, want %d", got, before)
	}
}

func TestWriterCloseIsIdempotent(t *testing.T) {
	store := &blockingStore{}
	w := newWriter(store, nil, writerConfig{workers: 1, buffer: 1, writeTimeout: time.Second, handoffTimeout: 0})
	w.Close()
	w.Close()
}

func TestWriterConfigDefaults(t *testing.T) {
	cfg := writerConfigFromEnv()
	if cfg.workers <= 0 || cfg.buffer <= 0 {
		t.Fatalf("expected positive defaults, got %+v", cfg)
	}
	if cfg.writeTimeout <= 0 || cfg.handoffTimeout <= 0 {
		t.Fatalf("expected positive timeouts, got %+v", cfg)
	}
}
