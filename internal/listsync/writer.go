package listsync

import (
	"context"
	"os"
	"strconv"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/AnnaOlkh/todolist/internal/domain"
)

// SnapshotWriter is the write half of the remote list store.
type SnapshotWriter interface {
	Save(ctx context.Context, snap domain.Snapshot) error
}

type writerConfig struct {
	workers        int
	buffer         int
	writeTimeout   time.Duration
	handoffTimeout time.Duration
}

func writerConfigFromEnv() writerConfig {
	return writerConfig{
		workers:        envInt("SYNC_WRITE_WORKERS", 4),
		buffer:         envInt("SYNC_WRITE_BUFFER", 256),
		writeTimeout:   envDur("SYNC_WRITE_TIMEOUT", 60*time.Second),
		handoffTimeout: envDur("SYNC_WRITE_HANDOFF_TIMEOUT", 15*time.Millisecond),
	}
}

// Writer pushes whole-list snapshots to the remote store from a pool of
// workers. Every mutation is fire-and-forget: the caller hands the snapshot
// off and continues; failures are logged, never retried, and never rolled
// back locally.
//
// Only the latest snapshot matters (last full-document write wins), so a
// saturated buffer falls back to a synchronous write rather than dropping
// the update.
type Writer struct {
	cfg    writerConfig
	store  SnapshotWriter
	logger *log.Logger

	mu     sync.Mutex
	jobs   chan domain.Snapshot
	closed bool
	wg     sync.WaitGroup
}

// NewWriter starts the worker pool over store. Pool sizing comes from
// SYNC_WRITE_* environment variables.
func NewWriter(store SnapshotWriter, logger *log.Logger) *Writer {
	return newWriter(store, logger, writerConfigFromEnv())
}

func newWriter(store SnapshotWriter, logger *log.Logger, cfg writerConfig) *Writer {
	if logger == nil {
		logger = log.StandardLogger()
	}
	if cfg.workers <= 0 {
		cfg.workers = 1
	}
	if cfg.buffer <= 0 {
		cfg.buffer = 1
	}
	w := &Writer{
		cfg:    cfg,
		store:  store,
		logger: logger,
		jobs:   make(chan domain.Snapshot, cfg.buffer),
	}
	for i := 0; i < cfg.workers; i++ {
		w.wg.Add(1)
		go w.worker(i)
	}
	logger.Debugf("snapshot writer started, workers: %d, buffer: %d, timeout: %v, handoff: %v",
		cfg.workers, cfg.buffer, cfg.writeTimeout, cfg.handoffTimeout)
	return w
}

func (w *Writer) worker(id int) {
	defer w.wg.Done()
	for snap := range w.jobs {
		ctx, cancel := context.WithTimeout(context.Background(), w.cfg.writeTimeout)
		err := w.store.Save(ctx, snap)
		cancel()
		if err != nil {
			w.logger.Errorf("snapshot write failed, err: %v, tasks: %d, worker: %d", err, len(snap), id)
		}
	}
}

// Enqueue hands a snapshot to the pool, blocking at most the handoff
// timeout. When the buffer stays saturated the write happens inline on the
// calling goroutine. Snapshots enqueued after Close are dropped: the
// remote snapshot push is the authority either way.
func (w *Writer) Enqueue(snap domain.Snapshot) {
	ok, closed := w.tryEnqueue(snap)
	if ok {
		return
	}
	if closed {
		w.logger.Debug("snapshot dropped, writer closed")
		return
	}
	w.logger.Warn("write buffer saturated; writing snapshot inline")
	ctx, cancel := context.WithTimeout(context.Background(), w.cfg.writeTimeout)
	defer cancel()
	if err := w.store.Save(ctx, snap); err != nil {
		w.logger.Errorf("inline snapshot write failed: %v", err)
	}
}

func (w *Writer) tryEnqueue(snap domain.Snapshot) (ok bool, closed bool) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return false, true
	}
	jobs := w.jobs
	w.mu.Unlock()

	if ok, closed = trySendNonBlocking(jobs, snap); ok || closed {
		return ok, closed
	}
	if w.cfg.handoffTimeout <= 0 {
		return false, false
	}
	timer := time.NewTimer(w.cfg.handoffTimeout)
	defer timer.Stop()
	return sendWithTimer(jobs, snap, timer.C)
}

// A racing Close may close the channel between the lock release and the
// send; recover from that instead of panicking the caller.
func trySendNonBlocking(ch chan domain.Snapshot, snap domain.Snapshot) (ok bool, closed bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
			closed = true
		}
	}()
	select {
	case ch <- snap:
		return true, false
	default:
		return false, false
	}
}

func sendWithTimer(ch chan domain.Snapshot, snap domain.Snapshot, timer <-chan time.Time) (ok bool, closed bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
			closed = true
		}
	}()
	select {
	case ch <- snap:
		return true, false
	case <-timer:
		return false, false
	}
}

// Close stops accepting snapshots and waits for in-flight writes to finish.
func (w *Writer) Close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	close(w.jobs)
	w.mu.Unlock()
	w.wg.Wait()
}

func envInt(name string, def int) int {
	if v := os.Getenv(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func envDur(name string, def time.Duration) time.Duration {
	if v := os.Getenv(name); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return def
}
