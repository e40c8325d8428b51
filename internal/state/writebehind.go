package state

import (
	"log/slog"
	"sync"
	"time"
)

// WriteBehind coalesces saves: Save records the latest snapshot and a single
// write to the wrapped Persister happens once the delay elapses. Flush and
// Close write pending data immediately.
//
// Thread-safety: safe for concurrent use. The delayed write runs on a timer
// goroutine; writes to the wrapped Persister are serialized.
type WriteBehind struct {
	mu      sync.Mutex
	next    Persister
	delay   time.Duration
	logger  *slog.Logger
	pending map[string]Record
	dirty   bool
	timer   *time.Timer
	closed  bool
}

// NewWriteBehind wraps next. A nil logger uses slog.Default().
func NewWriteBehind(next Persister, delay time.Duration, logger *slog.Logger) *WriteBehind {
	if logger == nil {
		logger = slog.Default()
	}
	return &WriteBehind{next: next, delay: delay, logger: logger}
}

// Load delegates to the wrapped Persister.
func (w *WriteBehind) Load() (map[string]Record, error) {
	return w.next.Load()
}

// Save schedules records to be written. After Close it writes through.
func (w *WriteBehind) Save(records map[string]Record) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		if err := w.next.Save(records); err != nil {
			return err
		}
		// Anything still pending from a failed Close is older.
		w.pending = nil
		w.dirty = false
		return nil
	}
	w.pending = records
	w.dirty = true
	if w.timer == nil {
		w.timer = time.AfterFunc(w.delay, w.flushFromTimer)
	}
	return nil
}

// Pending reports whether a snapshot is waiting to be written.
func (w *WriteBehind) Pending() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.dirty
}

// Flush writes the pending snapshot, if any, now.
// A failed write stays pending for the next Save or Flush.
func (w *WriteBehind) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.flushLocked()
}

// Close flushes pending data. Later saves write through immediately.
// The pending snapshot is written before the switch, so a later Save is
// never overwritten by an older one.
func (w *WriteBehind) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	err := w.flushLocked()
	w.closed = true
	return err
}

func (w *WriteBehind) flushLocked() error {
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	if !w.dirty {
		return nil
	}

	records := w.pending
	if err := w.next.Save(records); err != nil {
		return err
	}
	w.pending = nil
	w.dirty = false
	return nil
}

func (w *WriteBehind) flushFromTimer() {
	if err := w.Flush(); err != nil {
		w.logger.Error("delayed state save failed", "error", err)
	}
}
