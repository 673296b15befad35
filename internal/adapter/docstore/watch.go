// Package docstore holds the pieces shared by the document store backends.
package docstore

import (
	"context"
	"sync"

	"github.com/simaogato/tradejournal-backend/internal/domain"
)

// Watch is a domain.Watch that keeps only the latest undelivered snapshot.
// Snapshots are complete, so a slow reader may skip intermediate ones safely.
type Watch struct {
	mu       sync.Mutex
	ch       chan domain.Snapshot
	done     chan struct{}
	closed   bool
	err      error
	onCancel func()
}

// NewWatch creates a watch; onCancel runs once when the subscriber cancels
func NewWatch(onCancel func()) *Watch {
	return &Watch{
		ch:       make(chan domain.Snapshot, 1),
		done:     make(chan struct{}),
		onCancel: onCancel,
	}
}

// Push delivers s, replacing any snapshot the reader has not taken yet
func (w *Watch) Push(s domain.Snapshot) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	select {
	case <-w.ch:
	default:
	}
	w.ch <- s
}

// Close ends the stream with err (nil for a normal end)
func (w *Watch) Close(err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	w.closed = true
	w.err = err
	close(w.ch)
	close(w.done)
}

// Ended is closed once the watch is closed for any reason
func (w *Watch) Ended() <-chan struct{} {
	return w.done
}

// CancelWith cancels the watch when ctx ends
func (w *Watch) CancelWith(ctx context.Context) {
	go func() {
		select {
		case <-ctx.Done():
			w.Cancel()
		case <-w.done:
		}
	}()
}

// Snapshots implements domain.Watch
func (w *Watch) Snapshots() <-chan domain.Snapshot {
	return w.ch
}

// Err implements domain.Watch
func (w *Watch) Err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}

// Cancel implements domain.Watch
func (w *Watch) Cancel() {
	w.mu.Lock()
	closed := w.closed
	w.mu.Unlock()
	if closed {
		return
	}
	if w.onCancel != nil {
		w.onCancel()
	}
	w.Close(nil)
}

// Clock hands out strictly increasing server timestamps
type Clock struct {
	mu   sync.Mutex
	last int64
	Now  func() int64
}

// Next returns a unix-nano timestamp greater than every previous one
func (c *Clock) Next() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.Now()
	if now <= c.last {
		now = c.last + 1
	}
	c.last = now
	return now
}
