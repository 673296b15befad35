package domain

import (
	"context"
	"sync"
)

// PendingWrite tracks the remote half of an optimistic write.
// It resolves exactly once; in-flight writes cannot be cancelled.
type PendingWrite struct {
	LocalKey string

	once sync.Once
	done chan struct{}
	err  error
}

// NewPendingWrite creates an unresolved write
func NewPendingWrite(localKey string) *PendingWrite {
	return &PendingWrite{
		LocalKey: localKey,
		done:     make(chan struct{}),
	}
}

// Resolve records the outcome. Later calls are ignored.
func (w *PendingWrite) Resolve(err error) {
	w.once.Do(func() {
		w.err = err
		close(w.done)
	})
}

// Done is closed once the remote operation finished
func (w *PendingWrite) Done() <-chan struct{} {
	return w.done
}

// Err returns the outcome, nil while still in flight
func (w *PendingWrite) Err() error {
	select {
	case <-w.done:
		return w.err
	default:
		return nil
	}
}

// Wait blocks until the write resolves or ctx ends.
// Giving up on ctx does not stop the write itself.
func (w *PendingWrite) Wait(ctx context.Context) error {
	select {
	case <-w.done:
		return w.err
	case <-ctx.Done():
		return ctx.Err()
	}
}
