package tradestore

import (
	"sync"

	"github.com/simaogato/tradejournal-backend/internal/domain"
)

// Subscription is the handle returned by Store.Subscribe
type Subscription struct {
	store *Store
	watch domain.Watch
	done  chan struct{}

	mu        sync.Mutex
	cancelled bool
}

// Cancel stops further snapshots and releases the remote watch.
// The local view keeps its last state.
func (sub *Subscription) Cancel() {
	sub.mu.Lock()
	if sub.cancelled {
		sub.mu.Unlock()
		return
	}
	sub.cancelled = true
	sub.mu.Unlock()

	sub.watch.Cancel()

	sub.store.mu.Lock()
	if sub.store.sub == sub {
		sub.store.sub = nil
	}
	sub.store.mu.Unlock()
}

// Done is closed once the subscription stopped delivering snapshots
func (sub *Subscription) Done() <-chan struct{} {
	return sub.done
}

// Err reports why the remote stream ended, nil after Cancel
func (sub *Subscription) Err() error {
	return sub.watch.Err()
}

func (sub *Subscription) isCancelled() bool {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	return sub.cancelled
}
