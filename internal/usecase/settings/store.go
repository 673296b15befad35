package settings

import (
	"context"
	"fmt"
	"sync"

	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"

	"github.com/simaogato/tradejournal-backend/internal/domain"
	"github.com/simaogato/tradejournal-backend/internal/logger"
)

// Config carries the store's construction parameters
type Config struct {
	DefaultStartingCapital decimal.Decimal
}

// Store mirrors the single account settings document of a user
type Store struct {
	remote   domain.DocumentStore
	defaults domain.AccountSettings

	// writeMu orders remote writes so the default seed never lands after an update
	writeMu sync.Mutex

	mu           sync.RWMutex
	userID       string
	current      domain.AccountSettings
	sub          *Subscription
	listeners    map[int]func(domain.AccountSettings)
	nextListener int
}

// NewStore creates a settings store holding the configured defaults
func NewStore(remote domain.DocumentStore, cfg Config) *Store {
	defaults := domain.DefaultAccountSettings(cfg.DefaultStartingCapital)
	return &Store{
		remote:    remote,
		defaults:  defaults,
		current:   defaults,
		listeners: make(map[int]func(domain.AccountSettings)),
	}
}

// Subscription is the handle returned by Store.Subscribe
type Subscription struct {
	store *Store
	watch domain.Watch
	done  chan struct{}

	once      sync.Once
	mu        sync.Mutex
	cancelled bool
}

// Cancel stops further updates; the current value is kept
func (sub *Subscription) Cancel() {
	sub.once.Do(func() {
		sub.mu.Lock()
		sub.cancelled = true
		sub.mu.Unlock()

		sub.watch.Cancel()

		sub.store.mu.Lock()
		if sub.store.sub == sub {
			sub.store.sub = nil
		}
		sub.store.mu.Unlock()
	})
}

// Done is closed once the subscription stopped delivering snapshots
func (sub *Subscription) Done() <-chan struct{} {
	return sub.done
}

func (sub *Subscription) isCancelled() bool {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	return sub.cancelled
}

// Subscribe opens the standing subscription on users/{userID}/settings/account.
// A missing document keeps the current value and is created with the defaults.
func (s *Store) Subscribe(ctx context.Context, userID string) (*Subscription, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: subscribe requires a user identity", domain.ErrInvalidOperation)
	}

	sub := &Subscription{store: s, done: make(chan struct{})}

	s.mu.Lock()
	if s.sub != nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: settings subscription already active", domain.ErrInvalidOperation)
	}
	s.sub = sub
	s.mu.Unlock()

	path := domain.SettingsPath(userID)
	watch, err := s.remote.WatchDocument(ctx, path)
	if err != nil {
		s.mu.Lock()
		s.sub = nil
		s.mu.Unlock()
		logger.Error("Failed to watch %s: %v", path, err)
		return nil, fmt.Errorf("%w: watch %s: %w", domain.ErrConnectionUnavailable, path, err)
	}
	sub.watch = watch

	s.mu.Lock()
	if s.userID != userID {
		s.current = s.defaults
	}
	s.userID = userID
	s.mu.Unlock()

	logger.Info("Subscribed to %s", path)
	go s.run(ctx, sub, userID)
	return sub, nil
}

func (s *Store) run(ctx context.Context, sub *Subscription, userID string) {
	defer close(sub.done)

	seeded := false
	for snap := range sub.watch.Snapshots() {
		if !snap.Exists() {
			if !seeded {
				seeded = true
				go s.seed(context.WithoutCancel(ctx), userID)
			}
			continue
		}
		s.apply(sub, snap.Documents[0])
	}

	if err := sub.watch.Err(); err != nil {
		logger.Error("Settings subscription ended: %v", err)
	}

	s.mu.Lock()
	if s.sub == sub {
		s.sub = nil
	}
	s.mu.Unlock()
}

// seed creates the missing settings document with the values held locally
func (s *Store) seed(ctx context.Context, userID string) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.RLock()
	current := s.current
	s.mu.RUnlock()

	if err := s.remote.Merge(ctx, domain.SettingsPath(userID), current.Fields()); err != nil {
		logger.Error("Failed to create default settings for %s: %v", userID, err)
	}
}

func (s *Store) apply(sub *Subscription, doc domain.Document) {
	s.mu.Lock()
	if s.sub != sub || sub.isCancelled() {
		s.mu.Unlock()
		return
	}
	next, err := domain.SettingsFromDocument(doc, s.current)
	if err != nil {
		s.mu.Unlock()
		logger.Error("Ignoring malformed settings: %v", err)
		return
	}
	s.current = next
	listeners := s.listenersLocked()
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(next)
	}
}

// Update sets the starting capital locally, then merge-writes it remotely.
// The local value is not rolled back if the write fails.
func (s *Store) Update(ctx context.Context, capital decimal.Decimal) (*domain.PendingWrite, error) {
	s.mu.Lock()
	if s.userID == "" {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: no identity resolved", domain.ErrInvalidOperation)
	}
	userID := s.userID
	s.current.StartingCapital = capital
	next := s.current
	listeners := s.listenersLocked()
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(next)
	}

	write := domain.NewPendingWrite(ulid.Make().String())
	patch := domain.AccountSettings{StartingCapital: capital}.Fields()
	go func() {
		s.writeMu.Lock()
		defer s.writeMu.Unlock()

		err := s.remote.Merge(context.WithoutCancel(ctx), domain.SettingsPath(userID), patch)
		if err != nil {
			logger.Error("Failed to update settings for %s: %v", userID, err)
			write.Resolve(fmt.Errorf("%w: update settings: %w", domain.ErrWriteFailed, err))
			return
		}
		write.Resolve(nil)
	}()
	return write, nil
}

// Current returns the local settings value
func (s *Store) Current() domain.AccountSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// OnChange registers fn to receive every new settings value
func (s *Store) OnChange(fn func(domain.AccountSettings)) (unregister func()) {
	s.mu.Lock()
	id := s.nextListener
	s.nextListener++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *Store) listenersLocked() []func(domain.AccountSettings) {
	out := make([]func(domain.AccountSettings), 0, len(s.listeners))
	for id := 0; id < s.nextListener; id++ {
		if fn, ok := s.listeners[id]; ok {
			out = append(out, fn)
		}
	}
	return out
}
