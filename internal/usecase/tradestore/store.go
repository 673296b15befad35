package tradestore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"github.com/simaogato/tradejournal-backend/internal/domain"
	"github.com/simaogato/tradejournal-backend/internal/logger"
)

// Config carries the store's construction parameters
type Config struct {
	// ChecklistSize bounds the checklist score accepted on submit
	ChecklistSize int
}

// pendingRecord is an optimistic insert not yet superseded by a snapshot
type pendingRecord struct {
	rec    domain.TradeRecord
	fields domain.Fields
	docID  string // client-assigned, kept across retries

	// superseded is set once a snapshot carried docID
	superseded bool
}

// Store mirrors a user's trades from the remote collection.
//
// The subscription is the only writer of confirmed records; Submit adds
// optimistic records that stay visible until a snapshot carries their
// document ID. Failed optimistic records are kept and marked SyncFailed.
type Store struct {
	remote domain.DocumentStore
	cfg    Config
	newKey func() string
	newID  func() string

	mu           sync.RWMutex
	userID       string
	sub          *Subscription
	confirmed    []domain.TradeRecord
	pending      []*pendingRecord
	listeners    map[int]func([]domain.TradeRecord)
	nextListener int
}

// NewStore creates a trade store writing through remote
func NewStore(remote domain.DocumentStore, cfg Config) *Store {
	return &Store{
		remote:    remote,
		cfg:       cfg,
		newKey:    func() string { return ulid.Make().String() },
		newID:     uuid.NewString,
		listeners: make(map[int]func([]domain.TradeRecord)),
	}
}

// Subscribe opens the standing subscription for userID.
// Only one subscription may be active; cancel it before subscribing again.
func (s *Store) Subscribe(ctx context.Context, userID string) (*Subscription, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: subscribe requires a user identity", domain.ErrInvalidOperation)
	}

	sub := &Subscription{store: s, done: make(chan struct{})}

	s.mu.Lock()
	if s.sub != nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: trade subscription already active", domain.ErrInvalidOperation)
	}
	s.sub = sub
	s.mu.Unlock()

	collection := domain.TradesCollection(userID)
	watch, err := s.remote.WatchCollection(ctx, collection)
	if err != nil {
		s.mu.Lock()
		s.sub = nil
		s.mu.Unlock()
		logger.Error("Failed to watch %s: %v", collection, err)
		return nil, fmt.Errorf("%w: watch %s: %w", domain.ErrConnectionUnavailable, collection, err)
	}
	sub.watch = watch

	s.mu.Lock()
	if s.userID != userID {
		s.confirmed = nil
		s.pending = nil
	}
	s.userID = userID
	s.mu.Unlock()

	logger.Info("Subscribed to %s", collection)
	go s.run(sub)
	return sub, nil
}

func (s *Store) run(sub *Subscription) {
	defer close(sub.done)

	for snap := range sub.watch.Snapshots() {
		s.apply(sub, snap)
	}

	if err := sub.watch.Err(); err != nil {
		logger.Error("Trade subscription ended: %v", err)
	}

	s.mu.Lock()
	if s.sub == sub {
		s.sub = nil
	}
	s.mu.Unlock()
}

// apply replaces the confirmed set with the snapshot
func (s *Store) apply(sub *Subscription, snap domain.Snapshot) {
	records := make([]domain.TradeRecord, 0, len(snap.Documents))
	for _, doc := range snap.Documents {
		rec, err := domain.TradeFromDocument(doc)
		if err != nil {
			logger.Error("Skipping malformed trade %s: %v", doc.Path, err)
			continue
		}
		records = append(records, rec)
	}

	s.mu.Lock()
	if s.sub != sub || sub.isCancelled() {
		s.mu.Unlock()
		return
	}
	s.confirmed = records

	ids := s.confirmedIDsLocked()
	kept := s.pending[:0]
	for _, p := range s.pending {
		if ids[p.docID] {
			p.superseded = true
			continue
		}
		kept = append(kept, p)
	}
	s.pending = kept

	view, listeners := s.viewLocked(), s.listenersLocked()
	s.mu.Unlock()

	notify(listeners, view)
}

// Submit validates the draft, makes it visible immediately and writes it
// remotely in the background under a document ID chosen here, so the
// optimistic record is superseded by the first snapshot carrying it.
// The returned write resolves with nil or an error wrapping
// domain.ErrWriteFailed. In-flight writes are not cancelled when ctx ends.
func (s *Store) Submit(ctx context.Context, draft domain.TradeDraft) (*domain.PendingWrite, error) {
	if err := draft.Validate(s.cfg.ChecklistSize); err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.userID == "" {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: no active identity", domain.ErrInvalidOperation)
	}
	userID := s.userID
	key := s.newKey()
	p := &pendingRecord{rec: draft.Record(key), fields: draft.Fields(), docID: s.newID()}
	s.pending = append(s.pending, p)
	view, listeners := s.viewLocked(), s.listenersLocked()
	s.mu.Unlock()

	notify(listeners, view)

	write := domain.NewPendingWrite(key)
	go s.create(context.WithoutCancel(ctx), userID, p, write)
	return write, nil
}

// Retry re-issues the remote write of a failed optimistic record.
// The document ID is reused, so a write that landed despite the error is
// overwritten rather than duplicated.
func (s *Store) Retry(ctx context.Context, localKey string) (*domain.PendingWrite, error) {
	s.mu.Lock()
	p := s.findPendingLocked(localKey)
	if p == nil || p.rec.Sync != domain.SyncFailed {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: no failed record %q", domain.ErrInvalidOperation, localKey)
	}
	p.rec.Sync = domain.SyncPending
	userID := s.userID
	view, listeners := s.viewLocked(), s.listenersLocked()
	s.mu.Unlock()

	notify(listeners, view)

	write := domain.NewPendingWrite(localKey)
	go s.create(context.WithoutCancel(ctx), userID, p, write)
	return write, nil
}

// Discard drops a failed optimistic record from the local view
func (s *Store) Discard(localKey string) error {
	s.mu.Lock()
	p := s.findPendingLocked(localKey)
	if p == nil || p.rec.Sync != domain.SyncFailed {
		s.mu.Unlock()
		return fmt.Errorf("%w: no failed record %q", domain.ErrInvalidOperation, localKey)
	}
	s.removePendingLocked(p)
	view, listeners := s.viewLocked(), s.listenersLocked()
	s.mu.Unlock()

	notify(listeners, view)
	return nil
}

func (s *Store) create(ctx context.Context, userID string, p *pendingRecord, write *domain.PendingWrite) {
	err := s.remote.Set(ctx, domain.TradePath(userID, p.docID), p.fields)

	s.mu.Lock()
	switch {
	case p.superseded:
		// The document reached a snapshot, whatever the call returned
		err = nil
	case err != nil:
		p.rec.Sync = domain.SyncFailed
	}
	view, listeners := s.viewLocked(), s.listenersLocked()
	s.mu.Unlock()

	notify(listeners, view)

	if err != nil {
		logger.Error("Failed to create trade %s: %v", p.rec.LocalKey, err)
		write.Resolve(fmt.Errorf("%w: create trade: %w", domain.ErrWriteFailed, err))
		return
	}
	logger.Info("Trade %s written as %s", p.rec.LocalKey, p.docID)
	write.Resolve(nil)
}

// Remove deletes a confirmed record remotely. The local view changes only
// when the subscription observes the deletion.
func (s *Store) Remove(ctx context.Context, recordID string) error {
	if recordID == "" {
		return fmt.Errorf("%w: record has no identity yet", domain.ErrInvalidOperation)
	}

	s.mu.RLock()
	userID := s.userID
	known := s.confirmedIDsLocked()[recordID]
	optimistic := s.findPendingLocked(recordID) != nil
	s.mu.RUnlock()

	if userID == "" {
		return fmt.Errorf("%w: no active identity", domain.ErrInvalidOperation)
	}
	if optimistic {
		return fmt.Errorf("%w: record %s is not confirmed yet", domain.ErrInvalidOperation, recordID)
	}
	if !known {
		return fmt.Errorf("%w: record %s is not in the local view", domain.ErrInvalidOperation, recordID)
	}

	if err := s.remote.Delete(ctx, domain.TradePath(userID, recordID)); err != nil {
		logger.Error("Failed to delete trade %s: %v", recordID, err)
		return fmt.Errorf("%w: delete trade %s: %w", domain.ErrWriteFailed, recordID, err)
	}
	return nil
}

// Records returns the current view, newest first with unconfirmed records on top
func (s *Store) Records() []domain.TradeRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.viewLocked()
}

// UserID returns the identity of the last successful subscription
func (s *Store) UserID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userID
}

// OnChange registers fn to receive the view after every change.
// fn runs on the goroutine that caused the change and must not block.
func (s *Store) OnChange(fn func([]domain.TradeRecord)) (unregister func()) {
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

func (s *Store) confirmedIDsLocked() map[string]bool {
	ids := make(map[string]bool, len(s.confirmed))
	for _, rec := range s.confirmed {
		ids[rec.ID] = true
	}
	return ids
}

func (s *Store) findPendingLocked(localKey string) *pendingRecord {
	for _, p := range s.pending {
		if p.rec.LocalKey == localKey {
			return p
		}
	}
	return nil
}

func (s *Store) removePendingLocked(target *pendingRecord) {
	for i, p := range s.pending {
		if p == target {
			s.pending = append(s.pending[:i], s.pending[i+1:]...)
			return
		}
	}
}

func (s *Store) listenersLocked() []func([]domain.TradeRecord) {
	out := make([]func([]domain.TradeRecord), 0, len(s.listeners))
	for id := 0; id < s.nextListener; id++ {
		if fn, ok := s.listeners[id]; ok {
			out = append(out, fn)
		}
	}
	return out
}

// viewLocked merges optimistic and confirmed records.
// Order: createdAt descending, records without a timestamp first.
func (s *Store) viewLocked() []domain.TradeRecord {
	view := make([]domain.TradeRecord, 0, len(s.pending)+len(s.confirmed))
	for i := len(s.pending) - 1; i >= 0; i-- {
		view = append(view, s.pending[i].rec)
	}
	view = append(view, s.confirmed...)
	SortNewestFirst(view)
	return view
}

// SortNewestFirst orders records by createdAt descending. Records without
// a timestamp come first; ties keep their relative order.
func SortNewestFirst(records []domain.TradeRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i].CreatedAt, records[j].CreatedAt
		switch {
		case a == nil && b == nil:
			return false
		case a == nil:
			return true
		case b == nil:
			return false
		default:
			return a.After(*b)
		}
	})
}

func notify(listeners []func([]domain.TradeRecord), view []domain.TradeRecord) {
	for _, fn := range listeners {
		fn(append([]domain.TradeRecord(nil), view...))
	}
}
