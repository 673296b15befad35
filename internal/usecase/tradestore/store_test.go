package tradestore

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/simaogato/tradejournal-backend/internal/adapter/docstore"
	"github.com/simaogato/tradejournal-backend/internal/adapter/docstore/memory"
	"github.com/simaogato/tradejournal-backend/internal/domain"
)

// MockDocumentStore is a mock implementation of domain.DocumentStore for testing
type MockDocumentStore struct {
	mock.Mock
}

func (m *MockDocumentStore) Create(ctx context.Context, collection string, fields domain.Fields) (string, error) {
	args := m.Called(ctx, collection, fields)
	return args.String(0), args.Error(1)
}

func (m *MockDocumentStore) Set(ctx context.Context, path string, fields domain.Fields) error {
	args := m.Called(ctx, path, fields)
	return args.Error(0)
}

func (m *MockDocumentStore) Merge(ctx context.Context, path string, fields domain.Fields) error {
	args := m.Called(ctx, path, fields)
	return args.Error(0)
}

func (m *MockDocumentStore) Delete(ctx context.Context, path string) error {
	args := m.Called(ctx, path)
	return args.Error(0)
}

func (m *MockDocumentStore) WatchCollection(ctx context.Context, collection string) (domain.Watch, error) {
	args := m.Called(ctx, collection)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(domain.Watch), args.Error(1)
}

func (m *MockDocumentStore) WatchDocument(ctx context.Context, path string) (domain.Watch, error) {
	args := m.Called(ctx, path)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(domain.Watch), args.Error(1)
}

const (
	testUser       = "u1"
	testCollection = "users/u1/trades"
)

// tradePath matches any trade document of the test user
var tradePath = mock.MatchedBy(func(path string) bool {
	return strings.HasPrefix(path, testCollection+"/") && len(path) > len(testCollection)+1
})

// docIDOf returns the document ID of a Set call's path argument
func docIDOf(args mock.Arguments) string {
	return strings.TrimPrefix(args.String(1), testCollection+"/")
}

func draft(v int64) domain.TradeDraft {
	d := decimal.NewFromInt(v)
	return domain.TradeDraft{PnL: &d, Direction: domain.DirectionBuy, ChecklistScore: 6}
}

func tradeDoc(id string, pnl float64, created time.Time) domain.Document {
	return domain.Document{
		ID:   id,
		Path: testCollection + "/" + id,
		Fields: domain.Fields{
			"pnl":            pnl,
			"direction":      "BUY",
			"emotions":       "",
			"screenshot":     nil,
			"checklistScore": 6.0,
			"createdAt":      created,
		},
	}
}

// newMockedStore returns a subscribed store whose watch is driven by the test
func newMockedStore(t *testing.T) (*Store, *MockDocumentStore, *docstore.Watch) {
	t.Helper()
	remote := new(MockDocumentStore)
	watch := docstore.NewWatch(nil)
	remote.On("WatchCollection", mock.Anything, testCollection).Return(watch, nil)

	store := NewStore(remote, Config{ChecklistSize: 6})
	sub, err := store.Subscribe(context.Background(), testUser)
	require.NoError(t, err)
	t.Cleanup(sub.Cancel)

	return store, remote, watch
}

func TestSubmit_OptimisticRecordVisibleBeforeConfirmation(t *testing.T) {
	store, remote, watch := newMockedStore(t)

	release := make(chan struct{})
	var docID string
	remote.On("Set", mock.Anything, tradePath, mock.Anything).
		Run(func(args mock.Arguments) {
			docID = docIDOf(args)
			<-release
		}).
		Return(nil)

	write, err := store.Submit(context.Background(), draft(150))
	require.NoError(t, err)

	records := store.Records()
	require.Len(t, records, 1)
	assert.Empty(t, records[0].ID)
	assert.Nil(t, records[0].CreatedAt)
	assert.Equal(t, domain.SyncPending, records[0].Sync)
	assert.Equal(t, write.LocalKey, records[0].LocalKey)

	close(release)
	require.NoError(t, write.Wait(context.Background()))

	watch.Push(domain.Snapshot{Path: testCollection, Documents: []domain.Document{
		tradeDoc(docID, 150, time.Now()),
	}})

	assert.Eventually(t, func() bool {
		recs := store.Records()
		return len(recs) == 1 && recs[0].ID == docID && recs[0].CreatedAt != nil
	}, time.Second, 5*time.Millisecond)
	remote.AssertExpectations(t)
}

func TestSubmit_SnapshotArrivingBeforeWriteReturns(t *testing.T) {
	store, remote, watch := newMockedStore(t)

	remote.On("Set", mock.Anything, tradePath, mock.Anything).
		Run(func(args mock.Arguments) {
			docID := docIDOf(args)
			watch.Push(domain.Snapshot{Path: testCollection, Documents: []domain.Document{
				tradeDoc(docID, 150, time.Now()),
			}})
			// The snapshot supersedes the optimistic record while the call is still open
			assert.Eventually(t, func() bool {
				recs := store.Records()
				return len(recs) == 1 && recs[0].ID == docID
			}, time.Second, 5*time.Millisecond)
			assert.Never(t, func() bool { return len(store.Records()) != 1 }, 30*time.Millisecond, 5*time.Millisecond)
		}).
		Return(nil)

	write, err := store.Submit(context.Background(), draft(150))
	require.NoError(t, err)
	require.NoError(t, write.Wait(context.Background()))

	records := store.Records()
	require.Len(t, records, 1)
	assert.True(t, records[0].Confirmed())
}

func TestSubmit_ErrorAfterDocumentLandedStillConfirms(t *testing.T) {
	store, remote, watch := newMockedStore(t)

	remote.On("Set", mock.Anything, tradePath, mock.Anything).
		Run(func(args mock.Arguments) {
			docID := docIDOf(args)
			watch.Push(domain.Snapshot{Path: testCollection, Documents: []domain.Document{
				tradeDoc(docID, 150, time.Now()),
			}})
			assert.Eventually(t, func() bool {
				recs := store.Records()
				return len(recs) == 1 && recs[0].Confirmed()
			}, time.Second, 5*time.Millisecond)
		}).
		Return(errors.New("deadline exceeded"))

	write, err := store.Submit(context.Background(), draft(150))
	require.NoError(t, err)

	assert.NoError(t, write.Wait(context.Background()))
	records := store.Records()
	require.Len(t, records, 1)
	assert.Equal(t, domain.SyncConfirmed, records[0].Sync)
}

func TestSubmit_WithMemoryStoreConverges(t *testing.T) {
	ctx := context.Background()
	store := NewStore(memory.NewStore(), Config{ChecklistSize: 6})

	sub, err := store.Subscribe(ctx, testUser)
	require.NoError(t, err)
	defer sub.Cancel()

	write, err := store.Submit(ctx, draft(150))
	require.NoError(t, err)
	require.NoError(t, write.Wait(ctx))

	assert.Eventually(t, func() bool {
		recs := store.Records()
		return len(recs) == 1 && recs[0].Confirmed() && recs[0].CreatedAt != nil
	}, time.Second, 5*time.Millisecond)
}

func TestSubmit_FailureKeepsOptimisticRecord(t *testing.T) {
	store, remote, watch := newMockedStore(t)

	remote.On("Set", mock.Anything, tradePath, mock.Anything).
		Return(errors.New("unavailable"))

	write, err := store.Submit(context.Background(), draft(-50))
	require.NoError(t, err)

	err = write.Wait(context.Background())
	assert.ErrorIs(t, err, domain.ErrWriteFailed)

	records := store.Records()
	require.Len(t, records, 1)
	assert.Equal(t, domain.SyncFailed, records[0].Sync)

	// A later snapshot does not drop the failed record
	watch.Push(domain.Snapshot{Path: testCollection})
	assert.Never(t, func() bool { return len(store.Records()) != 1 }, 50*time.Millisecond, 5*time.Millisecond)
}

func TestSubmit_IsNotCancelledWithCallerContext(t *testing.T) {
	store, remote, _ := newMockedStore(t)

	release := make(chan struct{})
	var seen context.Context
	remote.On("Set", mock.Anything, tradePath, mock.Anything).
		Run(func(args mock.Arguments) {
			seen = args.Get(0).(context.Context)
			<-release
		}).
		Return(nil)

	ctx, cancel := context.WithCancel(context.Background())
	write, err := store.Submit(ctx, draft(10))
	require.NoError(t, err)
	cancel()
	close(release)

	require.NoError(t, write.Wait(context.Background()))
	assert.NoError(t, seen.Err())
}

func TestSubmit_RequiresIdentity(t *testing.T) {
	remote := new(MockDocumentStore)
	store := NewStore(remote, Config{ChecklistSize: 6})

	_, err := store.Submit(context.Background(), draft(10))

	assert.ErrorIs(t, err, domain.ErrInvalidOperation)
	assert.Empty(t, store.Records())
	remote.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything)
}

func TestSubmit_InvalidDraftHasNoEffect(t *testing.T) {
	store, remote, _ := newMockedStore(t)

	_, err := store.Submit(context.Background(), domain.TradeDraft{Direction: domain.DirectionBuy})

	assert.ErrorIs(t, err, domain.ErrInvalidTrade)
	assert.Empty(t, store.Records())
	remote.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything)
}

func TestRetryAndDiscard(t *testing.T) {
	store, remote, _ := newMockedStore(t)

	var mu sync.Mutex
	var paths []string
	record := func(args mock.Arguments) {
		mu.Lock()
		paths = append(paths, args.String(1))
		mu.Unlock()
	}
	remote.On("Set", mock.Anything, tradePath, mock.Anything).
		Run(record).Return(errors.New("unavailable")).Once()
	remote.On("Set", mock.Anything, tradePath, mock.Anything).
		Run(record).Return(nil).Once()

	write, err := store.Submit(context.Background(), draft(25))
	require.NoError(t, err)
	require.ErrorIs(t, write.Wait(context.Background()), domain.ErrWriteFailed)

	retry, err := store.Retry(context.Background(), write.LocalKey)
	require.NoError(t, err)
	require.NoError(t, retry.Wait(context.Background()))

	mu.Lock()
	require.Len(t, paths, 2)
	assert.Equal(t, paths[0], paths[1], "a retry writes the same document")
	mu.Unlock()

	_, err = store.Retry(context.Background(), write.LocalKey)
	assert.ErrorIs(t, err, domain.ErrInvalidOperation, "confirmed writes cannot be retried")

	assert.ErrorIs(t, store.Discard(write.LocalKey), domain.ErrInvalidOperation)
}

func TestDiscardFailedRecord(t *testing.T) {
	store, remote, _ := newMockedStore(t)
	remote.On("Set", mock.Anything, tradePath, mock.Anything).
		Return(errors.New("unavailable"))

	write, err := store.Submit(context.Background(), draft(25))
	require.NoError(t, err)
	require.Error(t, write.Wait(context.Background()))

	require.NoError(t, store.Discard(write.LocalKey))
	assert.Empty(t, store.Records())
}

func TestRemove_UnconfirmedRecordFails(t *testing.T) {
	store, remote, _ := newMockedStore(t)

	release := make(chan struct{})
	defer close(release)
	remote.On("Set", mock.Anything, tradePath, mock.Anything).
		Run(func(args mock.Arguments) { <-release }).
		Return(nil)

	_, err := store.Submit(context.Background(), draft(150))
	require.NoError(t, err)
	before := store.Records()
	require.Len(t, before, 1)

	err = store.Remove(context.Background(), before[0].ID)
	assert.ErrorIs(t, err, domain.ErrInvalidOperation)

	err = store.Remove(context.Background(), before[0].LocalKey)
	assert.ErrorIs(t, err, domain.ErrInvalidOperation)

	assert.Equal(t, before, store.Records())
	remote.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestRemove_LocalViewChangesOnlyThroughSubscription(t *testing.T) {
	store, remote, watch := newMockedStore(t)

	watch.Push(domain.Snapshot{Path: testCollection, Documents: []domain.Document{
		tradeDoc("t1", 150, time.Now()),
	}})
	require.Eventually(t, func() bool { return len(store.Records()) == 1 }, time.Second, 5*time.Millisecond)

	remote.On("Delete", mock.Anything, "users/u1/trades/t1").Return(nil)

	require.NoError(t, store.Remove(context.Background(), "t1"))
	assert.Len(t, store.Records(), 1, "no optimistic removal")

	watch.Push(domain.Snapshot{Path: testCollection})
	assert.Eventually(t, func() bool { return len(store.Records()) == 0 }, time.Second, 5*time.Millisecond)
}

func TestRemove_RemoteFailure(t *testing.T) {
	store, remote, watch := newMockedStore(t)

	watch.Push(domain.Snapshot{Path: testCollection, Documents: []domain.Document{
		tradeDoc("t1", 150, time.Now()),
	}})
	require.Eventually(t, func() bool { return len(store.Records()) == 1 }, time.Second, 5*time.Millisecond)

	remote.On("Delete", mock.Anything, "users/u1/trades/t1").Return(errors.New("timeout"))

	err := store.Remove(context.Background(), "t1")
	assert.ErrorIs(t, err, domain.ErrWriteFailed)
	assert.Len(t, store.Records(), 1)
}

func TestRemove_UnknownRecord(t *testing.T) {
	store, remote, _ := newMockedStore(t)

	err := store.Remove(context.Background(), "nope")

	assert.ErrorIs(t, err, domain.ErrInvalidOperation)
	remote.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestSubscribe_Twice(t *testing.T) {
	ctx := context.Background()
	store := NewStore(memory.NewStore(), Config{ChecklistSize: 6})

	sub, err := store.Subscribe(ctx, testUser)
	require.NoError(t, err)

	_, err = store.Subscribe(ctx, testUser)
	assert.ErrorIs(t, err, domain.ErrInvalidOperation)

	sub.Cancel()

	again, err := store.Subscribe(ctx, testUser)
	require.NoError(t, err)
	again.Cancel()
}

func TestSubscribe_RequiresIdentity(t *testing.T) {
	store := NewStore(memory.NewStore(), Config{ChecklistSize: 6})

	_, err := store.Subscribe(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrInvalidOperation)
}

func TestSubscribe_ConnectionUnavailable(t *testing.T) {
	remote := new(MockDocumentStore)
	remote.On("WatchCollection", mock.Anything, testCollection).Return(nil, errors.New("dial tcp: refused"))

	store := NewStore(remote, Config{ChecklistSize: 6})
	_, err := store.Subscribe(context.Background(), testUser)

	assert.ErrorIs(t, err, domain.ErrConnectionUnavailable)
	assert.Empty(t, store.Records())
	assert.Empty(t, store.UserID())
}

func TestSnapshotOrdering(t *testing.T) {
	store, remote, watch := newMockedStore(t)

	release := make(chan struct{})
	defer close(release)
	remote.On("Set", mock.Anything, tradePath, mock.Anything).
		Run(func(args mock.Arguments) { <-release }).
		Return(nil)

	base := time.Date(2024, 1, 20, 10, 0, 0, 0, time.UTC)
	watch.Push(domain.Snapshot{Path: testCollection, Documents: []domain.Document{
		tradeDoc("old", 10, base),
		tradeDoc("new", 20, base.Add(2*time.Hour)),
		tradeDoc("mid", 30, base.Add(time.Hour)),
	}})
	require.Eventually(t, func() bool { return len(store.Records()) == 3 }, time.Second, 5*time.Millisecond)

	_, err := store.Submit(context.Background(), draft(40))
	require.NoError(t, err)

	records := store.Records()
	require.Len(t, records, 4)
	assert.False(t, records[0].Confirmed(), "unconfirmed record floats to the top")
	assert.Equal(t, "new", records[1].ID)
	assert.Equal(t, "mid", records[2].ID)
	assert.Equal(t, "old", records[3].ID)
}

func TestSnapshotReplacesWholeSet(t *testing.T) {
	store, _, watch := newMockedStore(t)
	now := time.Now()

	watch.Push(domain.Snapshot{Path: testCollection, Documents: []domain.Document{
		tradeDoc("a", 1, now), tradeDoc("b", 2, now),
	}})
	require.Eventually(t, func() bool { return len(store.Records()) == 2 }, time.Second, 5*time.Millisecond)

	watch.Push(domain.Snapshot{Path: testCollection, Documents: []domain.Document{
		tradeDoc("c", 3, now),
	}})
	require.Eventually(t, func() bool {
		recs := store.Records()
		return len(recs) == 1 && recs[0].ID == "c"
	}, time.Second, 5*time.Millisecond)
}

func TestCancelStopsUpdates(t *testing.T) {
	ctx := context.Background()
	remote := memory.NewStore()
	store := NewStore(remote, Config{ChecklistSize: 6})

	sub, err := store.Subscribe(ctx, testUser)
	require.NoError(t, err)
	sub.Cancel()

	_, err = remote.Create(ctx, testCollection, domain.Fields{"pnl": 5.0, "createdAt": domain.ServerTimestamp})
	require.NoError(t, err)

	assert.Never(t, func() bool { return len(store.Records()) != 0 }, 50*time.Millisecond, 5*time.Millisecond)
}

func TestOnChangeReceivesView(t *testing.T) {
	store, remote, _ := newMockedStore(t)
	remote.On("Set", mock.Anything, tradePath, mock.Anything).Return(nil)

	views := make(chan []domain.TradeRecord, 10)
	unregister := store.OnChange(func(recs []domain.TradeRecord) { views <- recs })
	defer unregister()

	_, err := store.Submit(context.Background(), draft(5))
	require.NoError(t, err)

	select {
	case view := <-views:
		require.Len(t, view, 1)
		assert.Equal(t, domain.SyncPending, view[0].Sync)
	case <-time.After(time.Second):
		t.Fatal("listener not called")
	}
}
