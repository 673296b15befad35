//go:build integration

package redis

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simaogato/tradejournal-backend/internal/domain"
)

func getRedisAddress() string {
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		return addr
	}
	return "localhost:6379"
}

func newTestRepository(t *testing.T) *DocumentRepository {
	t.Helper()
	ctx := context.Background()

	client, err := NewClient(ctx, Options{Addr: getRedisAddress()})
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	repo, err := NewDocumentRepository(ctx, client)
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func nextSnapshot(t *testing.T, w domain.Watch) domain.Snapshot {
	t.Helper()
	select {
	case snap, ok := <-w.Snapshots():
		require.True(t, ok, "watch closed: %v", w.Err())
		return snap
	case <-time.After(5 * time.Second):
		t.Fatal("no snapshot received")
		return domain.Snapshot{}
	}
}

func TestDocumentRepository_CollectionKeepsInsertionOrder(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)
	collection := domain.TradesCollection(uuid.NewString())

	first, err := repo.Create(ctx, collection, domain.Fields{"pnl": 1.0})
	require.NoError(t, err)
	second, err := repo.Create(ctx, collection, domain.Fields{"pnl": 2.0, "createdAt": domain.ServerTimestamp})
	require.NoError(t, err)

	w, err := repo.WatchCollection(ctx, collection)
	require.NoError(t, err)
	defer w.Cancel()

	snap := nextSnapshot(t, w)
	require.Len(t, snap.Documents, 2)
	assert.Equal(t, first, snap.Documents[0].ID)
	assert.Equal(t, second, snap.Documents[1].ID)
	assert.IsType(t, time.Time{}, snap.Documents[1].Fields["createdAt"])
}

func TestDocumentRepository_WatchSeesChanges(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)
	collection := domain.TradesCollection(uuid.NewString())

	w, err := repo.WatchCollection(ctx, collection)
	require.NoError(t, err)
	defer w.Cancel()
	assert.Empty(t, nextSnapshot(t, w).Documents)

	id, err := repo.Create(ctx, collection, domain.Fields{"pnl": 10.0})
	require.NoError(t, err)
	assert.Len(t, nextSnapshot(t, w).Documents, 1)

	require.NoError(t, repo.Delete(ctx, collection+"/"+id))
	assert.Empty(t, nextSnapshot(t, w).Documents)

	assert.ErrorIs(t, repo.Delete(ctx, collection+"/"+id), domain.ErrNotFound)
}

func TestDocumentRepository_ConcurrentMerges(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)
	path := domain.SettingsPath(uuid.NewString())

	var wg sync.WaitGroup
	for _, field := range []string{"a", "b", "c", "d"} {
		wg.Add(1)
		go func(field string) {
			defer wg.Done()
			assert.NoError(t, repo.Merge(ctx, path, domain.Fields{field: true}))
		}(field)
	}
	wg.Wait()

	w, err := repo.WatchDocument(ctx, path)
	require.NoError(t, err)
	defer w.Cancel()

	snap := nextSnapshot(t, w)
	require.True(t, snap.Exists())
	assert.Len(t, snap.Documents[0].Fields, 4)
}

func TestDocumentRepository_SetReplacesContent(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)
	collection := domain.TradesCollection(uuid.NewString())
	path := collection + "/" + uuid.NewString()

	require.NoError(t, repo.Set(ctx, path, domain.Fields{"pnl": 150.0, "emotions": "calm"}))
	require.NoError(t, repo.Set(ctx, path, domain.Fields{"pnl": 150.0}))

	w, err := repo.WatchCollection(ctx, collection)
	require.NoError(t, err)
	defer w.Cancel()

	snap := nextSnapshot(t, w)
	require.Len(t, snap.Documents, 1)
	assert.Equal(t, path, snap.Documents[0].Path)
	assert.NotContains(t, snap.Documents[0].Fields, "emotions")
}

func TestDocumentRepository_ResubscribeRefreshesWatches(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)
	collection := domain.TradesCollection(uuid.NewString())

	w, err := repo.WatchCollection(ctx, collection)
	require.NoError(t, err)
	defer w.Cancel()
	assert.Empty(t, nextSnapshot(t, w).Documents)

	// A write whose change event never reaches the subscriber
	id := uuid.NewString()
	data, err := domain.MarshalFieldsJSON(domain.Fields{"pnl": 5.0})
	require.NoError(t, err)
	require.NoError(t, repo.client.Set(ctx, docKey(collection+"/"+id), data, 0).Err())
	require.NoError(t, repo.client.ZAdd(ctx, collectionKey(collection), goredis.Z{Score: 1, Member: id}).Err())

	require.NoError(t, repo.client.ClientKillByFilter(ctx, "TYPE", "pubsub").Err())

	snap := nextSnapshot(t, w)
	require.Len(t, snap.Documents, 1)
	assert.Equal(t, id, snap.Documents[0].ID)
}
