// Package redis stores documents in Redis: one JSON string per document, a
// sorted set per collection for insertion order, and pub/sub for change events.
package redis

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/simaogato/tradejournal-backend/internal/adapter/docstore"
	"github.com/simaogato/tradejournal-backend/internal/domain"
	"github.com/simaogato/tradejournal-backend/internal/logger"
)

const (
	changeChannel = "documents_changed"
	seqKey        = "documents:seq"
	maxTxRetries  = 10
)

func docKey(path string) string { return "doc:" + path }

func collectionKey(collection string) string { return "col:" + collection }

// Options configures the Redis connection
type Options struct {
	Addr     string
	Password string
	DB       int
}

// NewClient creates a Redis client and checks the connection
func NewClient(ctx context.Context, opts Options) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis at %s: %w", opts.Addr, err)
	}
	return client, nil
}

type watcher struct {
	path     string
	document bool
	watch    *docstore.Watch
}

// DocumentRepository implements domain.DocumentStore on Redis
type DocumentRepository struct {
	client *goredis.Client
	pubsub *goredis.PubSub
	clock  *docstore.Clock

	mu       sync.Mutex
	watchers map[*watcher]struct{}
	done     chan struct{}
}

// NewDocumentRepository subscribes to change events and returns the repository
func NewDocumentRepository(ctx context.Context, client *goredis.Client) (*DocumentRepository, error) {
	pubsub := client.Subscribe(ctx, changeChannel)
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", changeChannel, err)
	}

	r := &DocumentRepository{
		client:   client,
		pubsub:   pubsub,
		clock:    &docstore.Clock{Now: func() int64 { return time.Now().UnixNano() }},
		watchers: make(map[*watcher]struct{}),
		done:     make(chan struct{}),
	}
	go r.dispatch()
	return r, nil
}

// Close stops listening and ends every open watch
func (r *DocumentRepository) Close() error {
	err := r.pubsub.Close()
	<-r.done

	r.mu.Lock()
	watchers := r.watchers
	r.watchers = make(map[*watcher]struct{})
	r.mu.Unlock()

	for w := range watchers {
		w.watch.Close(domain.ErrConnectionUnavailable)
	}
	return err
}

// Create implements domain.DocumentStore
func (r *DocumentRepository) Create(ctx context.Context, collection string, fields domain.Fields) (string, error) {
	if err := domain.ValidateCollectionPath(collection); err != nil {
		return "", err
	}

	data, err := domain.MarshalFieldsJSON(r.resolve(fields))
	if err != nil {
		return "", fmt.Errorf("failed to encode document: %w", err)
	}

	seq, err := r.client.Incr(ctx, seqKey).Result()
	if err != nil {
		return "", fmt.Errorf("failed to allocate sequence: %w", err)
	}

	id := uuid.NewString()
	path := collection + "/" + id
	_, err = r.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Set(ctx, docKey(path), data, 0)
		pipe.ZAdd(ctx, collectionKey(collection), goredis.Z{Score: float64(seq), Member: id})
		pipe.Publish(ctx, changeChannel, path)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to create document: %w", err)
	}

	return id, nil
}

// Set implements domain.DocumentStore
func (r *DocumentRepository) Set(ctx context.Context, path string, fields domain.Fields) error {
	if err := domain.ValidateDocumentPath(path); err != nil {
		return err
	}

	content := r.resolve(fields)
	if err := r.put(ctx, path, func(domain.Fields) domain.Fields { return content }); err != nil {
		return fmt.Errorf("failed to set document: %w", err)
	}
	return nil
}

// Merge implements domain.DocumentStore
func (r *DocumentRepository) Merge(ctx context.Context, path string, fields domain.Fields) error {
	if err := domain.ValidateDocumentPath(path); err != nil {
		return err
	}

	patch := r.resolve(fields)
	if err := r.put(ctx, path, func(current domain.Fields) domain.Fields { return domain.MergeFields(current, patch) }); err != nil {
		return fmt.Errorf("failed to merge document: %w", err)
	}
	return nil
}

// put stores build(current) at path. The read-modify-write runs under
// WATCH and is retried when another writer touches the document. A new
// document gets the next sequence number; an existing one keeps its own.
func (r *DocumentRepository) put(ctx context.Context, path string, build func(current domain.Fields) domain.Fields) error {
	collection, id := domain.SplitPath(path)
	key := docKey(path)

	txf := func(tx *goredis.Tx) error {
		current := domain.Fields{}
		exists := true
		raw, err := tx.Get(ctx, key).Bytes()
		switch {
		case errors.Is(err, goredis.Nil):
			exists = false
		case err != nil:
			return err
		default:
			if current, err = domain.UnmarshalFieldsJSON(raw); err != nil {
				return fmt.Errorf("failed to decode document %s: %w", path, err)
			}
		}

		data, err := domain.MarshalFieldsJSON(build(current))
		if err != nil {
			return fmt.Errorf("failed to encode document: %w", err)
		}

		var seq int64
		if !exists {
			if seq, err = tx.Incr(ctx, seqKey).Result(); err != nil {
				return err
			}
		}

		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			if !exists {
				pipe.ZAdd(ctx, collectionKey(collection), goredis.Z{Score: float64(seq), Member: id})
			}
			pipe.Publish(ctx, changeChannel, path)
			return nil
		})
		return err
	}

	return r.retryWatch(ctx, txf, key)
}

// Delete implements domain.DocumentStore
func (r *DocumentRepository) Delete(ctx context.Context, path string) error {
	if err := domain.ValidateDocumentPath(path); err != nil {
		return err
	}

	collection, id := domain.SplitPath(path)
	key := docKey(path)

	txf := func(tx *goredis.Tx) error {
		n, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("document %s: %w", path, domain.ErrNotFound)
		}

		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.Del(ctx, key)
			pipe.ZRem(ctx, collectionKey(collection), id)
			pipe.Publish(ctx, changeChannel, path)
			return nil
		})
		return err
	}

	if err := r.retryWatch(ctx, txf, key); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return nil
}

func (r *DocumentRepository) retryWatch(ctx context.Context, txf func(*goredis.Tx) error, keys ...string) error {
	for i := 0; i < maxTxRetries; i++ {
		err := r.client.Watch(ctx, txf, keys...)
		if !errors.Is(err, goredis.TxFailedErr) {
			return err
		}
	}
	return fmt.Errorf("transaction on %v aborted after %d retries", keys, maxTxRetries)
}

// WatchCollection implements domain.DocumentStore
func (r *DocumentRepository) WatchCollection(ctx context.Context, collection string) (domain.Watch, error) {
	if err := domain.ValidateCollectionPath(collection); err != nil {
		return nil, err
	}
	return r.watch(ctx, collection, false)
}

// WatchDocument implements domain.DocumentStore
func (r *DocumentRepository) WatchDocument(ctx context.Context, path string) (domain.Watch, error) {
	if err := domain.ValidateDocumentPath(path); err != nil {
		return nil, err
	}
	return r.watch(ctx, path, true)
}

func (r *DocumentRepository) watch(ctx context.Context, path string, document bool) (domain.Watch, error) {
	w := &watcher{path: path, document: document}
	w.watch = docstore.NewWatch(func() {
		r.mu.Lock()
		delete(r.watchers, w)
		r.mu.Unlock()
	})

	r.mu.Lock()
	r.watchers[w] = struct{}{}
	r.mu.Unlock()

	snap, err := r.snapshot(ctx, w)
	if err != nil {
		w.watch.Cancel()
		return nil, err
	}
	w.watch.Push(snap)
	w.watch.CancelWith(ctx)

	return w.watch, nil
}

func (r *DocumentRepository) resolve(fields domain.Fields) domain.Fields {
	return domain.ResolveServerTimestamps(fields, time.Unix(0, r.clock.Next()).UTC())
}

// dispatch refreshes the watchers a change event names. go-redis
// resubscribes after a dropped connection and reports it with a
// *goredis.Subscription; events published meanwhile are lost, so every
// watcher is refreshed then.
func (r *DocumentRepository) dispatch() {
	defer close(r.done)

	for msg := range r.pubsub.ChannelWithSubscriptions() {
		switch m := msg.(type) {
		case *goredis.Subscription:
			if m.Kind != "subscribe" {
				continue
			}
			logger.Info("Resubscribed to %s, refreshing all watches", m.Channel)
			r.refresh(func(*watcher) bool { return true })

		case *goredis.Message:
			changed := m.Payload
			collection, _ := domain.SplitPath(changed)
			r.refresh(func(w *watcher) bool {
				return (w.document && w.path == changed) || (!w.document && w.path == collection)
			})
		}
	}
}

func (r *DocumentRepository) refresh(match func(*watcher) bool) {
	r.mu.Lock()
	var targets []*watcher
	for w := range r.watchers {
		if match(w) {
			targets = append(targets, w)
		}
	}
	r.mu.Unlock()

	for _, w := range targets {
		snap, err := r.snapshot(context.Background(), w)
		if err != nil {
			logger.Error("Failed to refresh watch on %s: %v", w.path, err)
			continue
		}
		w.watch.Push(snap)
	}
}

func (r *DocumentRepository) snapshot(ctx context.Context, w *watcher) (domain.Snapshot, error) {
	if w.document {
		return r.documentSnapshot(ctx, w.path)
	}
	return r.collectionSnapshot(ctx, w.path)
}

func (r *DocumentRepository) documentSnapshot(ctx context.Context, path string) (domain.Snapshot, error) {
	snap := domain.Snapshot{Path: path}

	raw, err := r.client.Get(ctx, docKey(path)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return snap, nil
	}
	if err != nil {
		return snap, fmt.Errorf("failed to get document: %w", err)
	}

	fields, err := domain.UnmarshalFieldsJSON(raw)
	if err != nil {
		return snap, fmt.Errorf("failed to decode document %s: %w", path, err)
	}

	_, id := domain.SplitPath(path)
	snap.Documents = []domain.Document{{ID: id, Path: path, Fields: fields}}
	return snap, nil
}

func (r *DocumentRepository) collectionSnapshot(ctx context.Context, collection string) (domain.Snapshot, error) {
	snap := domain.Snapshot{Path: collection, Documents: []domain.Document{}}

	ids, err := r.client.ZRange(ctx, collectionKey(collection), 0, -1).Result()
	if err != nil {
		return snap, fmt.Errorf("failed to list collection: %w", err)
	}
	if len(ids) == 0 {
		return snap, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = docKey(collection + "/" + id)
	}
	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return snap, fmt.Errorf("failed to get documents: %w", err)
	}

	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		path := collection + "/" + ids[i]
		fields, err := domain.UnmarshalFieldsJSON([]byte(raw))
		if err != nil {
			logger.Error("Skipping undecodable document %s: %v", path, err)
			continue
		}
		snap.Documents = append(snap.Documents, domain.Document{ID: ids[i], Path: path, Fields: fields})
	}

	return snap, nil
}
