// Package memory is an in-process document store. It backs the server in
// development and stands in for the remote store in tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/simaogato/tradejournal-backend/internal/adapter/docstore"
	"github.com/simaogato/tradejournal-backend/internal/domain"
)

type entry struct {
	fields domain.Fields
	seq    int64
}

type subscriber struct {
	path     string
	document bool
	watch    *docstore.Watch
}

// Store implements domain.DocumentStore in memory
type Store struct {
	mu    sync.Mutex
	docs  map[string]entry
	seq   int64
	subs  map[*subscriber]struct{}
	clock *docstore.Clock
	newID func() string
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		docs:  make(map[string]entry),
		subs:  make(map[*subscriber]struct{}),
		clock: &docstore.Clock{Now: func() int64 { return time.Now().UnixNano() }},
		newID: func() string { return uuid.NewString() },
	}
}

// Create implements domain.DocumentStore
func (s *Store) Create(ctx context.Context, collection string, fields domain.Fields) (string, error) {
	if err := domain.ValidateCollectionPath(collection); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.newID()
	path := collection + "/" + id
	s.seq++
	s.docs[path] = entry{fields: s.resolve(fields), seq: s.seq}
	s.publish(path)
	return id, nil
}

// Set implements domain.DocumentStore
func (s *Store) Set(ctx context.Context, path string, fields domain.Fields) error {
	if err := domain.ValidateDocumentPath(path); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.docs[path]
	if !ok {
		s.seq++
		current.seq = s.seq
	}
	current.fields = s.resolve(fields)
	s.docs[path] = current
	s.publish(path)
	return nil
}

// Merge implements domain.DocumentStore
func (s *Store) Merge(ctx context.Context, path string, fields domain.Fields) error {
	if err := domain.ValidateDocumentPath(path); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.docs[path]
	if !ok {
		s.seq++
		current = entry{fields: domain.Fields{}, seq: s.seq}
	}
	current.fields = domain.MergeFields(current.fields, s.resolve(fields))
	s.docs[path] = current
	s.publish(path)
	return nil
}

// Delete implements domain.DocumentStore
func (s *Store) Delete(ctx context.Context, path string) error {
	if err := domain.ValidateDocumentPath(path); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.docs[path]; !ok {
		return fmt.Errorf("document %s: %w", path, domain.ErrNotFound)
	}
	delete(s.docs, path)
	s.publish(path)
	return nil
}

// WatchCollection implements domain.DocumentStore
func (s *Store) WatchCollection(ctx context.Context, collection string) (domain.Watch, error) {
	if err := domain.ValidateCollectionPath(collection); err != nil {
		return nil, err
	}
	return s.watch(ctx, collection, false)
}

// WatchDocument implements domain.DocumentStore
func (s *Store) WatchDocument(ctx context.Context, path string) (domain.Watch, error) {
	if err := domain.ValidateDocumentPath(path); err != nil {
		return nil, err
	}
	return s.watch(ctx, path, true)
}

func (s *Store) watch(ctx context.Context, path string, document bool) (domain.Watch, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sub := &subscriber{path: path, document: document}
	sub.watch = docstore.NewWatch(func() {
		s.mu.Lock()
		delete(s.subs, sub)
		s.mu.Unlock()
	})

	s.mu.Lock()
	s.subs[sub] = struct{}{}
	sub.watch.Push(s.snapshot(sub))
	s.mu.Unlock()

	sub.watch.CancelWith(ctx)

	return sub.watch, nil
}

// Len returns the number of stored documents
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.docs)
}

// resolve must be called with s.mu held
func (s *Store) resolve(fields domain.Fields) domain.Fields {
	return domain.ResolveServerTimestamps(fields, time.Unix(0, s.clock.Next()).UTC())
}

// publish must be called with s.mu held
func (s *Store) publish(changed string) {
	collection, _ := domain.SplitPath(changed)
	for sub := range s.subs {
		if (sub.document && sub.path == changed) || (!sub.document && sub.path == collection) {
			sub.watch.Push(s.snapshot(sub))
		}
	}
}

// snapshot must be called with s.mu held
func (s *Store) snapshot(sub *subscriber) domain.Snapshot {
	snap := domain.Snapshot{Path: sub.path}

	if sub.document {
		if e, ok := s.docs[sub.path]; ok {
			_, id := domain.SplitPath(sub.path)
			snap.Documents = []domain.Document{{ID: id, Path: sub.path, Fields: copyFields(e.fields)}}
		}
		return snap
	}

	type row struct {
		doc domain.Document
		seq int64
	}
	var rows []row
	for path, e := range s.docs {
		collection, id := domain.SplitPath(path)
		if collection != sub.path {
			continue
		}
		rows = append(rows, row{
			doc: domain.Document{ID: id, Path: path, Fields: copyFields(e.fields)},
			seq: e.seq,
		})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].seq < rows[j].seq })

	snap.Documents = make([]domain.Document, 0, len(rows))
	for _, r := range rows {
		snap.Documents = append(snap.Documents, r.doc)
	}
	return snap
}

func copyFields(f domain.Fields) domain.Fields {
	out := make(domain.Fields, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}
