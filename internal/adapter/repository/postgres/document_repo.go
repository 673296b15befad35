package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/simaogato/tradejournal-backend/internal/adapter/docstore"
	"github.com/simaogato/tradejournal-backend/internal/domain"
	"github.com/simaogato/tradejournal-backend/internal/logger"
)

// notifyChannel carries the path of every changed document
const notifyChannel = "documents_changed"

type watcher struct {
	path     string
	document bool
	watch    *docstore.Watch
}

// DocumentRepository implements domain.DocumentStore on a JSONB table.
// Changes are announced with NOTIFY and fanned out to watches by one LISTEN connection.
type DocumentRepository struct {
	db       *DB
	listener *pq.Listener
	clock    *docstore.Clock

	mu       sync.Mutex
	watchers map[*watcher]struct{}
	done     chan struct{}
}

// NewDocumentRepository creates a document repository and starts listening for changes
func NewDocumentRepository(db *DB) (*DocumentRepository, error) {
	r := &DocumentRepository{
		db:       db,
		clock:    &docstore.Clock{Now: func() int64 { return time.Now().UnixNano() }},
		watchers: make(map[*watcher]struct{}),
		done:     make(chan struct{}),
	}

	r.listener = pq.NewListener(db.connStr, 10*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			logger.Error("Document listener event %d: %v", ev, err)
		}
	})
	if err := r.listener.Listen(notifyChannel); err != nil {
		r.listener.Close()
		return nil, fmt.Errorf("failed to listen on %s: %w", notifyChannel, err)
	}

	go r.dispatch()
	return r, nil
}

// Close stops the listener and ends every open watch
func (r *DocumentRepository) Close() error {
	err := r.listener.Close()
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

	id := uuid.NewString()
	path := collection + "/" + id

	data, err := domain.MarshalFieldsJSON(r.resolve(fields))
	if err != nil {
		return "", fmt.Errorf("failed to encode document: %w", err)
	}

	query := `
		INSERT INTO documents (path, collection, doc_id, data)
		VALUES ($1, $2, $3, $4)
	`
	if err := r.write(ctx, path, query, path, collection, id, string(data)); err != nil {
		return "", fmt.Errorf("failed to create document: %w", err)
	}

	return id, nil
}

// Set implements domain.DocumentStore. An existing row keeps its seq
// and so its position in collection snapshots.
func (r *DocumentRepository) Set(ctx context.Context, path string, fields domain.Fields) error {
	if err := domain.ValidateDocumentPath(path); err != nil {
		return err
	}

	data, err := domain.MarshalFieldsJSON(r.resolve(fields))
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}

	collection, id := domain.SplitPath(path)
	query := `
		INSERT INTO documents (path, collection, doc_id, data)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (path) DO UPDATE SET data = EXCLUDED.data
	`
	if err := r.write(ctx, path, query, path, collection, id, string(data)); err != nil {
		return fmt.Errorf("failed to set document: %w", err)
	}

	return nil
}

// Merge implements domain.DocumentStore. The JSONB || operator keeps the
// fields the patch does not name.
func (r *DocumentRepository) Merge(ctx context.Context, path string, fields domain.Fields) error {
	if err := domain.ValidateDocumentPath(path); err != nil {
		return err
	}

	data, err := domain.MarshalFieldsJSON(r.resolve(fields))
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}

	collection, id := domain.SplitPath(path)
	query := `
		INSERT INTO documents (path, collection, doc_id, data)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (path) DO UPDATE SET data = documents.data || EXCLUDED.data
	`
	if err := r.write(ctx, path, query, path, collection, id, string(data)); err != nil {
		return fmt.Errorf("failed to merge document: %w", err)
	}

	return nil
}

// Delete implements domain.DocumentStore
func (r *DocumentRepository) Delete(ctx context.Context, path string) error {
	if err := domain.ValidateDocumentPath(path); err != nil {
		return err
	}

	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer dbTx.Rollback()

	result, err := dbTx.ExecContext(ctx, `DELETE FROM documents WHERE path = $1`, path)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("document %s: %w", path, domain.ErrNotFound)
	}

	if _, err := dbTx.ExecContext(ctx, `SELECT pg_notify($1, $2)`, notifyChannel, path); err != nil {
		return fmt.Errorf("failed to notify change: %w", err)
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
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

	// Register first so a change racing the initial read is not missed.
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

// write runs query and announces path in the same transaction, so the
// notification is only delivered once the change is visible.
func (r *DocumentRepository) write(ctx context.Context, path, query string, args ...any) error {
	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer dbTx.Rollback()

	if _, err := dbTx.ExecContext(ctx, query, args...); err != nil {
		return err
	}
	if _, err := dbTx.ExecContext(ctx, `SELECT pg_notify($1, $2)`, notifyChannel, path); err != nil {
		return fmt.Errorf("failed to notify change: %w", err)
	}

	return dbTx.Commit()
}

func (r *DocumentRepository) resolve(fields domain.Fields) domain.Fields {
	return domain.ResolveServerTimestamps(fields, time.Unix(0, r.clock.Next()).UTC())
}

func (r *DocumentRepository) dispatch() {
	defer close(r.done)

	for n := range r.listener.Notify {
		// A nil notification follows a reconnect; changes may have been missed.
		if n == nil {
			r.refresh(func(*watcher) bool { return true })
			continue
		}

		changed := n.Extra
		collection, _ := domain.SplitPath(changed)
		r.refresh(func(w *watcher) bool {
			if w.document {
				return w.path == changed
			}
			return w.path == collection
		})
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

	var data []byte
	err := r.db.QueryRowContext(ctx, `SELECT data FROM documents WHERE path = $1`, path).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return snap, nil
	}
	if err != nil {
		return snap, fmt.Errorf("failed to get document: %w", err)
	}

	fields, err := domain.UnmarshalFieldsJSON(data)
	if err != nil {
		return snap, fmt.Errorf("failed to decode document %s: %w", path, err)
	}

	_, id := domain.SplitPath(path)
	snap.Documents = []domain.Document{{ID: id, Path: path, Fields: fields}}
	return snap, nil
}

func (r *DocumentRepository) collectionSnapshot(ctx context.Context, collection string) (domain.Snapshot, error) {
	snap := domain.Snapshot{Path: collection, Documents: []domain.Document{}}

	query := `
		SELECT doc_id, path, data
		FROM documents
		WHERE collection = $1
		ORDER BY seq ASC
	`

	rows, err := r.db.QueryContext(ctx, query, collection)
	if err != nil {
		return snap, fmt.Errorf("failed to query documents: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var doc domain.Document
		var data []byte
		if err := rows.Scan(&doc.ID, &doc.Path, &data); err != nil {
			return snap, fmt.Errorf("failed to scan document: %w", err)
		}
		doc.Fields, err = domain.UnmarshalFieldsJSON(data)
		if err != nil {
			logger.Error("Skipping undecodable document %s: %v", doc.Path, err)
			continue
		}
		snap.Documents = append(snap.Documents, doc)
	}

	if err := rows.Err(); err != nil {
		return snap, fmt.Errorf("error iterating documents: %w", err)
	}

	return snap, nil
}
