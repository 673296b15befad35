package domain

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Fields is the content of a remote document.
// Supported values: nil, bool, float64, int, int64, string, time.Time and ServerTimestamp.
type Fields map[string]any

// ServerTimestampValue is the type of the ServerTimestamp sentinel.
type ServerTimestampValue struct{}

// ServerTimestamp asks the backend to replace the field with its own clock
// at write time. Backends assign strictly increasing values.
var ServerTimestamp = ServerTimestampValue{}

// Document is one remote document as delivered by a snapshot
type Document struct {
	ID     string
	Path   string
	Fields Fields
}

// Snapshot is a complete view of a collection or a single document.
// For document watches Documents holds zero (missing) or one entry.
type Snapshot struct {
	Path      string
	Documents []Document
}

// Exists reports whether a document snapshot found its document.
func (s Snapshot) Exists() bool {
	return len(s.Documents) > 0
}

// Watch is a standing subscription producing full snapshots.
// The channel is closed after Cancel or when the stream breaks; Err reports why.
type Watch interface {
	Snapshots() <-chan Snapshot
	Err() error
	Cancel()
}

// DocumentStore is the remote document store the sync layer mirrors.
// It is injected into the stores so tests can use in-memory fakes.
type DocumentStore interface {
	// Create adds a document with a store-assigned ID to the collection
	Create(ctx context.Context, collection string, fields Fields) (string, error)

	// Set writes the document at path, replacing its content and creating it
	// when absent. Writing the same fields twice leaves one document.
	Set(ctx context.Context, path string, fields Fields) error

	// Merge writes fields into the document at path, creating it when absent.
	// Fields not named are preserved.
	Merge(ctx context.Context, path string, fields Fields) error

	// Delete removes the document at path
	Delete(ctx context.Context, path string) error

	// WatchCollection opens a standing subscription on a collection
	WatchCollection(ctx context.Context, collection string) (Watch, error)

	// WatchDocument opens a standing subscription on a single document
	WatchDocument(ctx context.Context, path string) (Watch, error)
}

// TradesCollection returns the collection holding a user's trades
func TradesCollection(userID string) string {
	return "users/" + userID + "/trades"
}

// TradePath returns the document path of one trade
func TradePath(userID, tradeID string) string {
	return TradesCollection(userID) + "/" + tradeID
}

// SettingsPath returns the document path of a user's account settings
func SettingsPath(userID string) string {
	return "users/" + userID + "/settings/account"
}

// SplitPath splits a document path into its parent collection and ID.
func SplitPath(path string) (collection, id string) {
	i := strings.LastIndex(path, "/")
	if i < 0 {
		return "", path
	}
	return path[:i], path[i+1:]
}

// ValidateCollectionPath checks that path names a collection (odd segment count)
func ValidateCollectionPath(path string) error {
	n, err := segments(path)
	if err != nil {
		return err
	}
	if n%2 != 1 {
		return fmt.Errorf("%w: %q is not a collection path", ErrInvalidOperation, path)
	}
	return nil
}

// ValidateDocumentPath checks that path names a document (even segment count)
func ValidateDocumentPath(path string) error {
	n, err := segments(path)
	if err != nil {
		return err
	}
	if n%2 != 0 {
		return fmt.Errorf("%w: %q is not a document path", ErrInvalidOperation, path)
	}
	return nil
}

// PathOwner returns the user a path belongs to, or "" when the path is not
// under users/{uid}/.
func PathOwner(path string) string {
	parts := strings.Split(path, "/")
	if len(parts) < 2 || parts[0] != "users" {
		return ""
	}
	return parts[1]
}

func segments(path string) (int, error) {
	if path == "" {
		return 0, fmt.Errorf("%w: empty path", ErrInvalidOperation)
	}
	parts := strings.Split(path, "/")
	for _, p := range parts {
		if p == "" {
			return 0, fmt.Errorf("%w: %q has an empty segment", ErrInvalidOperation, path)
		}
	}
	return len(parts), nil
}

// ResolveServerTimestamps returns a copy of fields with every ServerTimestamp
// sentinel replaced by now.
func ResolveServerTimestamps(fields Fields, now time.Time) Fields {
	out := make(Fields, len(fields))
	for k, v := range fields {
		if _, ok := v.(ServerTimestampValue); ok {
			out[k] = now
			continue
		}
		out[k] = v
	}
	return out
}

// MergeFields returns base overlaid with patch. Neither input is modified.
func MergeFields(base, patch Fields) Fields {
	out := make(Fields, len(base)+len(patch))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range patch {
		out[k] = v
	}
	return out
}
