package docstore

import (
	"context"
	"encoding/json"
	"errors"
)

var (
	ErrNotFound = errors.New("document not found")
	ErrConflict = errors.New("document was modified concurrently")
)

// Store is a document store over named collections.
// Collection names may be nested paths such as "users/<id>/orders".
type Store interface {
	// Put creates or replaces the document under (collection, id).
	Put(ctx context.Context, collection, id string, doc any) error

	// Get unmarshals the document into out. Returns false when absent.
	Get(ctx context.Context, collection, id string, out any) (bool, error)

	// List returns the raw documents of a collection.
	List(ctx context.Context, collection string) ([]json.RawMessage, error)

	// Update applies fn to the current document bytes and persists the
	// result as a single per-record atomic operation. Returns ErrNotFound
	// when the document does not exist.
	Update(ctx context.Context, collection, id string, fn func(raw []byte) ([]byte, error)) error

	// Delete removes the document. Deleting an absent document is a no-op.
	Delete(ctx context.Context, collection, id string) error
}

// Watcher is implemented by stores that support live collection
// subscriptions. Every change to the collection re-delivers the full
// collection snapshot to every open subscription.
type Watcher interface {
	Watch(collection string) *Subscription
}
