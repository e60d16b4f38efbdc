package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a key does not exist in a collection.
var ErrNotFound = errors.New("record not found")

// Index maps an index name to the value a record is filed under,
// e.g. {"status": "COMPLETED", "jobId": "j1"}.
type Index map[string]string

// Collection is a namespaced, key-indexed durable record store.
//
// Set replaces both the value and the index memberships of a key; a record
// appears under exactly the index values of its latest Set.
type Collection interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, idx Index) error
	List(ctx context.Context) ([][]byte, error)
	ListByIndex(ctx context.Context, name, value string) ([][]byte, error)
	Delete(ctx context.Context, key string) error
}
