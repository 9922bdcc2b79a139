// Package kv defines the ordered byte-keyed storage contract the rest of
// this module is built on. It intentionally knows nothing about documents,
// versions or patches: it is the thin adapter boundary over whatever
// persistent engine a host chooses to embed.
package kv

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Store.Get when key has never been written.
// Callers at the core boundary translate this into "absent" semantics; it
// is never surfaced as an error to users of the document API.
var ErrNotFound = errors.New("kv: key not found")

// Store is the external ordered key-value engine contract. Implementations
// must return keys from Iterate in ascending byte order; Get and Put are
// otherwise unconstrained beyond per-key atomicity (a reader never observes
// a partially written value).
type Store interface {
	// Get returns the bytes stored at key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Put stores value at key, replacing any prior value.
	Put(ctx context.Context, key string, value []byte) error
	// Iterate returns a cursor over every key in ascending order. Callers
	// must Close it when done.
	Iterate(ctx context.Context) (Iterator, error)
}

// Iterator walks a Store's contents in ascending key order.
type Iterator interface {
	// Next advances the cursor and reports whether a Key/Value pair is
	// available. It must be called before the first Key/Value access.
	Next() bool
	Key() string
	Value() []byte
	// Err returns any error encountered during iteration. Callers should
	// check it after Next returns false.
	Err() error
	Close() error
}
