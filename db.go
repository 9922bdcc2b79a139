// Package verdb is an embedded document store with per-key optimistic
// concurrency control, bounded change history, and a long-poll subscription
// and query layer, all built on a pluggable ordered key/value engine.
package verdb

import (
	"context"
	"time"

	"github.com/vdbio/verdb/bus"
	"github.com/vdbio/verdb/codec"
	"github.com/vdbio/verdb/commit"
	"github.com/vdbio/verdb/kv"
	"github.com/vdbio/verdb/poll"
	"github.com/vdbio/verdb/query"
	"github.com/vdbio/verdb/version"
)

// DB is the facade over a single kv.Store: it wires together the commit
// engine that owns writes, the bus that fans out change notifications, and
// the poll and query helpers that read through to the same store.
type DB struct {
	store  kv.Store
	engine *commit.Engine
	bus    *bus.Bus
	cfg    config
}

// Open wires a DB around an already-constructed kv.Store. Callers own the
// store's lifecycle — boltkv.Store, for instance, must be Closed by the
// caller once the DB is no longer needed.
func Open(store kv.Store, opts ...Option) *DB {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	b := bus.New()
	eng := commit.New(store, b, commit.Options{Clock: cfg.clock, MaxPatches: cfg.maxPatches, Verbose: cfg.verbose})
	return &DB{store: store, engine: eng, bus: b, cfg: cfg}
}

// Version re-exports version.Version so callers rarely need to import the
// version package directly.
type Version = version.Version

// Create writes value as a brand-new document at key. It fails with a
// VersionMismatchError if key currently holds a live value.
func (db *DB) Create(ctx context.Context, key string, value any, meta map[string]any) (Version, error) {
	res, err := db.engine.Create(ctx, key, value, meta)
	return res.Version, err
}

// Remove tombstones key unconditionally.
func (db *DB) Remove(ctx context.Context, key string, meta map[string]any) (Version, error) {
	res, err := db.engine.Remove(ctx, key, meta)
	return res.Version, err
}

// SetIfVersion performs a compare-and-set write, succeeding only if key's
// current (version, present) state matches expectedVersion/expectedPresent.
func (db *DB) SetIfVersion(ctx context.Context, key string, expectedVersion Version, expectedPresent bool, value any, present bool, meta map[string]any) (Version, error) {
	res, err := db.engine.SetIfVersion(ctx, key, expectedVersion, expectedPresent, value, present, meta)
	return res.Version, err
}

// RemoveIfVersion is a CAS-remove: it succeeds only if key currently holds
// expectedVersion as a live value.
func (db *DB) RemoveIfVersion(ctx context.Context, key string, expectedVersion Version, meta map[string]any) (Version, error) {
	res, err := db.engine.RemoveIfVersion(ctx, key, expectedVersion, meta)
	return res.Version, err
}

// Get returns the current value of key, and whether it is presently live.
func (db *DB) Get(ctx context.Context, key string) (any, bool, error) {
	return db.engine.Get(ctx, key)
}

// GetWithVersion returns the current value of key along with its version.
func (db *DB) GetWithVersion(ctx context.Context, key string) (any, Version, bool, error) {
	return db.engine.GetWithVersion(ctx, key)
}

// GetWithMeta returns the full stored envelope for key, including its
// bounded patch history.
func (db *DB) GetWithMeta(ctx context.Context, key string) (codec.Envelope, bool, error) {
	return db.engine.GetWithMeta(ctx, key)
}

// StartPolling returns key's current value and version, the same result
// GetWithVersion would: it exists as the named entry point a caller uses to
// obtain the (key, version) pair it then hands to Poll, without implying
// anything beyond that single read.
func (db *DB) StartPolling(ctx context.Context, key string) (any, Version, bool, error) {
	return db.GetWithVersion(ctx, key)
}

// Poll blocks until one of the given keys moves past the version the
// caller last observed for it, or until the deadline (opts.ReadBlockTime,
// defaulting to the DB's configured poll window) elapses.
func (db *DB) Poll(ctx context.Context, keys []poll.KeyVersion, opts poll.Options) (poll.Result, error) {
	if opts.Clock == nil {
		opts.Clock = db.cfg.clock
	}
	if opts.ReadBlockTime <= 0 && db.cfg.defaultPollWindow > 0 {
		opts.ReadBlockTime = db.cfg.defaultPollWindow
	}
	return poll.Poll(ctx, db.engine, db.bus, keys, opts)
}

// Find runs a filtered, ordered, paginated scan over every live document.
func (db *DB) Find(ctx context.Context, opts query.Options) ([]query.Match, error) {
	return query.Find(ctx, db.store, opts)
}

// DefaultPollWindow reports the poll deadline Poll uses when a caller's
// Options.ReadBlockTime is zero.
func (db *DB) DefaultPollWindow() time.Duration {
	if db.cfg.defaultPollWindow > 0 {
		return db.cfg.defaultPollWindow
	}
	return poll.DefaultReadBlockTime
}
