// Package commit implements the single-writer-per-process core that turns a
// caller's Create/Remove/SetIfVersion call into a versioned envelope write
// and a bus notification. It is the only package that ever calls kv.Store.Put
// directly — every other mutation path in the module funnels through here.
package commit

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/pkg/errors"

	"github.com/vdbio/verdb/bus"
	"github.com/vdbio/verdb/codec"
	"github.com/vdbio/verdb/errs"
	"github.com/vdbio/verdb/internal/diff"
	"github.com/vdbio/verdb/internal/sio"
	"github.com/vdbio/verdb/kv"
	"github.com/vdbio/verdb/version"
)

// Options configures an Engine. The zero value is valid: New substitutes a
// real wall clock for a nil Clock and codec.NumPatchesToKeep for a
// non-positive MaxPatches, the same values DefaultOptions returns.
type Options struct {
	// Clock supplies the timestamp recorded as a new version's major
	// component and as Envelope.UpdatedAt. Tests substitute a
	// clockwork.FakeClock to get deterministic, controllable versions.
	Clock clockwork.Clock

	// MaxPatches bounds how many history entries an envelope retains.
	// Older entries are dropped with no reconstruction path.
	MaxPatches int

	// Verbose, when true, has every successful write emit a notice line
	// plus a de-emphasized unified diff of the value change to sio.Output.
	Verbose bool
}

// DefaultOptions returns the options an Engine uses when none are supplied:
// a real wall clock and codec.NumPatchesToKeep of history.
func DefaultOptions() Options {
	return Options{Clock: clockwork.NewRealClock(), MaxPatches: codec.NumPatchesToKeep}
}

// Engine is the write path for one kv.Store. All mutating operations take
// Engine's single mutex, matching the distilled spec's choice of one
// process-wide write lock rather than per-key locking: contention is
// expected to be low and the simplicity is worth more than the
// parallelism a striped lock would buy.
type Engine struct {
	store kv.Store
	bus   *bus.Bus
	clock clockwork.Clock
	mu    sync.Mutex

	maxPatches int
	verbose    bool
}

// New constructs an Engine over store, publishing commit notifications to b.
func New(store kv.Store, b *bus.Bus, opts Options) *Engine {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.MaxPatches <= 0 {
		opts.MaxPatches = codec.NumPatchesToKeep
	}
	return &Engine{store: store, bus: b, clock: opts.Clock, maxPatches: opts.MaxPatches, verbose: opts.Verbose}
}

// Result is returned by every successful mutating operation: the version the
// write produced and whether the write actually changed anything (a
// structurally no-op SetIfVersion call still succeeds but is not published).
type Result struct {
	Version version.Version
	Changed bool
}

func storageErr(op string, err error) error {
	return &errs.StorageError{Op: op, DebugID: uuid.NewString(), Err: err}
}

func corruptionErr(key string, err error) error {
	return &errs.CorruptionError{Key: key, DebugID: uuid.NewString(), Err: err}
}

// validateTopLevel enforces the data model's shape rule before any state
// change is attempted: a document's top-level value must be an object, a
// boolean, a number, or a string. A bare top-level null (nil) or a
// top-level array is rejected the same way; nulls and arrays nested inside
// an object are unaffected, since this check only ever looks at the
// outermost shape.
func validateTopLevel(op string, value any) error {
	if value == nil {
		return errs.NewInput(op, "value must not be absent (nil) at the top level")
	}
	switch value.(type) {
	case map[string]any, bool, string:
		return nil
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64, reflect.Bool, reflect.String, reflect.Struct:
		return nil
	case reflect.Map:
		if rv.Type().Key().Kind() == reflect.String {
			return nil
		}
	}
	return errs.NewInput(op, fmt.Sprintf("top-level value must be an object, boolean, number, or string, got %T", value))
}

// load reads and decodes the current envelope for key. A missing key is not
// an error: it returns the zero Envelope with present=false.
func (e *Engine) load(ctx context.Context, op, key string) (codec.Envelope, bool, error) {
	raw, err := e.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return codec.Envelope{}, false, nil
		}
		return codec.Envelope{}, false, storageErr(op, err)
	}
	env, err := codec.Decode(raw)
	if err != nil {
		return codec.Envelope{}, false, corruptionErr(key, err)
	}
	return env, true, nil
}

// put is the shared primitive behind Create, Remove, and SetIfVersion: it
// diffs the previous value against next, mints a new version, appends a
// bounded patch history entry, writes the envelope, and publishes the patch
// on the bus — in that order, so a subscriber never observes a patch before
// it is durable.
func (e *Engine) put(ctx context.Context, op, key string, prev codec.Envelope, prevPresent bool, next any, nextPresent bool, meta map[string]any) (Result, error) {
	ops, err := codec.Diff(prev.Value, prevPresent, next, nextPresent)
	if err != nil {
		return Result{}, errs.NewInput(op, err.Error())
	}
	if ops == nil {
		// Structurally identical to the current value: succeed without
		// minting a version or notifying subscribers.
		return Result{Version: prev.Version, Changed: false}, nil
	}

	now := e.clock.Now()
	var newVersion version.Version
	if prevPresent {
		// Mutating a live lineage: retain its major, bump minor.
		newVersion = version.Successor(prev.Version)
	} else {
		// Fresh key, or reviving a tombstone into a new lineage: mint a
		// new major from the clock, minor starts at 1.
		newVersion = version.Version{Major: now.UnixNano(), Minor: 1}
	}

	patch := codec.Patch{Version: newVersion, Ops: ops, Metadata: meta}
	history := append(append([]codec.Patch{}, prev.Patches...), patch)
	if len(history) > e.maxPatches {
		history = history[len(history)-e.maxPatches:]
	}

	env := codec.Envelope{
		Version:   newVersion,
		Value:     next,
		Present:   nextPresent,
		Patches:   history,
		UpdatedAt: now.UnixNano(),
	}
	raw, err := codec.Encode(env)
	if err != nil {
		return Result{}, storageErr(op, err)
	}
	if err := e.store.Put(ctx, key, raw); err != nil {
		return Result{}, storageErr(op, err)
	}

	if e.verbose {
		e.logCommit(op, key, newVersion, prev.Value, prevPresent, next, nextPresent)
	}

	e.bus.Publish(key, patch)
	return Result{Version: newVersion, Changed: true}, nil
}

// logCommit writes a notice line plus a de-emphasized unified diff of the
// value change. Failures to render the diff are logged rather than
// propagated — a broken debug line must never fail a write that otherwise
// succeeded.
func (e *Engine) logCommit(op, key string, v version.Version, prev any, prevPresent bool, next any, nextPresent bool) {
	sio.Noticef("%s %s -> %s\n", op, key, v)
	var prevVal, nextVal any
	if prevPresent {
		prevVal = prev
	}
	if nextPresent {
		nextVal = next
	}
	d, err := diff.Values(prevVal, nextVal, diff.Options{LeftName: "before", RightName: "after"})
	if err != nil {
		sio.Warnf("%s: could not render diff for %s: %v\n", sio.ErrorString("diff"), key, err)
		return
	}
	if len(d) > 0 {
		sio.Debugln(string(d))
	}
}

// Create writes value as a brand-new document at key, failing with a
// VersionMismatchError if key currently holds a live (non-tombstone) value.
// A tombstoned key (one that was Removed) may be Created over.
func (e *Engine) Create(ctx context.Context, key string, value any, meta map[string]any) (Result, error) {
	if err := validateTopLevel("Create", value); err != nil {
		return Result{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	env, found, err := e.load(ctx, "Create", key)
	if err != nil {
		return Result{}, err
	}
	if found && env.Present {
		return Result{}, errs.NewVersionMismatch(key)
	}
	return e.put(ctx, "Create", key, env, found && env.Present, value, true, meta)
}

// Remove tombstones key unconditionally, recording a patch that transitions
// the value to absent. Removing an already-absent or never-written key is a
// no-op that reports Changed=false.
func (e *Engine) Remove(ctx context.Context, key string, meta map[string]any) (Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	env, found, err := e.load(ctx, "Remove", key)
	if err != nil {
		return Result{}, err
	}
	if !found || !env.Present {
		return Result{Version: env.Version}, nil
	}
	return e.put(ctx, "Remove", key, env, true, nil, false, meta)
}

// SetIfVersion performs a compare-and-set write: it succeeds only if key's
// current (version, present) state matches expectedVersion/expectedPresent,
// then writes value/present as the new state. Passing present=false with a
// nil value performs a CAS-remove; RemoveIfVersion is a named convenience
// wrapper for that case.
func (e *Engine) SetIfVersion(ctx context.Context, key string, expectedVersion version.Version, expectedPresent bool, value any, present bool, meta map[string]any) (Result, error) {
	if present {
		if err := validateTopLevel("SetIfVersion", value); err != nil {
			return Result{}, err
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	env, found, err := e.load(ctx, "SetIfVersion", key)
	if err != nil {
		return Result{}, err
	}
	currentPresent := found && env.Present
	if !version.Matches(env.Version, currentPresent, expectedVersion) || currentPresent != expectedPresent {
		return Result{}, errs.NewVersionMismatch(key)
	}
	return e.put(ctx, "SetIfVersion", key, env, currentPresent, value, present, meta)
}

// RemoveIfVersion is SetIfVersion specialized to a CAS-remove: it succeeds
// only if key currently holds expectedVersion as a live value.
func (e *Engine) RemoveIfVersion(ctx context.Context, key string, expectedVersion version.Version, meta map[string]any) (Result, error) {
	return e.SetIfVersion(ctx, key, expectedVersion, true, nil, false, meta)
}

// Get returns the current value of key. The second return is false if the
// key has never been written or was removed.
func (e *Engine) Get(ctx context.Context, key string) (any, bool, error) {
	env, found, err := e.load(ctx, "Get", key)
	if err != nil {
		return nil, false, err
	}
	if !found || !env.Present {
		return nil, false, nil
	}
	return env.Value, true, nil
}

// GetWithVersion returns the current value of key along with the version
// that produced it, whether or not the key is presently live.
func (e *Engine) GetWithVersion(ctx context.Context, key string) (any, version.Version, bool, error) {
	env, found, err := e.load(ctx, "GetWithVersion", key)
	if err != nil {
		return nil, version.Zero, false, err
	}
	return env.Value, env.Version, found && env.Present, nil
}

// GetWithMeta returns the full stored envelope for key, including its
// bounded patch history, for callers that need more than the live value
// (e.g. an audit view or a poll resume point).
func (e *Engine) GetWithMeta(ctx context.Context, key string) (codec.Envelope, bool, error) {
	return e.load(ctx, "GetWithMeta", key)
}
