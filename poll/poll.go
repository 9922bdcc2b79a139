// Package poll implements change notification as a bounded long-poll: a
// caller declares the last version it observed for a set of keys, and Poll
// blocks until at least one of them has moved on or a deadline passes. It
// subscribes to the bus before taking its first read of current state, so a
// commit landing between the scan and the subscribe can never be missed.
package poll

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/vdbio/verdb/bus"
	"github.com/vdbio/verdb/codec"
	"github.com/vdbio/verdb/commit"
	"github.com/vdbio/verdb/version"
)

// DefaultReadBlockTime is how long Poll waits for a change before reporting
// a timed-out outcome when the caller does not override Options.ReadBlockTime.
const DefaultReadBlockTime = 50 * time.Second

// Options configures a single Poll call.
type Options struct {
	// ReadBlockTime bounds how long Poll waits. Zero means
	// DefaultReadBlockTime.
	ReadBlockTime time.Duration

	// Clock supplies the deadline timer. Tests substitute a
	// clockwork.FakeClock paired with Advance to drive a poll to timeout
	// deterministically.
	Clock clockwork.Clock
}

// KeyVersion names a key and the version the caller last observed for it.
// Present must describe whether that last-observed version was a live
// value or a tombstone — Poll cannot tell those apart from the version
// number alone.
type KeyVersion struct {
	Key     string
	Version version.Version
	Present bool
}

// KeyPatches reports that Key has moved past the version the caller supplied.
// Patches holds every history entry newer than that version, oldest first;
// if the envelope's bounded history was truncated past that point, Patches
// holds the full remaining history instead and callers should fall back to
// CurrentVersion/CurrentPresent rather than assume they saw every change.
type KeyPatches struct {
	Key            string
	Patches        []codec.Patch
	CurrentVersion version.Version
	CurrentPresent bool
}

// Outcome tags why Poll returned, instead of overloading an error for a
// plain timeout: a timed-out poll is a normal, expected result, and callers
// that checked err != nil for it would be making a control-flow decision out
// of an error value that was never actually exceptional.
type Outcome int

const (
	// Resolved means at least one watched key changed; Result.Changes is
	// non-empty.
	Resolved Outcome = iota
	// TimedOut means ReadBlockTime elapsed with no watched key changing.
	TimedOut
)

// Result is what a Poll call returns.
type Result struct {
	Outcome Outcome
	Changes []KeyPatches
}

// Poll blocks until any key in keys has moved past its supplied version, or
// ReadBlockTime elapses, or ctx is done. A read-only operation: it never
// writes to the engine and never removes a subscription other than its own.
func Poll(ctx context.Context, eng *commit.Engine, b *bus.Bus, keys []KeyVersion, opts Options) (Result, error) {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.ReadBlockTime <= 0 {
		opts.ReadBlockTime = DefaultReadBlockTime
	}

	watched := make(map[string]KeyVersion, len(keys))
	for _, kv := range keys {
		watched[kv.Key] = kv
	}

	woke := make(chan struct{}, 1)
	wake := func() {
		select {
		case woke <- struct{}{}:
		default:
		}
	}

	subID := b.Subscribe(func(key string, _ codec.Patch) bool {
		if _, ok := watched[key]; ok {
			wake()
		}
		return true
	})
	defer b.Unsubscribe(subID)

	changes, err := scan(ctx, eng, watched)
	if err != nil {
		return Result{}, err
	}
	if len(changes) > 0 {
		return Result{Outcome: Resolved, Changes: changes}, nil
	}

	deadline := opts.Clock.After(opts.ReadBlockTime)
	for {
		select {
		case <-ctx.Done():
			return Result{}, ctx.Err()
		case <-deadline:
			return Result{Outcome: TimedOut}, nil
		case <-woke:
			changes, err := scan(ctx, eng, watched)
			if err != nil {
				return Result{}, err
			}
			if len(changes) > 0 {
				return Result{Outcome: Resolved, Changes: changes}, nil
			}
		}
	}
}

// scan reads current state for every watched key and reports those whose
// (version, present) no longer matches what the caller supplied.
func scan(ctx context.Context, eng *commit.Engine, watched map[string]KeyVersion) ([]KeyPatches, error) {
	var changes []KeyPatches
	for key, want := range watched {
		env, _, err := eng.GetWithMeta(ctx, key)
		if err != nil {
			return nil, err
		}
		if version.Equal(env.Version, want.Version) && env.Present == want.Present {
			continue
		}
		changes = append(changes, KeyPatches{
			Key:            key,
			Patches:        newerThan(env.Patches, want.Version),
			CurrentVersion: env.Version,
			CurrentPresent: env.Present,
		})
	}
	return changes, nil
}

// newerThan returns the suffix of history strictly newer than after. If no
// entry in history matches after exactly (the caller's last-seen version
// fell off the bounded history), the full history is returned so the
// caller at least sees every patch this module retained.
func newerThan(history []codec.Patch, after version.Version) []codec.Patch {
	for i, p := range history {
		if version.Equal(p.Version, after) {
			return history[i+1:]
		}
	}
	return history
}
