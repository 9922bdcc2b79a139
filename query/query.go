package query

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/vdbio/verdb/codec"
	"github.com/vdbio/verdb/errs"
	"github.com/vdbio/verdb/kv"
	"github.com/vdbio/verdb/version"
)

// Match is one document returned by Find.
type Match struct {
	Key     string
	Value   any
	Version version.Version
}

// Options configures a Find call.
type Options struct {
	Filter *Filter // nil matches every live document
	Order  []Key
	Offset int
	Limit  int // 0 means unlimited
}

// Find scans store, decoding every live envelope, keeping the ones
// satisfying opts.Filter, sorting by opts.Order, and returning the
// opts.Offset..opts.Offset+opts.Limit slice of the result. It does not see
// tombstones: a removed key is indistinguishable from one that was never
// written. Find takes no commit lock — it reads a point-in-time mix of
// whatever the iterator's underlying store.Iterate snapshot contract
// guarantees, the same read consistency Get itself offers.
func Find(ctx context.Context, store kv.Store, opts Options) ([]Match, error) {
	it, err := store.Iterate(ctx)
	if err != nil {
		return nil, &errs.StorageError{Op: "Find", DebugID: uuid.NewString(), Err: err}
	}
	defer it.Close()

	var matches []Match
	for it.Next() {
		env, err := codec.Decode(it.Value())
		if err != nil {
			return nil, &errs.CorruptionError{Key: it.Key(), DebugID: uuid.NewString(), Err: err}
		}
		if !env.Present {
			continue
		}
		if opts.Filter != nil {
			ok, err := Eval(env.Value, *opts.Filter)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
		}
		matches = append(matches, Match{Key: it.Key(), Value: env.Value, Version: env.Version})
	}
	if err := it.Err(); err != nil {
		return nil, &errs.StorageError{Op: "Find", DebugID: uuid.NewString(), Err: err}
	}

	if len(opts.Order) > 0 {
		sort.SliceStable(matches, func(i, j int) bool {
			return Less(matches[i].Value, matches[j].Value, opts.Order)
		})
	}

	return paginate(matches, opts.Offset, opts.Limit), nil
}

func paginate(matches []Match, offset, limit int) []Match {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(matches) {
		return nil
	}
	matches = matches[offset:]
	if limit > 0 && limit < len(matches) {
		matches = matches[:limit]
	}
	return matches
}
