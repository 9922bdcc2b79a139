package query

import "sort"

// Key is one component of a multi-key sort order, applied as a tie-break
// chain in the order given — the same cascading-comparator shape qbec's
// objsort uses to order Kubernetes objects by a sequence of fields.
type Key struct {
	Path string
	Desc bool
}

// OrderBy sorts docs in place according to keys. It is a thin wrapper
// around Less, kept for callers that hold plain document values rather
// than query.Match results (Find itself sorts []Match via Less directly,
// since it needs the key/version alongside each value).
func OrderBy(docs []any, keys []Key) {
	sort.SliceStable(docs, func(i, j int) bool {
		return Less(docs[i], docs[j], keys)
	})
}

// Less reports whether a sorts before b under keys, falling through each
// key in turn until one produces a non-equal comparison. A document missing
// a sort key's path is treated as sorting less than one that has it,
// regardless of Desc — "missing sorts first" is a property of presence,
// not of the requested direction.
func Less(a, b any, keys []Key) bool {
	for _, k := range keys {
		c := compareByKey(a, b, k)
		if c != 0 {
			return c < 0
		}
	}
	return false
}

func compareByKey(a, b any, k Key) int {
	av, aok := Extract(a, k.Path)
	bv, bok := Extract(b, k.Path)
	switch {
	case !aok && !bok:
		return 0
	case !aok:
		return -1
	case !bok:
		return 1
	}
	c := compare(av, bv)
	if k.Desc {
		return -c
	}
	return c
}
