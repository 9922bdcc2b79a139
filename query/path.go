// Package query implements the filter/order/paginate evaluation used by
// Find: extracting a value at a dotted path out of an arbitrary decoded
// JSON document, evaluating a filter tree against it, and producing a
// stable multi-key sort order over the matches.
package query

import (
	"strconv"
	"strings"
)

// Extract walks doc along the dot-separated path (array elements addressed
// as a bare numeric segment, e.g. "items.0.name") and returns the value
// found there. The second return is false if any segment along the way is
// missing, out of range, or traverses through a non-container value — a
// path.go miss is never itself an error, since a filter comparing against a
// path absent from a given document is a well-defined "doesn't match", not
// a malformed query.
func Extract(doc any, path string) (any, bool) {
	if path == "" {
		return doc, true
	}
	cur := doc
	for _, segment := range strings.Split(path, ".") {
		switch t := cur.(type) {
		case map[string]any:
			v, ok := t[segment]
			if !ok {
				return nil, false
			}
			cur = v
		case []any:
			idx, err := strconv.Atoi(segment)
			if err != nil || idx < 0 || idx >= len(t) {
				return nil, false
			}
			cur = t[idx]
		default:
			return nil, false
		}
	}
	return cur, true
}
