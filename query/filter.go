package query

import (
	"reflect"
	"regexp"
	"strings"

	"github.com/vdbio/verdb/errs"
)

// Op names a filter node's kind. Filter is a tagged union rather than an
// interface hierarchy so that it serializes directly to and from JSON —
// callers build filters as data, not as Go code.
type Op string

const (
	OpEq         Op = "eq"
	OpNe         Op = "ne"
	OpGt         Op = "gt"
	OpGte        Op = "gte"
	OpLt         Op = "lt"
	OpLte        Op = "lte"
	OpExists     Op = "exists"
	OpIsNull     Op = "isNull"
	OpMatches    Op = "matches"
	OpStartsWith Op = "startsWith"
	OpAnd        Op = "and"
	OpOr         Op = "or"
	OpNot        Op = "not"
)

// Filter is one node of a filter tree. Comparison nodes (eq, ne, gt, gte,
// lt, lte, startsWith) set Path and Value; exists and isNull set only Path;
// matches sets Path, Value (the regex pattern), and CaseInsensitive; boolean
// nodes (and, or) set Filters; not sets Filters[0].
type Filter struct {
	Op              Op       `json:"op"`
	Path            string   `json:"path,omitempty"`
	Value           any      `json:"value,omitempty"`
	CaseInsensitive bool     `json:"caseInsensitive,omitempty"`
	Filters         []Filter `json:"filters,omitempty"`
}

// Eval reports whether doc satisfies f. A comparison node whose Path is
// absent from doc evaluates to false (including for ne — a field that isn't
// there is not "not equal to X", it's simply unmatched), matching the
// distilled spec's choice to keep missing-field semantics uniform across
// operators rather than special-casing negation.
func Eval(doc any, f Filter) (bool, error) {
	switch f.Op {
	case OpAnd:
		for _, sub := range f.Filters {
			ok, err := Eval(doc, sub)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
		}
		return true, nil
	case OpOr:
		for _, sub := range f.Filters {
			ok, err := Eval(doc, sub)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	case OpNot:
		if len(f.Filters) != 1 {
			return false, errs.NewInput("Eval", "not requires exactly one sub-filter")
		}
		ok, err := Eval(doc, f.Filters[0])
		if err != nil {
			return false, err
		}
		return !ok, nil
	case OpExists:
		_, ok := Extract(doc, f.Path)
		return ok, nil
	case OpIsNull:
		v, ok := Extract(doc, f.Path)
		return ok && v == nil, nil
	case OpEq, OpNe, OpGt, OpGte, OpLt, OpLte:
		actual, ok := Extract(doc, f.Path)
		if !ok {
			return false, nil
		}
		return evalComparison(f.Op, actual, f.Value)
	case OpStartsWith:
		actual, ok := Extract(doc, f.Path)
		if !ok {
			return false, nil
		}
		s, ok := actual.(string)
		if !ok {
			return false, nil
		}
		prefix, ok := f.Value.(string)
		if !ok {
			return false, errs.NewInput("Eval", "startsWith operand must be a string")
		}
		return strings.HasPrefix(s, prefix), nil
	case OpMatches:
		return evalMatches(doc, f)
	default:
		return false, errs.NewInput("Eval", "unsupported filter operator: "+string(f.Op))
	}
}

func evalMatches(doc any, f Filter) (bool, error) {
	actual, ok := Extract(doc, f.Path)
	if !ok {
		return false, nil
	}
	s, ok := actual.(string)
	if !ok {
		return false, nil
	}
	pattern, ok := f.Value.(string)
	if !ok {
		return false, errs.NewInput("Eval", "matches operand must be a string regex pattern")
	}
	if f.CaseInsensitive {
		pattern = "(?i)" + pattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return false, errs.NewInput("Eval", "invalid regex pattern: "+err.Error())
	}
	return re.MatchString(s), nil
}

func evalComparison(op Op, actual, expected any) (bool, error) {
	switch op {
	case OpEq:
		return reflect.DeepEqual(actual, expected), nil
	case OpNe:
		return !reflect.DeepEqual(actual, expected), nil
	case OpGt:
		return orderable(actual, expected) && compare(actual, expected) > 0, nil
	case OpGte:
		return orderable(actual, expected) && compare(actual, expected) >= 0, nil
	case OpLt:
		return orderable(actual, expected) && compare(actual, expected) < 0, nil
	case OpLte:
		return orderable(actual, expected) && compare(actual, expected) <= 0, nil
	}
	return false, errs.NewInput("Eval", "unsupported comparison operator: "+string(op))
}
