// Copyright 2025 Splunk Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package diff renders a human-readable unified diff between two document
// values, for the debug log line the commit engine emits alongside a merge
// patch it already computed structurally. It never drives commit decisions
// itself — codec.Diff does that — this is strictly for eyes reading a log.
package diff

import (
	"encoding/json"
	"strings"

	"github.com/pkg/errors"
	godiff "github.com/pmezard/go-difflib/difflib"
	"github.com/tidwall/pretty"
)

const (
	escGreen = "\x1b[32m"
	escRed   = "\x1b[31m"
	escReset = "\x1b[0m"
)

// Options are options for the diff. The zero-value is valid.
// Use a negative number for the context if you really want 0 context lines.
type Options struct {
	LeftName  string // name of left side
	RightName string // name of right side
	Context   int    // number of context lines in the diff, defaults to 3
	Colorize  bool   // added colors to the diff
}

// Strings diffs the left and right strings and returns
// the diff. A zero-length slice is returned when there are no diffs.
func Strings(left, right string, opts Options) ([]byte, error) {
	if opts.Context == 0 {
		opts.Context = 3
	}
	if opts.Context < 0 {
		opts.Context = 0
	}
	ud := godiff.UnifiedDiff{
		A:        godiff.SplitLines(left),
		B:        godiff.SplitLines(right),
		FromFile: opts.LeftName,
		ToFile:   opts.RightName,
		Context:  opts.Context,
	}
	s, err := godiff.GetUnifiedDiffString(ud)
	if err != nil {
		return nil, errors.Wrap(err, "diff error")
	}
	if opts.Colorize && len(s) > 0 {
		lines := godiff.SplitLines(s)
		var out []string
		for _, l := range lines {
			switch {
			case strings.HasPrefix(l, "-"):
				out = append(out, escRed+l+escReset)
			case strings.HasPrefix(l, "+"):
				out = append(out, escGreen+l+escReset)
			default:
				out = append(out, l)
			}
		}
		s = strings.Join(out, "")
	}
	return []byte(s), nil
}

// Values renders left and right — a document's value before and after a
// commit, typically — as indented JSON and returns their unified diff. A
// zero-length slice is returned when there are no diffs. nil is rendered as
// an empty document rather than the literal text "null", so a create or
// remove reads as a diff against nothing instead of against a null value.
func Values(left, right any, opts Options) ([]byte, error) {
	asJSON := func(v any) ([]byte, error) {
		if v == nil {
			return []byte{}, nil
		}
		b, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		return pretty.Pretty(b), nil
	}
	l, err := asJSON(left)
	if err != nil {
		return nil, errors.Wrap(err, "marshal left")
	}
	r, err := asJSON(right)
	if err != nil {
		return nil, errors.Wrap(err, "marshal right")
	}
	return Strings(string(l), string(r), opts)
}
