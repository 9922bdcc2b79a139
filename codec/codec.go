// Package codec serializes and parses the persisted document envelope and
// computes the JSON patch between two document values. It knows nothing
// about versions being compared or CAS semantics — that lives in commit —
// only how an envelope is shaped on the wire and how a diff is produced.
package codec

import (
	"encoding/json"

	jsonpatch "github.com/evanphx/json-patch/v5"
	"github.com/pkg/errors"
	"github.com/tidwall/pretty"

	"github.com/vdbio/verdb/version"
)

// NumPatchesToKeep is the maximum number of patches retained in an
// envelope's history. Older patches are dropped with no reconstruction
// path; this is a protocol-level constant, not a runtime option.
const NumPatchesToKeep = 20

// rootField is the synthetic wrapper key patches are diffed under, so that
// a transition to or from an absent value is an ordinary merge-patch
// add ({"root":...}) or removal ({"root":null}) of one field rather than a
// special case.
const rootField = "root"

// Patch is one versioned entry in a key's history: the version it produced
// and the operation that got there, plus any caller-supplied metadata (e.g.
// an actor id) threaded through from SetIfVersion's options.
//
// Ops is an RFC 7396 JSON Merge Patch document (computed with
// evanphx/json-patch's CreateMergePatch, the same primitive rancher-fleet's
// deployer and kubectl's own apply machinery use to diff a live object
// against a desired one) rooted under the synthetic "root" field: a create
// looks like {"root":{...}}, a remove looks like {"root":null}, and a
// field-level edit looks like {"root":{"changedField":...}}. The module
// never replays Ops to reconstruct a value — Envelope.Value always holds
// the full next value directly — so Ops exists purely as a subscriber- and
// audit-facing record of what changed.
type Patch struct {
	Version  version.Version `json:"version"`
	Ops      json.RawMessage `json:"ops"`
	Metadata map[string]any  `json:"metadata,omitempty"`
}

// Envelope is the full persisted record for one key. Value is nil (and
// omitted from the wire form) for a tombstone; Present distinguishes a
// tombstone ({} with no value) from a live document whose value happens to
// be the JSON zero value, and is never itself serialized.
type Envelope struct {
	Version   version.Version `json:"version"`
	Value     any             `json:"value,omitempty"`
	Present   bool            `json:"-"`
	Patches   []Patch         `json:"patches,omitempty"`
	UpdatedAt int64           `json:"updatedAt"`
}

// wireEnvelope is the JSON shape of Envelope: Value is a *json.RawMessage
// under the hood so we can tell "key absent" (tombstone) apart from
// "key present with JSON null" during Decode, which encoding/json's normal
// zero-value handling cannot do for an `any` field.
type wireEnvelope struct {
	Version   version.Version  `json:"version"`
	Value     *json.RawMessage `json:"value,omitempty"`
	Patches   []Patch          `json:"patches,omitempty"`
	UpdatedAt int64            `json:"updatedAt"`
}

// Encode canonicalizes env to its on-disk bytes: encoding/json already
// marshals struct fields in a fixed declaration order, so the only
// remaining non-determinism is incidental whitespace, which pretty.Ugly
// strips.
func Encode(env Envelope) ([]byte, error) {
	w := wireEnvelope{Version: env.Version, Patches: env.Patches, UpdatedAt: env.UpdatedAt}
	if env.Present {
		raw, err := json.Marshal(env.Value)
		if err != nil {
			return nil, errors.Wrap(err, "marshal envelope value")
		}
		msg := json.RawMessage(raw)
		w.Value = &msg
	}
	b, err := json.Marshal(w)
	if err != nil {
		return nil, errors.Wrap(err, "marshal envelope")
	}
	return pretty.Ugly(b), nil
}

// Decode parses a stored envelope. Callers treat an error here as storage
// corruption (the distilled spec's CorruptionError), not a user-facing
// validation failure.
func Decode(data []byte) (Envelope, error) {
	var w wireEnvelope
	if err := json.Unmarshal(data, &w); err != nil {
		return Envelope{}, errors.Wrap(err, "unmarshal envelope")
	}
	env := Envelope{Version: w.Version, Patches: w.Patches, UpdatedAt: w.UpdatedAt}
	if w.Value != nil {
		var v any
		if err := json.Unmarshal(*w.Value, &v); err != nil {
			return Envelope{}, errors.Wrap(err, "unmarshal envelope value")
		}
		env.Value = v
		env.Present = true
	}
	return env, nil
}

// emptyMergePatch is what CreateMergePatch returns for two structurally
// equal documents: an empty JSON object.
const emptyMergePatch = "{}"

// Diff computes the merge-patch operations taking the previous value (or
// absence, when prevPresent is false) to the next value (or absence). It
// returns a nil slice iff the two sides are structurally equal, which
// callers use to silently discard a no-op write.
func Diff(prev any, prevPresent bool, next any, nextPresent bool) (json.RawMessage, error) {
	prevWrapped := map[string]any{}
	if prevPresent {
		prevWrapped[rootField] = prev
	}
	nextWrapped := map[string]any{}
	if nextPresent {
		nextWrapped[rootField] = next
	}

	prevJSON, err := json.Marshal(prevWrapped)
	if err != nil {
		return nil, errors.Wrap(err, "marshal previous value")
	}
	nextJSON, err := json.Marshal(nextWrapped)
	if err != nil {
		return nil, errors.Wrap(err, "marshal next value")
	}

	ops, err := jsonpatch.CreateMergePatch(prevJSON, nextJSON)
	if err != nil {
		return nil, errors.Wrap(err, "compute merge patch")
	}
	if len(ops) == 0 || string(pretty.Ugly(ops)) == emptyMergePatch {
		return nil, nil
	}
	return ops, nil
}
