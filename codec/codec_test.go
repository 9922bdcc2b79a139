package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vdbio/verdb/version"
)

func TestEncodeDecodeRoundTripLive(t *testing.T) {
	env := Envelope{
		Version:   version.Version{Major: 10, Minor: 2},
		Value:     map[string]any{"n": float64(1)},
		Present:   true,
		UpdatedAt: 1234,
	}
	b, err := Encode(env)
	require.NoError(t, err)

	got, err := Decode(b)
	require.NoError(t, err)
	assert.Equal(t, env.Version, got.Version)
	assert.True(t, got.Present)
	assert.Equal(t, map[string]any{"n": float64(1)}, got.Value)
}

func TestEncodeDecodeRoundTripTombstone(t *testing.T) {
	env := Envelope{Version: version.Version{Major: 10, Minor: 3}, Present: false, UpdatedAt: 99}
	b, err := Encode(env)
	require.NoError(t, err)

	got, err := Decode(b)
	require.NoError(t, err)
	assert.False(t, got.Present)
	assert.Nil(t, got.Value)
}

func TestDecodeCorrupt(t *testing.T) {
	_, err := Decode([]byte("not json"))
	require.Error(t, err)
}

func TestDiffEmptyForEqualValues(t *testing.T) {
	ops, err := Diff(map[string]any{"n": float64(1)}, true, map[string]any{"n": float64(1)}, true)
	require.NoError(t, err)
	assert.Empty(t, ops)
}

func TestDiffCreate(t *testing.T) {
	ops, err := Diff(nil, false, map[string]any{"n": float64(1)}, true)
	require.NoError(t, err)
	assert.NotEmpty(t, ops)
}

func TestDiffRemove(t *testing.T) {
	ops, err := Diff(map[string]any{"n": float64(1)}, true, nil, false)
	require.NoError(t, err)
	assert.NotEmpty(t, ops)
}

func TestDiffChange(t *testing.T) {
	ops, err := Diff(map[string]any{"n": float64(1)}, true, map[string]any{"n": float64(2)}, true)
	require.NoError(t, err)
	assert.NotEmpty(t, ops)
}
