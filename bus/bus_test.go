package bus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vdbio/verdb/codec"
	"github.com/vdbio/verdb/version"
)

func TestPublishDeliversToSubscriber(t *testing.T) {
	b := New()
	var got []string
	b.Subscribe(func(key string, patch codec.Patch) bool {
		got = append(got, key)
		return true
	})
	b.Publish("a", codec.Patch{Version: version.Version{Major: 1, Minor: 1}})
	b.Publish("b", codec.Patch{Version: version.Version{Major: 1, Minor: 1}})
	assert.Equal(t, []string{"a", "b"}, got)
	assert.Equal(t, 1, b.Len())
}

func TestHandlerCanDeregisterItself(t *testing.T) {
	b := New()
	calls := 0
	b.Subscribe(func(key string, patch codec.Patch) bool {
		calls++
		return false
	})
	require.Equal(t, 1, b.Len())
	b.Publish("a", codec.Patch{})
	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, b.Len())
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	b := New()
	calls := 0
	id := b.Subscribe(func(key string, patch codec.Patch) bool {
		calls++
		return true
	})
	b.Unsubscribe(id)
	b.Publish("a", codec.Patch{})
	assert.Equal(t, 0, calls)
}

func TestUnsubscribeIsIdempotent(t *testing.T) {
	b := New()
	id := b.Subscribe(func(string, codec.Patch) bool { return true })
	b.Unsubscribe(id)
	assert.NotPanics(t, func() { b.Unsubscribe(id) })
}
