package poll

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vdbio/verdb/bus"
	"github.com/vdbio/verdb/commit"
	"github.com/vdbio/verdb/kv/memkv"
	"github.com/vdbio/verdb/version"
)

func newTestEngine(t *testing.T) (*commit.Engine, *bus.Bus) {
	t.Helper()
	b := bus.New()
	e := commit.New(memkv.New(), b, commit.Options{Clock: clockwork.NewFakeClock()})
	return e, b
}

func TestPollResolvesImmediatelyWhenAlreadyChanged(t *testing.T) {
	ctx := context.Background()
	e, b := newTestEngine(t)

	_, err := e.Create(ctx, "doc", map[string]any{"n": float64(1)}, nil)
	require.NoError(t, err)

	res, err := Poll(ctx, e, b, []KeyVersion{{Key: "doc", Version: version.Zero, Present: false}}, Options{Clock: clockwork.NewFakeClock()})
	require.NoError(t, err)
	assert.Equal(t, Resolved, res.Outcome)
	require.Len(t, res.Changes, 1)
	assert.True(t, res.Changes[0].CurrentPresent)
}

func TestPollWakesOnConcurrentCommit(t *testing.T) {
	ctx := context.Background()
	e, b := newTestEngine(t)

	created, err := e.Create(ctx, "doc", map[string]any{"n": float64(1)}, nil)
	require.NoError(t, err)

	done := make(chan Result, 1)
	go func() {
		res, err := Poll(ctx, e, b, []KeyVersion{{Key: "doc", Version: created.Version, Present: true}}, Options{Clock: clockwork.NewRealClock(), ReadBlockTime: 5 * time.Second})
		require.NoError(t, err)
		done <- res
	}()

	// give the goroutine a chance to subscribe before the commit lands.
	time.Sleep(20 * time.Millisecond)
	_, err = e.SetIfVersion(ctx, "doc", created.Version, true, map[string]any{"n": float64(2)}, true, nil)
	require.NoError(t, err)

	select {
	case res := <-done:
		assert.Equal(t, Resolved, res.Outcome)
		require.Len(t, res.Changes, 1)
		assert.NotEqual(t, created.Version, res.Changes[0].CurrentVersion)
	case <-time.After(2 * time.Second):
		t.Fatal("poll did not wake on commit")
	}
}

func TestPollTimesOut(t *testing.T) {
	ctx := context.Background()
	e, b := newTestEngine(t)

	clock := clockwork.NewFakeClock()
	done := make(chan Result, 1)
	go func() {
		res, err := Poll(ctx, e, b, []KeyVersion{{Key: "doc", Version: version.Zero, Present: false}}, Options{Clock: clock, ReadBlockTime: time.Second})
		require.NoError(t, err)
		done <- res
	}()

	clock.BlockUntil(1)
	clock.Advance(time.Second)

	select {
	case res := <-done:
		assert.Equal(t, TimedOut, res.Outcome)
		assert.Empty(t, res.Changes)
	case <-time.After(2 * time.Second):
		t.Fatal("poll did not time out")
	}
}

func TestPollRespectsContextCancellation(t *testing.T) {
	e, b := newTestEngine(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		_, err := Poll(ctx, e, b, []KeyVersion{{Key: "doc", Version: version.Zero, Present: false}}, Options{Clock: clockwork.NewRealClock(), ReadBlockTime: 5 * time.Second})
		done <- err
	}()

	cancel()
	select {
	case err := <-done:
		assert.Error(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("poll did not observe cancellation")
	}
}
