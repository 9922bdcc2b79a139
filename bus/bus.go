// Package bus implements the in-process publish/subscribe fan-out of
// (key, patch) commit events. It is deliberately simple: one event kind, a
// registry of callbacks keyed by subscription id, synchronous delivery —
// there is no dynamic event-name dispatch to get wrong.
package bus

import (
	"sync"

	"github.com/vdbio/verdb/codec"
)

// Handler is invoked once per published (key, patch) pair, for every
// subscription currently registered when Publish runs. It returns whether
// the subscription should remain registered; returning false deregisters it
// as part of the same Publish call. Handlers must not call Publish,
// Subscribe, or Unsubscribe on the same Bus — delivery happens synchronously
// while Publish holds the bus lock, and the commit path that calls Publish
// is itself holding the write mutex, so re-entering it would deadlock.
type Handler func(key string, patch codec.Patch) (keep bool)

// Bus is a registry of Handlers. The zero value is not usable; construct
// with New.
type Bus struct {
	mu      sync.Mutex
	nextID  int
	handler map[int]Handler
}

// New returns an empty Bus.
func New() *Bus {
	return &Bus{handler: map[int]Handler{}}
}

// Subscribe registers h and returns an id that can later be passed to
// Unsubscribe. h may also deregister itself by returning false.
func (b *Bus) Subscribe(h Handler) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.handler[id] = h
	return id
}

// Unsubscribe removes the subscription with the given id, if still
// registered. It is safe to call more than once.
func (b *Bus) Unsubscribe(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.handler, id)
}

// Publish delivers (key, patch) to every currently registered handler, in
// an unspecified but stable-for-this-call order. It must be called by the
// commit path after a successful write and before that commit's caller
// observes the result, and never for two different keys concurrently with
// itself (the commit mutex already guarantees this) — same-key events are
// therefore always delivered in commit order.
func (b *Bus) Publish(key string, patch codec.Patch) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, h := range b.handler {
		if !h(key, patch) {
			delete(b.handler, id)
		}
	}
}

// Len reports the number of currently registered subscriptions. Intended
// for tests and diagnostics.
func (b *Bus) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.handler)
}
