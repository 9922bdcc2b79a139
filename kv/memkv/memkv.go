// Package memkv is an in-memory kv.Store, used for tests and for embedding
// this database without a backing disk. It keeps values in a plain map and
// produces ascending-order snapshots on demand, mirroring the locking
// discipline of the teacher's resource-client cache (internal/remote's
// clientPoolImpl): a single RWMutex guards the map, readers take RLock and
// writers take Lock.
package memkv

import (
	"context"
	"sort"
	"sync"

	"github.com/vdbio/verdb/kv"
)

// Store is a thread-safe, unordered-backing-store kv.Store that presents an
// ascending-key view to iterators.
type Store struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// New returns an empty Store.
func New() *Store {
	return &Store{data: map[string][]byte{}}
}

func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	if !ok {
		return nil, kv.ErrNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (s *Store) Put(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]byte, len(value))
	copy(cp, value)
	s.data[key] = cp
	return nil
}

func (s *Store) Iterate(_ context.Context) (kv.Iterator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	values := make([][]byte, len(keys))
	for i, k := range keys {
		values[i] = s.data[k]
	}
	return &iterator{keys: keys, values: values, pos: -1}, nil
}

type iterator struct {
	keys   []string
	values [][]byte
	pos    int
}

func (it *iterator) Next() bool {
	it.pos++
	return it.pos < len(it.keys)
}

func (it *iterator) Key() string   { return it.keys[it.pos] }
func (it *iterator) Value() []byte { return it.values[it.pos] }
func (it *iterator) Err() error    { return nil }
func (it *iterator) Close() error  { return nil }
