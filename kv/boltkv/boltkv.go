// Package boltkv adapts go.etcd.io/bbolt to the kv.Store contract. bbolt
// already walks a bucket's keys in ascending byte order, which is exactly
// the ordering this database's full scans depend on, and its single-writer
// transaction model gives the per-key atomicity kv.Store requires without
// any adapter-side locking.
package boltkv

import (
	"context"

	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"

	"github.com/vdbio/verdb/kv"
)

var bucketName = []byte("verdb")

// Store is a kv.Store backed by a single bbolt bucket in one bbolt.DB file.
type Store struct {
	db *bolt.DB
}

// Open opens (creating if necessary) a bbolt file at path and returns a
// Store backed by it. The caller is responsible for calling Close.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, errors.Wrap(err, "open bbolt database")
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "create bucket")
	}
	return &Store{db: db}, nil
}

// Close releases the underlying bbolt file handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	var out []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketName).Get([]byte(key))
		if v == nil {
			return kv.ErrNotFound
		}
		out = make([]byte, len(v))
		copy(out, v)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) Put(_ context.Context, key string, value []byte) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketName).Put([]byte(key), value)
	})
	if err != nil {
		return errors.Wrap(err, "bbolt put")
	}
	return nil
}

// Iterate snapshots the bucket under a read transaction and hands back a
// cursor over the copy, so the transaction does not stay open for the
// caller's entire scan.
func (s *Store) Iterate(_ context.Context) (kv.Iterator, error) {
	var keys []string
	var values [][]byte
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketName)
		return b.ForEach(func(k, v []byte) error {
			keyCopy := make([]byte, len(k))
			copy(keyCopy, k)
			valCopy := make([]byte, len(v))
			copy(valCopy, v)
			keys = append(keys, string(keyCopy))
			values = append(values, valCopy)
			return nil
		})
	})
	if err != nil {
		return nil, errors.Wrap(err, "bbolt scan")
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
