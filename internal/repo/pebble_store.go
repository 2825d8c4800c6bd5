// Package repo – Pebble engine
//
// This file implements Store on an embedded cockroachdb/pebble database.
// Prefix scans map directly onto bounded iterators.
package repo

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"

	pebble "github.com/cockroachdb/pebble"
)

// PebbleStore is a Store backed by an embedded Pebble LSM. Read-modify-write
// operations (SetNX, Increment, Atomic) are serialized by a process-local
// mutex; the database directory must not be shared between processes.
type PebbleStore struct {
	db *pebble.DB
	mu sync.Mutex
}

// OpenPebble opens (or creates) a Pebble database at path.
func OpenPebble(path string) (*PebbleStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, err
	}
	return &PebbleStore{db: db}, nil
}

// Get returns the value at k or ErrNotFound.
func (s *PebbleStore) Get(ctx context.Context, k Key) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ek, err := k.Encode()
	if err != nil {
		return nil, err
	}
	return pebbleGet(s.db, []byte(ek))
}

// Set writes v at k with a synced commit.
func (s *PebbleStore) Set(ctx context.Context, k Key, v []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ek, err := k.Encode()
	if err != nil {
		return err
	}
	return s.db.Set([]byte(ek), v, pebble.Sync)
}

// Delete removes k. Deleting a missing key is not an error.
func (s *PebbleStore) Delete(ctx context.Context, k Key) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ek, err := k.Encode()
	if err != nil {
		return err
	}
	return s.db.Delete([]byte(ek), pebble.Sync)
}

// SetNX writes v at k only if k is absent and reports whether it did.
func (s *PebbleStore) SetNX(ctx context.Context, k Key, v []byte) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	ek, err := k.Encode()
	if err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := pebbleGet(s.db, []byte(ek)); err == nil {
		return false, nil
	} else if !errors.Is(err, ErrNotFound) {
		return false, err
	}
	if err := s.db.Set([]byte(ek), v, pebble.Sync); err != nil {
		return false, err
	}
	return true, nil
}

// Increment adds delta (which may be negative) to the counter at k and
// returns the new value.
func (s *PebbleStore) Increment(ctx context.Context, k Key, delta int64) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.db.NewIndexedBatch()
	defer b.Close()
	n, err := pebbleIncrement(b, k, delta)
	if err != nil {
		return 0, err
	}
	return n, b.Commit(pebble.Sync)
}

// Counter returns the counter at k, zero when absent.
func (s *PebbleStore) Counter(ctx context.Context, k Key) (int64, error) {
	v, err := s.Get(ctx, k)
	if errors.Is(err, ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return parseCounter(v)
}

// Scan returns up to limit entries strictly under prefix in key order. A
// limit of zero or less means no limit.
func (s *PebbleStore) Scan(ctx context.Context, prefix Key, limit int) ([]Entry, error) {
	p, err := prefix.Prefix()
	if err != nil {
		return nil, err
	}
	opts := &pebble.IterOptions{}
	if p != "" {
		opts.LowerBound = []byte(p)
		opts.UpperBound = []byte(prefixEnd(p))
	}
	it, err := s.db.NewIter(opts)
	if err != nil {
		return nil, err
	}
	defer it.Close()

	var out []Entry
	for ok := it.First(); ok; ok = it.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		v := it.Value()
		vb := make([]byte, len(v))
		copy(vb, v)
		out = append(out, Entry{Key: string(it.Key()), Value: vb})
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, it.Error()
}

// Atomic applies fn's writes through one indexed batch committed with Sync.
func (s *PebbleStore) Atomic(ctx context.Context, fn func(Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.db.NewIndexedBatch()
	defer b.Close()
	if err := fn(pebbleTx{b: b}); err != nil {
		return err
	}
	return b.Commit(pebble.Sync)
}

// Close flushes and closes the database.
func (s *PebbleStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

type pebbleTx struct{ b *pebble.Batch }

func (t pebbleTx) Set(k Key, v []byte) error {
	ek, err := k.Encode()
	if err != nil {
		return err
	}
	return t.b.Set([]byte(ek), v, nil)
}

func (t pebbleTx) SetNX(k Key, v []byte) (bool, error) {
	ek, err := k.Encode()
	if err != nil {
		return false, err
	}
	if _, err := pebbleGet(t.b, []byte(ek)); err == nil {
		return false, nil
	} else if !errors.Is(err, ErrNotFound) {
		return false, err
	}
	return true, t.b.Set([]byte(ek), v, nil)
}

func (t pebbleTx) Delete(k Key) error {
	ek, err := k.Encode()
	if err != nil {
		return err
	}
	return t.b.Delete([]byte(ek), nil)
}

func (t pebbleTx) Increment(k Key, delta int64) error {
	_, err := pebbleIncrement(t.b, k, delta)
	return err
}

// pebbleIncrement reads the counter through the batch, so increments earlier
// in the same Atomic block are seen, and writes the sum back.
func pebbleIncrement(b *pebble.Batch, k Key, delta int64) (int64, error) {
	ek, err := k.Encode()
	if err != nil {
		return 0, err
	}
	cur, err := pebbleGet(b, []byte(ek))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return 0, err
	}
	n, err := parseCounter(cur)
	if err != nil {
		return 0, err
	}
	n += delta
	return n, b.Set([]byte(ek), formatCounter(n), nil)
}

// pebbleGet copies the value out before the closer releases it.
func pebbleGet(r pebble.Reader, key []byte) ([]byte, error) {
	v, closer, err := r.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	defer closer.Close()
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}
