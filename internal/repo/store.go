// Package repo implements the persistence layer of the bot: a small
// key-value store abstraction over composite keys with two engines, SQLite
// (through GORM) and Pebble.
//
// The contract every engine honours:
//   - Get returns ErrNotFound for absent keys.
//   - Set and Delete are idempotent.
//   - SetNX writes only when the key is absent and reports whether it did.
//   - Increment is atomic and accepts negative deltas.
//   - Scan returns entries under a prefix in key order.
//   - Atomic runs a group of writes as one commit.
package repo

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
)

// ErrNotFound is returned when a key has no value.
var ErrNotFound = errors.New("not found")

// Entry is a raw key/value pair returned by Scan. Counter values are rendered
// as decimal text.
type Entry struct {
	Key   string
	Value []byte
}

// Tx is the write set available inside Atomic.
type Tx interface {
	Set(k Key, v []byte) error
	// SetNX writes v only if k is absent and reports whether it did.
	SetNX(k Key, v []byte) (bool, error)
	Delete(k Key) error
	Increment(k Key, delta int64) error
}

// Store is the backing store used by the queue, session, and stats layers.
// Both engines satisfy the same contract, exercised by one shared test table.
type Store interface {
	// Get returns the value at k, or ErrNotFound.
	Get(ctx context.Context, k Key) ([]byte, error)
	// Set overwrites k.
	Set(ctx context.Context, k Key, v []byte) error
	// Delete removes k; a missing key is not an error, so deletes are
	// idempotent.
	Delete(ctx context.Context, k Key) error
	// SetNX writes k only if absent and reports whether it wrote.
	SetNX(ctx context.Context, k Key, v []byte) (bool, error)
	// Increment adds delta, which may be negative, and returns the new value.
	// A missing counter starts at zero.
	Increment(ctx context.Context, k Key, delta int64) (int64, error)
	// Counter reads a counter without changing it.
	Counter(ctx context.Context, k Key) (int64, error)
	// Scan lists entries strictly under prefix in key order, at most limit
	// of them when limit > 0.
	Scan(ctx context.Context, prefix Key, limit int) ([]Entry, error)
	// Atomic commits every write made through the Tx, or none if fn fails.
	Atomic(ctx context.Context, fn func(Tx) error) error
	Close() error
}

// GetJSON loads k and decodes it into out.
func GetJSON(ctx context.Context, s Store, k Key, out any) error {
	b, err := s.Get(ctx, k)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, out)
}

// SetJSON encodes v and stores it under k.
func SetJSON(ctx context.Context, s Store, k Key, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.Set(ctx, k, b)
}

// SetJSONTx is SetJSON inside an Atomic block.
func SetJSONTx(tx Tx, k Key, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return tx.Set(k, b)
}

// SetJSONNXTx is SetJSONTx that leaves an existing value alone.
func SetJSONNXTx(tx Tx, k Key, v any) (bool, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return false, err
	}
	return tx.SetNX(k, b)
}

func formatCounter(n int64) []byte { return []byte(strconv.FormatInt(n, 10)) }

// parseCounter treats a missing value as zero.
func parseCounter(b []byte) (int64, error) {
	if len(b) == 0 {
		return 0, nil
	}
	return strconv.ParseInt(string(b), 10, 64)
}
