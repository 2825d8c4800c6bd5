// Package repo – SQLite engine
//
// This file implements Store on a single GORM table of key, blob value and
// integer counter. Upserts use ON CONFLICT; increments are done in SQL.
package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/anonbot/internal/domain"
)

// SQLiteStore is a Store backed by the kv_entries table.
type SQLiteStore struct {
	db *gorm.DB
}

// NewSQLiteStore wraps an opened and migrated GORM handle.
func NewSQLiteStore(db *gorm.DB) *SQLiteStore { return &SQLiteStore{db: db} }

// DB exposes the underlying handle (health checks, plugins).
func (s *SQLiteStore) DB() *gorm.DB { return s.db }

// Get returns the value at k or ErrNotFound. Counter rows read as decimal
// text.
func (s *SQLiteStore) Get(ctx context.Context, k Key) ([]byte, error) {
	ek, err := k.Encode()
	if err != nil {
		return nil, err
	}
	var row domain.KVEntry
	err = s.db.WithContext(ctx).Where("key = ?", ek).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return rowValue(row), nil
}

// Set upserts v at k, clearing any counter stored there.
func (s *SQLiteStore) Set(ctx context.Context, k Key, v []byte) error {
	return sqliteSet(s.db.WithContext(ctx), k, v)
}

// Delete removes k. Deleting a missing key is not an error.
func (s *SQLiteStore) Delete(ctx context.Context, k Key) error {
	return sqliteDelete(s.db.WithContext(ctx), k)
}

// SetNX inserts k only if absent.
func (s *SQLiteStore) SetNX(ctx context.Context, k Key, v []byte) (bool, error) {
	return sqliteSetNX(s.db.WithContext(ctx), k, v)
}

// Increment adds delta to the counter at k and returns the new value.
func (s *SQLiteStore) Increment(ctx context.Context, k Key, delta int64) (int64, error) {
	var out int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := sqliteIncrement(tx, k, delta); err != nil {
			return err
		}
		ek, _ := k.Encode()
		var row domain.KVEntry
		if err := tx.Select("num").Where("key = ?", ek).Take(&row).Error; err != nil {
			return err
		}
		out = row.Num
		return nil
	})
	return out, err
}

// Counter returns the counter at k, zero when absent.
func (s *SQLiteStore) Counter(ctx context.Context, k Key) (int64, error) {
	ek, err := k.Encode()
	if err != nil {
		return 0, err
	}
	var row domain.KVEntry
	err = s.db.WithContext(ctx).Select("num").Where("key = ?", ek).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	return row.Num, err
}

// Scan lists entries strictly under prefix in key order. limit <= 0 means all.
func (s *SQLiteStore) Scan(ctx context.Context, prefix Key, limit int) ([]Entry, error) {
	p, err := prefix.Prefix()
	if err != nil {
		return nil, err
	}
	q := s.db.WithContext(ctx).Model(&domain.KVEntry{}).Order("key ASC")
	if p != "" {
		// Range query instead of LIKE: escaped keys may contain '%'.
		q = q.Where("key >= ? AND key < ?", p, prefixEnd(p))
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	var rows []domain.KVEntry
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(rows))
	for _, r := range rows {
		out = append(out, Entry{Key: r.Key, Value: rowValue(r)})
	}
	return out, nil
}

// Atomic runs fn inside a single database transaction.
func (s *SQLiteStore) Atomic(ctx context.Context, fn func(Tx) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(sqliteTx{db: tx})
	})
}

// Close closes the underlying connection pool.
func (s *SQLiteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

type sqliteTx struct{ db *gorm.DB }

func (t sqliteTx) Set(k Key, v []byte) error           { return sqliteSet(t.db, k, v) }
func (t sqliteTx) SetNX(k Key, v []byte) (bool, error) { return sqliteSetNX(t.db, k, v) }
func (t sqliteTx) Delete(k Key) error                  { return sqliteDelete(t.db, k) }
func (t sqliteTx) Increment(k Key, delta int64) error  { return sqliteIncrement(t.db, k, delta) }

func sqliteSet(db *gorm.DB, k Key, v []byte) error {
	ek, err := k.Encode()
	if err != nil {
		return err
	}
	if v == nil {
		v = []byte{}
	}
	row := &domain.KVEntry{Key: ek, Value: v, Num: 0, UpdatedAt: time.Now().UTC()}
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "num", "updated_at"}),
	}).Create(row).Error
}

// sqliteSetNX relies on ON CONFLICT DO NOTHING leaving RowsAffected at zero.
func sqliteSetNX(db *gorm.DB, k Key, v []byte) (bool, error) {
	ek, err := k.Encode()
	if err != nil {
		return false, err
	}
	if v == nil {
		v = []byte{}
	}
	row := &domain.KVEntry{Key: ek, Value: v, UpdatedAt: time.Now().UTC()}
	res := db.Clauses(clause.OnConflict{DoNothing: true}).Create(row)
	if res.Error != nil {
		if isUniqueViolation(res.Error) {
			return false, nil
		}
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func sqliteDelete(db *gorm.DB, k Key) error {
	ek, err := k.Encode()
	if err != nil {
		return err
	}
	return db.Where("key = ?", ek).Delete(&domain.KVEntry{}).Error
}

// sqliteIncrement inserts delta for a new key and adds it in SQL for an
// existing one, so concurrent callers never lose an update.
func sqliteIncrement(db *gorm.DB, k Key, delta int64) error {
	ek, err := k.Encode()
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	row := &domain.KVEntry{Key: ek, Num: delta, UpdatedAt: now}
	return db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "key"}},
		DoUpdates: clause.Assignments(map[string]any{
			"num":        gorm.Expr("num + ?", delta),
			"updated_at": now,
		}),
	}).Create(row).Error
}

// rowValue renders counter rows (no blob) as decimal text.
func rowValue(r domain.KVEntry) []byte {
	if r.Value == nil {
		return formatCounter(r.Num)
	}
	return r.Value
}

// prefixEnd returns the smallest string greater than every string starting
// with p. p always ends with the separator, so bumping its last byte works.
func prefixEnd(p string) string {
	b := []byte(p)
	b[len(b)-1]++
	return string(b)
}

// glebarez/sqlite often returns plain-text errors for UNIQUE violations.
func isUniqueViolation(err error) bool {
	low := strings.ToLower(err.Error())
	return errors.Is(err, gorm.ErrDuplicatedKey) ||
		strings.Contains(low, "unique constraint failed") ||
		strings.Contains(low, "constraint failed: unique")
}
