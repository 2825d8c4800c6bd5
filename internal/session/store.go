// Package session holds each sender's pending relay session. Reads go to the
// backing store; writes are routed through the write queue so request
// handlers never commit directly.
package session

import (
	"context"
	"errors"

	"github.com/tbourn/anonbot/internal/domain"
	"github.com/tbourn/anonbot/internal/repo"
)

// Enqueuer is the write side of the queue.
type Enqueuer interface {
	Enqueue(ctx context.Context, e domain.QueueEntity) error
}

// Store reads sessions from the store and writes them via the queue.
type Store struct {
	kv repo.Store
	q  Enqueuer
}

// NewStore returns a session store reading from kv and writing through q.
func NewStore(kv repo.Store, q Enqueuer) *Store {
	return &Store{kv: kv, q: q}
}

// Get returns the sender's session; ok is false when none exists.
func (s *Store) Get(ctx context.Context, senderID int64) (domain.RelaySession, bool, error) {
	var rs domain.RelaySession
	err := repo.GetJSON(ctx, s.kv, repo.K(domain.TableAnonMessages, senderID), &rs)
	if errors.Is(err, repo.ErrNotFound) {
		return domain.RelaySession{}, false, nil
	}
	if err != nil {
		return domain.RelaySession{}, false, err
	}
	return rs, true, nil
}

// Put supersedes any prior session for senderID.
func (s *Store) Put(ctx context.Context, senderID int64, rs domain.RelaySession) error {
	if err := rs.Validate(); err != nil {
		return err
	}
	return s.q.Enqueue(ctx, domain.NewSetEntity(domain.TableAnonMessages, senderID, rs))
}

// Delete removes the sender's session, if any.
func (s *Store) Delete(ctx context.Context, senderID int64) error {
	return s.q.Enqueue(ctx, domain.NewDeleteEntity(domain.TableAnonMessages, senderID))
}
