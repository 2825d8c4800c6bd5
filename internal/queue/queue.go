// Package queue implements the durable write queue: an ordered,
// single-consumer channel of set/delete intents persisted in the backing
// store and applied one at a time by a background worker.
//
// Entities are stored under QUEUE/<seq> where seq comes from an atomic
// counter, so a prefix scan yields them in enqueue order. The worker applies
// an entity and only then removes it; a crash between the two re-applies the
// entity on restart, which is safe because set and delete are idempotent.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tbourn/anonbot/internal/domain"
	"github.com/tbourn/anonbot/internal/repo"
)

// ErrQueueClosed is returned by Enqueue after Close.
var ErrQueueClosed = errors.New("queue closed")

const (
	defaultPollInterval = 500 * time.Millisecond
	drainBatch          = 100
)

var seqKey = repo.K("QUEUE_SEQ")

// Queue is the durable write queue.
type Queue struct {
	store repo.Store
	poll  time.Duration

	// mu keeps sequence allocation and the entity write together so the
	// worker never observes seq N+1 before seq N.
	mu     sync.Mutex
	closed bool
	notify chan struct{}
}

// Option configures a Queue.
type Option func(*Queue)

// WithPollInterval sets how often the worker rescans the queue when no
// enqueue notification arrives.
func WithPollInterval(d time.Duration) Option {
	return func(q *Queue) {
		if d > 0 {
			q.poll = d
		}
	}
}

// New creates a queue persisted in store.
func New(store repo.Store, opts ...Option) *Queue {
	q := &Queue{
		store:  store,
		poll:   defaultPollInterval,
		notify: make(chan struct{}, 1),
	}
	for _, o := range opts {
		o(q)
	}
	return q
}

// Enqueue persists e and wakes the worker. It returns once e is durable, not
// once it is applied.
func (q *Queue) Enqueue(ctx context.Context, e domain.QueueEntity) error {
	if err := e.Validate(); err != nil {
		return err
	}
	b, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode entity: %w", err)
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrQueueClosed
	}
	seq, err := q.store.Increment(ctx, seqKey, 1)
	if err != nil {
		return fmt.Errorf("allocate seq: %w", err)
	}
	if err := q.store.Set(ctx, repo.K(domain.TableQueue, seq), b); err != nil {
		return fmt.Errorf("persist entity: %w", err)
	}
	enqueuedTotal.Inc()
	pendingGauge.Inc()

	select {
	case q.notify <- struct{}{}:
	default:
	}
	return nil
}

// Close rejects further enqueues. The worker keeps running until its context
// is cancelled.
func (q *Queue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
}

// Run is the single consumer. It drains on start, on every enqueue
// notification, and on every poll tick, and returns when ctx is done.
func (q *Queue) Run(ctx context.Context) error {
	t := time.NewTicker(q.poll)
	defer t.Stop()
	for {
		if _, err := q.Drain(ctx); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("queue_drain_failed")
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-q.notify:
		case <-t.C:
		}
	}
}

// Drain applies pending entities in order until the queue is empty or an
// apply fails. A failed entity stays at the head and is retried on the next
// drain. It returns the number of entities consumed (applied or dropped).
func (q *Queue) Drain(ctx context.Context) (int, error) {
	done := 0
	for {
		entries, err := q.store.Scan(ctx, repo.K(domain.TableQueue), drainBatch)
		if err != nil {
			return done, fmt.Errorf("scan queue: %w", err)
		}
		if len(entries) == 0 {
			pendingGauge.Set(0)
			return done, nil
		}
		for _, ent := range entries {
			if err := q.consume(ctx, ent); err != nil {
				return done, err
			}
			done++
			pendingGauge.Dec()
		}
	}
}

// consume applies one stored entity and then deletes it. Entities that can
// never apply are dropped; a transient error leaves the entity in place.
func (q *Queue) consume(ctx context.Context, ent repo.Entry) error {
	key, err := repo.DecodeKey(ent.Key)
	if err != nil {
		return fmt.Errorf("decode queue key %q: %w", ent.Key, err)
	}

	var e domain.QueueEntity
	if err := json.Unmarshal(ent.Value, &e); err != nil {
		log.Error().Err(err).Str("key", key.String()).Msg("queue_entity_undecodable")
		droppedTotal.Inc()
		return q.store.Delete(ctx, key)
	}

	if err := Apply(ctx, q.store, e); err != nil {
		if errors.Is(err, errUnknownOp) || errors.Is(err, domain.ErrInvalidEntity) {
			log.Error().Err(err).Str("key", key.String()).Str("op", string(e.Op)).Msg("queue_entity_dropped")
			droppedTotal.Inc()
			return q.store.Delete(ctx, key)
		}
		log.Warn().Err(err).Str("key", key.String()).Msg("queue_apply_failed")
		return err
	}
	appliedTotal.WithLabelValues(string(e.Op)).Inc()
	return q.store.Delete(ctx, key)
}

var errUnknownOp = errors.New("unknown queue operation")

// Apply writes e to store under (e.Table, e.Key). Applying the same entity
// twice leaves the store unchanged.
func Apply(ctx context.Context, store repo.Store, e domain.QueueEntity) error {
	if err := e.Validate(); err != nil {
		return err
	}
	k := repo.K(e.Table, e.Key)
	switch e.Op {
	case domain.OpSet:
		return repo.SetJSON(ctx, store, k, e.Value)
	case domain.OpDelete:
		return store.Delete(ctx, k)
	default:
		return fmt.Errorf("%w: %q", errUnknownOp, e.Op)
	}
}
