package session

import (
	"context"
	"errors"
	"fmt"
	"testing"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/anonbot/internal/domain"
	"github.com/tbourn/anonbot/internal/queue"
	"github.com/tbourn/anonbot/internal/repo"
)

func newKV(t *testing.T) repo.Store {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(1)
	}
	return repo.NewSQLiteStore(db)
}

type recordingQueue struct {
	got []domain.QueueEntity
	err error
}

func (r *recordingQueue) Enqueue(_ context.Context, e domain.QueueEntity) error {
	if r.err != nil {
		return r.err
	}
	r.got = append(r.got, e)
	return nil
}

func TestPutGet_RoundTripThroughQueue(t *testing.T) {
	ctx := context.Background()
	kv := newKV(t)
	q := queue.New(kv)
	s := NewStore(kv, q)

	cases := []domain.RelaySession{
		{DestinationID: -1001234567890},
		{DestinationID: -123456789012, ReplyToMessageID: 42},
	}
	for i, want := range cases {
		sender := int64(1000 + i)
		if err := s.Put(ctx, sender, want); err != nil {
			t.Fatalf("put: %v", err)
		}
		if _, err := q.Drain(ctx); err != nil {
			t.Fatalf("drain: %v", err)
		}
		got, ok, err := s.Get(ctx, sender)
		if err != nil || !ok || got != want {
			t.Fatalf("get = %+v ok=%v err=%v; want %+v", got, ok, err, want)
		}
	}
}

func TestDelete_RoutesThroughQueue(t *testing.T) {
	ctx := context.Background()
	rq := &recordingQueue{}
	s := NewStore(newKV(t), rq)
	if err := s.Delete(ctx, 77); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(rq.got) != 1 || rq.got[0].Op != domain.OpDelete || rq.got[0].Key != 77 || rq.got[0].Table != domain.TableAnonMessages {
		t.Fatalf("unexpected queue writes: %+v", rq.got)
	}
}

func TestGet_Absent(t *testing.T) {
	s := NewStore(newKV(t), &recordingQueue{})
	_, ok, err := s.Get(context.Background(), 1)
	if err != nil || ok {
		t.Fatalf("absent session: ok=%v err=%v", ok, err)
	}
}

func TestPut_InvalidAndQueueErrors(t *testing.T) {
	ctx := context.Background()
	rq := &recordingQueue{}
	s := NewStore(newKV(t), rq)
	if err := s.Put(ctx, 1, domain.RelaySession{}); !errors.Is(err, domain.ErrInvalidSession) {
		t.Fatalf("want ErrInvalidSession, got %v", err)
	}
	rq.err = queue.ErrQueueClosed
	if err := s.Put(ctx, 1, domain.RelaySession{DestinationID: -1}); !errors.Is(err, queue.ErrQueueClosed) {
		t.Fatalf("want ErrQueueClosed, got %v", err)
	}
}
