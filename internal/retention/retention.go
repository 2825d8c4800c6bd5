// Package retention prunes processed-update markers on a cron schedule.
package retention

import (
	"context"
	"fmt"
	"time"

	"github.com/adhocore/gronx"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/anonbot/internal/repo"
)

const (
	defaultCron = "0 * * * *"
	retryDelay  = 30 * time.Second
)

// Job deletes UPDATES markers older than TTL.
type Job struct {
	Store repo.Store
	TTL   time.Duration
	Cron  string

	// now is swapped in tests.
	now func() time.Time
}

func (j *Job) clock() time.Time {
	if j.now != nil {
		return j.now()
	}
	return time.Now().UTC()
}

// RunOnce performs a single prune.
func (j *Job) RunOnce(ctx context.Context) (int, error) {
	n, err := repo.PruneUpdates(ctx, j.Store, j.clock(), j.TTL)
	if err != nil {
		return n, fmt.Errorf("prune updates: %w", err)
	}
	log.Info().Int("removed", n).Dur("ttl", j.TTL).Msg("retention_run")
	return n, nil
}

// Start validates the cron expression and runs the scheduler in the
// background until ctx is done.
func (j *Job) Start(ctx context.Context) error {
	expr := j.Cron
	if expr == "" {
		expr = defaultCron
	}
	if !gronx.IsValid(expr) {
		return fmt.Errorf("invalid retention cron expression: %q", expr)
	}
	j.Cron = expr
	log.Info().Str("cron", expr).Dur("ttl", j.TTL).Msg("retention_scheduler_started")
	go j.loop(ctx)
	return nil
}

// loop sleeps until the next cron tick and prunes. Runs are sequential.
func (j *Job) loop(ctx context.Context) {
	for {
		next, err := gronx.NextTickAfter(j.Cron, j.clock(), false)
		wait := time.Until(next)
		if err != nil {
			log.Error().Err(err).Str("cron", j.Cron).Msg("retention_nexttick_failed")
			wait = retryDelay
		}
		select {
		case <-ctx.Done():
			log.Info().Msg("retention_scheduler_stopping")
			return
		case <-time.After(wait):
		}
		if err != nil {
			continue
		}
		if _, err := j.RunOnce(ctx); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("retention_run_error")
		}
	}
}
