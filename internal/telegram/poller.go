// Package telegram – long polling
//
// This file receives updates with getUpdates and dispatches them with bounded
// concurrency. Shutdown stops intake and waits for updates already handed
// out.
package telegram

import (
	"context"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"
)

// Dispatcher handles one update; it must not return until the update is done.
type Dispatcher interface {
	Dispatch(ctx context.Context, u tgbotapi.Update)
}

const pollTimeoutSeconds = 60

// Poll long-polls getUpdates and dispatches each update on its own goroutine,
// with at most maxInFlight running. It returns when ctx is done and every
// in-flight update has finished.
func Poll(ctx context.Context, c *Client, d Dispatcher, maxInFlight int) error {
	if maxInFlight <= 0 {
		maxInFlight = 1
	}
	if err := c.DeleteWebhook(); err != nil {
		log.Warn().Err(err).Msg("delete_webhook_failed")
	}

	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = pollTimeoutSeconds
	updates := c.api.GetUpdatesChan(cfg)
	log.Info().Str("bot", c.api.Self.UserName).Msg("polling_started")

	return consume(ctx, updates, d, maxInFlight, c.api.StopReceivingUpdates)
}

// consume reads updates until the channel closes or ctx is done, keeping at
// most maxInFlight dispatches running. stop ends the upstream long poll.
func consume(ctx context.Context, updates tgbotapi.UpdatesChannel, d Dispatcher, maxInFlight int, stop func()) error {
	sem := make(chan struct{}, maxInFlight)
	// Cancellation stops intake only; an update already handed out runs to
	// completion since its offset is acknowledged and it will not come back.
	dctx := context.WithoutCancel(ctx)
	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			stop()
			return ctx.Err()
		case u, ok := <-updates:
			if !ok {
				return nil
			}
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				stop()
				return ctx.Err()
			}
			wg.Add(1)
			go func(u tgbotapi.Update) {
				defer wg.Done()
				defer func() { <-sem }()
				d.Dispatch(dctx, u)
			}(u)
		}
	}
}
