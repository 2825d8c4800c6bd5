// Package bot – dispatch
//
// This file classifies incoming updates and routes them to the command,
// message or callback handlers. Dispatch is the process-wide entry point:
// it never returns an error and never lets a panic escape.
package bot

import (
	"context"
	"errors"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/anonbot/internal/report"
)

// Update kinds used for routing and the anonbot_updates_total metric.
const (
	KindCommand  = "command"
	KindMessage  = "message"
	KindCallback = "callback"
	KindOther    = "other"
)

// Kind classifies u.
func Kind(u tgbotapi.Update) string {
	switch {
	case u.Message != nil && u.Message.IsCommand():
		return KindCommand
	case u.Message != nil:
		return KindMessage
	case u.CallbackQuery != nil && u.CallbackQuery.Data == report.CallbackData:
		return KindCallback
	}
	return KindOther
}

// Route handles one update and returns its error.
func (r *Relay) Route(ctx context.Context, u tgbotapi.Update) error {
	switch Kind(u) {
	case KindCommand:
		handled, err := r.HandleCommand(ctx, u.Message)
		if handled {
			return err
		}
		return r.HandleMessage(ctx, u.Message)
	case KindMessage:
		return r.HandleMessage(ctx, u.Message)
	case KindCallback:
		return r.HandleReport(ctx, u.CallbackQuery)
	}
	return fmt.Errorf("%w: id %d", ErrUnknownUpdate, u.UpdateID)
}

// Dispatch is the process-wide update handler: it routes u, and logs and
// swallows any error or panic so one bad update cannot stop delivery.
func (r *Relay) Dispatch(ctx context.Context, u tgbotapi.Update) {
	kind := Kind(u)
	updatesTotal.WithLabelValues(kind).Inc()

	defer func() {
		if rec := recover(); rec != nil {
			log.Error().
				Interface("panic", rec).
				Int("update_id", u.UpdateID).
				Str("kind", kind).
				Msg("update_panic")
		}
	}()

	if err := r.Route(ctx, u); err != nil {
		if errors.Is(err, ErrUnknownUpdate) {
			log.Debug().Int("update_id", u.UpdateID).Msg("update_ignored")
			return
		}
		log.Error().Err(err).Int("update_id", u.UpdateID).Str("kind", kind).Msg("update_failed")
	}
}
