// Package bot – report callback
//
// This file handles clicks on the report button. The label is decoded with
// the report package, toggled for the clicking user, and either written back
// or, once the chat's threshold is reached, the message is deleted.
package bot

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/anonbot/internal/i18n"
	"github.com/tbourn/anonbot/internal/report"
)

// HandleReport toggles the caller's report on the message carrying the
// button, deleting the message once the chat's threshold is reached.
//
// The keyboard is read from the callback's copy of the message and written
// back whole, so two reports racing on the same message resolve as
// last-write-wins at Telegram; a rejected edit is logged and dropped.
func (r *Relay) HandleReport(ctx context.Context, cq *tgbotapi.CallbackQuery) error {
	if cq.Message == nil || cq.From == nil {
		return nil
	}
	msg := cq.Message
	chatID := msg.Chat.ID

	tr := otel.Tracer("bot/Relay")
	ctx, span := tr.Start(ctx, "Report",
		trace.WithAttributes(
			attribute.Int64("chat.id", chatID),
			attribute.Int("message.id", msg.MessageID),
		),
	)
	defer span.End()

	record("callbacks_received", r.Stats.ReceivedCallback(ctx, chatID))

	if msg.ReplyMarkup == nil || len(msg.ReplyMarkup.InlineKeyboard) == 0 {
		return fmt.Errorf("%w: chat %d message %d", ErrNoReportButton, chatID, msg.MessageID)
	}
	kb := cloneKeyboard(msg.ReplyMarkup)
	row := kb.InlineKeyboard[0]
	idx := -1
	for i, b := range row {
		if strings.Contains(b.Text, report.Glyph) {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("%w: chat %d message %d", ErrNoReportButton, chatID, msg.MessageID)
	}

	label, outcome, count := report.Toggle(row[idx].Text, report.Fingerprint(cq.From.ID))
	row[idx].Text = label
	reportsTotal.WithLabelValues(outcome.String()).Inc()

	answer := i18n.ReportDelivered
	if outcome == report.Reverted {
		answer = i18n.ReportReverted
	}
	if err := r.API.AnswerCallback(ctx, cq.ID, r.Text.T(cq.From.LanguageCode, answer)); err != nil {
		log.Warn().Err(err).Msg("callback_answer_failed")
	}

	threshold := r.Stats.ReportThreshold(ctx, chatID)
	if report.ShouldDelete(count, threshold) {
		if err := r.API.DeleteMessage(ctx, chatID, msg.MessageID); err != nil {
			return fmt.Errorf("delete reported message: %w", err)
		}
		reportsTotal.WithLabelValues("deleted").Inc()
		record("messages_deleted", r.Stats.Deleted(ctx, chatID))
		log.Info().Int64("chat_id", chatID).Int("message_id", msg.MessageID).Int("reports", count).Msg("report_threshold_reached")
		return nil
	}

	if err := r.API.EditReplyMarkup(ctx, chatID, msg.MessageID, kb); err != nil {
		// Usually "message is not modified" from a concurrent toggle.
		log.Warn().Err(err).Int64("chat_id", chatID).Int("message_id", msg.MessageID).Msg("report_label_edit_failed")
	}
	return nil
}
