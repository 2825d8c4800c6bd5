// Package bot implements the relay orchestrator: the private-chat state
// machine that pairs a sender with a destination chat, copies their next
// message there, and attaches the report button used for crowd moderation.
//
// Per sender the flow is Idle -> AwaitingMessage -> Relayed. A chat id typed
// in private or a /start deep link opens a session (AwaitingMessage); the
// next acceptable message consumes it. The session is deleted through the
// write queue before the cross-chat copy, so a duplicate delivery finds no
// session instead of copying twice.
//
// Every Telegram call goes through the API interface, and storage through
// the Sessions and Recorder interfaces, so the whole flow runs against fakes
// in tests.
//
// This file holds the Relay type and the message path.
package bot

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/anonbot/internal/domain"
	"github.com/tbourn/anonbot/internal/i18n"
)

const chatTypeSupergroup = "supergroup"

// Relay routes inbound messages, commands and report callbacks.
type Relay struct {
	API API
	// Sessions reads directly from storage but writes through the queue, so
	// a Put or Delete may not be visible to an immediate Get.
	Sessions Sessions
	Stats    Recorder
	// Text renders replies in the sender's language.
	Text *i18n.Localizer

	// StatsSecret unlocks global totals through "/stats <secret>" in private.
	// Empty disables it.
	StatsSecret string
}

// t renders key in the language of m's sender.
func (r *Relay) t(m *tgbotapi.Message, key string, args ...any) string {
	code := ""
	if m.From != nil {
		code = m.From.LanguageCode
	}
	return r.Text.T(code, key, args...)
}

// reply answers in m's chat.
func (r *Relay) reply(ctx context.Context, m *tgbotapi.Message, text string, markup *tgbotapi.InlineKeyboardMarkup) error {
	return r.API.SendText(ctx, m.Chat.ID, text, 0, markup)
}

// record runs a best-effort telemetry write.
func record(what string, err error) {
	if err != nil {
		log.Warn().Err(err).Str("counter", what).Msg("stats_record_failed")
	}
}

// HandleMessage routes a non-command message.
func (r *Relay) HandleMessage(ctx context.Context, m *tgbotapi.Message) error {
	switch {
	case m.LeftChatMember != nil:
		return r.leftChatMember(ctx, m)
	case len(m.NewChatMembers) > 0, m.GroupChatCreated, m.SuperGroupChatCreated:
		return r.newChatMember(ctx, m)
	case m.MigrateToChatID != 0:
		return r.migrate(ctx, m)
	}

	// Group traffic is never read.
	if !m.Chat.IsPrivate() || m.From == nil {
		return nil
	}
	return r.relay(ctx, m)
}

// relay runs the private-chat state machine for one message:
// Idle -> AwaitingMessage on a chat id, AwaitingMessage -> Relayed on content.
func (r *Relay) relay(ctx context.Context, m *tgbotapi.Message) error {
	tr := otel.Tracer("bot/Relay")
	ctx, span := tr.Start(ctx, "Relay",
		trace.WithAttributes(attribute.Int64("user.id", m.From.ID)),
	)
	defer span.End()

	sender := m.From.ID
	record("messages_received", r.Stats.ReceivedMessage(ctx))

	if !IsAcceptable(m) {
		relaysTotal.WithLabelValues("rejected_type").Inc()
		return r.reply(ctx, m, r.t(m, i18n.ProcessWrongType), nil)
	}

	if m.Text != "" {
		if destID, err := ParseChatID(m.Text); err == nil {
			return r.acceptChatID(ctx, m, destID)
		}
	}

	sess, ok, err := r.Sessions.Get(ctx, sender)
	if err != nil {
		return fmt.Errorf("read session: %w", err)
	}
	if !ok {
		relaysTotal.WithLabelValues("no_session").Inc()
		return r.reply(ctx, m, r.t(m, i18n.ProcessInputChatID), nil)
	}
	span.SetAttributes(attribute.Int64("chat.id", sess.DestinationID))

	// Single use: drop the session before any side effect.
	if err := r.Sessions.Delete(ctx, sender); err != nil {
		return fmt.Errorf("consume session: %w", err)
	}

	self := r.API.Self()
	if !IsAllowedToSend(ctx, r.API, sess.DestinationID, self.ID, sender) {
		relaysTotal.WithLabelValues("denied").Inc()
		return r.reply(ctx, m, r.t(m, i18n.ProcessNoPermissions), nil)
	}

	kb := sendKeyboard(r.t(m, i18n.SendAnonymously), self.UserName, sess.DestinationID)
	copyID, err := r.API.CopyMessage(ctx, sess.DestinationID, m.Chat.ID, m.MessageID, sess.ReplyToMessageID, &kb)
	if err != nil {
		relaysTotal.WithLabelValues("copy_failed").Inc()
		return fmt.Errorf("copy message to %d: %w", sess.DestinationID, err)
	}
	relaysTotal.WithLabelValues("copied").Inc()
	record("messages_published", r.Stats.Published(ctx, sess.DestinationID, int64(m.Date)))
	log.Debug().Int64("chat_id", sess.DestinationID).Int("message_id", copyID).Msg("relay_copied")

	chatType, err := r.API.ChatType(ctx, sess.DestinationID)
	if err != nil {
		return fmt.Errorf("get chat %d: %w", sess.DestinationID, err)
	}
	if chatType != chatTypeSupergroup {
		// Plain groups cannot be linked to a specific message.
		return r.reply(ctx, m, r.t(m, i18n.ProcessMessageSent), nil)
	}

	rk := replyKeyboard(r.t(m, i18n.ReplyAnonymously), self.UserName, sess.DestinationID, copyID)
	if err := r.API.EditReplyMarkup(ctx, sess.DestinationID, copyID, rk); err != nil {
		log.Warn().Err(err).Int64("chat_id", sess.DestinationID).Int("message_id", copyID).Msg("relay_keyboard_edit_failed")
	}
	see := seeInChatKeyboard(r.t(m, i18n.SeeInChat), sess.DestinationID, copyID)
	return r.reply(ctx, m, r.t(m, i18n.ProcessMessageSent), &see)
}

// acceptChatID opens a session for a chat id typed in private.
func (r *Relay) acceptChatID(ctx context.Context, m *tgbotapi.Message, destID int64) error {
	record("chat_ids_received", r.Stats.ReceivedChatID(ctx))
	if !IsAllowedToSend(ctx, r.API, destID, r.API.Self().ID, m.From.ID) {
		return r.reply(ctx, m, r.t(m, i18n.ProcessNoPermissions), nil)
	}
	if err := r.Sessions.Put(ctx, m.From.ID, domain.RelaySession{DestinationID: destID}); err != nil {
		return fmt.Errorf("open session: %w", err)
	}
	return r.reply(ctx, m, r.t(m, i18n.ProcessChatIDAccepted, i18n.ChatID(destID)), nil)
}
