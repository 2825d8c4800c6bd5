// Package bot – commands
//
// This file implements /start (with optional deep-link payload), /help,
// /cancel and /stats. Every recognised command is counted.
package bot

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/tbourn/anonbot/internal/domain"
	"github.com/tbourn/anonbot/internal/i18n"
)

// Commands handled by HandleCommand.
const (
	CmdStart  = "start"
	CmdHelp   = "help"
	CmdCancel = "cancel"
	CmdStats  = "stats"
)

// HandleCommand runs a bot command. handled is false for commands the relay
// does not know; those fall through to HandleMessage.
func (r *Relay) HandleCommand(ctx context.Context, m *tgbotapi.Message) (handled bool, err error) {
	var fn func(context.Context, *tgbotapi.Message) error
	switch m.Command() {
	case CmdStart:
		fn = r.start
	case CmdHelp:
		fn = r.help
	case CmdCancel:
		fn = r.cancel
	case CmdStats:
		fn = r.stats
	default:
		return false, nil
	}
	record("commands_received", r.Stats.ReceivedCommand(ctx))
	return true, fn(ctx, m)
}

// start handles "/start" and the deep-link form "/start <chatId>[---<msgId>]".
func (r *Relay) start(ctx context.Context, m *tgbotapi.Message) error {
	payload := strings.TrimSpace(m.CommandArguments())
	if payload == "" {
		return r.reply(ctx, m, r.t(m, i18n.StartWelcome), nil)
	}
	if !m.Chat.IsPrivate() {
		return r.reply(ctx, m, r.t(m, i18n.StartParamsInPublic), nil)
	}
	if m.From == nil {
		return nil
	}

	destID, replyTo, err := ParseStartPayload(payload)
	if err != nil {
		return r.reply(ctx, m, r.t(m, i18n.StartErrorFirstParam), nil)
	}
	if !IsAllowedToSend(ctx, r.API, destID, r.API.Self().ID, m.From.ID) {
		return r.reply(ctx, m, r.t(m, i18n.StartNoPermissions), nil)
	}

	sess := domain.RelaySession{DestinationID: destID, ReplyToMessageID: replyTo}
	if err := r.Sessions.Put(ctx, m.From.ID, sess); err != nil {
		return fmt.Errorf("open session: %w", err)
	}
	return r.reply(ctx, m, r.t(m, i18n.StartInputMessage, i18n.ChatID(destID)), nil)
}

// help replies in groups with the chat id and a deep link that opens a
// session for it; in private it explains the flow.
func (r *Relay) help(ctx context.Context, m *tgbotapi.Message) error {
	if m.Chat.IsPrivate() {
		return r.reply(ctx, m, r.t(m, i18n.HelpPrivate), nil)
	}
	kb := sendAnonymouslyKeyboard(r.t(m, i18n.SendAnonymously), r.API.Self().UserName, m.Chat.ID)
	return r.reply(ctx, m, r.t(m, i18n.HelpChat, i18n.ChatID(m.Chat.ID)), &kb)
}

// cancel drops the pending session whether or not one exists.
func (r *Relay) cancel(ctx context.Context, m *tgbotapi.Message) error {
	if m.From != nil {
		if err := r.Sessions.Delete(ctx, m.From.ID); err != nil {
			return fmt.Errorf("cancel session: %w", err)
		}
	}
	return r.reply(ctx, m, r.t(m, i18n.CancelDefault), nil)
}

// stats replies with per-chat counters in groups. In private the global
// totals require the stats secret as the argument; anything else gets the
// "nothing here" reply.
func (r *Relay) stats(ctx context.Context, m *tgbotapi.Message) error {
	if !m.Chat.IsPrivate() {
		ct, err := r.Stats.ChatTotals(ctx, m.Chat.ID)
		if err != nil {
			return fmt.Errorf("chat stats: %w", err)
		}
		return r.reply(ctx, m, r.t(m, i18n.StatsChat, ct.Published, ct.Callbacks, ct.Deleted), nil)
	}

	if r.StatsSecret == "" || strings.TrimSpace(m.CommandArguments()) != r.StatsSecret {
		return r.reply(ctx, m, r.t(m, i18n.StatsNothing), nil)
	}
	tot, err := r.Stats.Totals(ctx)
	if err != nil {
		return fmt.Errorf("totals: %w", err)
	}
	text := fmt.Sprintf(`activeChats: %d
TotalOperations: %d
ReceivedMessages: %d
ReceivedChatIds: %d
PublishedMessages: %d
ReceivedCommands: %d
ReceivedCallbacks: %d
DeletedMessages: %d`,
		tot.ActiveChats, tot.TotalOperations, tot.MessagesReceived, tot.ChatIDsReceived,
		tot.MessagesPublished, tot.CommandsReceived, tot.CallbacksReceived, tot.MessagesDeleted)
	return r.reply(ctx, m, text, nil)
}
