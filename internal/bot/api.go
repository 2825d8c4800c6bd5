// Package bot – collaborator interfaces
//
// This file declares the narrow interfaces the Relay depends on: the Telegram
// actions it performs, the relay session store, and the telemetry recorder.
package bot

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/tbourn/anonbot/internal/domain"
	"github.com/tbourn/anonbot/internal/stats"
)

// API is the subset of the Telegram Bot API the relay calls. The telegram
// package adapts *tgbotapi.BotAPI to it; tests use a recording fake.
type API interface {
	// Self is the bot's own account.
	Self() tgbotapi.User
	// ChatMemberStatus returns the member's status in chatID
	// ("creator", "administrator", "member", "restricted", "left", "kicked").
	ChatMemberStatus(ctx context.Context, chatID, userID int64) (string, error)
	// ChatType returns "private", "group", "supergroup" or "channel".
	ChatType(ctx context.Context, chatID int64) (string, error)
	// CopyMessage copies fromChatID/messageID into toChatID and returns the
	// new message id. replyTo is ignored when zero.
	CopyMessage(ctx context.Context, toChatID, fromChatID int64, messageID, replyTo int, markup *tgbotapi.InlineKeyboardMarkup) (int, error)
	EditReplyMarkup(ctx context.Context, chatID int64, messageID int, markup tgbotapi.InlineKeyboardMarkup) error
	DeleteMessage(ctx context.Context, chatID int64, messageID int) error
	AnswerCallback(ctx context.Context, callbackID, text string) error
	// SendText sends text to chatID, optionally replying to replyTo.
	SendText(ctx context.Context, chatID int64, text string, replyTo int, markup *tgbotapi.InlineKeyboardMarkup) error
}

// Sessions is the relay session store.
type Sessions interface {
	Get(ctx context.Context, senderID int64) (domain.RelaySession, bool, error)
	Put(ctx context.Context, senderID int64, s domain.RelaySession) error
	Delete(ctx context.Context, senderID int64) error
}

// Recorder receives telemetry and chat activity. Recording is best-effort:
// the relay logs failures and carries on.
type Recorder interface {
	ReceivedMessage(ctx context.Context) error
	ReceivedChatID(ctx context.Context) error
	ReceivedCommand(ctx context.Context) error
	ReceivedCallback(ctx context.Context, chatID int64) error
	Published(ctx context.Context, chatID, date int64) error
	Deleted(ctx context.Context, chatID int64) error
	Invited(ctx context.Context, e domain.ChatLogEntry, date int64) error
	Removed(ctx context.Context, e domain.ChatLogEntry, date int64) error
	Migrated(ctx context.Context, e domain.ChatLogEntry, date int64) error
	ReportThreshold(ctx context.Context, chatID int64) int
	Totals(ctx context.Context) (stats.Totals, error)
	ChatTotals(ctx context.Context, chatID int64) (stats.ChatTotals, error)
}
