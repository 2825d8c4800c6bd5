// Package bot – keyboards
//
// This file builds the inline keyboards attached to relayed copies and to
// the sender's confirmation.
package bot

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/tbourn/anonbot/internal/report"
)

const (
	emojiNinja     = "🥷"
	emojiReplyLeft = "↩️"
	emojiEyes      = "👀"
)

// reportButton is the bare report glyph, the empty ledger.
func reportButton() tgbotapi.InlineKeyboardButton {
	return tgbotapi.NewInlineKeyboardButtonData(report.Glyph, report.CallbackData)
}

// sendKeyboard is attached to every relayed copy: a deep link back to the bot
// for the same chat, and the report button.
func sendKeyboard(label, botUsername string, destID int64) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonURL(label+" "+emojiNinja, StartLink(botUsername, destID, 0)),
		reportButton(),
	))
}

// replyKeyboard replaces sendKeyboard on supergroup copies, where the deep
// link can target the copied message.
func replyKeyboard(label, botUsername string, destID int64, copyID int) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonURL(label+" "+emojiReplyLeft, StartLink(botUsername, destID, copyID)),
		reportButton(),
	))
}

// seeInChatKeyboard links the sender to the copy inside a supergroup.
func seeInChatKeyboard(label string, destID int64, copyID int) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonURL(label+" "+emojiEyes, MessageLink(destID, copyID)),
	))
}

// sendAnonymouslyKeyboard is the single deep-link button posted in groups.
func sendAnonymouslyKeyboard(label, botUsername string, chatID int64) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonURL(label+" "+emojiNinja, StartLink(botUsername, chatID, 0)),
	))
}

// cloneKeyboard deep-copies markup so edits never alias the inbound update.
func cloneKeyboard(m *tgbotapi.InlineKeyboardMarkup) tgbotapi.InlineKeyboardMarkup {
	out := tgbotapi.InlineKeyboardMarkup{InlineKeyboard: make([][]tgbotapi.InlineKeyboardButton, len(m.InlineKeyboard))}
	for i, row := range m.InlineKeyboard {
		out.InlineKeyboard[i] = append([]tgbotapi.InlineKeyboardButton(nil), row...)
	}
	return out
}
