// Package bot – content filter
//
// This file decides which message types the relay is willing to copy.
package bot

import tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

// IsAcceptable reports whether m carries a content type the relay copies.
// Forwards are accepted only through their own content. Stories have no
// field in the client library, so a story message arrives empty and is
// rejected.
func IsAcceptable(m *tgbotapi.Message) bool {
	switch {
	case m.Text != "",
		len(m.Entities) > 0,
		m.Animation != nil,
		m.Audio != nil,
		m.Document != nil,
		len(m.Photo) > 0,
		m.Sticker != nil,
		m.Video != nil,
		m.VideoNote != nil,
		m.Voice != nil,
		m.Contact != nil,
		m.Dice != nil,
		m.Game != nil,
		m.Poll != nil,
		m.Venue != nil,
		m.Location != nil:
		return true
	}
	return false
}
