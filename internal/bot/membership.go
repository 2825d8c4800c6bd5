// Package bot – membership events
//
// This file reacts to the bot being added to, removed from, or migrated
// between chats, and records the change through the Recorder.
package bot

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/anonbot/internal/domain"
	"github.com/tbourn/anonbot/internal/i18n"
)

func logEntry(m *tgbotapi.Message) domain.ChatLogEntry {
	return domain.ChatLogEntry{
		ChatID:    m.Chat.ID,
		ChatType:  m.Chat.Type,
		ChatTitle: m.Chat.Title,
	}
}

// newChatMember handles service messages about new members. Only the bot's
// own arrival, or a chat created with the bot in it, matters.
func (r *Relay) newChatMember(ctx context.Context, m *tgbotapi.Message) error {
	self := r.API.Self()
	added := m.GroupChatCreated || m.SuperGroupChatCreated
	for _, u := range m.NewChatMembers {
		if u.ID == self.ID {
			added = true
			break
		}
	}
	if !added {
		return nil
	}

	log.Info().Int64("chat_id", m.Chat.ID).Str("chat_type", m.Chat.Type).Msg("bot_added_to_chat")
	record("chat_invite", r.Stats.Invited(ctx, logEntry(m), int64(m.Date)))

	kb := sendAnonymouslyKeyboard(r.t(m, i18n.SendAnonymously), self.UserName, m.Chat.ID)
	return r.reply(ctx, m, r.t(m, i18n.NewChatWelcome, i18n.ChatID(m.Chat.ID)), &kb)
}

// leftChatMember marks the chat inactive when the bot itself leaves.
func (r *Relay) leftChatMember(ctx context.Context, m *tgbotapi.Message) error {
	if m.LeftChatMember.ID != r.API.Self().ID {
		return nil
	}
	log.Info().Int64("chat_id", m.Chat.ID).Msg("bot_removed_from_chat")
	record("chat_remove", r.Stats.Removed(ctx, logEntry(m), int64(m.Date)))
	return nil
}

// migrate follows a group upgraded to a supergroup: activity and settings
// move to the new id.
func (r *Relay) migrate(ctx context.Context, m *tgbotapi.Message) error {
	e := logEntry(m)
	e.MigratedTo = m.MigrateToChatID
	log.Info().Int64("chat_id", m.Chat.ID).Int64("migrate_to", m.MigrateToChatID).Msg("chat_migrated")
	record("chat_migrate", r.Stats.Migrated(ctx, e, int64(m.Date)))
	return nil
}
