// Package bot – membership gate
//
// This file implements the check that both the bot and the sender belong to
// the destination chat. Lookup failures deny.
package bot

import (
	"context"

	"github.com/rs/zerolog/log"
)

// allowedStatuses are the membership statuses that may take part in a relay.
// "restricted" members cannot read the chat but may still be posted for.
var allowedStatuses = map[string]struct{}{
	"creator":       {},
	"administrator": {},
	"member":        {},
	"restricted":    {},
}

// IsAllowedToSend reports whether both the bot and the sender hold an allowed
// membership in destID. Any lookup failure denies.
func IsAllowedToSend(ctx context.Context, api API, destID, botID, senderID int64) bool {
	botStatus, err := api.ChatMemberStatus(ctx, destID, botID)
	if err != nil {
		log.Debug().Err(err).Int64("chat_id", destID).Msg("gate_bot_lookup_failed")
		return false
	}
	userStatus, err := api.ChatMemberStatus(ctx, destID, senderID)
	if err != nil {
		log.Debug().Err(err).Int64("chat_id", destID).Msg("gate_user_lookup_failed")
		return false
	}
	_, botOK := allowedStatuses[botStatus]
	_, userOK := allowedStatuses[userStatus]
	return botOK && userOK
}
