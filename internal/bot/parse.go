// Package bot – parsing
//
// This file parses chat ids typed by users and /start deep-link payloads,
// and builds the t.me links handed back to them.
package bot

import (
	"fmt"
	"strconv"
	"strings"
)

// StartParamsSeparator divides the destination and reply-to ids in a
// /start deep-link payload.
const StartParamsSeparator = "---"

const (
	minChatIDLen = 10
	maxChatIDLen = 14
)

// ParseChatID normalizes text into a destination chat id: surrounding
// whitespace and one trailing period are dropped, a leading minus is forced,
// and the result must be 10 to 14 characters of decimal.
func ParseChatID(text string) (int64, error) {
	s := strings.TrimSpace(text)
	s = strings.TrimSuffix(s, ".")
	s = "-" + strings.TrimPrefix(s, "-")
	if len(s) < minChatIDLen || len(s) > maxChatIDLen {
		return 0, fmt.Errorf("%w: length %d", ErrBadChatID, len(s))
	}
	for _, r := range s[1:] {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("%w: %q", ErrBadChatID, text)
		}
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrBadChatID, err)
	}
	return id, nil
}

// ParseStartPayload splits "<chatId>[---<messageId>]". An unparsable message
// id is ignored.
func ParseStartPayload(payload string) (destID int64, replyTo int, err error) {
	parts := strings.SplitN(strings.TrimSpace(payload), StartParamsSeparator, 2)
	destID, err = ParseChatID(parts[0])
	if err != nil {
		return 0, 0, err
	}
	if len(parts) == 2 {
		if n, err := strconv.Atoi(strings.TrimSpace(parts[1])); err == nil && n > 0 {
			replyTo = n
		}
	}
	return destID, replyTo, nil
}

// StartLink is the deep link that opens a private chat with the bot targeting
// destID, optionally replying to messageID.
func StartLink(botUsername string, destID int64, messageID int) string {
	payload := strconv.FormatInt(destID, 10)
	if messageID > 0 {
		payload += StartParamsSeparator + strconv.Itoa(messageID)
	}
	return "https://t.me/" + botUsername + "?start=" + payload
}

// MessageLink points at a message in a supergroup. The internal chat id is the
// last ten digits of the public one.
func MessageLink(chatID int64, messageID int) string {
	s := strconv.FormatInt(chatID, 10)
	if len(s) > 10 {
		s = s[len(s)-10:]
	}
	return fmt.Sprintf("https://t.me/c/%s/%d", s, messageID)
}
