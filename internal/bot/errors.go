// Package bot implements the relay: the membership gate, chat-id and
// deep-link parsing, the relay orchestrator for private messages and
// commands, the crowd-moderation report callback, and the update dispatcher.
package bot

import "errors"

var (
	// ErrUnknownUpdate is returned by Dispatch for updates it has no route for.
	ErrUnknownUpdate = errors.New("unknown update")

	// ErrBadChatID is returned when text is not a valid destination chat id.
	ErrBadChatID = errors.New("invalid chat id")

	// ErrNoReportButton is returned when a report callback arrives on a
	// message whose keyboard has no report button.
	ErrNoReportButton = errors.New("report button not found")
)
