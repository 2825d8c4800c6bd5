// Package domain defines the persistence models and value types shared by the
// relay bot: relay sessions, write-queue entities, per-chat settings and
// activity logs, and the GORM row model backing the key-value store.
package domain

import (
	"errors"
	"time"
)

// Logical tables (first element of composite keys).
const (
	TableAnonMessages = "ANON_MESSAGES"
	TableChats        = "CHATS"
	TableStats        = "STATS"
	TableQueue        = "QUEUE"
	TableUpdates      = "UPDATES"
)

// DefaultReportThreshold is the number of distinct reports after which a
// relayed message is deleted when a chat has no explicit setting.
const DefaultReportThreshold = 3

// ErrInvalidSession is returned when a RelaySession fails validation.
var ErrInvalidSession = errors.New("invalid relay session")

// RelaySession pairs a sender with the destination chat (and optionally the
// message to quote) of the next message they send to the bot.
//
// Fields:
//   - DestinationID: target chat identifier (negative for groups).
//   - ReplyToMessageID: message in the destination to reply to; 0 means none.
type RelaySession struct {
	DestinationID    int64 `json:"toId"`
	ReplyToMessageID int   `json:"msgId,omitempty"`
}

// HasReply reports whether the session targets a specific message.
func (s RelaySession) HasReply() bool { return s.ReplyToMessageID > 0 }

// Validate checks that the session has a destination.
func (s RelaySession) Validate() error {
	if s.DestinationID == 0 {
		return ErrInvalidSession
	}
	if s.ReplyToMessageID < 0 {
		return ErrInvalidSession
	}
	return nil
}

// ChatSettings is the per-chat moderation configuration stored under
// CHATS/<id>/SETTINGS.
type ChatSettings struct {
	ReportThreshold int `json:"reportThreshold"`
}

// Threshold returns the effective threshold, falling back to def when the
// stored value is unset or invalid.
func (s ChatSettings) Threshold(def int) int {
	if s.ReportThreshold > 0 {
		return s.ReportThreshold
	}
	if def > 0 {
		return def
	}
	return DefaultReportThreshold
}

// ChatAction names a membership event recorded in a chat's log.
type ChatAction string

const (
	ChatActionInvite  ChatAction = "invite"
	ChatActionRemove  ChatAction = "remove"
	ChatActionMigrate ChatAction = "migrate"
)

// ChatLogEntry is an append-only record under CHATS/<id>/LOGS/<date>/<seq>.
type ChatLogEntry struct {
	Action    ChatAction `json:"action"`
	ChatID    int64      `json:"chatId"`
	ChatType  string     `json:"chatType,omitempty"`
	ChatTitle string     `json:"chatTitle,omitempty"`
	// MigratedTo is set for migrate entries written on the old chat.
	MigratedTo int64 `json:"migratedTo,omitempty"`
}

// KVEntry is a single row of the SQLite-backed key-value store. Values and
// counters share the table; a row is either a blob (Value) or a counter (Num).
type KVEntry struct {
	Key       string    `gorm:"type:TEXT NOT NULL;primaryKey"`
	Value     []byte    `gorm:"type:BLOB"`
	Num       int64     `gorm:"type:INTEGER NOT NULL;default:0"`
	UpdatedAt time.Time `gorm:"type:DATETIME NOT NULL;autoUpdateTime"`
}

// TableName implements the GORM tabler interface.
func (KVEntry) TableName() string { return "kv_entries" }
