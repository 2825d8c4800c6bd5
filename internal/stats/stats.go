// Package stats records bot telemetry counters and per-chat activity in the
// backing store.
//
// Layout:
//
//	STATS/{MESSAGES_RECEIVED,CHAT_IDS_RECEIVED,MESSAGES_PUBLISHED,
//	       MESSAGES_DELETED,CALLBACKS_RECEIVED,COMMANDS_RECEIVED,ACTIVE_CHATS}
//	CHATS/<id>/ACTIVITY                     bool
//	CHATS/<id>/LOGS/<unix date>/<seq>       domain.ChatLogEntry
//	CHATS/<id>/LOGS_SEQ                     counter
//	CHATS/<id>/SETTINGS                     domain.ChatSettings
//	CHATS/<id>/MESSAGES_PUBLISHED_DATES/<unix date>
//	CHATS/<id>/{MESSAGES_PUBLISHED_COUNT,MESSAGES_DELETED_COUNT,CALLBACKS_RECEIVED_COUNT}
package stats

import (
	"context"
	"errors"

	"github.com/tbourn/anonbot/internal/domain"
	"github.com/tbourn/anonbot/internal/repo"
)

// Global counters.
const (
	MessagesReceived  = "MESSAGES_RECEIVED"
	ChatIDsReceived   = "CHAT_IDS_RECEIVED"
	MessagesPublished = "MESSAGES_PUBLISHED"
	MessagesDeleted   = "MESSAGES_DELETED"
	CallbacksReceived = "CALLBACKS_RECEIVED"
	CommandsReceived  = "COMMANDS_RECEIVED"
	ActiveChats       = "ACTIVE_CHATS"
)

// Per-chat keys.
const (
	chatActivity          = "ACTIVITY"
	chatLogs              = "LOGS"
	chatLogSeq            = "LOGS_SEQ"
	chatSettings          = "SETTINGS"
	chatPublishedDates    = "MESSAGES_PUBLISHED_DATES"
	chatPublishedCount    = "MESSAGES_PUBLISHED_COUNT"
	chatDeletedCount      = "MESSAGES_DELETED_COUNT"
	chatCallbacksReceived = "CALLBACKS_RECEIVED_COUNT"
)

var (
	trueJSON  = []byte("true")
	falseJSON = []byte("false")
)

// Recorder writes counters and chat activity.
type Recorder struct {
	kv               repo.Store
	defaultThreshold int
}

// NewRecorder returns a Recorder. defaultThreshold is written into the
// settings of newly joined chats and used when a chat has none.
func NewRecorder(kv repo.Store, defaultThreshold int) *Recorder {
	if defaultThreshold <= 0 {
		defaultThreshold = domain.DefaultReportThreshold
	}
	return &Recorder{kv: kv, defaultThreshold: defaultThreshold}
}

// global and chat build the keys listed in the package doc.
func global(name string) repo.Key { return repo.K(domain.TableStats, name) }

func chat(id int64, parts ...any) repo.Key {
	return append(repo.K(domain.TableChats, id), parts...)
}

// logKey allocates the next log slot for chatID. Events within the same
// second get distinct keys and still scan in arrival order.
func (r *Recorder) logKey(ctx context.Context, chatID, date int64) (repo.Key, error) {
	seq, err := r.kv.Increment(ctx, chat(chatID, chatLogSeq), 1)
	if err != nil {
		return nil, err
	}
	return chat(chatID, chatLogs, date, seq), nil
}

func (r *Recorder) incr(ctx context.Context, name string) error {
	_, err := r.kv.Increment(ctx, global(name), 1)
	return err
}

// ReceivedMessage counts a private message handed to the relay.
func (r *Recorder) ReceivedMessage(ctx context.Context) error { return r.incr(ctx, MessagesReceived) }

// ReceivedChatID counts a chat id typed by a sender.
func (r *Recorder) ReceivedChatID(ctx context.Context) error { return r.incr(ctx, ChatIDsReceived) }

// ReceivedCommand counts a recognised command.
func (r *Recorder) ReceivedCommand(ctx context.Context) error { return r.incr(ctx, CommandsReceived) }

// ReceivedCallback counts a callback globally and for chatID.
func (r *Recorder) ReceivedCallback(ctx context.Context, chatID int64) error {
	return r.kv.Atomic(ctx, func(tx repo.Tx) error {
		if err := tx.Increment(global(CallbacksReceived), 1); err != nil {
			return err
		}
		return tx.Increment(chat(chatID, chatCallbacksReceived), 1)
	})
}

// Published records a relayed message in chatID at unix time date.
func (r *Recorder) Published(ctx context.Context, chatID, date int64) error {
	return r.kv.Atomic(ctx, func(tx repo.Tx) error {
		if err := tx.Set(chat(chatID, chatPublishedDates, date), trueJSON); err != nil {
			return err
		}
		if err := tx.Increment(chat(chatID, chatPublishedCount), 1); err != nil {
			return err
		}
		return tx.Increment(global(MessagesPublished), 1)
	})
}

// Deleted records a message removed by reports in chatID.
func (r *Recorder) Deleted(ctx context.Context, chatID int64) error {
	return r.kv.Atomic(ctx, func(tx repo.Tx) error {
		if err := tx.Increment(global(MessagesDeleted), 1); err != nil {
			return err
		}
		return tx.Increment(chat(chatID, chatDeletedCount), 1)
	})
}

// Invited marks the chat active, logs the event, writes default settings
// unless the chat already has some, and bumps the active chat count, all in
// one commit.
func (r *Recorder) Invited(ctx context.Context, e domain.ChatLogEntry, date int64) error {
	e.Action = domain.ChatActionInvite
	lk, err := r.logKey(ctx, e.ChatID, date)
	if err != nil {
		return err
	}
	return r.kv.Atomic(ctx, func(tx repo.Tx) error {
		if err := tx.Set(chat(e.ChatID, chatActivity), trueJSON); err != nil {
			return err
		}
		if err := repo.SetJSONTx(tx, lk, e); err != nil {
			return err
		}
		// A re-invited chat keeps its threshold.
		if _, err := repo.SetJSONNXTx(tx, chat(e.ChatID, chatSettings), domain.ChatSettings{ReportThreshold: r.defaultThreshold}); err != nil {
			return err
		}
		return tx.Increment(global(ActiveChats), 1)
	})
}

// Removed marks the chat inactive and decrements the active chat count
// atomically.
func (r *Recorder) Removed(ctx context.Context, e domain.ChatLogEntry, date int64) error {
	e.Action = domain.ChatActionRemove
	lk, err := r.logKey(ctx, e.ChatID, date)
	if err != nil {
		return err
	}
	return r.kv.Atomic(ctx, func(tx repo.Tx) error {
		if err := tx.Set(chat(e.ChatID, chatActivity), falseJSON); err != nil {
			return err
		}
		if err := repo.SetJSONTx(tx, lk, e); err != nil {
			return err
		}
		return tx.Increment(global(ActiveChats), -1)
	})
}

// Migrated moves activity and settings from e.ChatID to e.MigratedTo.
func (r *Recorder) Migrated(ctx context.Context, e domain.ChatLogEntry, date int64) error {
	e.Action = domain.ChatActionMigrate
	settings, err := r.Settings(ctx, e.ChatID)
	if err != nil {
		return err
	}
	oldLog, err := r.logKey(ctx, e.ChatID, date)
	if err != nil {
		return err
	}
	newLog, err := r.logKey(ctx, e.MigratedTo, date)
	if err != nil {
		return err
	}
	return r.kv.Atomic(ctx, func(tx repo.Tx) error {
		if err := tx.Set(chat(e.ChatID, chatActivity), falseJSON); err != nil {
			return err
		}
		if err := repo.SetJSONTx(tx, oldLog, e); err != nil {
			return err
		}
		if err := tx.Set(chat(e.MigratedTo, chatActivity), trueJSON); err != nil {
			return err
		}
		if err := repo.SetJSONTx(tx, newLog, e); err != nil {
			return err
		}
		return repo.SetJSONTx(tx, chat(e.MigratedTo, chatSettings), settings)
	})
}

// Settings returns the chat's settings, defaulted when absent.
func (r *Recorder) Settings(ctx context.Context, chatID int64) (domain.ChatSettings, error) {
	var s domain.ChatSettings
	err := repo.GetJSON(ctx, r.kv, chat(chatID, chatSettings), &s)
	if err != nil && !errors.Is(err, repo.ErrNotFound) {
		return domain.ChatSettings{}, err
	}
	s.ReportThreshold = s.Threshold(r.defaultThreshold)
	return s, nil
}

// ReportThreshold is the number of reports that deletes a message in chatID.
func (r *Recorder) ReportThreshold(ctx context.Context, chatID int64) int {
	s, err := r.Settings(ctx, chatID)
	if err != nil {
		return r.defaultThreshold
	}
	return s.ReportThreshold
}

// Active reports whether the bot is currently a relay target in chatID.
func (r *Recorder) Active(ctx context.Context, chatID int64) (bool, error) {
	b, err := r.kv.Get(ctx, chat(chatID, chatActivity))
	if errors.Is(err, repo.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return string(b) == "true", nil
}

// Totals is the global counter snapshot.
type Totals struct {
	ActiveChats       int64 `json:"activeChats"`
	TotalOperations   int64 `json:"totalOperations"`
	MessagesReceived  int64 `json:"receivedMessages"`
	ChatIDsReceived   int64 `json:"receivedChatIds"`
	MessagesPublished int64 `json:"publishedMessages"`
	CommandsReceived  int64 `json:"receivedCommands"`
	CallbacksReceived int64 `json:"receivedCallbacks"`
	MessagesDeleted   int64 `json:"deletedMessages"`
}

// Totals reads every global counter.
func (r *Recorder) Totals(ctx context.Context) (Totals, error) {
	var t Totals
	for name, dst := range map[string]*int64{
		ActiveChats:       &t.ActiveChats,
		MessagesReceived:  &t.MessagesReceived,
		ChatIDsReceived:   &t.ChatIDsReceived,
		MessagesPublished: &t.MessagesPublished,
		CommandsReceived:  &t.CommandsReceived,
		CallbacksReceived: &t.CallbacksReceived,
		MessagesDeleted:   &t.MessagesDeleted,
	} {
		n, err := r.kv.Counter(ctx, global(name))
		if err != nil {
			return Totals{}, err
		}
		*dst = n
	}
	t.TotalOperations = t.MessagesReceived + t.CallbacksReceived + t.CommandsReceived
	return t, nil
}

// ChatTotals is the per-chat counter snapshot.
type ChatTotals struct {
	Published int64 `json:"publishedMessages"`
	Callbacks int64 `json:"receivedCallbacks"`
	Deleted   int64 `json:"deletedMessages"`
}

// ChatTotals returns the published, callback and deleted counts for one
// chat. Missing counters read as zero.
func (r *Recorder) ChatTotals(ctx context.Context, chatID int64) (ChatTotals, error) {
	var t ChatTotals
	var err error
	if t.Published, err = r.kv.Counter(ctx, chat(chatID, chatPublishedCount)); err != nil {
		return ChatTotals{}, err
	}
	if t.Callbacks, err = r.kv.Counter(ctx, chat(chatID, chatCallbacksReceived)); err != nil {
		return ChatTotals{}, err
	}
	if t.Deleted, err = r.kv.Counter(ctx, chat(chatID, chatDeletedCount)); err != nil {
		return ChatTotals{}, err
	}
	return t, nil
}
