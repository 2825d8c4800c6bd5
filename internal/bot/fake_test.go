package bot

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	sqlite "github.com/glebarez/sqlite"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/anonbot/internal/i18n"
	"github.com/tbourn/anonbot/internal/queue"
	"github.com/tbourn/anonbot/internal/repo"
	"github.com/tbourn/anonbot/internal/session"
	"github.com/tbourn/anonbot/internal/stats"
)

const (
	botID       int64 = 999
	botUsername       = "anon_test_bot"
)

type copyCall struct {
	To, From  int64
	MessageID int
	ReplyTo   int
	Markup    *tgbotapi.InlineKeyboardMarkup
	ResultID  int
}

type editCall struct {
	ChatID    int64
	MessageID int
	Markup    tgbotapi.InlineKeyboardMarkup
}

type sentText struct {
	ChatID int64
	Text   string
	Markup *tgbotapi.InlineKeyboardMarkup
}

// fakeAPI records every outbound call.
type fakeAPI struct {
	mu        sync.Mutex
	statuses  map[[2]int64]string
	statusErr error
	chatTypes map[int64]string
	copyErr   error
	editErr   error
	nextID    int

	copies  []copyCall
	edits   []editCall
	deletes [][2]int64
	answers []string
	sent    []sentText
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		statuses:  map[[2]int64]string{},
		chatTypes: map[int64]string{},
		nextID:    500,
	}
}

func (f *fakeAPI) member(chatID, userID int64, status string) {
	f.statuses[[2]int64{chatID, userID}] = status
}

func (f *fakeAPI) Self() tgbotapi.User {
	return tgbotapi.User{ID: botID, IsBot: true, UserName: botUsername}
}

func (f *fakeAPI) ChatMemberStatus(_ context.Context, chatID, userID int64) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.statusErr != nil {
		return "", f.statusErr
	}
	s, ok := f.statuses[[2]int64{chatID, userID}]
	if !ok {
		return "", errors.New("Bad Request: chat not found")
	}
	return s, nil
}

func (f *fakeAPI) ChatType(_ context.Context, chatID int64) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t, ok := f.chatTypes[chatID]; ok {
		return t, nil
	}
	return "", fmt.Errorf("chat %d not found", chatID)
}

func (f *fakeAPI) CopyMessage(_ context.Context, to, from int64, messageID, replyTo int, markup *tgbotapi.InlineKeyboardMarkup) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.copyErr != nil {
		return 0, f.copyErr
	}
	f.nextID++
	f.copies = append(f.copies, copyCall{To: to, From: from, MessageID: messageID, ReplyTo: replyTo, Markup: markup, ResultID: f.nextID})
	return f.nextID, nil
}

func (f *fakeAPI) EditReplyMarkup(_ context.Context, chatID int64, messageID int, markup tgbotapi.InlineKeyboardMarkup) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.editErr != nil {
		return f.editErr
	}
	f.edits = append(f.edits, editCall{ChatID: chatID, MessageID: messageID, Markup: markup})
	return nil
}

func (f *fakeAPI) DeleteMessage(_ context.Context, chatID int64, messageID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, [2]int64{chatID, int64(messageID)})
	return nil
}

func (f *fakeAPI) AnswerCallback(_ context.Context, _ string, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.answers = append(f.answers, text)
	return nil
}

func (f *fakeAPI) SendText(_ context.Context, chatID int64, text string, _ int, markup *tgbotapi.InlineKeyboardMarkup) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentText{ChatID: chatID, Text: text, Markup: markup})
	return nil
}

func (f *fakeAPI) lastSent(t *testing.T) sentText {
	t.Helper()
	if len(f.sent) == 0 {
		t.Fatalf("nothing was sent")
	}
	return f.sent[len(f.sent)-1]
}

// harness wires a Relay over a real SQLite store and write queue.
type harness struct {
	api   *fakeAPI
	relay *Relay
	kv    repo.Store
	q     *queue.Queue
	rec   *stats.Recorder
	text  *i18n.Localizer
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(1)
	}
	kv := repo.NewSQLiteStore(db)
	t.Cleanup(func() { _ = kv.Close() })

	q := queue.New(kv)
	rec := stats.NewRecorder(kv, 3)
	text := i18n.New("ru")
	api := newFakeAPI()
	return &harness{
		api:  api,
		kv:   kv,
		q:    q,
		rec:  rec,
		text: text,
		relay: &Relay{
			API:         api,
			Sessions:    session.NewStore(kv, q),
			Stats:       rec,
			Text:        text,
			StatsSecret: "s3cret",
		},
	}
}

// send dispatches u and then lets the queue worker catch up, the way the
// background consumer would between two Telegram deliveries.
func (h *harness) send(t *testing.T, u tgbotapi.Update) error {
	t.Helper()
	err := h.relay.Route(context.Background(), u)
	if _, derr := h.q.Drain(context.Background()); derr != nil {
		t.Fatalf("drain: %v", derr)
	}
	return err
}

func (h *harness) en(key string, args ...any) string { return h.text.T("en", key, args...) }

func user(id int64) *tgbotapi.User {
	return &tgbotapi.User{ID: id, FirstName: "u", LanguageCode: "en"}
}

func privateText(userID int64, msgID int, text string) tgbotapi.Update {
	return tgbotapi.Update{UpdateID: msgID, Message: &tgbotapi.Message{
		MessageID: msgID,
		From:      user(userID),
		Chat:      &tgbotapi.Chat{ID: userID, Type: "private"},
		Date:      1700000000,
		Text:      text,
	}}
}

func command(chatID int64, chatType string, userID int64, cmd, args string) tgbotapi.Update {
	text := "/" + cmd
	if args != "" {
		text += " " + args
	}
	return tgbotapi.Update{UpdateID: 1, Message: &tgbotapi.Message{
		MessageID: 1,
		From:      user(userID),
		Chat:      &tgbotapi.Chat{ID: chatID, Type: chatType},
		Date:      1700000000,
		Text:      text,
		Entities:  []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(cmd) + 1}},
	}}
}

func reportClick(userID, chatID int64, messageID int, markup *tgbotapi.InlineKeyboardMarkup) tgbotapi.Update {
	return tgbotapi.Update{UpdateID: 2, CallbackQuery: &tgbotapi.CallbackQuery{
		ID:   fmt.Sprintf("cb-%d", userID),
		From: user(userID),
		Data: "callbackReport",
		Message: &tgbotapi.Message{
			MessageID:   messageID,
			Chat:        &tgbotapi.Chat{ID: chatID, Type: "supergroup"},
			ReplyMarkup: markup,
		},
	}}
}
