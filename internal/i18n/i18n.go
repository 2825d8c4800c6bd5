// Package i18n renders the bot's user-facing strings in English and Russian
// using golang.org/x/text message catalogs.
package i18n

import (
	"strconv"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Message keys.
const (
	StartWelcome          = "start.welcome"
	StartParamsInPublic   = "start.paramsInPublicChat"
	StartErrorFirstParam  = "start.errorFirstParam"
	StartNoPermissions    = "start.errorNoPermissions"
	StartInputMessage     = "start.inputMessageRequest"
	HelpPrivate           = "help.privateMessage"
	HelpChat              = "help.chatMessage"
	SendAnonymously       = "inline.sendAnonymously"
	ReplyAnonymously      = "inline.replyAnonymously"
	SeeInChat             = "inline.seeInTheChat"
	CancelDefault         = "cancel.default"
	ProcessWrongType      = "process.errorWrongMessageType"
	ProcessChatIDAccepted = "process.chatIdAccepted"
	ProcessInputChatID    = "process.inputChatIdRequest"
	ProcessNoPermissions  = "process.errorNoPermissions"
	ProcessMessageSent    = "process.messageSent"
	ReportDelivered       = "callbackReport.reportDelivered"
	ReportReverted        = "callbackReport.reportReverted"
	NewChatWelcome        = "newChat.welcome"
	StatsNothing          = "stats.nothing"
	StatsChat             = "stats.info"
)

var supported = []language.Tag{language.Russian, language.English}

var entries = map[language.Tag]map[string]string{
	language.English: {
		StartWelcome:          "Hi! I deliver anonymous messages to group chats.\nAdd me to a group and press \"Send anonymously\" there, or send me the chat id.",
		StartParamsInPublic:   "Open a private chat with me to send an anonymous message.",
		StartErrorFirstParam:  "The chat id in the link is invalid.",
		StartNoPermissions:    "You or the bot are not a member of that chat.",
		StartInputMessage:     "Chat %s selected. Send the message you want to publish anonymously.",
		HelpPrivate:           "Send me a chat id, then the message. It will be published in that chat without your name.\n/cancel drops the selected chat.",
		HelpChat:              "This chat id is %s. Press the button to send an anonymous message here.",
		SendAnonymously:       "Send anonymously",
		ReplyAnonymously:      "Reply anonymously",
		SeeInChat:             "See in the chat",
		CancelDefault:         "Cancelled.",
		ProcessWrongType:      "This type of message can't be sent anonymously.",
		ProcessChatIDAccepted: "Chat %s accepted. Now send your message.",
		ProcessInputChatID:    "Send the chat id first.",
		ProcessNoPermissions:  "You or the bot are not a member of that chat.",
		ProcessMessageSent:    "Message sent.",
		ReportDelivered:       "Report delivered.",
		ReportReverted:        "Report reverted.",
		NewChatWelcome:        "Hi! Chat id is %s. Press the button to send an anonymous message to this chat.",
		StatsNothing:          "Nothing here.",
		StatsChat:             "Published: %d\nReports received: %d\nDeleted: %d",
	},
	language.Russian: {
		StartWelcome:          "Привет! Я публикую анонимные сообщения в групповых чатах.\nДобавь меня в группу и нажми там «Отправить анонимно» или пришли мне id чата.",
		StartParamsInPublic:   "Открой личный чат со мной, чтобы отправить анонимное сообщение.",
		StartErrorFirstParam:  "Неверный id чата в ссылке.",
		StartNoPermissions:    "Ты или бот не состоите в этом чате.",
		StartInputMessage:     "Выбран чат %s. Пришли сообщение, которое нужно опубликовать анонимно.",
		HelpPrivate:           "Пришли мне id чата, а затем сообщение. Оно будет опубликовано в этом чате без твоего имени.\n/cancel сбрасывает выбранный чат.",
		HelpChat:              "Id этого чата: %s. Нажми кнопку, чтобы отправить сюда анонимное сообщение.",
		SendAnonymously:       "Отправить анонимно",
		ReplyAnonymously:      "Ответить анонимно",
		SeeInChat:             "Посмотреть в чате",
		CancelDefault:         "Отменено.",
		ProcessWrongType:      "Такой тип сообщения нельзя отправить анонимно.",
		ProcessChatIDAccepted: "Чат %s принят. Теперь пришли сообщение.",
		ProcessInputChatID:    "Сначала пришли id чата.",
		ProcessNoPermissions:  "Ты или бот не состоите в этом чате.",
		ProcessMessageSent:    "Сообщение отправлено.",
		ReportDelivered:       "Жалоба отправлена.",
		ReportReverted:        "Жалоба отозвана.",
		NewChatWelcome:        "Привет! Id чата: %s. Нажми кнопку, чтобы отправить сюда анонимное сообщение.",
		StatsNothing:          "Здесь ничего нет.",
		StatsChat:             "Опубликовано: %d\nЖалоб получено: %d\nУдалено: %d",
	},
}

// Localizer picks a printer for a Telegram language_code.
type Localizer struct {
	cat      catalog.Catalog
	matcher  language.Matcher
	fallback language.Tag
}

// New builds the catalog. fallback is a BCP 47 tag used for unknown or
// unsupported languages; an invalid value falls back to Russian.
func New(fallback string) *Localizer {
	m := language.NewMatcher(supported)
	fb := language.Russian
	if t, err := language.Parse(fallback); err == nil {
		fb = resolve(m, t, language.Russian)
	}

	b := catalog.NewBuilder(catalog.Fallback(fb))
	for tag, msgs := range entries {
		for key, msg := range msgs {
			_ = b.SetString(tag, key, msg)
		}
	}
	return &Localizer{
		cat:      b,
		matcher:  m,
		fallback: fb,
	}
}

// Tag resolves a Telegram language code to a supported tag.
func (l *Localizer) Tag(code string) language.Tag {
	if code == "" {
		return l.fallback
	}
	return resolve(l.matcher, language.Make(code), l.fallback)
}

// resolve maps t onto one of the supported tags, stripping any region or
// extension the matcher adds.
func resolve(m language.Matcher, t, fallback language.Tag) language.Tag {
	tag, _, conf := m.Match(t)
	if conf == language.No {
		return fallback
	}
	base, _ := tag.Base()
	for _, s := range supported {
		if sb, _ := s.Base(); sb == base {
			return s
		}
	}
	return fallback
}

// ChatID renders a chat id for message text. The printer groups digits by
// locale, so ids go in as plain strings to stay copyable.
func ChatID(id int64) string { return strconv.FormatInt(id, 10) }

// T renders key for the given language code.
func (l *Localizer) T(code, key string, args ...any) string {
	p := message.NewPrinter(l.Tag(code), message.Catalog(l.cat))
	return p.Sprintf(key, args...)
}
