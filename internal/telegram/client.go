// Package telegram adapts the go-telegram-bot-api client to the relay's API
// interface and provides the long-poll receiver.
package telegram

import (
	"context"
	"fmt"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Client implements bot.API over *tgbotapi.BotAPI. The underlying library is
// not context-aware; calls check ctx before going out.
type Client struct {
	api *tgbotapi.BotAPI
}

// New authenticates with token (getMe) against the public Bot API.
func New(token string) (*Client, error) {
	return NewWithEndpoint(token, tgbotapi.APIEndpoint, http.DefaultClient)
}

// NewWithEndpoint is New against a custom endpoint format such as
// "http://127.0.0.1:8081/bot%s/%s".
func NewWithEndpoint(token, endpoint string, hc *http.Client) (*Client, error) {
	api, err := tgbotapi.NewBotAPIWithClient(token, endpoint, hc)
	if err != nil {
		return nil, fmt.Errorf("telegram auth: %w", err)
	}
	return &Client{api: api}, nil
}

// Self returns the bot user resolved by getMe at construction.
func (c *Client) Self() tgbotapi.User { return c.api.Self }

// ChatMemberStatus returns the membership status of userID in chatID, such
// as "member" or "left".
func (c *Client) ChatMemberStatus(ctx context.Context, chatID, userID int64) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m, err := c.api.GetChatMember(tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{ChatID: chatID, UserID: userID},
	})
	if err != nil {
		return "", err
	}
	return m.Status, nil
}

// ChatType returns the type of chatID: private, group, supergroup or
// channel.
func (c *Client) ChatType(ctx context.Context, chatID int64) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	ch, err := c.api.GetChat(tgbotapi.ChatInfoConfig{ChatConfig: tgbotapi.ChatConfig{ChatID: chatID}})
	if err != nil {
		return "", err
	}
	return ch.Type, nil
}

// CopyMessage copies a message into toChatID without a forward header and
// returns the id of the copy. replyTo of zero sends it as a plain message.
func (c *Client) CopyMessage(ctx context.Context, toChatID, fromChatID int64, messageID, replyTo int, markup *tgbotapi.InlineKeyboardMarkup) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	cfg := tgbotapi.NewCopyMessage(toChatID, fromChatID, messageID)
	if replyTo > 0 {
		cfg.ReplyToMessageID = replyTo
		cfg.AllowSendingWithoutReply = true
	}
	if markup != nil {
		cfg.ReplyMarkup = *markup
	}
	id, err := c.api.CopyMessage(cfg)
	if err != nil {
		return 0, err
	}
	return id.MessageID, nil
}

// EditReplyMarkup replaces the inline keyboard of a message.
func (c *Client) EditReplyMarkup(ctx context.Context, chatID int64, messageID int, markup tgbotapi.InlineKeyboardMarkup) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := c.api.Request(tgbotapi.NewEditMessageReplyMarkup(chatID, messageID, markup))
	return err
}

// DeleteMessage deletes a message in chatID.
func (c *Client) DeleteMessage(ctx context.Context, chatID int64, messageID int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := c.api.Request(tgbotapi.NewDeleteMessage(chatID, messageID))
	return err
}

// AnswerCallback shows text to the user who pressed a button.
func (c *Client) AnswerCallback(ctx context.Context, callbackID, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := c.api.Request(tgbotapi.NewCallback(callbackID, text))
	return err
}

// SendText sends text to chatID, optionally as a reply and with an inline
// keyboard.
func (c *Client) SendText(ctx context.Context, chatID int64, text string, replyTo int, markup *tgbotapi.InlineKeyboardMarkup) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(chatID, text)
	if replyTo > 0 {
		msg.ReplyToMessageID = replyTo
	}
	if markup != nil {
		msg.ReplyMarkup = *markup
	}
	_, err := c.api.Send(msg)
	return err
}

// SetWebhook registers url with Telegram.
func (c *Client) SetWebhook(url string) error {
	wh, err := tgbotapi.NewWebhook(url)
	if err != nil {
		return err
	}
	_, err = c.api.Request(wh)
	return err
}

// DeleteWebhook removes any registered webhook so long polling can start.
func (c *Client) DeleteWebhook() error {
	_, err := c.api.Request(tgbotapi.DeleteWebhookConfig{})
	return err
}
