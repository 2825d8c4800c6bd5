// Package handlers – webhook
//
// This file receives Telegram updates posted to the webhook route and hands
// them to the bot dispatcher.
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Dispatcher processes one Telegram update. Implementations log and swallow
// their own failures.
type Dispatcher interface {
	Dispatch(ctx context.Context, u tgbotapi.Update)
}

// Webhook receives updates pushed by Telegram.
type Webhook struct {
	D Dispatcher
}

// NewWebhook returns a webhook handler dispatching to d.
func NewWebhook(d Dispatcher) *Webhook { return &Webhook{D: d} }

// Receive handles POST /webhook/:secret. The update is processed before the
// response is written, so Telegram sees a 200 only once the relay ran. The
// dispatch context is detached from the request so a dropped connection does
// not abort a half-done relay.
func (h *Webhook) Receive(c *gin.Context) {
	var u tgbotapi.Update
	if err := c.ShouldBindJSON(&u); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadUpdate, "body is not a Telegram update")
		return
	}
	h.D.Dispatch(context.WithoutCancel(c.Request.Context()), u)
	ok(c, gin.H{"ok": true})
}
