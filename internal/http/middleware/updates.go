// Package middleware – update dedup
//
// This file drops Telegram updates that were already processed. The update
// id is read from the body, which is then restored for the handler.
package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const updateIDKey = "update.id"

// UpdateClaimer records an update id and reports whether it is new.
// repo.ClaimUpdate bound to a store satisfies it.
type UpdateClaimer func(ctx context.Context, updateID int, now time.Time) (bool, error)

// UpdateIDFrom returns the update id read by UpdateDedup.
func UpdateIDFrom(c *gin.Context) (int, bool) {
	v, ok := c.Get(updateIDKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(int)
	return id, ok
}

// UpdateDedup drops webhook deliveries Telegram already sent. It peeks the
// update_id from the body, restores the body for the handler, and claims the
// id. A replay is acknowledged with 200 so Telegram stops retrying. When the
// claim itself fails the update is processed anyway: a duplicate relay is
// preferable to a lost one.
func UpdateDedup(claim UpdateClaimer) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"request_id": RequestIDFrom(c),
				"code":       "bad_request",
				"message":    "unreadable body",
			})
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		var head struct {
			UpdateID *int `json:"update_id"`
		}
		if err := json.Unmarshal(body, &head); err != nil || head.UpdateID == nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"request_id": RequestIDFrom(c),
				"code":       "bad_update",
				"message":    "body is not a Telegram update",
			})
			return
		}
		id := *head.UpdateID
		c.Set(updateIDKey, id)

		fresh, err := claim(c.Request.Context(), id, time.Now())
		if err != nil {
			LoggerFrom(c).Warn().Err(err).Int("update_id", id).Msg("update claim failed; processing anyway")
			c.Next()
			return
		}
		if !fresh {
			dedupedUpdates.Inc()
			c.AbortWithStatusJSON(http.StatusOK, gin.H{"ok": true, "duplicate": true})
			return
		}
		c.Next()
	}
}
