// Package handlers – admin API
//
// This file serves the secret-guarded read-only admin endpoints: global
// totals, per-chat totals, and an ordered dump of a key-value prefix.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/anonbot/internal/domain"
	"github.com/tbourn/anonbot/internal/repo"
	"github.com/tbourn/anonbot/internal/stats"
	"github.com/tbourn/anonbot/internal/utils"
)

// StatsReader is the read side of stats.Recorder.
type StatsReader interface {
	Totals(ctx context.Context) (stats.Totals, error)
	ChatTotals(ctx context.Context, chatID int64) (stats.ChatTotals, error)
	Settings(ctx context.Context, chatID int64) (domain.ChatSettings, error)
	Active(ctx context.Context, chatID int64) (bool, error)
}

// Admin serves operator read-only endpoints.
type Admin struct {
	Stats StatsReader
	Store repo.Store
}

const (
	defaultDumpLimit = 100
	maxDumpLimit     = 1000
)

// NewAdmin returns the admin handlers.
func NewAdmin(s StatsReader, kv repo.Store) *Admin { return &Admin{Stats: s, Store: kv} }

// ChatReport is the per-chat view returned by GET /admin/chats/:id.
type ChatReport struct {
	ChatID   int64               `json:"chatId"`
	Active   bool                `json:"active"`
	Settings domain.ChatSettings `json:"settings"`
	stats.ChatTotals
}

// DumpEntry is one store row rendered for humans.
type DumpEntry struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

// GetStats handles GET /admin/stats.
func (h *Admin) GetStats(c *gin.Context) {
	t, err := h.Stats.Totals(c.Request.Context())
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeStatsFailed, "could not read stats")
		return
	}
	ok(c, t)
}

// GetChat handles GET /admin/chats/:id.
func (h *Admin) GetChat(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "chat id must be an integer")
		return
	}
	ctx := c.Request.Context()
	rep := ChatReport{ChatID: id}
	if rep.ChatTotals, err = h.Stats.ChatTotals(ctx, id); err == nil {
		if rep.Settings, err = h.Stats.Settings(ctx, id); err == nil {
			rep.Active, err = h.Stats.Active(ctx, id)
		}
	}
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeStatsFailed, "could not read chat stats")
		return
	}
	ok(c, rep)
}

// Dump handles GET /admin/dump?table=CHATS&id=-100…&limit=N, listing rows
// under the table (and id) prefix in key order.
func (h *Admin) Dump(c *gin.Context) {
	table := strings.TrimSpace(c.Query("table"))
	if table == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "table is required")
		return
	}
	prefix := repo.K(table)
	if raw := c.Query("id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "id must be an integer")
			return
		}
		prefix = append(prefix, id)
	}
	limit := utils.ParseLimit(c.Query("limit"), defaultDumpLimit, maxDumpLimit)

	entries, err := h.Store.Scan(c.Request.Context(), prefix, limit)
	if err != nil {
		if errors.Is(err, repo.ErrBadKey) {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid prefix")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeDumpFailed, "could not scan store")
		return
	}

	out := make([]DumpEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, DumpEntry{Key: readableKey(e.Key), Value: readableValue(e.Value)})
	}
	ok(c, gin.H{"prefix": prefix.String(), "count": len(out), "entries": out})
}

// readableKey turns an encoded key back into its slash-joined tuple form.
func readableKey(enc string) string {
	k, err := repo.DecodeKey(enc)
	if err != nil {
		return enc
	}
	return k.String()
}

// readableValue inlines JSON documents and counters; anything else is shown
// as text.
func readableValue(b []byte) any {
	if json.Valid(b) {
		return json.RawMessage(b)
	}
	return string(b)
}
