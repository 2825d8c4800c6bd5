// Package middleware – redacting access log
//
// This file logs one structured line per request with bot tokens, the webhook
// secret and secret-bearing headers masked, and attaches a request-scoped
// logger to the context.
package middleware

import (
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// tokenRE matches Telegram bot tokens ("<bot id>:<35 chars>").
var tokenRE = regexp.MustCompile(`\d{5,12}:[A-Za-z0-9_-]{30,}`)

const redacted = "[REDACTED]"

// RedactOptions configures RedactingLogger.
//
// Secrets are literal values (the webhook path secret, the bot token, the
// stats secret) replaced wherever they appear in the logged path or query.
// MaskHeaders adds header names to the always-masked Authorization, Cookie,
// X-Stats-Secret and X-Telegram-Bot-Api-Secret-Token.
type RedactOptions struct {
	Secrets     []string
	MaskHeaders []string
}

// RedactingLogger emits one structured access log per request with secrets
// scrubbed, and attaches a request-scoped logger for handlers. Bodies are
// never logged: they carry user messages.
func RedactingLogger(opts RedactOptions) gin.HandlerFunc {
	secrets := make([]string, 0, len(opts.Secrets))
	for _, s := range opts.Secrets {
		if s = strings.TrimSpace(s); s != "" {
			secrets = append(secrets, s)
		}
	}
	scrub := func(s string) string {
		if s == "" {
			return s
		}
		for _, sec := range secrets {
			s = strings.ReplaceAll(s, sec, redacted)
		}
		return tokenRE.ReplaceAllString(s, redacted)
	}

	masked := map[string]struct{}{
		"authorization":                   {},
		"cookie":                          {},
		"set-cookie":                      {},
		"x-stats-secret":                  {},
		"x-telegram-bot-api-secret-token": {},
	}
	for _, h := range opts.MaskHeaders {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			masked[h] = struct{}{}
		}
	}

	return func(c *gin.Context) {
		start := time.Now()

		// The route template never contains the secret; the raw path might.
		path := c.FullPath()
		if path == "" {
			path = scrub(c.Request.URL.Path)
		}

		headers := make(map[string]string, len(c.Request.Header))
		for k, vv := range c.Request.Header {
			if _, ok := masked[strings.ToLower(k)]; ok {
				headers[k] = redacted
				continue
			}
			headers[k] = scrub(strings.Join(vv, ", "))
		}

		l := log.With().
			Str("request_id", RequestIDFrom(c)).
			Str("method", c.Request.Method).
			Str("path", path).
			Str("remote_ip", c.ClientIP()).
			Logger()
		c.Set(loggerKey, &l)

		c.Next()

		status := c.Writer.Status()
		ev := l.Info()
		switch {
		case len(c.Errors) > 0 || status >= 500:
			ev = l.Error()
			if len(c.Errors) > 0 {
				ev = ev.Str("errors", scrub(c.Errors.String()))
			}
		case status >= 400:
			ev = l.Warn()
		}
		if id, ok := UpdateIDFrom(c); ok {
			ev = ev.Int("update_id", id)
		}
		ev.
			Str("query", scrub(c.Request.URL.RawQuery)).
			Int("status", status).
			Int("bytes", c.Writer.Size()).
			Dur("latency", time.Since(start)).
			Interface("headers", headers).
			Msg("http_request")
	}
}
