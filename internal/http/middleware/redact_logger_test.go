package middleware

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

const testToken = "123456789:AAHdqTcvCH1vGWJxfSeofSAs0K5PALDsaw"

func lastLine(t *testing.T, s string) map[string]any {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(s), "\n")
	var m map[string]any
	if err := json.Unmarshal([]byte(lines[len(lines)-1]), &m); err != nil {
		t.Fatalf("decode log line %q: %v", lines[len(lines)-1], err)
	}
	return m
}

func TestRedactingLogger_RouteTemplateHidesSecret(t *testing.T) {
	buf := captureLogs(t)
	r := newEngine(RequestID(), RedactingLogger(RedactOptions{Secrets: []string{"s3cret"}}))
	r.POST("/webhook/:secret", func(c *gin.Context) {
		LoggerFrom(c).Info().Msg("inside")
		c.Status(http.StatusOK)
	})

	do(r, http.MethodPost, "/webhook/s3cret?x=s3cret", nil, map[string]string{
		"X-Stats-Secret": "admin",
		"User-Agent":     "tg " + testToken,
	})

	out := buf.String()
	if strings.Contains(out, "s3cret") || strings.Contains(out, testToken) || strings.Contains(out, "admin") {
		t.Fatalf("secret leaked into logs: %s", out)
	}
	if !strings.Contains(out, `"message":"inside"`) || !strings.Contains(out, `"request_id"`) {
		t.Fatalf("request-scoped logger not attached: %s", out)
	}
	m := lastLine(t, out)
	if m["path"] != "/webhook/:secret" || m["message"] != "http_request" {
		t.Fatalf("unexpected access log: %v", m)
	}
}

func TestRedactingLogger_UnmatchedPathScrubbed(t *testing.T) {
	buf := captureLogs(t)
	r := newEngine(RedactingLogger(RedactOptions{}))

	w := do(r, http.MethodGet, "/bot"+testToken+"/getMe", nil, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
	m := lastLine(t, buf.String())
	if m["level"] != "warn" {
		t.Fatalf("404 should log at warn, got %v", m["level"])
	}
	if p, _ := m["path"].(string); strings.Contains(p, testToken) || !strings.Contains(p, redacted) {
		t.Fatalf("path not scrubbed: %q", p)
	}
}

func TestRedactingLogger_ServerErrorLevel(t *testing.T) {
	buf := captureLogs(t)
	r := newEngine(RedactingLogger(RedactOptions{MaskHeaders: []string{"X-Custom"}}))
	r.GET("/fail", func(c *gin.Context) { c.Status(http.StatusBadGateway) })

	do(r, http.MethodGet, "/fail", nil, map[string]string{"X-Custom": "hide-me"})
	m := lastLine(t, buf.String())
	if m["level"] != "error" {
		t.Fatalf("5xx should log at error, got %v", m["level"])
	}
	if strings.Contains(buf.String(), "hide-me") {
		t.Fatalf("custom header not masked")
	}
}
