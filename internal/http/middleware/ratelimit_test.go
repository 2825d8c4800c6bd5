package middleware

import (
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func TestKeyFuncs(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	var byIP, byRoute string
	r.POST("/webhook/:secret", func(c *gin.Context) {
		byIP = KeyByIP()(c)
		byRoute = KeyByRoute()(c)
	})
	req := httptest.NewRequest(http.MethodPost, "/webhook/s", nil)
	req.RemoteAddr = net.JoinHostPort("203.0.113.9", "12345")
	r.ServeHTTP(httptest.NewRecorder(), req)

	if byIP != "ip:203.0.113.9" {
		t.Fatalf("KeyByIP = %q", byIP)
	}
	if byRoute != "/webhook/:secret|203.0.113.9" {
		t.Fatalf("KeyByRoute = %q", byRoute)
	}
}

func TestRateLimiter_BurstThen429(t *testing.T) {
	rl := NewRateLimiter(0.0001, 2, nil)
	r := newEngine(RequestID(), rl.Handler())
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 2; i++ {
		if w := do(r, http.MethodGet, "/x", nil, nil); w.Code != http.StatusOK {
			t.Fatalf("request %d: status %d, want 200", i, w.Code)
		}
	}
	w := do(r, http.MethodGet, "/x", nil, nil)
	if w.Code != http.StatusTooManyRequests || w.Header().Get("Retry-After") != "1" {
		t.Fatalf("expected 429 with Retry-After, got %d %q", w.Code, w.Header().Get("Retry-After"))
	}
	var body map[string]string
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	if body["code"] != "rate_limited" || body["request_id"] == "" {
		t.Fatalf("unexpected body: %v", body)
	}
}

func TestRateLimiter_BurstCoercionAndReuse(t *testing.T) {
	rl := NewRateLimiter(1, 0, KeyByIP())
	if rl.burst != 1 {
		t.Fatalf("burst coercion failed: %d", rl.burst)
	}
	if rl.limiter("a") != rl.limiter("a") {
		t.Fatalf("expected the same bucket for the same key")
	}
}

func TestRateLimiter_SweepsIdleBuckets(t *testing.T) {
	rl := NewRateLimiter(1, 1, KeyByIP())
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return base }
	rl.limiter("old")

	rl.now = func() time.Time { return base.Add(time.Hour) }
	rl.lookups = sweepEvery - 1
	rl.limiter("fresh")

	if n := rl.size(); n != 1 {
		t.Fatalf("expected only the fresh bucket after sweep, have %d", n)
	}
}

func mustCtx() *gin.Context {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	return c
}
