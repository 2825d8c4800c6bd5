// Package httpapi wires the Gin engine: the Telegram webhook, health and
// metrics endpoints, and the admin API, behind tracing, correlation ids,
// redacted logging, recovery, metrics, rate limiting, CORS and security
// headers.
package httpapi

import (
	"context"
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/tbourn/anonbot/internal/config"
	"github.com/tbourn/anonbot/internal/http/handlers"
	"github.com/tbourn/anonbot/internal/http/middleware"
	"github.com/tbourn/anonbot/internal/repo"
)

// Deps are the application services the routes call into.
type Deps struct {
	Dispatcher handlers.Dispatcher
	Store      repo.Store
	Stats      handlers.StatsReader
}

// RegisterRoutes attaches middleware and endpoints to r.
//
// Middleware order:
//  1. OpenTelemetry
//  2. RequestID
//  3. RedactingLogger (webhook secret, token and stats secret scrubbed)
//  4. Recovery
//  5. Body size limit
//  6. Metrics
//  7. Rate limiter, ahead of update dedup so rejected updates stay unclaimed
//  8. CORS and security headers
//
// The webhook is only mounted in webhook mode and the admin API only when a
// stats secret is configured.
func RegisterRoutes(r *gin.Engine, d Deps, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))
	r.Use(middleware.RequestID())
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		Secrets: []string{cfg.WebhookSecret, cfg.BotToken, cfg.StatsSecret},
	}))
	r.Use(middleware.Recovery())
	r.Use(limitBody(1 << 20))
	r.Use(middleware.Metrics())
	r.Use(middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByRoute()).Handler())
	r.Use(corsMiddleware(cfg.CORS.AllowedOrigins))
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS: cfg.Security.EnableHSTS,
		HSTSMaxAge: cfg.Security.HSTSMaxAge,
	}))

	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if cfg.Mode == config.ModeWebhook {
		claim := func(ctx context.Context, id int, now time.Time) (bool, error) {
			return repo.ClaimUpdate(ctx, d.Store, id, now)
		}
		r.POST("/webhook/:secret",
			webhookSecret(cfg.WebhookSecret),
			middleware.UpdateDedup(claim),
			handlers.NewWebhook(d.Dispatcher).Receive,
		)
	}

	if cfg.StatsSecret != "" {
		h := handlers.NewAdmin(d.Stats, d.Store)
		admin := r.Group("/admin",
			middleware.RequireSecret(cfg.StatsSecret),
			middleware.SecurityHeaders(middleware.SecurityOptions{NoStore: true}),
			gzip.Gzip(gzip.DefaultCompression),
		)
		admin.GET("/stats", h.GetStats)
		admin.GET("/chats/:id", h.GetChat)
		admin.GET("/dump", h.Dump)
	}
}

// webhookSecret answers 404 unless the :secret path segment matches, so the
// route is indistinguishable from a missing one.
func webhookSecret(secret string) gin.HandlerFunc {
	want := []byte(secret)
	return func(c *gin.Context) {
		if len(want) == 0 || subtle.ConstantTimeCompare([]byte(c.Param("secret")), want) != 1 {
			handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
			return
		}
		c.Next()
	}
}

// corsMiddleware allows any origin when none are configured, otherwise the
// allowlist. Only GET and POST are exposed.
func corsMiddleware(origins []string) gin.HandlerFunc {
	cc := cors.Config{
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", middleware.HeaderStatsSecret},
		ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 {
		cc.AllowAllOrigins = true
	} else {
		cc.AllowOrigins = origins
	}
	return cors.New(cc)
}

// limitBody caps request bodies at maxBytes.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
