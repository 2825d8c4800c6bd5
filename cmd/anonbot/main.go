// Command anonbot runs the anonymous relay bot, either behind a Telegram
// webhook or by long polling.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"

	"github.com/tbourn/anonbot/internal/bot"
	"github.com/tbourn/anonbot/internal/config"
	httpapi "github.com/tbourn/anonbot/internal/http"
	"github.com/tbourn/anonbot/internal/i18n"
	"github.com/tbourn/anonbot/internal/observability"
	"github.com/tbourn/anonbot/internal/queue"
	"github.com/tbourn/anonbot/internal/repo"
	"github.com/tbourn/anonbot/internal/retention"
	"github.com/tbourn/anonbot/internal/session"
	"github.com/tbourn/anonbot/internal/stats"
	"github.com/tbourn/anonbot/internal/sysutil"
	"github.com/tbourn/anonbot/internal/telegram"
)

// version is overridden at build time with -ldflags "-X main.version=…".
var version = "dev"

const shutdownTimeout = 15 * time.Second

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("anonbot_exit")
	}
}

// loadEnv reads .env.local for local development. A process that already
// has BOT_TOKEN is treated as deployed and left alone; a local one defaults
// to long polling.
func loadEnv() {
	if os.Getenv("BOT_TOKEN") != "" {
		return
	}
	if err := godotenv.Load(".env.local"); err != nil {
		return
	}
	if os.Getenv("BOT_MODE") == "" {
		_ = os.Setenv("BOT_MODE", config.ModePoll)
	}
}

// run wires every component and blocks until a signal arrives. Shutdown
// stops intake first (HTTP server, poller), then closes the queue to new
// writes, stops the worker, and applies whatever is left with one final
// drain so no acknowledged session change is lost.
func run() error {
	loadEnv()
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	sysutil.SetupLogger(cfg.LogLevel, cfg.LogPretty, os.Stderr)
	gin.SetMode(cfg.GinMode)
	ver := sysutil.FirstNonEmpty(os.Getenv("APP_VERSION"), version)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tg, err := telegram.New(cfg.BotToken)
	if err != nil {
		return fmt.Errorf("telegram: %w", err)
	}
	me := tg.Self()
	log.Info().Str("bot", me.UserName).Str("mode", cfg.Mode).Str("version", ver).Msg("anonbot_starting")

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, ver, attribute.String("telegram.bot", me.UserName))
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownOTel(sctx); err != nil {
			log.Warn().Err(err).Msg("otel_shutdown_failed")
		}
	}()

	kv, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("store: %w", err)
	}
	defer func() {
		if err := kv.Close(); err != nil {
			log.Error().Err(err).Msg("store_close_failed")
		}
	}()

	q := queue.New(kv, queue.WithPollInterval(cfg.QueuePollInterval))
	rec := stats.NewRecorder(kv, cfg.ReportsToDelete)
	relay := &bot.Relay{
		API:         tg,
		Sessions:    session.NewStore(kv, q),
		Stats:       rec,
		Text:        i18n.New(cfg.DefaultLanguage),
		StatsSecret: cfg.StatsSecret,
	}

	// The queue worker outlives ctx so it can finish what the last updates
	// enqueued; it is stopped explicitly during shutdown.
	workerCtx, stopWorker := context.WithCancel(context.Background())
	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		_ = q.Run(workerCtx)
	}()

	job := &retention.Job{Store: kv, TTL: cfg.UpdateDedupTTL, Cron: cfg.RetentionCron}
	if err := job.Start(ctx); err != nil {
		stopWorker()
		return err
	}

	engine := gin.New()
	httpapi.RegisterRoutes(engine, httpapi.Deps{Dispatcher: relay, Store: kv, Stats: rec}, cfg)
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           engine,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}
	srvErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("http_listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			srvErr <- err
		}
	}()

	pollDone := make(chan error, 1)
	switch cfg.Mode {
	case config.ModeWebhook:
		if cfg.WebhookURL != "" {
			if err := tg.SetWebhook(cfg.WebhookURL); err != nil {
				log.Error().Err(err).Msg("set_webhook_failed")
			} else {
				log.Info().Msg("webhook_registered")
			}
		}
		close(pollDone)
	case config.ModePoll:
		go func() { pollDone <- telegram.Poll(ctx, tg, relay, cfg.MaxInFlight) }()
	}

	var runErr error
	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown_signal")
	case runErr = <-srvErr:
		log.Error().Err(runErr).Msg("http_server_failed")
		stop()
	}

	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		log.Warn().Err(err).Msg("http_shutdown_failed")
	}
	if err := <-pollDone; err != nil && !errors.Is(err, context.Canceled) {
		log.Warn().Err(err).Msg("poll_stopped_with_error")
	}

	// No handler is running any more: stop intake, stop the worker, then
	// apply whatever it had not reached yet.
	q.Close()
	stopWorker()
	<-workerDone
	if n, err := q.Drain(sctx); err != nil {
		log.Error().Err(err).Int("applied", n).Msg("final_drain_failed")
	} else {
		log.Info().Int("applied", n).Msg("final_drain_done")
	}
	return runErr
}

// openStore opens the engine named by STORE_DRIVER. SQLite is migrated on
// open; Pebble needs no schema.
func openStore(cfg config.Config) (repo.Store, error) {
	switch cfg.StoreDriver {
	case config.DriverPebble:
		log.Info().Str("path", cfg.PebblePath).Msg("store_pebble")
		return repo.OpenPebble(cfg.PebblePath)
	default:
		db, err := repo.OpenSQLite(cfg.DBPath)
		if err != nil {
			return nil, err
		}
		if err := repo.AutoMigrate(db); err != nil {
			return nil, err
		}
		log.Info().Str("path", cfg.DBPath).Msg("store_sqlite")
		return repo.NewSQLiteStore(db), nil
	}
}
