// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes the bot's settings:
// Telegram credentials and delivery mode, HTTP server timeouts, logging,
// storage engine, queue and retention tuning, rate limiting, and observability.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/adhocore/gronx"
)

// Delivery modes.
const (
	ModeWebhook = "webhook"
	ModePoll    = "poll"
)

// Storage engines.
const (
	DriverSQLite = "sqlite"
	DriverPebble = "pebble"
)

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "anonbot")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// Config holds all configuration values for the application.
type Config struct {
	// Telegram
	BotToken      string // BOT_TOKEN
	Mode          string // webhook|poll
	WebhookURL    string // public URL registered on start; empty skips registration
	WebhookSecret string // path segment of the webhook route; defaults to the token
	MaxInFlight   int    // concurrent updates in poll mode

	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // e.g. 20s
	IdleTimeout       time.Duration // e.g. 60s
	MaxHeaderBytes    int           // bytes
	GinMode           string        // debug|release|test

	// Logging
	LogLevel  string // debug|info|warn|error|fatal|panic
	LogPretty bool   // pretty console logs in dev

	// Storage
	StoreDriver string // sqlite|pebble
	DBPath      string // SQLite path
	PebblePath  string // Pebble directory

	// Relay
	QueuePollInterval time.Duration // worker rescan when no enqueue arrives
	ReportsToDelete   int           // default per-chat report threshold
	StatsSecret       string        // unlocks /stats totals and the admin API
	DefaultLanguage   string        // fallback for unknown language codes

	// Rate limiting
	RateRPS   float64 // tokens per second (>= 0)
	RateBurst int     // bucket size (>= 1)

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Update idempotency
	UpdateDedupTTL time.Duration // how long an update id marker is kept
	RetentionCron  string        // when expired markers are pruned

	// Observability
	OTEL OTELConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		// Telegram
		BotToken:      strings.TrimSpace(getenv("BOT_TOKEN", "")),
		Mode:          strings.ToLower(getenv("BOT_MODE", ModeWebhook)),
		WebhookURL:    strings.TrimSpace(getenv("WEBHOOK_URL", "")),
		WebhookSecret: strings.TrimSpace(getenv("WEBHOOK_SECRET", "")),
		MaxInFlight:   getint("MAX_IN_FLIGHT", 16),

		// Server
		Port:              getenv("PORT", "8080"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 20*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		// Logging
		LogLevel:  strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty: getbool("LOG_PRETTY", false),

		// Storage
		StoreDriver: strings.ToLower(getenv("STORE_DRIVER", DriverSQLite)),
		DBPath:      getenv("DB_PATH", "anonbot.db"),
		PebblePath:  getenv("PEBBLE_PATH", "data/pebble"),

		// Relay
		QueuePollInterval: getdur("QUEUE_POLL_INTERVAL", 500*time.Millisecond),
		ReportsToDelete:   getint("REPORTS_NEEDED_TO_DELETE", 3),
		StatsSecret:       getenv("STATS_SECRET", ""),
		DefaultLanguage:   strings.ToLower(getenv("DEFAULT_LANGUAGE", "ru")),

		// Rate limiting
		RateRPS:   getfloat("RATE_RPS", 30.0),
		RateBurst: getint("RATE_BURST", 60),

		// Web protection
		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		// Update idempotency
		UpdateDedupTTL: getdur("UPDATE_DEDUP_TTL", 48*time.Hour),
		RetentionCron:  strings.TrimSpace(getenv("RETENTION_CRON", "0 * * * *")),

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "anonbot"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}
	if cfg.WebhookSecret == "" {
		cfg.WebhookSecret = cfg.BotToken
	}
	if cfg.MaxInFlight < 1 {
		cfg.MaxInFlight = 1
	}

	// --- validation ---
	if cfg.BotToken == "" {
		return cfg, errors.New("BOT_TOKEN must not be empty")
	}
	switch cfg.Mode {
	case ModeWebhook, ModePoll:
	default:
		return cfg, errors.New("BOT_MODE must be one of: webhook, poll")
	}
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return cfg, errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 {
		return cfg, errors.New("timeouts must be positive durations")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return cfg, errors.New("MAX_HEADER_BYTES must be > 0")
	}
	switch cfg.StoreDriver {
	case DriverSQLite:
		if strings.TrimSpace(cfg.DBPath) == "" {
			return cfg, errors.New("DB_PATH must not be empty")
		}
	case DriverPebble:
		if strings.TrimSpace(cfg.PebblePath) == "" {
			return cfg, errors.New("PEBBLE_PATH must not be empty")
		}
	default:
		return cfg, errors.New("STORE_DRIVER must be one of: sqlite, pebble")
	}
	if cfg.QueuePollInterval <= 0 {
		return cfg, errors.New("QUEUE_POLL_INTERVAL must be > 0")
	}
	if cfg.ReportsToDelete < 1 {
		return cfg, errors.New("REPORTS_NEEDED_TO_DELETE must be >= 1")
	}
	switch cfg.DefaultLanguage {
	case "en", "ru":
	default:
		return cfg, errors.New("DEFAULT_LANGUAGE must be one of: en, ru")
	}
	if cfg.RateRPS < 0 {
		return cfg, errors.New("RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return cfg, errors.New("RATE_BURST must be >= 1")
	}
	if cfg.Security.HSTSMaxAge < 0 {
		return cfg, errors.New("HSTS_MAX_AGE must be >= 0")
	}
	if cfg.UpdateDedupTTL <= 0 {
		return cfg, errors.New("UPDATE_DEDUP_TTL must be > 0")
	}
	if !gronx.IsValid(cfg.RetentionCron) {
		return cfg, errors.New("RETENTION_CRON must be a valid cron expression")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}

	return cfg, nil
}

// ---- helpers ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}
