package config

import (
	"os"
	"reflect"
	"strings"
	"testing"
	"time"
)

// --- MustLoad ---

func TestMustLoad_PanicsOnInvalidConfig(t *testing.T) {
	t.Setenv("BOT_TOKEN", "123:abc")
	t.Setenv("LOG_LEVEL", "verbose") // invalid -> Load() error
	defer func() {
		if r := recover(); r == nil {
			t.Fatalf("MustLoad should panic on invalid config")
		}
	}()
	_ = MustLoad()
}

func TestMustLoad_Success_NoPanic(t *testing.T) {
	t.Setenv("BOT_TOKEN", "123:abc")
	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("MustLoad should not panic on valid defaults, got: %v", r)
		}
	}()
	cfg := MustLoad()
	if cfg.BotToken != "123:abc" {
		t.Fatalf("unexpected token from MustLoad: %q", cfg.BotToken)
	}
}

// --- Load defaults ---

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("BOT_TOKEN", " 123:abc ")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.BotToken != "123:abc" || cfg.WebhookSecret != "123:abc" {
		t.Fatalf("token/secret unexpected: %q %q", cfg.BotToken, cfg.WebhookSecret)
	}
	if cfg.Mode != ModeWebhook || cfg.StoreDriver != DriverSQLite {
		t.Fatalf("mode/driver unexpected: %q %q", cfg.Mode, cfg.StoreDriver)
	}
	if cfg.QueuePollInterval != 500*time.Millisecond || cfg.ReportsToDelete != 3 {
		t.Fatalf("relay defaults unexpected: %+v", cfg)
	}
	if cfg.DefaultLanguage != "ru" || cfg.StatsSecret != "" {
		t.Fatalf("language/secret defaults unexpected: %+v", cfg)
	}
	if cfg.UpdateDedupTTL != 48*time.Hour || cfg.RetentionCron != "0 * * * *" {
		t.Fatalf("dedup defaults unexpected: %v %q", cfg.UpdateDedupTTL, cfg.RetentionCron)
	}
	if cfg.OTEL.ServiceName != "anonbot" {
		t.Fatalf("otel service default unexpected: %q", cfg.OTEL.ServiceName)
	}
	if cfg.CORS.AllowedOrigins != nil {
		t.Fatalf("expected no CORS origins by default, got %#v", cfg.CORS.AllowedOrigins)
	}
}

// --- Load success + normalization + parsing ---

func TestLoad_Success_DefaultsAndOverrides(t *testing.T) {
	// Telegram
	t.Setenv("BOT_TOKEN", "123:abc")
	t.Setenv("BOT_MODE", "POLL")
	t.Setenv("WEBHOOK_URL", " https://bot.example.com/webhook/s3cret ")
	t.Setenv("WEBHOOK_SECRET", "s3cret")
	t.Setenv("MAX_IN_FLIGHT", "0") // clamps to 1

	// Server timeouts / sizes (valid)
	t.Setenv("PORT", "8088")
	t.Setenv("READ_TIMEOUT", "2s")
	t.Setenv("READ_HEADER_TIMEOUT", "1s")
	t.Setenv("WRITE_TIMEOUT", "3s")
	t.Setenv("IDLE_TIMEOUT", "4s")
	t.Setenv("MAX_HEADER_BYTES", "8192")
	t.Setenv("GIN_MODE", "weird") // will normalize to "release"

	// Logging
	t.Setenv("LOG_LEVEL", "warning") // will normalize to "warn"
	t.Setenv("LOG_PRETTY", "yes")

	// Storage
	t.Setenv("STORE_DRIVER", "Pebble")
	t.Setenv("PEBBLE_PATH", "/var/lib/anonbot")

	// Relay
	t.Setenv("QUEUE_POLL_INTERVAL", "2s")
	t.Setenv("REPORTS_NEEDED_TO_DELETE", "5")
	t.Setenv("STATS_SECRET", "letmein")
	t.Setenv("DEFAULT_LANGUAGE", "EN")

	// Rate limiting (use invalids for parse to fall back to defaults)
	t.Setenv("RATE_RPS", "x")      // -> default 30.0
	t.Setenv("RATE_BURST", "nope") // -> default 60

	// Web protection
	t.Setenv("CORS_ALLOWED_ORIGINS", " https://a.com , , http://b ")
	t.Setenv("ENABLE_HSTS", "TRUE")
	t.Setenv("HSTS_MAX_AGE", "24h")

	// Update idempotency
	t.Setenv("UPDATE_DEDUP_TTL", "12h")
	t.Setenv("RETENTION_CRON", "*/15 * * * *")

	// OTEL
	t.Setenv("OTEL_ENABLED", "1")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "otel:4317")
	t.Setenv("OTEL_EXPORTER_OTLP_INSECURE", "0")
	t.Setenv("OTEL_SERVICE_NAME", "svc")
	t.Setenv("OTEL_TRACES_SAMPLER_ARG", "0.75")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	// Telegram
	if cfg.Mode != ModePoll || cfg.WebhookURL != "https://bot.example.com/webhook/s3cret" ||
		cfg.WebhookSecret != "s3cret" || cfg.MaxInFlight != 1 {
		t.Fatalf("telegram fields unexpected: %+v", cfg)
	}

	// Server
	if cfg.Port != "8088" ||
		cfg.ReadTimeout != 2*time.Second ||
		cfg.ReadHeaderTimeout != 1*time.Second ||
		cfg.WriteTimeout != 3*time.Second ||
		cfg.IdleTimeout != 4*time.Second ||
		cfg.MaxHeaderBytes != 8192 ||
		cfg.GinMode != "release" {
		t.Fatalf("server fields unexpected: %+v", cfg)
	}

	// Logging
	if cfg.LogLevel != "warn" || !cfg.LogPretty {
		t.Fatalf("logging unexpected: %+v", cfg)
	}

	// Storage
	if cfg.StoreDriver != DriverPebble || cfg.PebblePath != "/var/lib/anonbot" {
		t.Fatalf("storage unexpected: %+v", cfg)
	}

	// Relay
	if cfg.QueuePollInterval != 2*time.Second || cfg.ReportsToDelete != 5 ||
		cfg.StatsSecret != "letmein" || cfg.DefaultLanguage != "en" {
		t.Fatalf("relay unexpected: %+v", cfg)
	}

	// Rate limiting (parse fallback to defaults)
	if cfg.RateRPS != 30.0 || cfg.RateBurst != 60 {
		t.Fatalf("rate limiting unexpected: %+v", cfg)
	}

	// Web protection
	if !reflect.DeepEqual(cfg.CORS.AllowedOrigins, []string{"https://a.com", "http://b"}) {
		t.Fatalf("cors origins unexpected: %#v", cfg.CORS.AllowedOrigins)
	}
	if !cfg.Security.EnableHSTS || cfg.Security.HSTSMaxAge != 24*time.Hour {
		t.Fatalf("security unexpected: %+v", cfg.Security)
	}

	// Update idempotency
	if cfg.UpdateDedupTTL != 12*time.Hour || cfg.RetentionCron != "*/15 * * * *" {
		t.Fatalf("dedup unexpected: %v %q", cfg.UpdateDedupTTL, cfg.RetentionCron)
	}

	// OTEL
	if !cfg.OTEL.Enabled || cfg.OTEL.Endpoint != "otel:4317" || cfg.OTEL.Insecure || cfg.OTEL.ServiceName != "svc" || cfg.OTEL.SampleRatio != 0.75 {
		t.Fatalf("otel unexpected: %+v", cfg.OTEL)
	}
}

// --- Load validations (each case triggers exactly one validation error) ---

func TestLoad_ValidationErrors(t *testing.T) {
	cases := []struct {
		name, key, val, want string
	}{
		{"invalid BOT_MODE", "BOT_MODE", "carrier-pigeon", "BOT_MODE"},
		{"invalid LOG_LEVEL", "LOG_LEVEL", "verbose", "LOG_LEVEL"},
		{"empty PORT via spaces", "PORT", "   ", "PORT must not be empty"},
		{"non-positive timeouts", "READ_TIMEOUT", "0s", "timeouts must be positive"},
		{"max header bytes <= 0", "MAX_HEADER_BYTES", "0", "MAX_HEADER_BYTES"},
		{"empty DB_PATH", "DB_PATH", "   ", "DB_PATH must not be empty"},
		{"unknown STORE_DRIVER", "STORE_DRIVER", "redis", "STORE_DRIVER"},
		{"queue poll non-positive", "QUEUE_POLL_INTERVAL", "0s", "QUEUE_POLL_INTERVAL"},
		{"report threshold < 1", "REPORTS_NEEDED_TO_DELETE", "0", "REPORTS_NEEDED_TO_DELETE"},
		{"unsupported language", "DEFAULT_LANGUAGE", "de", "DEFAULT_LANGUAGE"},
		{"rate rps negative", "RATE_RPS", "-1", "RATE_RPS"},
		{"rate burst < 1", "RATE_BURST", "0", "RATE_BURST"},
		{"hsts max age negative", "HSTS_MAX_AGE", "-1s", "HSTS_MAX_AGE"},
		{"dedup ttl non-positive", "UPDATE_DEDUP_TTL", "0s", "UPDATE_DEDUP_TTL"},
		{"bad retention cron", "RETENTION_CRON", "every hour", "RETENTION_CRON"},
		{"otel sample ratio out of range", "OTEL_TRACES_SAMPLER_ARG", "1.5", "OTEL_TRACES_SAMPLER_ARG"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("BOT_TOKEN", "123:abc")
			t.Setenv(tc.key, tc.val)
			if _, err := Load(); err == nil || !containsErr(err, tc.want) {
				t.Fatalf("expected %s validation error, got: %v", tc.want, err)
			}
		})
	}

	t.Run("missing BOT_TOKEN", func(t *testing.T) {
		t.Setenv("BOT_TOKEN", "  ")
		if _, err := Load(); err == nil || !containsErr(err, "BOT_TOKEN") {
			t.Fatalf("expected BOT_TOKEN validation error, got: %v", err)
		}
	})
	t.Run("empty PEBBLE_PATH only matters for pebble", func(t *testing.T) {
		t.Setenv("BOT_TOKEN", "123:abc")
		t.Setenv("PEBBLE_PATH", " ")
		if _, err := Load(); err != nil {
			t.Fatalf("sqlite driver should ignore PEBBLE_PATH, got: %v", err)
		}
		t.Setenv("STORE_DRIVER", "pebble")
		if _, err := Load(); err == nil || !containsErr(err, "PEBBLE_PATH") {
			t.Fatalf("expected PEBBLE_PATH validation error, got: %v", err)
		}
	})
}

// --- helpers ---

func TestHelpers_getenv(t *testing.T) {
	t.Setenv("X_EMPTY", "")
	if getenv("X_EMPTY", "d") != "d" {
		t.Fatalf("getenv should fall back to default on empty var")
	}
	t.Setenv("X_SET", "val")
	if getenv("X_SET", "d") != "val" {
		t.Fatalf("getenv should read set value")
	}
}

func TestHelpers_getfloat_getint_getdur(t *testing.T) {
	t.Setenv("F_VALID", "3.14")
	if getfloat("F_VALID", 0) != 3.14 {
		t.Fatalf("getfloat parse failed")
	}
	t.Setenv("F_BAD", "nope")
	if getfloat("F_BAD", 1.23) != 1.23 {
		t.Fatalf("getfloat default on bad parse failed")
	}

	t.Setenv("I_VALID", "42")
	if getint("I_VALID", 0) != 42 {
		t.Fatalf("getint parse failed")
	}
	t.Setenv("I_BAD", "x")
	if getint("I_BAD", 7) != 7 {
		t.Fatalf("getint default on bad parse failed")
	}

	t.Setenv("D_VALID", "150ms")
	if getdur("D_VALID", time.Second) != 150*time.Millisecond {
		t.Fatalf("getdur parse failed")
	}
	t.Setenv("D_BAD", "zzz")
	if getdur("D_BAD", 2*time.Second) != 2*time.Second {
		t.Fatalf("getdur default on bad parse failed")
	}
}

func TestHelpers_getbool(t *testing.T) {
	for i, v := range []string{"1", "true", "TRUE", " yes ", "Y", "on", "On"} {
		k := "B_T_" + string(rune('a'+i))
		t.Setenv(k, v)
		if !getbool(k, false) {
			t.Fatalf("getbool(%q) = false; want true", v)
		}
	}
	for i, v := range []string{"0", "false", "FALSE", " no ", "N", "off", "Off"} {
		k := "B_F_" + string(rune('a'+i))
		t.Setenv(k, v)
		if getbool(k, true) {
			t.Fatalf("getbool(%q) = true; want false", v)
		}
	}
	t.Setenv("B_EMPTY", "")
	if !getbool("B_EMPTY", true) || getbool("B_EMPTY", false) {
		t.Fatalf("getbool default behavior unexpected")
	}
}

func TestHelpers_splitCSV(t *testing.T) {
	if out := splitCSV(""); out != nil {
		t.Fatalf("splitCSV empty should return nil")
	}
	want := []string{"a", "b", "c"}
	if got := splitCSV(" a, ,b ,  c  ,"); !reflect.DeepEqual(got, want) {
		t.Fatalf("splitCSV mismatch: got %#v want %#v", got, want)
	}
}

func TestMain(m *testing.M) {
	for _, k := range []string{"PORT", "BOT_TOKEN", "BOT_MODE", "WEBHOOK_SECRET", "STORE_DRIVER", "LOG_LEVEL"} {
		os.Unsetenv(k)
	}
	os.Exit(m.Run())
}

// containsErr reports whether err's message contains the given substring.
func containsErr(err error, want string) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), want)
}
