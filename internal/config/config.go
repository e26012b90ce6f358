// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes server timeouts,
// logging, order storage, notification channels, the external ledger, the
// event brokers, rate limiting, and observability.
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/tbourn/go-order-bot/internal/sysutil"
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
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "go-order-bot")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// ChannelsConfig names the conversations that receive operator traffic.
type ChannelsConfig struct {
	Staff   string // STAFF_CHAT_ID
	Kitchen string // KITCHEN_CHAT_ID
	Admin   string // ADMIN_CHAT_ID
}

// Operators lists the chats allowed to send staff actions: staff and admin,
// blanks and duplicates dropped.
func (c ChannelsConfig) Operators() []string {
	out := make([]string, 0, 2)
	for _, id := range []string{c.Staff, c.Admin} {
		if id = strings.TrimSpace(id); id != "" && !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}

// LedgerConfig points at the external order ledger. An empty DSN keeps the
// ledger in memory.
type LedgerConfig struct {
	DSN   string // LEDGER_DSN (postgres://...)
	Table string // LEDGER_TABLE
}

// EventsConfig configures lifecycle event publishing. Empty broker settings
// disable the corresponding publisher.
type EventsConfig struct {
	KafkaBrokers []string // KAFKA_BROKERS (csv)
	KafkaTopic   string   // KAFKA_TOPIC
	RabbitURI    string   // RABBITMQ_URI
	KitchenQueue string   // KITCHEN_QUEUE
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // e.g. 20s
	IdleTimeout       time.Duration // e.g. 60s
	ShutdownTimeout   time.Duration // graceful drain window
	MaxHeaderBytes    int           // bytes
	GinMode           string        // debug|release|test

	// Logging / Docs
	LogLevel       string // debug|info|warn|error|fatal|panic
	LogPretty      bool   // pretty console logs in dev
	SwaggerEnabled bool   // enable Swagger UI route
	APIBasePath    string // base path for API routes

	// App
	DBPath         string  // SQLite path
	OrderStore     string  // sqlite|file
	OrdersFile     string  // JSON document used when OrderStore == "file"
	CatalogPath    string  // default path to menu.md
	CatalogMD      string  // optional override for CatalogPath
	MediaRoot      string  // directory holding item photos
	MatchThreshold float64 // fuzzy item-name match threshold [0,1]

	Channels ChannelsConfig
	Ledger   LedgerConfig
	Events   EventsConfig

	// Rate limiting
	RateRPS   float64 // tokens per second (>= 0)
	RateBurst int     // bucket size (>= 1)

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Idempotency
	IdempotencyTTL time.Duration // how long a given Idempotency-Key is valid

	// Observability
	OTEL OTELConfig
}

// MustLoad is Load for main: an invalid environment is a startup bug.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load builds a Config from the environment. Unset, blank, or unparsable
// variables take their defaults; the normalized result is then validated
// and every problem is reported at once.
func Load() (Config, error) {
	cfg := Config{
		Port:              str("PORT", "8080"),
		ReadTimeout:       dur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: dur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      dur("WRITE_TIMEOUT", 20*time.Second),
		IdleTimeout:       dur("IDLE_TIMEOUT", time.Minute),
		ShutdownTimeout:   dur("SHUTDOWN_TIMEOUT", 10*time.Second),
		MaxHeaderBytes:    num("MAX_HEADER_BYTES", 1<<20),
		GinMode:           lower("GIN_MODE", "release"),

		LogLevel:       lower("LOG_LEVEL", "info"),
		LogPretty:      flag("LOG_PRETTY", false),
		SwaggerEnabled: flag("SWAGGER_ENABLED", false),
		APIBasePath:    cleanBasePath(str("API_BASE_PATH", "/api/v1")),

		DBPath:         str("DB_PATH", "orders.db"),
		OrderStore:     lower("ORDER_STORE", StoreSQLite),
		OrdersFile:     str("ORDERS_FILE", "orders.json"),
		CatalogPath:    str("CATALOG_PATH", "data/menu.md"),
		CatalogMD:      str("CATALOG_MD", ""),
		MediaRoot:      str("MEDIA_ROOT", "images"),
		MatchThreshold: ratio("MATCH_THRESHOLD", 0.6),

		Channels: ChannelsConfig{
			Staff:   str("STAFF_CHAT_ID", "staff"),
			Kitchen: str("KITCHEN_CHAT_ID", "kitchen"),
			Admin:   str("ADMIN_CHAT_ID", "admin"),
		},
		Ledger: LedgerConfig{
			DSN:   str("LEDGER_DSN", ""),
			Table: str("LEDGER_TABLE", "order_ledger"),
		},
		Events: EventsConfig{
			KafkaBrokers: list("KAFKA_BROKERS"),
			KafkaTopic:   str("KAFKA_TOPIC", "order-events"),
			RabbitURI:    str("RABBITMQ_URI", ""),
			KitchenQueue: str("KITCHEN_QUEUE", "kitchen"),
		},

		RateRPS:   ratio("RATE_RPS", 5),
		RateBurst: num("RATE_BURST", 10),

		CORS: CORSConfig{AllowedOrigins: list("CORS_ALLOWED_ORIGINS")},
		Security: SecurityConfig{
			EnableHSTS: flag("ENABLE_HSTS", false),
			HSTSMaxAge: dur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		IdempotencyTTL: dur("IDEMPOTENCY_TTL", 24*time.Hour),

		OTEL: OTELConfig{
			Enabled:     flag("OTEL_ENABLED", false),
			Endpoint:    str("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    flag("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: str("OTEL_SERVICE_NAME", "go-order-bot"),
			SampleRatio: ratio("OTEL_TRACES_SAMPLER_ARG", 1),
		},
	}
	cfg.normalize()
	return cfg, cfg.Validate()
}

// Order store backends.
const (
	StoreSQLite = "sqlite"
	StoreFile   = "file"
)

var (
	logLevels = []string{"debug", "info", "warn", "error", "fatal", "panic"}
	ginModes  = []string{"debug", "release", "test"}
)

func (c *Config) normalize() {
	if c.LogLevel == "warning" {
		c.LogLevel = "warn"
	}
	if !oneOf(c.GinMode, ginModes) {
		c.GinMode = "release"
	}
	if c.OrderStore == "json" {
		c.OrderStore = StoreFile
	}
}

// Validate reports every invalid setting, joined into one error.
func (c Config) Validate() error {
	var errs []error
	check := func(bad bool, format string, args ...any) {
		if bad {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}
	blank := func(s string) bool { return strings.TrimSpace(s) == "" }

	check(!oneOf(c.LogLevel, logLevels), "LOG_LEVEL %q is not one of %s", c.LogLevel, strings.Join(logLevels, ", "))
	check(blank(c.Port), "PORT must not be empty")
	check(c.ReadTimeout <= 0 || c.ReadHeaderTimeout <= 0 || c.WriteTimeout <= 0 || c.IdleTimeout <= 0,
		"server timeouts must be positive")
	check(c.ShutdownTimeout <= 0, "SHUTDOWN_TIMEOUT must be positive")
	check(c.MaxHeaderBytes <= 0, "MAX_HEADER_BYTES must be positive")

	switch c.OrderStore {
	case StoreSQLite:
		check(blank(c.DBPath), "DB_PATH must not be empty")
	case StoreFile:
		check(blank(c.OrdersFile), "ORDERS_FILE must not be empty")
	default:
		check(true, "ORDER_STORE %q is not one of %s, %s", c.OrderStore, StoreSQLite, StoreFile)
	}
	check(blank(c.CatalogSource()), "CATALOG_PATH must not be empty")
	check(c.MatchThreshold < 0 || c.MatchThreshold > 1, "MATCH_THRESHOLD must be within [0,1]")

	check(blank(c.Channels.Staff), "STAFF_CHAT_ID must not be empty")
	check(blank(c.Channels.Kitchen), "KITCHEN_CHAT_ID must not be empty")
	check(c.Ledger.DSN != "" && blank(c.Ledger.Table), "LEDGER_TABLE is required with LEDGER_DSN")
	check(len(c.Events.KafkaBrokers) > 0 && blank(c.Events.KafkaTopic), "KAFKA_TOPIC is required with KAFKA_BROKERS")

	check(c.RateRPS < 0, "RATE_RPS must not be negative")
	check(c.RateBurst < 1, "RATE_BURST must be at least 1")
	check(c.Security.HSTSMaxAge < 0, "HSTS_MAX_AGE must not be negative")
	check(c.IdempotencyTTL <= 0, "IDEMPOTENCY_TTL must be positive")
	check(c.OTEL.SampleRatio < 0 || c.OTEL.SampleRatio > 1, "OTEL_TRACES_SAMPLER_ARG must be within [0,1]")

	return errors.Join(errs...)
}

// CatalogSource returns the catalog file to load, preferring CATALOG_MD.
func (c Config) CatalogSource() string {
	return strings.TrimSpace(sysutil.FirstNonEmpty(c.CatalogMD, c.CatalogPath))
}

// lookup returns the trimmed value of key, or ok=false when it is blank.
func lookup(key string) (string, bool) {
	v := strings.TrimSpace(os.Getenv(key))
	return v, v != ""
}

// parsed reads key through parse, keeping def when the variable is blank
// or does not parse.
func parsed[T any](key string, def T, parse func(string) (T, error)) T {
	v, ok := lookup(key)
	if !ok {
		return def
	}
	out, err := parse(v)
	if err != nil {
		return def
	}
	return out
}

func str(key, def string) string {
	return parsed(key, def, func(v string) (string, error) { return v, nil })
}

func lower(key, def string) string { return strings.ToLower(str(key, def)) }

func num(key string, def int) int { return parsed(key, def, strconv.Atoi) }

func ratio(key string, def float64) float64 {
	return parsed(key, def, func(v string) (float64, error) { return strconv.ParseFloat(v, 64) })
}

func dur(key string, def time.Duration) time.Duration { return parsed(key, def, time.ParseDuration) }

var errNotBool = errors.New("not a boolean")

func flag(key string, def bool) bool {
	return parsed(key, def, func(v string) (bool, error) {
		if sysutil.IsTruthy(v) {
			return true, nil
		}
		switch strings.ToLower(v) {
		case "0", "false", "no", "n", "off":
			return false, nil
		}
		return false, errNotBool
	})
}

// list splits a comma-separated variable, dropping empty items.
func list(key string) []string {
	v, ok := lookup(key)
	if !ok {
		return nil
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func oneOf(v string, set []string) bool {
	for _, s := range set {
		if v == s {
			return true
		}
	}
	return false
}

// cleanBasePath returns p with exactly one leading slash and no trailing
// slash; blank means the root.
func cleanBasePath(p string) string {
	p = strings.Trim(strings.TrimSpace(p), "/")
	return "/" + p
}
