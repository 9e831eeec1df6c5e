package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v8"
)

const defaultJWTSecret = "fintrack-default-dev-secret-change-me"

// Config holds all application configuration.
// Values are loaded from environment variables with sensible defaults.
type Config struct {
	// Server
	Port     int    `env:"PORT" envDefault:"8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	Env      string `env:"APP_ENV" envDefault:"development"`

	// Storage
	SQLitePath string `env:"SQLITE_DB_PATH" envDefault:"./data/fintrack.db"`

	// JWT / Auth
	JWTSecret     string        `env:"JWT_SECRET" envDefault:"fintrack-default-dev-secret-change-me"`
	JWTAccessTTL  time.Duration `env:"JWT_ACCESS_TTL" envDefault:"15m"`
	JWTRefreshTTL time.Duration `env:"JWT_REFRESH_TTL" envDefault:"168h"`
	CookieSecure  bool          `env:"COOKIE_SECURE" envDefault:"false"`

	// HTTP
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`

	// Cache
	SummaryCacheTTL time.Duration `env:"SUMMARY_CACHE_TTL" envDefault:"1m"`

	// Observability
	OTLPEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`

	// Messaging (events are dropped when AMQP_URL is empty)
	AMQPURL        string `env:"AMQP_URL"`
	AMQPExchange   string `env:"AMQP_EXCHANGE" envDefault:"fintrack"`
	AMQPRoutingKey string `env:"AMQP_ROUTING_KEY" envDefault:"fintrack.events"`

	// Resilience
	MaxRetries     int           `env:"MAX_RETRIES" envDefault:"3"`
	InitialBackoff time.Duration `env:"INITIAL_BACKOFF" envDefault:"100ms"`
	MaxConcurrency int           `env:"MAX_CONCURRENCY" envDefault:"4"`

	// Reporting defaults
	DefaultCategory      string  `env:"DEFAULT_CATEGORY" envDefault:"Other"`
	DefaultPaymentMethod string  `env:"DEFAULT_PAYMENT_METHOD" envDefault:"debit"`
	DefaultSavingsGoal   float64 `env:"DEFAULT_SAVINGS_GOAL" envDefault:"2000"`
	TrendTopN            int     `env:"TREND_TOP_N" envDefault:"4"`
	Timezone             string  `env:"TIMEZONE" envDefault:"UTC"`
}

// Load reads configuration from environment variables with defaults
// and validates it.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT must be in 1..65535, got %d", c.Port))
	}
	if strings.TrimSpace(c.SQLitePath) == "" {
		errs = append(errs, errors.New("SQLITE_DB_PATH is required"))
	}
	if len(c.JWTSecret) < 16 {
		errs = append(errs, errors.New("JWT_SECRET must be at least 16 characters"))
	}
	if c.IsProduction() && c.JWTSecret == defaultJWTSecret {
		errs = append(errs, errors.New("JWT_SECRET must be set in production"))
	}
	if c.JWTAccessTTL <= 0 || c.JWTRefreshTTL <= 0 {
		errs = append(errs, errors.New("JWT TTLs must be positive"))
	}
	if c.MaxRetries < 0 {
		errs = append(errs, errors.New("MAX_RETRIES must not be negative"))
	}
	if c.MaxConcurrency <= 0 {
		errs = append(errs, errors.New("MAX_CONCURRENCY must be positive"))
	}
	if c.DefaultSavingsGoal < 0 {
		errs = append(errs, errors.New("DEFAULT_SAVINGS_GOAL must not be negative"))
	}
	if c.TrendTopN <= 0 {
		errs = append(errs, errors.New("TREND_TOP_N must be positive"))
	}
	if strings.TrimSpace(c.DefaultCategory) == "" {
		errs = append(errs, errors.New("DEFAULT_CATEGORY must not be empty"))
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("TIMEZONE: %w", err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// Location resolves Timezone. Validate has already checked it.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
