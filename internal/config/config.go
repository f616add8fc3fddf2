package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	// Storage
	DatabaseURL string `env:"DATABASE_URL" envDefault:"sqlite://omegachat.db"`

	// Ollama backend
	OllamaURL      string        `env:"OLLAMA_URL" envDefault:"http://localhost:11434"`
	RequestTimeout time.Duration `env:"OLLAMA_REQUEST_TIMEOUT" envDefault:"30s"`
	ModelsTimeout  time.Duration `env:"OLLAMA_MODELS_TIMEOUT" envDefault:"5s"`
	ModelCacheTTL  time.Duration `env:"MODEL_CACHE_TTL" envDefault:"1m"`
	ModelCatalog   string        `env:"MODEL_CATALOG_PATH"`
	DefaultModel   string        `env:"DEFAULT_MODEL" envDefault:"mistral:7b-instruct"`
	HistoryWindow  int           `env:"HISTORY_WINDOW" envDefault:"20"`
	MaxLearnings   int           `env:"MAX_LEARNINGS" envDefault:"5"`

	// Server
	HTTPAddr           string `env:"HTTP_ADDR" envDefault:":5000"`
	RateLimitPerMinute int    `env:"RATE_LIMIT_PER_MINUTE" envDefault:"30"`
	LogLevel           string `env:"LOG_LEVEL" envDefault:"info"`

	// Telegram front-end, disabled when the token is empty
	TelegramToken       string `env:"TELEGRAM_BOT_TOKEN"`
	TelegramAlertChatID int64  `env:"TELEGRAM_ALERT_CHAT_ID"`
	TelegramAlertTopic  int    `env:"TELEGRAM_ALERT_TOPIC"`
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if _, err := url.ParseRequestURI(c.OllamaURL); err != nil {
		return fmt.Errorf("invalid OLLAMA_URL %q: %w", c.OllamaURL, err)
	}
	if c.RequestTimeout <= 0 || c.ModelsTimeout <= 0 {
		return fmt.Errorf("backend timeouts must be positive")
	}
	if c.HistoryWindow < 0 {
		return fmt.Errorf("HISTORY_WINDOW must not be negative")
	}
	if c.MaxLearnings < 0 {
		return fmt.Errorf("MAX_LEARNINGS must not be negative")
	}
	if c.RateLimitPerMinute <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must be positive")
	}
	if DatabaseDialect(c.DatabaseURL) == "" {
		return fmt.Errorf("unsupported DATABASE_URL scheme: %q", c.DatabaseURL)
	}
	return nil
}

func (c *Config) TelegramEnabled() bool {
	return c.TelegramToken != ""
}

// SlogLevel maps LOG_LEVEL to a slog level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

const (
	DialectSQLite   = "sqlite"
	DialectPostgres = "postgres"
)

// DatabaseDialect reports which store backs the given url.
func DatabaseDialect(databaseURL string) string {
	switch {
	case strings.HasPrefix(databaseURL, "sqlite://"):
		return DialectSQLite
	case strings.HasPrefix(databaseURL, "postgres://"), strings.HasPrefix(databaseURL, "postgresql://"):
		return DialectPostgres
	default:
		return ""
	}
}
