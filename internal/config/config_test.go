package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite://omegachat.db", cfg.DatabaseURL)
	assert.Equal(t, "http://localhost:11434", cfg.OllamaURL)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 5*time.Second, cfg.ModelsTimeout)
	assert.Equal(t, 20, cfg.HistoryWindow)
	assert.False(t, cfg.TelegramEnabled())
	assert.Equal(t, slog.LevelInfo, cfg.SlogLevel())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://u:p@localhost/chat")
	t.Setenv("OLLAMA_REQUEST_TIMEOUT", "90s")
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("LOG_LEVEL", "DEBUG")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DialectPostgres, DatabaseDialect(cfg.DatabaseURL))
	assert.Equal(t, 90*time.Second, cfg.RequestTimeout)
	assert.True(t, cfg.TelegramEnabled())
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"bad database scheme", "DATABASE_URL", "mysql://localhost/chat"},
		{"bad ollama url", "OLLAMA_URL", "not a url"},
		{"zero timeout", "OLLAMA_REQUEST_TIMEOUT", "0s"},
		{"negative history", "HISTORY_WINDOW", "-1"},
		{"unparsable duration", "OLLAMA_MODELS_TIMEOUT", "soon"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			require.Error(t, err)
		})
	}
}
