package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "LLM_PROVIDER", "LLM_TIMEOUT", "QDRANT_URL", "GEMINI_API_KEY", "MAX_VIDEO_SIZE"} {
		t.Setenv(key, "")
	}

	cfg := Load()

	assert.Equal(t, "3000", cfg.Server.Port)
	assert.Equal(t, "gemini", cfg.LLM.Provider)
	assert.Equal(t, 45*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, int64(52428800), cfg.Storage.MaxVideoSize)
	assert.Equal(t, 3*time.Minute, cfg.Redis.LockTTL)
	assert.False(t, cfg.IndexingEnabled())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("LLM_PROVIDER", "anthropic")
	t.Setenv("LLM_TIMEOUT", "5s")
	t.Setenv("LLM_TEMPERATURE", "0.2")
	t.Setenv("RETRY_MAX_ATTEMPTS", "not-a-number")
	t.Setenv("QDRANT_URL", "localhost:6334")
	t.Setenv("GEMINI_API_KEY", "key")

	cfg := Load()

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "anthropic", cfg.LLM.Provider)
	assert.Equal(t, 5*time.Second, cfg.LLM.Timeout)
	assert.InDelta(t, 0.2, cfg.LLM.Temperature, 0.0001)
	assert.Equal(t, 3, cfg.LLM.RetryMaxAttempts)
	assert.True(t, cfg.IndexingEnabled())
}

func TestInvalidDurationFallsBack(t *testing.T) {
	t.Setenv("LOCK_WAIT", "soon")
	assert.Equal(t, 10*time.Second, getEnvAsDuration("LOCK_WAIT", "10s"))
}

func TestGetDatabaseDSN(t *testing.T) {
	cfg := &Config{Database: DatabaseConfig{Host: "db", Port: "5432", User: "u", Password: "p", DBName: "interviews"}}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=interviews sslmode=disable", cfg.GetDatabaseDSN())
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, parseLevel("DEBUG"))
	assert.Equal(t, zapcore.WarnLevel, parseLevel("warning"))
	assert.Equal(t, zapcore.ErrorLevel, parseLevel("error"))
	assert.Equal(t, zapcore.InfoLevel, parseLevel(""))
}

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger(&Config{Server: ServerConfig{Env: "production", LogLevel: "warn"}})
	assert.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, logger.Core().Enabled(zapcore.WarnLevel))
}
