package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"CONFIG_FILE", "APP_NAME", "APP_ENV", "PORT", "LOG_LEVEL", "DATABASE_URL", "REDIS_URL",
		"JWT_SECRET", "OPENAI_API_KEY", "OPENAI_MODEL", "OPENAI_BASE_URL", "MODEL_TIMEOUT",
		"SESSION_TTL", "CHALLENGE_TTL", "CHALLENGE_RETENTION", "SHUTDOWN_TIMEOUT",
		"WRITE_TIMEOUT", "IDEMPOTENCY_TTL", "LOGIN_RATE_LIMIT",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDevelopmentDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.AppEnv)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, devJWTSecret, cfg.JWTSecret)
	assert.Equal(t, 72*time.Hour, cfg.SessionTTL)
	assert.Equal(t, 5*time.Minute, cfg.ChallengeTTL)
	assert.Equal(t, 30*time.Second, cfg.ModelTimeout)
	assert.False(t, cfg.AssistantEnabled())
	assert.False(t, cfg.IsProduction())
	assert.Equal(t, ":8080", cfg.Address())
}

func TestLoadProductionRequiresBackends(t *testing.T) {
	clearEnv(t)
	t.Setenv("APP_ENV", "production")

	_, err := Load()
	require.Error(t, err)

	t.Setenv("DATABASE_URL", "postgres://localhost/walletchat")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	_, err = Load()
	require.ErrorContains(t, err, "JWT_SECRET")

	t.Setenv("JWT_SECRET", "s3cret")
	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadDurationForms(t *testing.T) {
	clearEnv(t)
	t.Setenv("MODEL_TIMEOUT", "45")
	t.Setenv("SESSION_TTL", "24h")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 45*time.Second, cfg.ModelTimeout)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)

	t.Setenv("CHALLENGE_TTL", "soon")
	_, err = Load()
	require.ErrorContains(t, err, "CHALLENGE_TTL")
}

func TestLoadFileWithEnvOverride(t *testing.T) {
	clearEnv(t)
	t.Setenv("TEST_OPENAI_KEY", "sk-from-env")

	path := filepath.Join(t.TempDir(), "walletchat.yaml")
	content := `
app:
  name: FileChat
  port: "9090"
auth:
  jwt_secret: file-secret
  challenge_ttl: 2m
assistant:
  api_key: ${TEST_OPENAI_KEY}
  model: gpt-test
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("PORT", "7070")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "FileChat", cfg.AppName)
	assert.Equal(t, "7070", cfg.Port)
	assert.Equal(t, "file-secret", cfg.JWTSecret)
	assert.Equal(t, 2*time.Minute, cfg.ChallengeTTL)
	assert.Equal(t, "sk-from-env", cfg.OpenAIKey)
	assert.Equal(t, "gpt-test", cfg.OpenAIModel)
	assert.True(t, cfg.AssistantEnabled())
}

func TestLoadMissingFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))

	_, err := Load()
	require.ErrorContains(t, err, "reading config file")
}
