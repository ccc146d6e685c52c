package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultAppName            = "WalletChat"
	defaultAppEnv             = "development"
	defaultPort               = "8080"
	defaultOpenAIModel        = "gpt-4o-mini"
	defaultShutdownDelay      = 10 * time.Second
	defaultWriteTimeout       = 2 * time.Minute
	defaultIdempotencyTTL     = 24 * time.Hour
	defaultSessionTTL         = 72 * time.Hour
	defaultChallengeTTL       = 5 * time.Minute
	defaultChallengeRetention = time.Hour
	defaultModelTimeout       = 30 * time.Second
	defaultLoginRateLimit     = 10
	devJWTSecret              = "dev-insecure-secret"
	configFileEnvVar          = "CONFIG_FILE"
)

// Config captures application runtime configuration loaded from an optional
// YAML file and environment variables.
type Config struct {
	AppName            string
	AppEnv             string
	Port               string
	LogLevel           string
	DatabaseURL        string
	RedisURL           string
	JWTSecret          string
	OpenAIKey          string
	OpenAIModel        string
	OpenAIBaseURL      string
	ModelTimeout       time.Duration
	SessionTTL         time.Duration
	ChallengeTTL       time.Duration
	ChallengeRetention time.Duration
	ShutdownPeriod     time.Duration
	WriteTimeout       time.Duration
	IdempotencyTTL     time.Duration
	LoginRateLimit     int
}

// Load reads configuration values from CONFIG_FILE (when set) and the
// environment, the environment taking precedence.
func Load() (Config, error) {
	cfg := Config{
		AppName:            defaultAppName,
		AppEnv:             defaultAppEnv,
		Port:               defaultPort,
		OpenAIModel:        defaultOpenAIModel,
		ModelTimeout:       defaultModelTimeout,
		SessionTTL:         defaultSessionTTL,
		ChallengeTTL:       defaultChallengeTTL,
		ChallengeRetention: defaultChallengeRetention,
		ShutdownPeriod:     defaultShutdownDelay,
		WriteTimeout:       defaultWriteTimeout,
		IdempotencyTTL:     defaultIdempotencyTTL,
		LoginRateLimit:     defaultLoginRateLimit,
	}

	if path := os.Getenv(configFileEnvVar); path != "" {
		if err := applyFile(&cfg, path); err != nil {
			return Config{}, err
		}
	}

	cfg.AppName = getEnv("APP_NAME", cfg.AppName)
	cfg.AppEnv = strings.ToLower(getEnv("APP_ENV", cfg.AppEnv))
	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.LogLevel = strings.ToLower(getEnv("LOG_LEVEL", cfg.LogLevel))
	cfg.DatabaseURL = getEnv("DATABASE_URL", cfg.DatabaseURL)
	cfg.RedisURL = getEnv("REDIS_URL", cfg.RedisURL)
	cfg.JWTSecret = getEnv("JWT_SECRET", cfg.JWTSecret)
	cfg.OpenAIKey = getEnv("OPENAI_API_KEY", cfg.OpenAIKey)
	cfg.OpenAIModel = getEnv("OPENAI_MODEL", cfg.OpenAIModel)
	cfg.OpenAIBaseURL = getEnv("OPENAI_BASE_URL", cfg.OpenAIBaseURL)

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"MODEL_TIMEOUT", &cfg.ModelTimeout},
		{"SESSION_TTL", &cfg.SessionTTL},
		{"CHALLENGE_TTL", &cfg.ChallengeTTL},
		{"CHALLENGE_RETENTION", &cfg.ChallengeRetention},
		{"SHUTDOWN_TIMEOUT", &cfg.ShutdownPeriod},
		{"WRITE_TIMEOUT", &cfg.WriteTimeout},
		{"IDEMPOTENCY_TTL", &cfg.IdempotencyTTL},
	}
	for _, d := range durations {
		if err := envDuration(d.key, d.dst); err != nil {
			return Config{}, err
		}
	}

	if v := os.Getenv("LOGIN_RATE_LIMIT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid LOGIN_RATE_LIMIT: %w", err)
		}
		cfg.LoginRateLimit = n
	}

	if cfg.LogLevel == "" {
		if cfg.IsDevelopment() {
			cfg.LogLevel = "debug"
		} else {
			cfg.LogLevel = "info"
		}
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.IsDevelopment() {
		if c.JWTSecret == "" {
			c.JWTSecret = devJWTSecret
		}
		return nil
	}
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL must be set when APP_ENV=%s", c.AppEnv)
	}
	if c.RedisURL == "" {
		return fmt.Errorf("REDIS_URL must be set when APP_ENV=%s", c.AppEnv)
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET must be set when APP_ENV=%s", c.AppEnv)
	}
	if c.ChallengeTTL <= 0 || c.SessionTTL <= 0 {
		return fmt.Errorf("CHALLENGE_TTL and SESSION_TTL must be positive")
	}
	return nil
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

// IsDevelopment reports whether the app runs in a local/dev environment.
func (c Config) IsDevelopment() bool {
	switch strings.ToLower(c.AppEnv) {
	case "dev", "development", "local", "test":
		return true
	default:
		return false
	}
}

// IsProduction reports whether cookies must carry the secure flag.
func (c Config) IsProduction() bool {
	switch strings.ToLower(c.AppEnv) {
	case "prod", "production":
		return true
	default:
		return false
	}
}

// AssistantEnabled reports whether a language-model credential is configured.
func (c Config) AssistantEnabled() bool {
	return c.OpenAIKey != ""
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// envDuration accepts either whole seconds ("30") or a Go duration ("30s").
func envDuration(key string, dst *time.Duration) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := parseDuration(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = d
	return nil
}

func parseDuration(v string) (time.Duration, error) {
	if seconds, err := strconv.Atoi(v); err == nil {
		return time.Duration(seconds) * time.Second, nil
	}
	return time.ParseDuration(v)
}
