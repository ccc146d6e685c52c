package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// fileConfig mirrors the YAML layout accepted through CONFIG_FILE.
type fileConfig struct {
	App struct {
		Name     string `yaml:"name"`
		Env      string `yaml:"env"`
		Port     string `yaml:"port"`
		LogLevel string `yaml:"log_level"`
	} `yaml:"app"`
	Database struct {
		URL string `yaml:"url"`
	} `yaml:"database"`
	Redis struct {
		URL string `yaml:"url"`
	} `yaml:"redis"`
	Auth struct {
		JWTSecret          string `yaml:"jwt_secret"`
		SessionTTL         string `yaml:"session_ttl"`
		ChallengeTTL       string `yaml:"challenge_ttl"`
		ChallengeRetention string `yaml:"challenge_retention"`
		LoginRateLimit     int    `yaml:"login_rate_limit"`
	} `yaml:"auth"`
	Assistant struct {
		APIKey  string `yaml:"api_key"`
		Model   string `yaml:"model"`
		BaseURL string `yaml:"base_url"`
		Timeout string `yaml:"timeout"`
	} `yaml:"assistant"`
	Server struct {
		ShutdownTimeout string `yaml:"shutdown_timeout"`
		WriteTimeout    string `yaml:"write_timeout"`
		IdempotencyTTL  string `yaml:"idempotency_ttl"`
	} `yaml:"server"`
}

var envPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnv replaces ${VAR} references with their environment values.
func expandEnv(data []byte) []byte {
	return envPattern.ReplaceAllFunc(data, func(match []byte) []byte {
		name := envPattern.FindSubmatch(match)[1]
		return []byte(os.Getenv(string(name)))
	})
}

func applyFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(expandEnv(data), &fc); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}

	setString(&cfg.AppName, fc.App.Name)
	setString(&cfg.AppEnv, fc.App.Env)
	setString(&cfg.Port, fc.App.Port)
	setString(&cfg.LogLevel, fc.App.LogLevel)
	setString(&cfg.DatabaseURL, fc.Database.URL)
	setString(&cfg.RedisURL, fc.Redis.URL)
	setString(&cfg.JWTSecret, fc.Auth.JWTSecret)
	setString(&cfg.OpenAIKey, fc.Assistant.APIKey)
	setString(&cfg.OpenAIModel, fc.Assistant.Model)
	setString(&cfg.OpenAIBaseURL, fc.Assistant.BaseURL)
	if fc.Auth.LoginRateLimit > 0 {
		cfg.LoginRateLimit = fc.Auth.LoginRateLimit
	}

	durations := []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"auth.session_ttl", fc.Auth.SessionTTL, &cfg.SessionTTL},
		{"auth.challenge_ttl", fc.Auth.ChallengeTTL, &cfg.ChallengeTTL},
		{"auth.challenge_retention", fc.Auth.ChallengeRetention, &cfg.ChallengeRetention},
		{"assistant.timeout", fc.Assistant.Timeout, &cfg.ModelTimeout},
		{"server.shutdown_timeout", fc.Server.ShutdownTimeout, &cfg.ShutdownPeriod},
		{"server.write_timeout", fc.Server.WriteTimeout, &cfg.WriteTimeout},
		{"server.idempotency_ttl", fc.Server.IdempotencyTTL, &cfg.IdempotencyTTL},
	}
	for _, d := range durations {
		if d.raw == "" {
			continue
		}
		v, err := parseDuration(d.raw)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", d.name, err)
		}
		*d.dst = v
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
