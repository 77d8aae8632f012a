// Package config loads gateway configuration from a YAML file with
// environment-variable overrides and sane defaults.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the root configuration for the gateway.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Auth      AuthConfig      `mapstructure:"auth"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Guardrail GuardrailConfig `mapstructure:"guardrail"`
	Audit     AuditConfig     `mapstructure:"audit"`
	Alerts    AlertsConfig    `mapstructure:"alerts"`
	Logger    LoggerConfig    `mapstructure:"logger"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// AuthConfig holds token issuance settings. The signing key itself is
// loaded separately (env or file) by the token package's key provider.
type AuthConfig struct {
	SigningKeyPath string        `mapstructure:"signing_key_path"`
	TokenTTL       time.Duration `mapstructure:"token_ttl"`
	Production     bool          `mapstructure:"production"`
}

// RateLimitConfig holds the fixed-window admission policy.
type RateLimitConfig struct {
	Limit  int           `mapstructure:"limit"`
	Window time.Duration `mapstructure:"window"`
	// Backend selects the counter store: "memory" or "redis".
	Backend string `mapstructure:"backend"`
}

// RedisConfig holds the connection for the distributed rate counter.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// StorageConfig holds the SQLite path for the agent registry and
// reputation store. Empty means in-memory stores.
type StorageConfig struct {
	Path string `mapstructure:"path"`
}

// GuardrailConfig points at the operator-edited rule and action files.
type GuardrailConfig struct {
	RulesPath   string `mapstructure:"rules_path"`
	ActionsPath string `mapstructure:"actions_path"`
	// BlocklistPath is the client identity blocklist.
	BlocklistPath string `mapstructure:"blocklist_path"`
}

// AuditConfig holds the hash-chained log location.
type AuditConfig struct {
	Path string `mapstructure:"path"`
}

// AlertsConfig holds webhook destinations.
type AlertsConfig struct {
	Webhooks []WebhookConfig `mapstructure:"webhooks"`
}

// WebhookConfig mirrors one alert destination.
type WebhookConfig struct {
	URL     string            `mapstructure:"url"`
	Format  string            `mapstructure:"format"`
	Events  []string          `mapstructure:"events"`
	Headers map[string]string `mapstructure:"headers"`
}

// LoggerConfig tunes the zap logger.
type LoggerConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, console
}

// Load reads configuration from the given file (or the default search
// paths when path is empty), merging env overrides over file values
// over defaults. AGENTGATE_SERVER_PORT=9000 overrides server.port.
func Load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("agentgate")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/agentgate")
	}

	v.SetEnvPrefix("AGENTGATE")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		// No file: env and defaults only.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("auth.token_ttl", 24*time.Hour)
	v.SetDefault("auth.production", false)
	v.SetDefault("rate_limit.limit", 100)
	v.SetDefault("rate_limit.window", 60*time.Second)
	v.SetDefault("rate_limit.backend", "memory")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("audit.path", "agentgate-audit.jsonl")
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")
}
