// Package config loads the walicode runtime configuration from an optional
// .env file and WALICODE_-prefixed environment variables using Viper.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/jmcleod/walicode/api"
)

// EnvPrefix is prepended to every key when read from the environment.
const EnvPrefix = "WALICODE"

// Configuration keys. Each is read from WALICODE_<KEY>.
const (
	KeyAPIBaseURL           = "API_BASE_URL"
	KeyAppName              = "APP_NAME"
	KeyAppVersion           = "APP_VERSION"
	KeyDataDir              = "DATA_DIR"
	KeyStore                = "STORE"
	KeyRedisAddr            = "REDIS_ADDR"
	KeyTimeout              = "TIMEOUT"
	KeyRetry                = "RETRY"
	KeyRetryDelay           = "RETRY_DELAY"
	KeyCredentials          = "CREDENTIALS"
	KeySessionExpiredMarker = "SESSION_EXPIRED_MARKER"
	KeyMemberTier           = "MEMBER_TIER"
	KeyMaxSessionAge        = "MAX_SESSION_AGE"
	KeyLogLevel             = "LOG_LEVEL"
	KeyAnalytics            = "ANALYTICS"
)

// Store kinds.
const (
	StoreBbolt  = "bbolt"
	StoreSQLite = "sqlite"
	StoreRedis  = "redis"
	StoreMemory = "memory"
	StoreNone   = "none"
)

// Config holds the runtime configuration.
type Config struct {
	APIBaseURL string `mapstructure:"API_BASE_URL"`
	AppName    string `mapstructure:"APP_NAME"`
	AppVersion string `mapstructure:"APP_VERSION"`
	// DataDir holds the local store files. A leading ~ is the home directory.
	DataDir string `mapstructure:"DATA_DIR"`
	// Store selects the key-value backend: bbolt, sqlite, redis, memory or
	// none (no persistence at all).
	Store     string `mapstructure:"STORE"`
	RedisAddr string `mapstructure:"REDIS_ADDR"`

	Timeout              time.Duration `mapstructure:"TIMEOUT"`
	Retry                int           `mapstructure:"RETRY"`
	RetryDelay           time.Duration `mapstructure:"RETRY_DELAY"`
	Credentials          string        `mapstructure:"CREDENTIALS"`
	SessionExpiredMarker string        `mapstructure:"SESSION_EXPIRED_MARKER"`

	MemberTier    string        `mapstructure:"MEMBER_TIER"`
	MaxSessionAge time.Duration `mapstructure:"MAX_SESSION_AGE"`

	LogLevel string `mapstructure:"LOG_LEVEL"`
	// Analytics enables the log-backed page tracker.
	Analytics bool `mapstructure:"ANALYTICS"`
}

// SetDefaults registers the default of every key on v.
func SetDefaults(v *viper.Viper) {
	def := api.DefaultConfig()
	v.SetDefault(KeyAPIBaseURL, def.BaseURL)
	v.SetDefault(KeyAppName, "WaliCode")
	v.SetDefault(KeyAppVersion, "1.0.0")
	v.SetDefault(KeyDataDir, "~/.walicode")
	v.SetDefault(KeyStore, StoreBbolt)
	v.SetDefault(KeyRedisAddr, "localhost:6379")
	v.SetDefault(KeyTimeout, def.Timeout.String())
	v.SetDefault(KeyRetry, def.Retry)
	v.SetDefault(KeyRetryDelay, def.RetryDelay.String())
	v.SetDefault(KeyCredentials, string(def.Credentials))
	v.SetDefault(KeySessionExpiredMarker, def.SessionExpiredMarker)
	v.SetDefault(KeyMemberTier, "BASIC")
	v.SetDefault(KeyMaxSessionAge, "24h")
	v.SetDefault(KeyLogLevel, "warn")
	v.SetDefault(KeyAnalytics, false)
}

// Load reads the env files (".env" when none are given; missing files are
// ignored), then builds Config from v. Precedence, highest first: values
// bound on v (CLI flags), the environment, the env files, the defaults.
func Load(v *viper.Viper, envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config: loading %s: %w", f, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	dir, err := expandHome(cfg.DataDir)
	if err != nil {
		return nil, err
	}
	cfg.DataDir = dir
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("config: resolving home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}

// Validate checks the values that cannot be corrected silently.
func (c *Config) Validate() error {
	u, err := url.Parse(c.APIBaseURL)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return fmt.Errorf("config: %s must be an absolute URL, got %q", KeyAPIBaseURL, c.APIBaseURL)
	}
	switch c.Store {
	case StoreBbolt, StoreSQLite, StoreRedis, StoreMemory, StoreNone:
	default:
		return fmt.Errorf("config: %s must be one of bbolt, sqlite, redis, memory, none, got %q", KeyStore, c.Store)
	}
	switch api.Credentials(c.Credentials) {
	case api.CredentialsInclude, api.CredentialsSameOrigin, api.CredentialsOmit:
	default:
		return fmt.Errorf("config: %s must be include, same-origin or omit, got %q", KeyCredentials, c.Credentials)
	}
	if c.Store == StoreRedis && c.RedisAddr == "" {
		return fmt.Errorf("config: %s is required for the redis store", KeyRedisAddr)
	}
	if _, err := c.SlogLevel(); err != nil {
		return fmt.Errorf("config: %s: %w", KeyLogLevel, err)
	}
	return nil
}

// Client returns the API client settings.
func (c *Config) Client() api.Config {
	return api.Config{
		BaseURL:              c.APIBaseURL,
		Timeout:              c.Timeout,
		Retry:                c.Retry,
		RetryDelay:           c.RetryDelay,
		Credentials:          api.Credentials(c.Credentials),
		SessionExpiredMarker: c.SessionExpiredMarker,
	}
}

// SlogLevel parses LogLevel.
func (c *Config) SlogLevel() (slog.Level, error) {
	var l slog.Level
	err := l.UnmarshalText([]byte(c.LogLevel))
	return l, err
}
