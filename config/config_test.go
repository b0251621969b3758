package config_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmcleod/walicode/api"
	"github.com/jmcleod/walicode/config"
)

func noEnvFile(t *testing.T) string {
	return filepath.Join(t.TempDir(), "missing.env")
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load(viper.New(), noEnvFile(t))
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8888/api", cfg.APIBaseURL)
	assert.Equal(t, "WaliCode", cfg.AppName)
	assert.Equal(t, config.StoreBbolt, cfg.Store)
	assert.Equal(t, 10*time.Second, cfg.Timeout)
	assert.Equal(t, 3, cfg.Retry)
	assert.Equal(t, time.Second, cfg.RetryDelay)
	assert.Equal(t, "BASIC", cfg.MemberTier)
	assert.Equal(t, 24*time.Hour, cfg.MaxSessionAge)
	assert.False(t, cfg.Analytics)

	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".walicode"), cfg.DataDir)

	level, err := cfg.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, level)

	c := cfg.Client()
	assert.Equal(t, api.CredentialsInclude, c.Credentials)
	assert.Equal(t, api.DefaultSessionExpiredMarker, c.SessionExpiredMarker)
}

func TestLoadEnvironment(t *testing.T) {
	t.Setenv("WALICODE_API_BASE_URL", "https://api.example.com/api")
	t.Setenv("WALICODE_STORE", "sqlite")
	t.Setenv("WALICODE_TIMEOUT", "3s")
	t.Setenv("WALICODE_RETRY", "0")
	t.Setenv("WALICODE_ANALYTICS", "true")
	t.Setenv("WALICODE_DATA_DIR", "/var/lib/walicode")

	cfg, err := config.Load(viper.New(), noEnvFile(t))
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com/api", cfg.APIBaseURL)
	assert.Equal(t, config.StoreSQLite, cfg.Store)
	assert.Equal(t, 3*time.Second, cfg.Timeout)
	assert.Equal(t, 0, cfg.Retry)
	assert.True(t, cfg.Analytics)
	assert.Equal(t, "/var/lib/walicode", cfg.DataDir)
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("WALICODE_MEMBER_TIER=PRO\nWALICODE_APP_NAME=FromFile\n"), 0o600))
	// The environment wins over the file.
	t.Setenv("WALICODE_APP_NAME", "FromEnv")
	t.Cleanup(func() { os.Unsetenv("WALICODE_MEMBER_TIER") })

	cfg, err := config.Load(viper.New(), path)
	require.NoError(t, err)
	assert.Equal(t, "PRO", cfg.MemberTier)
	assert.Equal(t, "FromEnv", cfg.AppName)
}

func TestExplicitValuesWin(t *testing.T) {
	t.Setenv("WALICODE_STORE", "sqlite")
	v := viper.New()
	v.Set(config.KeyStore, config.StoreMemory)

	cfg, err := config.Load(v, noEnvFile(t))
	require.NoError(t, err)
	assert.Equal(t, config.StoreMemory, cfg.Store)
}

func TestValidate(t *testing.T) {
	for name, env := range map[string]map[string]string{
		"RelativeBaseURL":    {"WALICODE_API_BASE_URL": "/api"},
		"UnknownStore":       {"WALICODE_STORE": "floppy"},
		"UnknownCredentials": {"WALICODE_CREDENTIALS": "sometimes"},
		"UnknownLogLevel":    {"WALICODE_LOG_LEVEL": "chatty"},
	} {
		t.Run(name, func(t *testing.T) {
			for k, val := range env {
				t.Setenv(k, val)
			}
			_, err := config.Load(viper.New(), noEnvFile(t))
			assert.Error(t, err)
		})
	}
}
