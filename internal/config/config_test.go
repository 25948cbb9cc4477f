package config

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stockdesk/stockdesk/internal/api"
	"github.com/stockdesk/stockdesk/internal/logging"
)

// stubHome isolates the config directory and clears every override.
func stubHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv(EnvHome, home)
	t.Setenv(EnvProjectDir, "")
	for _, name := range []string{
		EnvAPIURL, EnvAPITimeout, EnvMaxAttempts, EnvOutput, EnvPageSize,
		EnvLogLevel, EnvLogFormat, EnvLogFile, EnvSessionStore, EnvProfile,
	} {
		t.Setenv(name, "")
	}
	ResetGlobalConfigForTest()
	t.Cleanup(ResetGlobalConfigForTest)
	return home
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o700))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestDefault(t *testing.T) {
	home := stubHome(t)

	cfg := Default()
	assert.Equal(t, DefaultBaseURL, cfg.API.BaseURL)
	assert.Equal(t, 3, cfg.API.MaxAttempts)
	assert.Equal(t, time.Second, cfg.API.BaseDelay)
	assert.Equal(t, 10*time.Second, cfg.API.MaxDelay)
	assert.Equal(t, "table", cfg.Output.DefaultFormat)
	assert.Equal(t, 10, cfg.Output.PageSize)
	assert.Equal(t, filepath.Join(home, "config.yaml"), cfg.ConfigPath())
	require.NoError(t, cfg.Validate())
}

func TestNew_LayersGlobalFileAndEnv(t *testing.T) {
	home := stubHome(t)
	writeFile(t, filepath.Join(home, "config.yaml"), `
api:
  base_url: https://warehouse.example.com/api
  timeout: 5s
output:
  default_format: json
`)
	t.Setenv(EnvPageSize, "25")

	cfg := New()
	assert.Equal(t, "https://warehouse.example.com/api", cfg.API.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.API.Timeout)
	assert.Equal(t, 3, cfg.API.MaxAttempts, "keys absent from the file keep their defaults")
	assert.Equal(t, "json", cfg.Output.DefaultFormat)
	assert.Equal(t, 25, cfg.Output.PageSize, "environment wins over the file")
}

func TestNew_CorruptGlobalFileFallsBackToDefaults(t *testing.T) {
	home := stubHome(t)
	writeFile(t, filepath.Join(home, "config.yaml"), "api: [unclosed")

	cfg := New()
	assert.Equal(t, DefaultBaseURL, cfg.API.BaseURL)
}

func TestApplyEnv_InvalidNumbersReported(t *testing.T) {
	stubHome(t)
	t.Setenv(EnvMaxAttempts, "three")
	t.Setenv(EnvAPITimeout, "soon")
	t.Setenv(EnvLogLevel, "debug")

	cfg := Default()
	err := cfg.ApplyEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), EnvMaxAttempts)
	assert.Contains(t, err.Error(), EnvAPITimeout)
	assert.Equal(t, 3, cfg.API.MaxAttempts)
	assert.Equal(t, "debug", cfg.Logging.Level, "valid overrides still apply")
}

func TestLoadDotEnv(t *testing.T) {
	stubHome(t)
	dir := t.TempDir()

	require.NoError(t, LoadDotEnv(filepath.Join(dir, ".env")), "missing file is fine")

	path := filepath.Join(dir, ".env")
	writeFile(t, path, "STOCKDESK_API_URL=https://from-dotenv.example.com\n")
	t.Setenv(EnvAPIURL, "")
	require.NoError(t, os.Unsetenv(EnvAPIURL))
	require.NoError(t, LoadDotEnv(path))
	t.Cleanup(func() { _ = os.Unsetenv(EnvAPIURL) })

	assert.Equal(t, "https://from-dotenv.example.com", New().API.BaseURL)
}

func TestValidate(t *testing.T) {
	stubHome(t)

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"relative url", func(c *Config) { c.API.BaseURL = "/api" }, "api.base_url"},
		{"zero timeout", func(c *Config) { c.API.Timeout = 0 }, "api.timeout"},
		{"no attempts", func(c *Config) { c.API.MaxAttempts = 0 }, "retry"},
		{"delay cap below base", func(c *Config) { c.API.MaxDelay = time.Millisecond }, "retry"},
		{"format", func(c *Config) { c.Output.DefaultFormat = "xml" }, "output.default_format"},
		{"page size", func(c *Config) { c.Output.PageSize = 0 }, "output.page_size"},
		{"level", func(c *Config) { c.Logging.Level = "loud" }, "logging.level"},
		{"log format", func(c *Config) { c.Logging.Format = "text" }, "logging.format"},
		{"session store", func(c *Config) { c.Session.Store = "keychain" }, "session.store"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, ErrInvalidConfig)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestGetSetList(t *testing.T) {
	stubHome(t)
	cfg := Default()

	require.NoError(t, cfg.Set("api.base_url", "https://x.example.com"))
	require.NoError(t, cfg.Set("api.timeout", "45s"))
	require.NoError(t, cfg.Set("output.page_size", "50"))
	require.NoError(t, cfg.Set("api.retry_client_errors", "true"))

	v, err := cfg.Get("api.timeout")
	require.NoError(t, err)
	assert.Equal(t, "45s", v)
	assert.Equal(t, 50, cfg.Output.PageSize)
	assert.True(t, cfg.API.RetryClientErrors)

	_, err = cfg.Get("plugins.aws")
	require.ErrorIs(t, err, ErrUnknownKey)
	require.ErrorIs(t, cfg.Set("output.page_size", "many"), ErrInvalidValue)
	require.ErrorIs(t, cfg.Set("api.timeout", "7"), ErrInvalidValue)
	require.ErrorIs(t, cfg.Set("api.retry_client_errors", "maybe"), ErrInvalidValue)

	all := cfg.List()
	assert.Len(t, all, len(Keys()))
	assert.Equal(t, "https://x.example.com", all["api.base_url"])
}

func TestSave_RoundTrip(t *testing.T) {
	home := stubHome(t)

	cfg := Default()
	cfg.API.BaseURL = "https://saved.example.com/api"
	cfg.API.Timeout = 12 * time.Second
	cfg.Logging.Level = "debug"
	require.NoError(t, cfg.Save())

	info, err := os.Stat(filepath.Join(home, "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	loaded := New()
	assert.Equal(t, cfg.API, loaded.API)
	assert.Equal(t, "debug", loaded.Logging.Level)
}

func TestSave_NoPath(t *testing.T) {
	require.Error(t, (&Config{}).Save())
}

func TestRetryPolicy(t *testing.T) {
	stubHome(t)
	cfg := Default()

	p := cfg.RetryPolicy()
	require.NoError(t, p.Validate())
	assert.Equal(t, 2*time.Second, p.Delay(2))
	assert.Equal(t, 10*time.Second, p.Delay(6))
	forbidden := &api.APIError{Status: http.StatusForbidden}
	unavailable := &api.APIError{Status: http.StatusServiceUnavailable}
	assert.False(t, p.Retryable(forbidden))
	assert.True(t, p.Retryable(unavailable))

	cfg.API.RetryClientErrors = true
	p = cfg.RetryPolicy()
	assert.True(t, p.Retryable(forbidden))
	assert.False(t, p.Retryable(context.Canceled))
	assert.False(t, p.Retryable(errors.Join(context.Canceled)))
}

func TestSessionDir(t *testing.T) {
	home := stubHome(t)
	cfg := Default()

	dir, err := cfg.SessionDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "sessions"), dir)

	cfg.Session.Dir = "/var/lib/stockdesk"
	dir, err = cfg.SessionDir()
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/stockdesk", dir)
}

func TestToLoggingConfig(t *testing.T) {
	lc := LoggingConfig{Level: "debug", Format: "json"}
	got := lc.ToLoggingConfig()
	assert.Equal(t, logging.OutputStderr, got.Output)
	assert.Equal(t, "debug", got.Level)

	lc.File = "/tmp/stockdesk.log"
	got = lc.ToLoggingConfig()
	assert.Equal(t, logging.OutputFile, got.Output)
	assert.Equal(t, "/tmp/stockdesk.log", got.File)
}
