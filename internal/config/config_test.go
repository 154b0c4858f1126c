package config_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hammamikhairi/kitchenops/internal/config"
	"github.com/hammamikhairi/kitchenops/internal/logger"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
}

func TestLoad_FromFile(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "kitchenops.toml")
	writeFile(t, configPath, `
addr = ":9090"
data_dir = "/var/lib/kitchenops"
log_level = "verbose"
token_ttl = "2h"
tick_interval = "500ms"

[redis]
addr = "localhost:6379"
prefix = "test"

[admin]
email = "admin@kitchen.test"
`)

	cfg, err := config.LoadFrom(configPath)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, "/var/lib/kitchenops", cfg.DataDir)
	assert.Equal(t, "verbose", cfg.LogLevel)
	assert.Equal(t, 2*time.Hour, cfg.TokenTTL.Duration)
	assert.Equal(t, 500*time.Millisecond, cfg.TickInterval.Duration)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, "test", cfg.Redis.Prefix)
	assert.Equal(t, "admin@kitchen.test", cfg.Admin.Email)

	// Untouched keys keep their defaults.
	assert.Equal(t, 10*time.Minute, cfg.GCInterval.Duration)
	assert.True(t, cfg.SeedRecipes)
}

func TestLoad_EnvVarsTakePrecedence(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "kitchenops.toml")
	writeFile(t, configPath, `
addr = ":9090"
log_level = "off"
`)

	t.Setenv(config.EnvAddr, ":7070")
	t.Setenv(config.EnvLogLevel, "debug")
	t.Setenv(config.EnvRedisAddr, "redis:6379")
	t.Setenv(config.EnvTokenTTL, "3600")
	t.Setenv(config.EnvAdminPassword, "from-env-pass")

	cfg, err := config.LoadFrom(configPath)
	require.NoError(t, err)

	assert.Equal(t, ":7070", cfg.Addr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.Equal(t, time.Hour, cfg.TokenTTL.Duration)
	assert.Equal(t, "from-env-pass", cfg.Admin.Password)
}

func TestLoad_MissingFileIsNotError(t *testing.T) {
	t.Setenv(config.EnvDataDir, "/tmp/only-env")
	cfg, err := config.LoadFrom("/nonexistent/path/kitchenops.toml")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/only-env", cfg.DataDir)
	assert.Equal(t, ":8080", cfg.Addr)
}

func TestLoad_Invalid(t *testing.T) {
	dir := t.TempDir()

	bad := filepath.Join(dir, "bad.toml")
	writeFile(t, bad, `token_ttl = "forever"`)
	_, err := config.LoadFrom(bad)
	assert.Error(t, err)

	zero := filepath.Join(dir, "zero.toml")
	writeFile(t, zero, `tick_interval = "0s"`)
	_, err = config.LoadFrom(zero)
	assert.Error(t, err)

	t.Setenv(config.EnvTokenTTL, "soon")
	_, err = config.LoadFrom("/nonexistent/kitchenops.toml")
	assert.Error(t, err)
}

func TestLoadEnv(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	writeFile(t, envPath, "KITCHENOPS_DATA_DIR=/from/dotenv\n")

	// Make sure the variable is restored after the test.
	t.Setenv(config.EnvDataDir, "")
	require.NoError(t, os.Unsetenv(config.EnvDataDir))

	require.NoError(t, config.LoadEnv(envPath))
	assert.Equal(t, "/from/dotenv", os.Getenv(config.EnvDataDir))

	assert.NoError(t, config.LoadEnv(filepath.Join(dir, "missing.env")))
}

func TestWatch_ReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "kitchenops.toml")
	writeFile(t, configPath, `log_level = "normal"`)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan config.Config, 4)
	done := make(chan error, 1)
	go func() {
		done <- config.Watch(ctx, configPath, logger.New(logger.LevelOff, nil), func(c config.Config) { got <- c })
	}()

	// Give the watcher a moment to register.
	time.Sleep(100 * time.Millisecond)
	writeFile(t, configPath, `log_level = "verbose"`)

	select {
	case c := <-got:
		assert.Equal(t, "verbose", c.LogLevel)
	case <-time.After(3 * time.Second):
		t.Fatal("config change was not picked up")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("watch did not return after cancel")
	}
}
