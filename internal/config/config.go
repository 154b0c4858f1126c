// Package config loads kitchenops server settings from a TOML file, a
// .env file, and the environment, in increasing order of precedence.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Environment variables that override file values.
const (
	EnvAddr          = "KITCHENOPS_ADDR"
	EnvDataDir       = "KITCHENOPS_DATA_DIR"
	EnvRedisAddr     = "KITCHENOPS_REDIS_ADDR"
	EnvLogLevel      = "KITCHENOPS_LOG_LEVEL"
	EnvAdminEmail    = "KITCHENOPS_ADMIN_EMAIL"
	EnvAdminPassword = "KITCHENOPS_ADMIN_PASSWORD"
	EnvTokenTTL      = "KITCHENOPS_TOKEN_TTL"
)

// DefaultPath is where the server looks for its config file.
const DefaultPath = "kitchenops.toml"

// Duration is a time.Duration written as "90s" or "24h" in TOML.
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// RedisConfig points the relay at a shared Redis. An empty Addr keeps the
// relay in-process.
type RedisConfig struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
	Prefix   string `toml:"prefix"`
}

// AdminConfig is the account created on first start.
type AdminConfig struct {
	Email    string `toml:"email"`
	Password string `toml:"password"`
}

// ChimeConfig controls audible alerts on the server host.
type ChimeConfig struct {
	Enabled bool `toml:"enabled"`
}

// Config holds all server configuration.
type Config struct {
	Addr                string      `toml:"addr"`
	DataDir             string      `toml:"data_dir"`
	LogLevel            string      `toml:"log_level"`
	LogFile             string      `toml:"log_file"`
	TokenTTL            Duration    `toml:"token_ttl"`
	TickInterval        Duration    `toml:"tick_interval"`
	GCInterval          Duration    `toml:"gc_interval"`
	InventoryCheckEvery Duration    `toml:"inventory_check_every"`
	SeedRecipes         bool        `toml:"seed_recipes"`
	CORSOrigins         []string    `toml:"cors_origins"`
	Redis               RedisConfig `toml:"redis"`
	Admin               AdminConfig `toml:"admin"`
	Chime               ChimeConfig `toml:"chime"`
}

// Default returns the configuration used for anything a file leaves out.
func Default() Config {
	return Config{
		Addr:                ":8080",
		DataDir:             "data",
		LogLevel:            "normal",
		TokenTTL:            Duration{24 * time.Hour},
		TickInterval:        Duration{time.Second},
		GCInterval:          Duration{10 * time.Minute},
		InventoryCheckEvery: Duration{5 * time.Minute},
		SeedRecipes:         true,
		Redis:               RedisConfig{Prefix: "kitchenops"},
	}
}

// LoadEnv loads a .env file into the process environment. A missing file
// is not an error; variables already set are kept.
func LoadEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// LoadFrom reads configuration from the given TOML file path.
// If the file does not exist, defaults are used without error.
// Environment variables always take precedence over file values.
func LoadFrom(path string) (Config, error) {
	cfg := Default()
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("parsing %s: %w", path, err)
		}
	}
	if err := applyEnvOverrides(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the server cannot run with.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Addr) == "" {
		return fmt.Errorf("config: addr must not be empty")
	}
	if c.TickInterval.Duration <= 0 {
		return fmt.Errorf("config: tick_interval must be positive")
	}
	if c.TokenTTL.Duration <= 0 {
		return fmt.Errorf("config: token_ttl must be positive")
	}
	return nil
}

func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv(EnvAddr); v != "" {
		cfg.Addr = v
	}
	if v := os.Getenv(EnvDataDir); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv(EnvRedisAddr); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv(EnvAdminEmail); v != "" {
		cfg.Admin.Email = v
	}
	if v := os.Getenv(EnvAdminPassword); v != "" {
		cfg.Admin.Password = v
	}
	if v := os.Getenv(EnvTokenTTL); v != "" {
		d, err := parseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvTokenTTL, err)
		}
		cfg.TokenTTL = Duration{d}
	}
	return nil
}

// parseDuration accepts Go durations and bare seconds.
func parseDuration(v string) (time.Duration, error) {
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	return time.ParseDuration(v)
}
