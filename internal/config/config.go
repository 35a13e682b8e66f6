// Package config reads runtime settings from the environment, optionally
// seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
)

// Environment variables
const (
	EnvDataDir       = "DOJANG_DATA_DIR"
	EnvContentDir    = "DOJANG_CONTENT_DIR"
	EnvStoreFile     = "DOJANG_STORE_FILE"
	EnvSettingsFile  = "DOJANG_SETTINGS_FILE"
	EnvLeitnerConfig = "DOJANG_LEITNER_CONFIG"
	EnvLogLevel      = "DOJANG_LOG_LEVEL"
	EnvLogFile       = "DOJANG_LOG_FILE"
	EnvSyncInterval  = "DOJANG_SYNC_INTERVAL"
	EnvGCInterval    = "DOJANG_GC_INTERVAL"
	EnvWatchDebounce = "DOJANG_WATCH_DEBOUNCE"
)

// Config holds the application settings
type Config struct {
	DataDir      string
	ContentDir   string
	StoreFile    string
	SettingsFile string
	// LeitnerConfig is the YAML file with the review intervals. Relative
	// paths resolve against ContentDir.
	LeitnerConfig string

	LogLevel string
	// LogFile enables a rotating log file next to stderr output.
	LogFile string

	SyncInterval  time.Duration
	GCInterval    time.Duration
	WatchDebounce time.Duration
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		DataDir:       "data",
		ContentDir:    "content",
		StoreFile:     "dojang.db",
		SettingsFile:  "settings.db",
		LeitnerConfig: "leitner.yaml",
		LogLevel:      "info",
		SyncInterval:  time.Hour,
		GCInterval:    24 * time.Hour,
		WatchDebounce: 2 * time.Second,
	}
}

// Load reads envFile if it exists, then overlays the environment onto the
// defaults. An empty envFile means ".env".
func Load(envFile string) (*Config, error) {
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
	}
	return FromEnv()
}

// FromEnv overlays the environment onto the defaults.
func FromEnv() (*Config, error) {
	cfg := DefaultConfig()

	setString(&cfg.DataDir, EnvDataDir)
	setString(&cfg.ContentDir, EnvContentDir)
	setString(&cfg.StoreFile, EnvStoreFile)
	setString(&cfg.SettingsFile, EnvSettingsFile)
	setString(&cfg.LeitnerConfig, EnvLeitnerConfig)
	setString(&cfg.LogLevel, EnvLogLevel)
	setString(&cfg.LogFile, EnvLogFile)

	for _, d := range []struct {
		dst *time.Duration
		env string
	}{
		{&cfg.SyncInterval, EnvSyncInterval},
		{&cfg.GCInterval, EnvGCInterval},
		{&cfg.WatchDebounce, EnvWatchDebounce},
	} {
		if err := setDuration(d.dst, d.env); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// StorePath is the primary store file.
func (c *Config) StorePath() string {
	return filepath.Join(c.DataDir, c.StoreFile)
}

// SettingsPath is the settings database, kept apart from the store so a
// reset does not lose the content hashes.
func (c *Config) SettingsPath() string {
	return filepath.Join(c.DataDir, c.SettingsFile)
}

// LeitnerPath resolves the review interval file.
func (c *Config) LeitnerPath() string {
	if filepath.IsAbs(c.LeitnerConfig) {
		return c.LeitnerConfig
	}
	return filepath.Join(c.ContentDir, c.LeitnerConfig)
}

func setString(dst *string, env string) {
	if v := os.Getenv(env); v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, env string) error {
	v := os.Getenv(env)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", env, err)
	}
	if d <= 0 {
		return fmt.Errorf("invalid %s: must be positive", env)
	}
	*dst = d
	return nil
}
