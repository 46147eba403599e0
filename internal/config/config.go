// Package config loads the application configuration file. Every field has
// a default so the app runs without any file on disk.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// DataDir holds the database and the settings file.
	DataDir string `yaml:"dataDir"`

	// WorkspaceDir, when set, points the app at a directory of board files
	// instead of the database.
	WorkspaceDir string `yaml:"workspaceDir"`

	// DebounceMs is the save coalescing window in milliseconds.
	DebounceMs int `yaml:"debounceMs"`

	// AutosaveEvery is a cron spec like "@every 30s". Empty disables autosave.
	AutosaveEvery string `yaml:"autosaveEvery"`

	// HistoryDepth caps the undo stack.
	HistoryDepth int `yaml:"historyDepth"`

	LogLevel  string `yaml:"logLevel"`
	LogFormat string `yaml:"logFormat"`
}

func Default() Config {
	home, _ := os.UserHomeDir()
	return Config{
		DataDir:       filepath.Join(home, ".local", "share", "inkfinite"),
		DebounceMs:    75,
		AutosaveEvery: "@every 30s",
		HistoryDepth:  100,
		LogLevel:      "info",
		LogFormat:     "console",
	}
}

// DefaultPath is where Load looks when no path is given.
func DefaultPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "inkfinite", "config.yaml")
}

// Load reads the file at path over the defaults. A missing or empty file
// yields the defaults; unknown fields are rejected to catch typos.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.DebounceMs < 0 {
		return fmt.Errorf("debounceMs must not be negative")
	}
	if c.HistoryDepth < 1 {
		return fmt.Errorf("historyDepth must be at least 1")
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown logLevel %q", c.LogLevel)
	}
	switch c.LogFormat {
	case "console", "json":
	default:
		return fmt.Errorf("unknown logFormat %q", c.LogFormat)
	}
	return nil
}

func (c Config) Debounce() time.Duration {
	return time.Duration(c.DebounceMs) * time.Millisecond
}

func (c Config) DBPath() string {
	return filepath.Join(c.DataDir, "inkfinite.db")
}

func (c Config) SettingsPath() string {
	return filepath.Join(c.DataDir, "settings.json")
}
