// Package config defines the application configuration.
package config

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Config represents the application configuration.
type Config struct {
	App      AppConfig      `yaml:"app"`
	SQLite   SQLiteConfig   `yaml:"sqlite"`
	History  HistoryConfig  `yaml:"history"`
	Autosave AutosaveConfig `yaml:"autosave"`
	Sync     SyncConfig     `yaml:"sync"`
}

// Default returns the configuration used when no file overrides it.
func Default() *Config {
	return &Config{
		App: AppConfig{
			LogLevel: slog.LevelInfo,
			HTTP:     HTTPConfig{Port: 8080},
			LogFile:  "",
		},
		SQLite:   SQLiteConfig{Path: "moodboard.db"},
		History:  HistoryConfig{MaxEntries: 100},
		Autosave: AutosaveConfig{Debounce: time.Second},
		Sync: SyncConfig{
			ReconnectBase: time.Second,
			ReconnectCap:  30 * time.Second,
			MaxAttempts:   5,
		},
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	if err := c.History.Validate(); err != nil {
		return err
	}
	return c.Sync.Validate()
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	// LogFile enables rotated file logging when set; empty logs to stdout.
	LogFile string     `yaml:"log_file"`
	HTTP    HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *AppConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns the HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// SQLiteConfig holds the document database location.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// HistoryConfig bounds the undo/redo ring.
type HistoryConfig struct {
	MaxEntries int `yaml:"max_entries"`
}

// Validate validates the history configuration.
func (c *HistoryConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.MaxEntries, validation.Min(1)),
	)
}

// AutosaveConfig controls the single-owner reconciler debounce.
type AutosaveConfig struct {
	Debounce time.Duration `yaml:"debounce"`
}

// SyncConfig controls the sync client reconnection policy.
type SyncConfig struct {
	ReconnectBase time.Duration `yaml:"reconnect_base"`
	ReconnectCap  time.Duration `yaml:"reconnect_cap"`
	MaxAttempts   int           `yaml:"max_attempts"`
}

// Validate validates the sync configuration.
func (c *SyncConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.MaxAttempts, validation.Min(1)),
	)
}
