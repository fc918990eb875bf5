// Package config handles configuration file loading and parsing.
package config

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// Default configuration values for the overbar CLI.
const (
	DefaultHistoryFormat = "plain"
	DefaultTimeFormat    = "15:04:05"
	DefaultTextWidth     = 60
)

// Config represents the overbar CLI configuration.
type Config struct {
	Post    PostConfig    `toml:"post"`
	History HistoryConfig `toml:"history"`
	Watch   WatchConfig   `toml:"watch"`
}

// PostConfig holds defaults for posting messages.
type PostConfig struct {
	Animated bool `toml:"animated"` // Animate transitions unless --no-animate
}

// HistoryConfig holds history output defaults.
type HistoryConfig struct {
	Format     string `toml:"format"`      // plain, json, yaml
	TimeFormat string `toml:"time_format"` // Go layout used by plain output
	TextWidth  int    `toml:"text_width"`  // Truncate text in plain output (0 = no limit)
}

// WatchConfig holds terminal watcher settings.
type WatchConfig struct {
	ShowHelp  bool   `toml:"show_help"`
	Clipboard string `toml:"clipboard"` // Copy command, auto-detected when empty
	EventLog  int    `toml:"event_log"` // Signals kept in the watch log
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Post: PostConfig{
			Animated: true,
		},
		History: HistoryConfig{
			Format:     DefaultHistoryFormat,
			TimeFormat: DefaultTimeFormat,
			TextWidth:  DefaultTextWidth,
		},
		Watch: WatchConfig{
			ShowHelp: true,
			EventLog: 200,
		},
	}
}

// ConfigDir returns the overbar configuration directory.
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config.
func ConfigDir() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "overbar")
}

// ConfigPath returns the path to the CLI config file.
func ConfigPath() string {
	dir := ConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "config.toml")
}

// LoadConfig loads configuration from the specified path.
// If path is empty, uses the default config path.
// Returns default config if file doesn't exist.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		path = ConfigPath()
	}

	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, err
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes the configuration to the specified path.
// Creates parent directories if needed.
func (c *Config) Save(path string) error {
	if path == "" {
		path = ConfigPath()
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
