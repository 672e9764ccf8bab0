package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config holds all mailpouch configuration.
type Config struct {
	Sync  SyncConfig  `toml:"sync"`
	Fetch FetchConfig `toml:"fetch"`
	User  UserConfig  `toml:"user"`
	Gmail GmailConfig `toml:"gmail"`
}

// GmailConfig holds Gmail OAuth credentials.
// Users can override via config file or env vars.
type GmailConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
}

// SyncConfig holds synchronization settings.
type SyncConfig struct {
	Interval     string `toml:"interval"`
	InitialCount int    `toml:"initial_count"`
}

// FetchConfig holds conversation-list fetch settings.
type FetchConfig struct {
	PageSize int `toml:"page_size"`
}

// UserConfig holds user selection settings.
type UserConfig struct {
	Default string `toml:"default"`
}

func defaults() Config {
	return Config{
		Sync: SyncConfig{
			Interval:     "5m",
			InitialCount: 500,
		},
		Fetch: FetchConfig{
			PageSize: 50,
		},
	}
}

// Load reads config from path. If path is empty, returns defaults.
func Load(path string) (*Config, error) {
	cfg := defaults()
	if path == "" {
		return &cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}

// ConfigDir returns the mailpouch config directory path.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "mailpouch")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "mailpouch")
}

// DataDir returns the mailpouch data directory path.
func DataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "mailpouch")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "mailpouch")
}
