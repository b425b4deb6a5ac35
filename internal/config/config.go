// Package config loads and saves the user-level chronicle configuration.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config is the persisted user configuration. Provider selection recorded
// here takes priority over environment discovery.
type Config struct {
	// Provider names the backend: "anthropic" or "claude-code". Empty
	// means discover from the environment.
	Provider string `json:"provider,omitempty"`
	Model    string `json:"model,omitempty"`
	APIKey   string `json:"api_key,omitempty"`

	// Command overrides the claude binary for the claude-code backend.
	Command string `json:"command,omitempty"`

	MaxTurns int `json:"max_turns,omitempty"`
}

// DefaultPath returns the config file location, honoring CHRONICLE_CONFIG.
func DefaultPath() (string, error) {
	if p := os.Getenv("CHRONICLE_CONFIG"); p != "" {
		return p, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locate config dir: %w", err)
	}
	return filepath.Join(dir, "chronicle", "config.json"), nil
}

// Load reads the config at path. A missing file yields the zero config.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the config to path, creating parent directories. The file is
// user-only since it may hold an API key.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o600)
}
