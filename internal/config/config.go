package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	nberrors "github.com/nasbridge/nasbridge/internal/errors"
)

// Config is the profile: everything that is not a secret lives here,
// credentials stay in .env
type Config struct {
	ACME     ACME     `yaml:"acme"`
	Sync     Sync     `yaml:"sync"`
	Check    Check    `yaml:"check"`
	Schedule Schedule `yaml:"schedule"`
}

// configDir is the default config directory
const configDir = ".config/nasbridge"
const configFile = "config.yaml"

// New creates a new Config with default values
func New() *Config {
	return &Config{
		ACME: ACME{
			Container: "acme.sh",
			Backend:   BackendCLI,
		},
		Sync: Sync{
			Port: 22,
		},
		Check: Check{
			WarnDays:   10,
			StatusFile: "log/ssl_check.log",
			Channels:   []string{"telegram", "email"},
		},
	}
}

// ConfigDir returns the config directory path
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, configDir), nil
}

// ConfigPath returns the config file path
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFile), nil
}

// Load reads the profile from the default location
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFrom(path)
}

// LoadFrom reads the profile at path; a missing file yields defaults
func LoadFrom(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return New(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nberrors.Wrap(nberrors.ErrCodeConfig, "failed to read config", err)
	}

	cfg := New()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, nberrors.Wrap(nberrors.ErrCodeConfig, "failed to parse config", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values yaml cannot type-check
func (c *Config) Validate() error {
	if !IsValidBackend(c.ACME.Backend) {
		return nberrors.Wrap(nberrors.ErrCodeConfig,
			fmt.Sprintf("invalid acme backend %q (want one of %v)", c.ACME.Backend, ValidBackends()), nil)
	}
	if c.Sync.Port <= 0 || c.Sync.Port > 65535 {
		return nberrors.Wrap(nberrors.ErrCodeConfig, fmt.Sprintf("invalid sync port %d", c.Sync.Port), nil)
	}
	if c.Check.WarnDays < 0 {
		return nberrors.Wrap(nberrors.ErrCodeConfig, "check.warn_days cannot be negative", nil)
	}
	for _, ch := range c.Check.Channels {
		if ch != "telegram" && ch != "email" {
			return nberrors.Wrap(nberrors.ErrCodeConfig, fmt.Sprintf("unknown check channel %q", ch), nil)
		}
	}
	return nil
}

// Save writes the config to the default location
func (c *Config) Save() error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return c.SaveTo(path)
}

// SaveTo writes the config to path, creating parent directories
func (c *Config) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// The profile may name identity files and hosts; keep it private
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}
