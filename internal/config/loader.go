// Package config loads the coordinator's own bootstrap configuration
// (§4.0b): a small YAML file, defaults-first with an overlay, distinct
// from the XML/Nix manifest wire format parsed by internal/manifest.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"coordinator/pkg/logging"
)

const (
	envConfigDir   = "disnix-coordinator"
	configFileName = "config.yaml"
)

// MigrationScheduling selects the default scheduling mode for C7.
type MigrationScheduling string

const (
	BreadthFirst MigrationScheduling = "breadth-first"
	DepthFirst   MigrationScheduling = "depth-first"
)

// Config holds every coordinator bootstrap setting (§4.0b). Every field
// has a hard-coded default, so a missing config file is never an error.
type Config struct {
	ClientInterface            string              `yaml:"clientInterface"`
	StoreBackend               string              `yaml:"storeBackend"`
	CoordinatorProfilePathBase string              `yaml:"coordinatorProfilePathBase"`
	MaxConcurrentTransfers     int                 `yaml:"maxConcurrentTransfers"`
	Profile                    string              `yaml:"profile"`
	MigrationScheduling        MigrationScheduling `yaml:"migrationScheduling"`
}

// Default returns the coordinator's built-in defaults, used both as the
// fallback when no config file exists and as the base a file is
// unmarshalled over.
func Default() Config {
	return Config{
		ClientInterface:            "disnix-client",
		StoreBackend:               "nix-store",
		CoordinatorProfilePathBase: "/nix/var/nix/profiles/disnix-coordinator",
		MaxConcurrentTransfers:     2,
		Profile:                    "default",
		MigrationScheduling:        BreadthFirst,
	}
}

// DefaultConfigDir returns $XDG_CONFIG_HOME/disnix-coordinator, falling
// back to ~/.config/disnix-coordinator when XDG_CONFIG_HOME is unset.
func DefaultConfigDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, envConfigDir), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine user config directory: %w", err)
	}
	return filepath.Join(home, ".config", envConfigDir), nil
}

// Load reads config.yaml from configDir and overlays it on Default(). A
// missing file is not an error — every field just keeps its default
// value, the same "defaults-first, overlay file" pattern the teacher uses.
func Load(configDir string) (Config, error) {
	cfg := Default()

	path := filepath.Join(configDir, configFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logging.Coordinator("no config.yaml found at %s, using defaults", path)
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config from %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config from %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	logging.Coordinator("loaded configuration from %s", path)
	return cfg, nil
}

// Validate rejects settings that would make the rest of the program
// misbehave silently: a non-positive transfer budget would deadlock
// semaphore.Weighted, and an unrecognized scheduling mode would never
// match either branch of migration.Engine.Migrate.
func (c Config) Validate() error {
	if c.ClientInterface == "" {
		return fmt.Errorf("config: clientInterface must not be empty")
	}
	if c.StoreBackend == "" {
		return fmt.Errorf("config: storeBackend must not be empty")
	}
	if c.MaxConcurrentTransfers <= 0 {
		return fmt.Errorf("config: maxConcurrentTransfers must be positive, got %d", c.MaxConcurrentTransfers)
	}
	switch c.MigrationScheduling {
	case BreadthFirst, DepthFirst:
	default:
		return fmt.Errorf("config: unknown migrationScheduling %q", c.MigrationScheduling)
	}
	return nil
}
