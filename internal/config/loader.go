// Package config loads the toolbridge configuration file and applies
// environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ConfigPath returns the default configuration file path: ~/.toolbridge/config.yaml.
func ConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".toolbridge/config.yaml"
	}
	return filepath.Join(home, ".toolbridge", "config.yaml")
}

// DataDir returns the toolbridge data directory: ~/.toolbridge.
func DataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".toolbridge"
	}
	return filepath.Join(home, ".toolbridge")
}

// Load reads and parses the config file at path, then applies environment
// overrides. If path is empty, ConfigPath() is used. A missing file yields
// the defaults; a malformed file prints a warning and yields the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		path = ConfigPath()
	}

	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// Defaults.
	case err != nil:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			fmt.Printf("Warning: failed to parse config %s: %v\n", path, err)
			fmt.Println("Using default configuration.")
			cfg = DefaultConfig()
		}
	}

	applyEnv(&cfg)

	if cfg.Logs.Dir == "" {
		cfg.Logs.Dir = filepath.Join(DataDir(), "conversations")
	}

	return &cfg, nil
}

// applyEnv overlays process-environment settings onto cfg.
func applyEnv(cfg *Config) {
	cfg.Anthropic.APIKey = os.Getenv("ANTHROPIC_API_KEY")
	if v := os.Getenv("TOOLBRIDGE_SERVER_SCRIPT"); v != "" {
		cfg.Tools.ServerScript = v
	}
	if v := os.Getenv("TOOLBRIDGE_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
}

// Save writes cfg to path as YAML. If path is empty, ConfigPath() is used.
func Save(cfg *Config, path string) error {
	if path == "" {
		path = ConfigPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}
