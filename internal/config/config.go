// Package config provides configuration management for notechain.
//
// Config file locations (priority order):
//  1. $NOTECHAIN_CONFIG
//  2. ./notechain.yaml
//  3. $XDG_CONFIG_HOME/notechain/config.yaml
//  4. ~/.config/notechain/config.yaml
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the daemon configuration.
type Config struct {
	// Vault is the note directory to watch.
	Vault string `yaml:"vault"`

	// ParentField is the frontmatter field naming a note's predecessor.
	ParentField string `yaml:"parent_field"`

	// CreatedField is the frontmatter field carrying a note's creation
	// time; file mtime is the fallback.
	CreatedField string `yaml:"created_field"`

	// Listen is the HTTP listen address.
	Listen string `yaml:"listen"`

	// Database is the snapshot database path. Empty disables the
	// snapshot.
	Database string `yaml:"database"`

	// Debounce is how long the watcher waits for a path to settle.
	Debounce Duration `yaml:"debounce"`

	Log LogConfig `yaml:"log"`
}

// LogConfig controls logging output.
type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// Load finds and loads the config file, or returns defaults if none found
func Load() (*Config, string, error) {
	path := FindConfigPath()
	if path == "" {
		return DefaultConfig(), "", nil
	}
	return LoadFromPath(path)
}

// LoadFromPath loads config from a specific path
func LoadFromPath(path string) (*Config, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, path, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, path, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()
	return &cfg, path, nil
}

// DefaultConfig returns sensible defaults for a new installation
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// applyDefaults fills in missing values with defaults
func (c *Config) applyDefaults() {
	if c.Vault == "" {
		c.Vault = "."
	}
	if c.ParentField == "" {
		c.ParentField = "prev"
	}
	if c.CreatedField == "" {
		c.CreatedField = "created"
	}
	if c.Listen == "" {
		c.Listen = ":3000"
	}
	if c.Debounce.Duration() == 0 {
		c.Debounce = Duration(500 * time.Millisecond)
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Duration wraps time.Duration for yaml round trips in "500ms" form.
type Duration time.Duration

// Duration returns the underlying time.Duration.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}
