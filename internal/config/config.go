package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the settings for the joystore demo binary
type Config struct {
	// Path of the backing JSON file
	Path string `yaml:"path"`

	// AutosaveMs is the autosave cadence in milliseconds; 0 disables
	// autosave
	AutosaveMs int `yaml:"autosave_ms"`

	// SeqURL is an optional Seq log sink address
	SeqURL string `yaml:"seq_url"`

	// Tables to register before the store starts; the registry is
	// frozen afterwards
	Tables []string `yaml:"tables"`
}

// Default returns the configuration used when no config file is given
func Default() *Config {
	return &Config{
		Path:       "joystore.json",
		AutosaveMs: 2000,
		Tables:     []string{"records"},
	}
}

// Load reads a YAML config file. Fields absent from the file keep
// their defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	if cfg.Path == "" {
		return nil, fmt.Errorf("config %s: path must not be empty", path)
	}
	if cfg.AutosaveMs < 0 {
		return nil, fmt.Errorf("config %s: autosave_ms must not be negative", path)
	}
	return cfg, nil
}

// AutosaveInterval returns the autosave cadence as a duration
func (c *Config) AutosaveInterval() time.Duration {
	return time.Duration(c.AutosaveMs) * time.Millisecond
}
