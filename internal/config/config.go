// Package config loads the CLI's YAML configuration.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the rdflib CLI configuration.
type Config struct {
	Store  StoreConfig  `yaml:"store"`
	Engine EngineConfig `yaml:"engine"`
	Log    LogConfig    `yaml:"log"`
}

// StoreConfig selects where quads live.
type StoreConfig struct {
	// Path is the badger database directory. Empty means an in-memory
	// dataset that is discarded on exit.
	Path string `yaml:"path"`
}

// EngineConfig sets the process-wide engine switches.
type EngineConfig struct {
	// LoadExternalGraphs permits FROM, FROM NAMED and LOAD to fetch
	// remote documents.
	LoadExternalGraphs bool `yaml:"load_external_graphs"`
	// DefaultGraphIsUnion makes patterns outside GRAPH see the union of
	// all graphs.
	DefaultGraphIsUnion bool `yaml:"default_graph_is_union"`
}

// LogConfig configures slog output.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Engine: EngineConfig{
			LoadExternalGraphs:  true,
			DefaultGraphIsUnion: true,
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load reads a YAML file over the defaults. An empty path returns the
// defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks field values.
func (c *Config) Validate() error {
	switch c.Log.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.Log.Level)
	}
	return nil
}
