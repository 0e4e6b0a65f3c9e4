// Package config loads the runtime configuration: the store fleet
// layout, the table descriptor directory, scheduler cadence, default
// strategy and worker-pool sizing. Values come from a YAML file with
// CONVERGE_* environment overrides applied on top.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/sylvanix/converge/internal/engine"
	"github.com/sylvanix/converge/internal/store"
)

// Bounds and defaults for tunable settings.
const (
	MinCheckInterval     = 10 * time.Second
	MaxCheckInterval     = 24 * time.Hour
	DefaultCheckInterval = 10 * time.Minute

	DefaultWorkers   = 4
	DefaultQueueSize = 256
)

// Duration wraps time.Duration so values parse from "30s"/"10m" text in
// both YAML fields and environment variables.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	return d.UnmarshalText([]byte(raw))
}

// UnmarshalText implements encoding.TextUnmarshaler, which also covers
// env parsing.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q", string(text))
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

// StoreConfig describes one store of the fleet.
type StoreConfig struct {
	Name     string            `yaml:"name"`
	Kind     string            `yaml:"kind"`
	Primary  bool              `yaml:"primary,omitempty"`
	Path     string            `yaml:"path,omitempty"`
	Host     string            `yaml:"host,omitempty"`
	Port     int               `yaml:"port,omitempty"`
	User     string            `yaml:"user,omitempty"`
	Password string            `yaml:"password,omitempty"`
	Database string            `yaml:"database,omitempty"`
	Params   map[string]string `yaml:"params,omitempty"`
}

// Config is the full runtime configuration.
type Config struct {
	Stores          []StoreConfig `yaml:"stores"`
	TablesDir       string        `yaml:"tables_dir" env:"CONVERGE_TABLES_DIR"`
	CheckInterval   Duration      `yaml:"check_interval" env:"CONVERGE_CHECK_INTERVAL"`
	DefaultStrategy string        `yaml:"default_strategy" env:"CONVERGE_DEFAULT_STRATEGY"`
	Workers         int           `yaml:"workers" env:"CONVERGE_WORKERS"`
	QueueSize       int           `yaml:"queue_size" env:"CONVERGE_QUEUE_SIZE"`
	AutoStart       bool          `yaml:"auto_start" env:"CONVERGE_AUTO_START"`
}

// Load reads the YAML file, applies environment overrides and defaults,
// and validates the result.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: reading environment: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.CheckInterval == 0 {
		c.CheckInterval = Duration(DefaultCheckInterval)
	}
	if c.DefaultStrategy == "" {
		c.DefaultStrategy = engine.DefaultStrategy().String()
	}
	if c.Workers <= 0 {
		c.Workers = DefaultWorkers
	}
	if c.QueueSize <= 0 {
		c.QueueSize = DefaultQueueSize
	}
}

// Validate rejects configurations the runtime could not start with.
// Unknown strategy names are rejected here rather than falling back
// silently at resolution time.
func (c *Config) Validate() error {
	if len(c.Stores) == 0 {
		return fmt.Errorf("config: no stores configured")
	}
	if c.TablesDir == "" {
		return fmt.Errorf("config: tables_dir is required")
	}

	primaries := 0
	seen := make(map[string]struct{}, len(c.Stores))
	for i, sc := range c.Stores {
		if sc.Name == "" {
			return fmt.Errorf("config: store %d has no name", i)
		}
		if _, dup := seen[sc.Name]; dup {
			return fmt.Errorf("config: duplicate store name %q", sc.Name)
		}
		seen[sc.Name] = struct{}{}
		if sc.Primary {
			primaries++
		}

		kind, err := store.ParseKind(sc.Kind)
		if err != nil {
			return fmt.Errorf("config: store %q: %w", sc.Name, err)
		}
		switch kind {
		case store.KindSQLite:
			if sc.Path == "" {
				return fmt.Errorf("config: store %q: sqlite requires a path", sc.Name)
			}
		default:
			if sc.Host == "" {
				return fmt.Errorf("config: store %q: %s requires a host", sc.Name, kind)
			}
			if sc.Database == "" {
				return fmt.Errorf("config: store %q: %s requires a database", sc.Name, kind)
			}
		}
	}
	if primaries != 1 {
		return fmt.Errorf("config: exactly one store must be primary, found %d", primaries)
	}

	interval := c.CheckInterval.Std()
	if interval < MinCheckInterval || interval > MaxCheckInterval {
		return fmt.Errorf("config: check_interval %s outside [%s, %s]",
			interval, MinCheckInterval, MaxCheckInterval)
	}

	strat, err := engine.ParseStrategy(c.DefaultStrategy, c.StoreNames())
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if !strat.AllowedAsDefault() {
		return fmt.Errorf("config: strategy %s cannot be the default", strat)
	}
	return nil
}

// Descriptors maps the store entries onto connection descriptors in
// config order.
func (c *Config) Descriptors() ([]store.Descriptor, error) {
	out := make([]store.Descriptor, 0, len(c.Stores))
	for _, sc := range c.Stores {
		kind, err := store.ParseKind(sc.Kind)
		if err != nil {
			return nil, fmt.Errorf("config: store %q: %w", sc.Name, err)
		}
		out = append(out, store.Descriptor{
			Name:     sc.Name,
			Kind:     kind,
			Primary:  sc.Primary,
			Path:     sc.Path,
			Host:     sc.Host,
			Port:     sc.Port,
			User:     sc.User,
			Password: sc.Password,
			Database: sc.Database,
			Params:   sc.Params,
		})
	}
	return out, nil
}

// StoreNames returns the configured store names in config order.
func (c *Config) StoreNames() []string {
	names := make([]string, len(c.Stores))
	for i, sc := range c.Stores {
		names[i] = sc.Name
	}
	return names
}
