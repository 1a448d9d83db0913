// Package config loads the tripdeck configuration from YAML with environment
// overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Storage   StorageConfig   `yaml:"storage"`
	Debounce  DebounceConfig  `yaml:"debounce"`
	Reminders RemindersConfig `yaml:"reminders"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// StorageConfig selects and locates the durable key-value backend.
type StorageConfig struct {
	// Backend is one of "file", "sqlite", "memory".
	Backend string `yaml:"backend"`
	// Path is the file path for the file backend or the database path for sqlite.
	Path string `yaml:"path"`
	// SnapshotKey is the single key the timer snapshot lives under.
	SnapshotKey string `yaml:"snapshot_key,omitempty"`
	// ChecklistPath is the checklist database path.
	ChecklistPath string `yaml:"checklist_path,omitempty"`
	// WatchSnapshot enables the foreign-write guard (file backend only).
	WatchSnapshot bool `yaml:"watch_snapshot,omitempty"`
}

// DebounceConfig controls the persistence gateway's write coalescing.
type DebounceConfig struct {
	QuietWindow time.Duration `yaml:"quiet_window,omitempty"`
	MaxDelay    time.Duration `yaml:"max_delay,omitempty"`
}

// RemindersConfig selects the side-effect orchestrator implementation.
type RemindersConfig struct {
	// Backend is one of "gocron", "nats", "none".
	Backend       string          `yaml:"backend"`
	LeadTimes     []time.Duration `yaml:"lead_times,omitempty"`
	NATSURL       string          `yaml:"nats_url,omitempty"`
	SubjectPrefix string          `yaml:"subject_prefix,omitempty"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen,omitempty"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Storage: StorageConfig{
			Backend:       "file",
			Path:          "./tripdeck-data/state.json",
			SnapshotKey:   "tripdeck/snapshot",
			ChecklistPath: "./tripdeck-data/checklists.db",
			WatchSnapshot: true,
		},
		Debounce: DebounceConfig{
			QuietWindow: 100 * time.Millisecond,
			MaxDelay:    time.Second,
		},
		Reminders: RemindersConfig{
			Backend: "gocron",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Listen:  "127.0.0.1:9464",
		},
	}
}

// Load reads the configuration file, applies defaults, environment overrides,
// and validation. A missing file yields the defaults (not an error); this is
// a local-first tool and should start without ceremony.
func Load(path string) (*Config, error) {
	// Best effort: absent .env files are the normal case.
	_ = godotenv.Load(".env.local", ".env")

	cfg := Default()

	data, err := os.ReadFile(path) // #nosec G304 - path comes from the CLI flag
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides lets deployment environments tweak the file config.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("TRIPDECK_STORAGE_BACKEND"); v != "" {
		cfg.Storage.Backend = v
	}
	if v := os.Getenv("TRIPDECK_STORAGE_PATH"); v != "" {
		cfg.Storage.Path = v
	}
	if v := os.Getenv("TRIPDECK_REMINDERS_BACKEND"); v != "" {
		cfg.Reminders.Backend = v
	}
	if v := os.Getenv("TRIPDECK_NATS_URL"); v != "" {
		cfg.Reminders.NATSURL = v
	}
	if v := os.Getenv("TRIPDECK_METRICS_LISTEN"); v != "" {
		cfg.Metrics.Listen = v
	}
	if v := os.Getenv("TRIPDECK_METRICS_ENABLED"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			cfg.Metrics.Enabled = enabled
		}
	}
	if v := os.Getenv("TRIPDECK_DEBOUNCE_QUIET_WINDOW"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Debounce.QuietWindow = d
		}
	}
}

// Validate checks cross-field consistency.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case "file", "sqlite", "memory":
	default:
		return fmt.Errorf("unknown storage backend %q (want file, sqlite, or memory)", c.Storage.Backend)
	}
	if c.Storage.Backend != "memory" && c.Storage.Path == "" {
		return fmt.Errorf("storage path is required for the %s backend", c.Storage.Backend)
	}
	if c.Storage.SnapshotKey == "" {
		c.Storage.SnapshotKey = "tripdeck/snapshot"
	}

	switch c.Reminders.Backend {
	case "gocron", "nats", "none":
	default:
		return fmt.Errorf("unknown reminders backend %q (want gocron, nats, or none)", c.Reminders.Backend)
	}
	if c.Reminders.Backend == "nats" && c.Reminders.NATSURL == "" {
		return fmt.Errorf("nats_url is required for the nats reminders backend")
	}

	if c.Debounce.QuietWindow < 0 || c.Debounce.MaxDelay < 0 {
		return fmt.Errorf("debounce windows must not be negative")
	}
	if c.Debounce.MaxDelay > 0 && c.Debounce.MaxDelay < c.Debounce.QuietWindow {
		return fmt.Errorf("debounce max_delay must be at least the quiet_window")
	}
	return nil
}

// WriteDefault writes the default configuration to path.
func WriteDefault(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("config file %s already exists (use --force to overwrite)", path)
	}
	data, err := yaml.Marshal(Default())
	if err != nil {
		return fmt.Errorf("marshal default config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}
