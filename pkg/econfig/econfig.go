// Package econfig loads the daemon's YAML configuration file, the same
// way the teacher's pkg/config does: a plain struct tagged with yaml,
// unmarshaled with gopkg.in/yaml.v3, with small defaulting applied after
// load rather than a validation DSL.
package econfig

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level daemon configuration.
type Config struct {
	Listener ListenerConfig `yaml:"listener"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Stats    StatsConfig    `yaml:"stats"`
	Admin    AdminConfig    `yaml:"admin"`
}

// ListenerConfig configures the TCP listener and its ring/decode
// behavior.
type ListenerConfig struct {
	Address             string  `yaml:"address"`
	Port                int     `yaml:"port"`
	RingCapacityBytes   int     `yaml:"ring_capacity_bytes"`
	StrictDecodeDefault bool    `yaml:"strict_decode_default"`
	AcceptRatePerSecond float64 `yaml:"accept_rate_per_second"`
	AcceptBurst         int     `yaml:"accept_burst"`
	// MaxQueue is the per-link event queue capacity handed to every
	// attached consumer, matching the original's EventListener(max_queue=1000).
	MaxQueue int `yaml:"max_queue"`
}

// LoggingConfig controls the ambient logger.
type LoggingConfig struct {
	Level string `yaml:"level"`
	Sink  string `yaml:"sink"` // "" (stdout) or "file:<path>"
}

// MetricsConfig controls the Prometheus HTTP endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
}

// StatsConfig controls the periodic stats heartbeat log line (it logs
// no counts itself; it points at /metrics).
type StatsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Cron    string `yaml:"cron"` // five-field cron expression, e.g. "*/30 * * * *"
}

// AdminConfig controls the admin HTTP router (health and shutdown
// endpoints).
type AdminConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
}

// Default returns the configuration used when no file is supplied.
func Default() Config {
	return Config{
		Listener: ListenerConfig{
			Address:           "0.0.0.0",
			Port:              7000,
			RingCapacityBytes: 64 * 1024,
			AcceptBurst:       64,
			MaxQueue:          1000,
		},
		Logging: LoggingConfig{Level: "info"},
		Metrics: MetricsConfig{Enabled: true, Address: ":9090"},
		Stats:   StatsConfig{Enabled: true, Cron: "*/1 * * * *"},
		Admin:   AdminConfig{Enabled: true, Address: ":9091"},
	}
}

// Load reads and unmarshals path, defaulting unset fields.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("econfig: reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, fmt.Errorf("econfig: parsing %s: %w", path, err)
	}
	if cfg.Listener.RingCapacityBytes <= 0 {
		cfg.Listener.RingCapacityBytes = 64 * 1024
	}
	if cfg.Listener.AcceptBurst <= 0 {
		cfg.Listener.AcceptBurst = 64
	}
	if cfg.Listener.MaxQueue <= 0 {
		cfg.Listener.MaxQueue = 1000
	}
	return cfg, nil
}

// StatsFallbackInterval is how long the stats reporter waits before
// trying again when the next cron tick cannot be computed.
const StatsFallbackInterval = 30 * time.Second
