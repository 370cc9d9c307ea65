// Package config loads the service configuration from YAML or JSON files with
// environment-variable overrides.
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kurirhub/kurir/core/dispatch"
	"github.com/kurirhub/kurir/infra/notify"
)

type Config struct {
	Dispatch dispatch.Config `json:"dispatch"`
	Logging  LoggingConfig   `json:"logging"`
	MQTT     MQTTConfig      `json:"mqtt"`
	Metrics  MetricsConfig   `json:"metrics"`
	Snapshot SnapshotConfig  `json:"snapshot"`
	API      APIConfig       `json:"api"`
}

// LoggingConfig defines the service log level and output format.
type LoggingConfig struct {
	// Level is a zerolog level name (trace, debug, info, warn, error).
	Level string `json:"level"`
	// Pretty switches to the human-readable console writer. KURIR_ENV=dev
	// enables it as well.
	Pretty bool `json:"pretty"`
}

// SetDefaults applies sane defaults.
func (c *LoggingConfig) SetDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
}

// MQTTConfig wraps the notifier transport settings. When Enabled is false the
// service falls back to the log notifier.
type MQTTConfig struct {
	Enabled bool          `json:"enabled"`
	Client  notify.Config `json:"client"`
}

// MetricsConfig selects the metric sinks.
type MetricsConfig struct {
	PrometheusPort string `json:"prometheus_port"`
	// ReadTimeoutSeconds bounds how long a scrape request may take to arrive.
	ReadTimeoutSeconds int `json:"read_timeout_seconds"`
	// ShutdownGraceSeconds bounds the drain of in-flight scrapes on shutdown.
	ShutdownGraceSeconds int          `json:"shutdown_grace_seconds"`
	Influx               InfluxConfig `json:"influx"`
}

// SetDefaults applies sane defaults.
func (c *MetricsConfig) SetDefaults() {
	if c.ReadTimeoutSeconds <= 0 {
		c.ReadTimeoutSeconds = 5
	}
	if c.ShutdownGraceSeconds <= 0 {
		c.ShutdownGraceSeconds = 5
	}
}

// InfluxConfig defines the optional InfluxDB sink.
type InfluxConfig struct {
	Enabled bool   `json:"enabled"`
	URL     string `json:"url"`
	Token   string `json:"token"`
	Org     string `json:"org"`
	Bucket  string `json:"bucket"`
}

// SnapshotConfig defines state persistence between restarts.
type SnapshotConfig struct {
	// Path is the snapshot file location. Empty disables persistence.
	Path string `json:"path"`
	// IntervalSeconds is how often the state is saved.
	IntervalSeconds int `json:"interval_seconds"`
}

// SetDefaults applies sane defaults.
func (c *SnapshotConfig) SetDefaults() {
	if c.IntervalSeconds <= 0 {
		c.IntervalSeconds = 60
	}
}

// APIConfig defines the read-only status HTTP server.
type APIConfig struct {
	// Addr is the listen address, e.g. ":8080". Empty disables the server.
	Addr string `json:"addr"`
}

// Validate checks cross-field requirements.
func (c *Config) Validate() error {
	if c.MQTT.Enabled && c.MQTT.Client.Broker == "" {
		return fmt.Errorf("mqtt enabled but no broker configured")
	}
	if c.Metrics.Influx.Enabled && c.Metrics.Influx.URL == "" {
		return fmt.Errorf("influx enabled but no url configured")
	}
	return nil
}

// Load reads the configuration file, applies KURIR_ environment overrides and
// validates the result.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	// Optional environment overrides, e.g. KURIR_DISPATCH__OFFER_TIMEOUT_SECONDS.
	if err := k.Load(env.Provider("KURIR_", "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "kurir_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.Dispatch.SetDefaults()
	cfg.Logging.SetDefaults()
	cfg.Metrics.SetDefaults()
	cfg.Snapshot.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
