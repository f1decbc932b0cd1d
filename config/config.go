// Package config loads the engine configuration from a JSON or YAML file
// with optional environment overrides.
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

	"github.com/openrescue/dispatch/core/pool"
	"github.com/openrescue/dispatch/infra/mqtt"
)

type Config struct {
	MQTT    mqtt.Config   `json:"mqtt"`
	Pool    pool.Config   `json:"pool"`
	API     APIConfig     `json:"api"`
	Metrics MetricsConfig `json:"metrics"`
	Seed    SeedConfig    `json:"seed"`
}

// APIConfig configures the admin HTTP surface.
type APIConfig struct {
	Addr string `json:"addr"`
}

// SetDefaults fills the default listen address.
func (c *APIConfig) SetDefaults() {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
}

// MetricsConfig selects the observability sinks.
type MetricsConfig struct {
	PrometheusEnabled bool   `json:"prometheus_enabled"`
	PrometheusAddr    string `json:"prometheus_addr"`
	InfluxURL         string `json:"influx_url"`
	InfluxToken       string `json:"influx_token"`
	InfluxOrg         string `json:"influx_org"`
	InfluxBucket      string `json:"influx_bucket"`
}

// SetDefaults fills the default Prometheus address.
func (c *MetricsConfig) SetDefaults() {
	if c.PrometheusAddr == "" {
		c.PrometheusAddr = ":9090"
	}
}

// Validate checks that an Influx endpoint carries its credentials.
func (c MetricsConfig) Validate() error {
	if c.InfluxURL != "" && (c.InfluxOrg == "" || c.InfluxBucket == "") {
		return fmt.Errorf("influx_url requires influx_org and influx_bucket")
	}
	return nil
}

// Load reads and validates the configuration file at path.
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
	// Optional environment overrides, e.g. RESQ_MQTT__BROKER.
	if err := k.Load(env.Provider("RESQ_", "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "resq_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.MQTT.SetDefaults()
	cfg.Pool.SetDefaults()
	cfg.API.SetDefaults()
	cfg.Metrics.SetDefaults()
	cfg.Seed.SetDefaults()
	if err := cfg.Metrics.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Seed.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
