package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/smartcharge/core/metrics"
	"github.com/kilianp07/smartcharge/infra/journal"
	"github.com/kilianp07/smartcharge/infra/mqtt"
	"github.com/kilianp07/smartcharge/infra/persist"
)

// EnvPrefix marks environment variables that override file values. Nested
// keys are separated by a double underscore, e.g. SC_KRAKEN__API_KEY.
const EnvPrefix = "SC_"

type Config struct {
	Account     string         `json:"account"`
	OffPeak     OffPeakConfig  `json:"offpeak"`
	Kraken      KrakenConfig   `json:"kraken"`
	Persistence persist.Config `json:"persistence"`
	MQTT        mqtt.Config    `json:"mqtt"`
	Metrics     metrics.Config `json:"metrics"`
	Logging     LoggingConfig  `json:"logging"`
	Sentry      SentryConfig   `json:"sentry"`
	Journal     journal.Config `json:"journal"`
}

// Load reads a yaml or json file, applies SC_ environment overrides, then
// defaults and validation. An empty path reads the environment only.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	if path != "" {
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
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), strings.ToLower(EnvPrefix))
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SetDefaults fills every section.
func (c *Config) SetDefaults() {
	c.OffPeak.SetDefaults()
	c.Kraken.SetDefaults()
	c.Logging.SetDefaults()
	c.Journal.SetDefaults()
	if c.Persistence.Backend == "" {
		c.Persistence.Backend = "json"
	}
	if c.Persistence.Lazy == nil {
		lazy := true
		c.Persistence.Lazy = &lazy
	}
	if c.Persistence.Path == "" {
		c.Persistence.Path = "."
		if c.Persistence.Backend == "sqlite" {
			c.Persistence.Path = "smartcharge.db"
		}
	}
	c.Sentry.Account = c.Account
}

// Validate checks every section and joins the failures.
func (c Config) Validate() error {
	var errs []error
	if c.Account == "" {
		errs = append(errs, errors.New("account is required"))
	}
	if err := c.OffPeak.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.Kraken.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.Logging.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.Journal.Validate(); err != nil {
		errs = append(errs, err)
	}
	if !persistBackendKnown(c.Persistence.Backend) {
		errs = append(errs, fmt.Errorf("unknown persistence backend %s", c.Persistence.Backend))
	}
	if c.MQTT.Enabled && c.MQTT.Broker == "" {
		errs = append(errs, errors.New("mqtt broker is required when enabled"))
	}
	if c.MQTT.QoS > 2 {
		errs = append(errs, fmt.Errorf("mqtt qos %d out of range", c.MQTT.QoS))
	}
	return errors.Join(errs...)
}

func persistBackendKnown(name string) bool {
	for _, b := range persist.Backends() {
		if b == name {
			return true
		}
	}
	return false
}
