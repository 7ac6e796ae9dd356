package engine

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/unitops/packml/packml"
)

const defaultShutdownTimeout = 10 * time.Second

// Config is the YAML-loadable engine configuration. Environment variables
// override file values.
type Config struct {
	Unit            string             `env:"PACKML_UNIT"             yaml:"unit"`
	InitialState    packml.State       `env:"PACKML_INITIAL_STATE"    yaml:"initialState"`
	FaultPolicy     FaultPolicy        `env:"PACKML_FAULT_POLICY"     yaml:"faultPolicy"`
	ShutdownTimeout stringableDuration `env:"PACKML_SHUTDOWN_TIMEOUT" yaml:"shutdownTimeout"`
}

// stringableDuration parses "5s"-style durations from YAML and env values.
type stringableDuration time.Duration

func (d *stringableDuration) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*d = 0

		return nil
	}

	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}

	*d = stringableDuration(parsed)

	return nil
}

func (d stringableDuration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// LoadConfig reads a YAML config file and applies environment overrides.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	return ParseConfig(data)
}

// ParseConfig parses YAML config bytes and applies environment overrides.
func ParseConfig(data []byte) (*Config, error) {
	cfg := &Config{}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to apply env overrides: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the configuration for obvious mistakes.
func (c *Config) Validate() error {
	if c.Unit == "" {
		return ErrUnitNameRequired
	}

	if !c.InitialState.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidInitialState, int(c.InitialState))
	}

	return nil
}

// Timeout returns the configured shutdown timeout, defaulting to 10s.
func (c *Config) Timeout() time.Duration {
	if c.ShutdownTimeout == 0 {
		return defaultShutdownTimeout
	}

	return time.Duration(c.ShutdownTimeout)
}

// Builder returns a builder preconfigured from the config. Actions and
// observers are registered programmatically on the result.
func (c *Config) Builder() *Builder {
	return NewBuilder(c.Unit).
		WithInitialState(c.InitialState).
		WithFaultPolicy(c.FaultPolicy)
}
