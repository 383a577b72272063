package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/velat/hubcal/internal/domain/mapping"
)

// Load builds a Config by layering defaults, an optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if HUBCAL_CONFIG is set
//  3. env (prefix HUBCAL_)
func Load() (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv("HUBCAL_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
		}
	}

	// Env keys like HUBCAL_SCAN_TIMEOUT_MS map to the flat koanf tag
	// scan_timeout_ms; underscores are preserved to match struct tags.
	envProvider := env.Provider("HUBCAL_", ".", func(s string) string {
		s = strings.ToLower(s)
		return strings.TrimPrefix(s, "hubcal_")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.StorePath == "" {
		return fmt.Errorf("%w: store_path must not be empty", ErrInvalidConfig)
	}
	if c.ScanTimeoutMS <= 0 {
		return fmt.Errorf("%w: scan_timeout_ms must be positive", ErrInvalidConfig)
	}
	if c.StepAttempts <= 0 {
		return fmt.Errorf("%w: step_attempts must be positive", ErrInvalidConfig)
	}
	if c.PollIntervalMS <= 0 {
		return fmt.Errorf("%w: poll_interval_ms must be positive", ErrInvalidConfig)
	}
	// The mapper's port range is fixed; a larger count would make every
	// step past it fail validation.
	if c.PortCount < mapping.MinPort || c.PortCount > mapping.MaxPort {
		return fmt.Errorf("%w: port_count must be in [%d,%d]", ErrInvalidConfig, mapping.MinPort, mapping.MaxPort)
	}
	return nil
}
