package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	envPrefix  = "PATHBENCH_"
	envConfig  = "PATHBENCH_CONFIG"
	maxPercent = 1.0
)

// Load builds a Config by layering defaults, an optional YAML file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New(ctx))
//  2. file (YAML) from path, or PATHBENCH_CONFIG when path is empty
//  3. env (prefix PATHBENCH_)
func Load(ctx context.Context, path string) (*Config, error) {
	base := New(ctx)

	k := koanf.New(".")

	if path == "" {
		path = os.Getenv(envConfig)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// PATHBENCH_PLATEAU_DURATION -> plateau_duration (flat keys, underscores kept).
	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		s = strings.ToLower(s)
		return strings.TrimPrefix(s, strings.ToLower(envPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}
	k.Delete("config")

	// Slices decode element-wise into existing values, so plateaus start empty
	// and fall back to the defaults only when nothing overrides them.
	cfg := *base
	cfg.Plateaus = nil
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}
	if !k.Exists("plateaus") {
		cfg.Plateaus = base.Plateaus
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports configuration errors. They are fatal for a run.
func (c *Config) Validate() error {
	if len(c.Plateaus) == 0 {
		return fmt.Errorf("%w: plateaus must not be empty", ErrInvalidConfig)
	}
	for _, p := range c.Plateaus {
		if p <= 0 {
			return fmt.Errorf("%w: plateau size must be positive, got %d", ErrInvalidConfig, p)
		}
	}
	if c.PlateauDuration <= 0 {
		return fmt.Errorf("%w: plateau_duration must be positive", ErrInvalidConfig)
	}
	if strings.TrimSpace(c.Baseline) == "" {
		return fmt.Errorf("%w: baseline must not be empty", ErrInvalidConfig)
	}
	if c.TopK <= 0 {
		return fmt.Errorf("%w: top_k must be positive, got %d", ErrInvalidConfig, c.TopK)
	}
	if c.PricePerGB < 0 {
		return fmt.Errorf("%w: price_per_gb must not be negative", ErrInvalidConfig)
	}
	if c.MinSamples < 0 {
		return fmt.Errorf("%w: min_samples must not be negative", ErrInvalidConfig)
	}
	for name, p := range c.Simulate {
		if p.LatencyMinMS < 0 || p.LatencyMaxMS < p.LatencyMinMS {
			return fmt.Errorf("%w: simulate.%s: invalid latency range", ErrInvalidConfig, name)
		}
		for _, rate := range []float64{p.BlockRate, p.FailureRate, p.DriftRate} {
			if rate < 0 || rate > maxPercent {
				return fmt.Errorf("%w: simulate.%s: rates must be within [0,1]", ErrInvalidConfig, name)
			}
		}
	}
	return nil
}
