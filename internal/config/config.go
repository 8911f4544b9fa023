// Package config defines run configuration and its layered loading.
//
// Conventions:
// - New(ctx) returns defaults; Load(ctx, path) layers a YAML file and env vars on top.
// - Errors are wrapped with this package's sentinel kinds.
package config

import (
	"context"
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Plateaus lists the worker counts to run, in order.
	Plateaus []int `koanf:"plateaus"`

	// PlateauDuration is the wall-clock length of each (plateau, vendor) pair.
	PlateauDuration time.Duration `koanf:"plateau_duration"`

	// Baseline names the vendor relative metrics are computed against.
	Baseline string `koanf:"baseline"`

	// VendorsFile and QueriesFile are optional inputs; empty means built-in defaults.
	VendorsFile string `koanf:"vendors_file"`
	QueriesFile string `koanf:"queries_file"`

	// Seed makes query sampling and the simulated prober reproducible. 0 is unseeded.
	Seed int64 `koanf:"seed"`

	// TopK is the number of leading result identifiers compared for correctness.
	TopK int `koanf:"top_k"`

	// PricePerGB feeds cost per 1000 successes. 0 leaves cost unknown.
	PricePerGB float64 `koanf:"price_per_gb"`

	// OutputDir receives the batch document and event stream of a live run.
	OutputDir string `koanf:"output_dir"`

	// MetricsAddr, when set, serves /healthz, /metrics and /progress during a run.
	MetricsAddr string `koanf:"metrics_addr"`

	// MinSamples and StrictUnknowns tighten the decision engine. Zero values keep
	// the permissive behavior where unknown metrics pass.
	MinSamples     int  `koanf:"min_samples"`
	StrictUnknowns bool `koanf:"strict_unknowns"`

	// IngestParallelism bounds concurrent file reads in offline analysis.
	IngestParallelism int `koanf:"ingest_parallelism"`

	// Simulate holds simulated prober profiles keyed by vendor name. The "default"
	// key applies to vendors without their own profile.
	Simulate map[string]SimProfile `koanf:"simulate"`
}

// SimProfile describes how the simulated prober behaves for one vendor.
type SimProfile struct {
	LatencyMinMS  int     `koanf:"latency_min_ms"`
	LatencyMaxMS  int     `koanf:"latency_max_ms"`
	BlockRate     float64 `koanf:"block_rate"`
	FailureRate   float64 `koanf:"failure_rate"`
	DriftRate     float64 `koanf:"drift_rate"`
	SessionLength int     `koanf:"session_length"`

	// Geo is the region the simulated exit reports. Requests always ask for
	// "us", so any other value shows up as a geo mismatch.
	Geo string `koanf:"geo"`
}

// New creates a Config with defaults. Context is accepted first to follow the
// project-wide convention.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:          "info",
		LogFormat:         "text",
		Plateaus:          []int{1, 4, 8},
		PlateauDuration:   30 * time.Second,
		Baseline:          "direct",
		TopK:              10,
		OutputDir:         "results",
		IngestParallelism: 4,
		Simulate: map[string]SimProfile{
			"default": {
				LatencyMinMS:  80,
				LatencyMaxMS:  150,
				BlockRate:     0.005,
				FailureRate:   0.005,
				DriftRate:     0.02,
				SessionLength: 25,
			},
		},
	}
}
