package service

import (
	"time"

	"github.com/okian/pathbench/internal/config"
	"github.com/okian/pathbench/internal/probe"
)

const defaultProfileKey = "default"

// newSimulated builds the simulated prober from the configured profiles.
func newSimulated(cfg *config.Config) *probe.Simulated {
	opts := []probe.SimOption{probe.WithSimSeed(cfg.Seed)}
	for name, sp := range cfg.Simulate {
		p := profile(sp)
		if name == defaultProfileKey {
			opts = append(opts, probe.WithDefaultProfile(p))
			continue
		}
		opts = append(opts, probe.WithProfile(name, p))
	}
	return probe.NewSimulated(opts...)
}

func profile(sp config.SimProfile) probe.Profile {
	return probe.Profile{
		MinLatency:    time.Duration(sp.LatencyMinMS) * time.Millisecond,
		MaxLatency:    time.Duration(sp.LatencyMaxMS) * time.Millisecond,
		BlockRate:     sp.BlockRate,
		FailureRate:   sp.FailureRate,
		DriftRate:     sp.DriftRate,
		SessionLength: sp.SessionLength,
		Geo:           sp.Geo,
	}
}
