package service

import (
	"io"
	"time"

	"github.com/okian/pathbench/internal/probe"
	"github.com/okian/pathbench/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithProber replaces the simulated prober built from the configuration.
func WithProber(p probe.Prober) Option {
	return func(s *Service) {
		if p != nil {
			s.prober = p
		}
	}
}

// WithClock replaces time.Now for run timestamps and the scheduler.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDs replaces the run and event id generator.
func WithIDs(newID func() string) Option {
	return func(s *Service) {
		if newID != nil {
			s.newID = newID
		}
	}
}

// WithOutput sets where summaries are written.
func WithOutput(w io.Writer) Option {
	return func(s *Service) {
		if w != nil {
			s.out = w
		}
	}
}
