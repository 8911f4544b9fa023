package scheduler

import (
	"time"

	"github.com/okian/pathbench/pkg/logger"
)

// Option applies a configuration option to the Scheduler.
type Option func(*Scheduler)

// WithName sets the scheduler name used in logs.
func WithName(name string) Option {
	return func(s *Scheduler) {
		if name != "" {
			s.name = name
		}
	}
}

// WithLogger sets a custom logger for the scheduler.
func WithLogger(l logger.Logger) Option {
	return func(s *Scheduler) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock replaces time.Now for deadlines, timestamps and measured latency.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDs replaces the event id generator.
func WithIDs(newID func() string) Option {
	return func(s *Scheduler) {
		if newID != nil {
			s.newID = newID
		}
	}
}

// WithStore makes workers append to st instead of a private store.
func WithStore(st Appender) Option {
	return func(s *Scheduler) {
		if st != nil {
			s.store = st
		}
	}
}
