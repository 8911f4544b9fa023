// Package scheduler drives probes under time-boxed concurrent load.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/pathbench/internal/domain/model"
	"github.com/okian/pathbench/internal/probe"
	"github.com/okian/pathbench/internal/store"
	"github.com/okian/pathbench/pkg/logger"
	"github.com/okian/pathbench/pkg/metrics"
)

// Appender receives events from workers. Implementations must be safe for
// concurrent use.
type Appender interface {
	Append(ev model.ProbeEvent)
}

// QuerySource hands out queries. A false result ends the worker that asked.
type QuerySource interface {
	Next() (string, bool)
}

// Progress is a snapshot of a running scheduler.
type Progress struct {
	Running     bool      `json:"running"`
	Plateau     int       `json:"plateau"`
	Vendor      string    `json:"vendor"`
	Deadline    time.Time `json:"deadline"`
	Events      int64     `json:"events"`
	PlateausRun int       `json:"plateausRun"`
}

// Scheduler runs plateaus of concurrent workers, one vendor at a time.
type Scheduler struct {
	name   string
	store  Appender
	now    func() time.Time
	newID  func() string
	logger logger.Logger

	mu       sync.RWMutex
	progress Progress
}

// New creates a scheduler. Without WithStore, events go to a private store.
func New(opts ...Option) *Scheduler {
	s := &Scheduler{
		name:   "scheduler",
		now:    time.Now,
		newID:  uuid.NewString,
		logger: logger.Get().Named("scheduler"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.store == nil {
		s.store = store.New()
	}
	if s.name != "scheduler" {
		s.logger = s.logger.Named(s.name)
	}
	return s
}

// Run probes every vendor at every plateau size for duration each and
// returns the events of the run. Vendors of a plateau run one after the
// other; each gets exactly plateau workers, joined before the next vendor.
//
// Cancelling ctx stops workers from starting new probes; probes in flight
// finish and are recorded. Run then returns the events so far and ctx.Err().
func (s *Scheduler) Run(ctx context.Context, plateaus []int, duration time.Duration,
	vendors []model.Vendor, source QuerySource, prober probe.Prober,
) ([]model.ProbeEvent, error) {
	if err := validate(plateaus, duration, vendors); err != nil {
		return nil, err
	}

	rec := &recorder{Appender: s.store}
	defer s.finish()

	for _, size := range plateaus {
		metrics.SetPlateau(size)
		for _, v := range vendors {
			if err := ctx.Err(); err != nil {
				return rec.events(), err
			}
			deadline := s.now().Add(duration)
			s.setProgress(size, v.Name, deadline)
			s.logger.Info(ctx, "plateau started",
				logger.String("vendor", v.Name),
				logger.Int("workers", size),
				logger.Duration("duration", duration))

			var wg sync.WaitGroup
			for i := 0; i < size; i++ {
				w := &worker{
					id:          i,
					vendor:      v,
					concurrency: size,
					deadline:    deadline,
					source:      source,
					prober:      prober,
					out:         rec,
					s:           s,
				}
				wg.Add(1)
				go func() {
					defer wg.Done()
					w.run(ctx)
				}()
			}
			wg.Wait()

			s.logger.Info(ctx, "plateau finished",
				logger.String("vendor", v.Name),
				logger.Int("workers", size),
				logger.Int64("events", s.Progress().Events))
		}
		s.mu.Lock()
		s.progress.PlateausRun++
		s.mu.Unlock()
	}
	return rec.events(), ctx.Err()
}

func validate(plateaus []int, duration time.Duration, vendors []model.Vendor) error {
	if len(plateaus) == 0 {
		return ErrInvalidPlateau
	}
	for _, p := range plateaus {
		if p <= 0 {
			return fmt.Errorf("%w: %d", ErrInvalidPlateau, p)
		}
	}
	if duration <= 0 {
		return fmt.Errorf("%w: %s", ErrInvalidDuration, duration)
	}
	if len(vendors) == 0 {
		return ErrNoVendors
	}
	return nil
}

// Progress returns the current progress snapshot.
func (s *Scheduler) Progress() Progress {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.progress
}

func (s *Scheduler) setProgress(plateau int, vendor string, deadline time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.progress.Running = true
	s.progress.Plateau = plateau
	s.progress.Vendor = vendor
	s.progress.Deadline = deadline
}

func (s *Scheduler) countEvent() {
	s.mu.Lock()
	s.progress.Events++
	s.mu.Unlock()
}

func (s *Scheduler) finish() {
	s.mu.Lock()
	s.progress.Running = false
	s.mu.Unlock()
}

// recorder forwards events to the store and keeps the ones of this run.
type recorder struct {
	Appender

	mu  sync.Mutex
	own []model.ProbeEvent
}

func (r *recorder) Append(ev model.ProbeEvent) { //nolint:gocritic // hugeParam: events are values once stored
	r.Appender.Append(ev)
	r.mu.Lock()
	r.own = append(r.own, ev)
	r.mu.Unlock()
}

func (r *recorder) events() []model.ProbeEvent {
	r.mu.Lock()
	out := make([]model.ProbeEvent, len(r.own))
	copy(out, r.own)
	r.mu.Unlock()
	store.SortByTime(out)
	return out
}
