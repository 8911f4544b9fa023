// Package service orchestrates live benchmark runs and offline analysis.
package service

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/pathbench/internal/adapters/http/api"
	"github.com/okian/pathbench/internal/config"
	"github.com/okian/pathbench/internal/domain/aggregate"
	"github.com/okian/pathbench/internal/domain/decision"
	"github.com/okian/pathbench/internal/domain/model"
	"github.com/okian/pathbench/internal/ingest"
	"github.com/okian/pathbench/internal/probe"
	"github.com/okian/pathbench/internal/querysource"
	"github.com/okian/pathbench/internal/registry"
	"github.com/okian/pathbench/internal/scheduler"
	"github.com/okian/pathbench/internal/store"
	"github.com/okian/pathbench/pkg/logger"
	"github.com/okian/pathbench/pkg/metrics"
)

// Result is the outcome of a run or an analysis.
type Result struct {
	RunID      string
	Baseline   string
	Events     []model.ProbeEvent
	Aggregates []aggregate.VendorMetrics
	Decisions  []decision.Decision

	// Set by live runs only.
	BatchPath  string
	StreamPath string
}

// Service wires configuration, scheduler, aggregation, decisions and storage.
type Service struct {
	cfg    *config.Config
	prober probe.Prober
	now    func() time.Time
	newID  func() string
	out    io.Writer
	logger logger.Logger

	mu     sync.RWMutex
	sched  *scheduler.Scheduler
	report *api.Report
}

// New creates a service for cfg.
func New(cfg *config.Config, opts ...Option) *Service {
	s := &Service{
		cfg:    cfg,
		now:    time.Now,
		newID:  uuid.NewString,
		out:    os.Stdout,
		logger: logger.Get().Named("service"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.prober == nil {
		s.prober = newSimulated(cfg)
	}
	return s
}

// Run executes a live benchmark: every plateau against every vendor, then
// aggregation, decisions and the result files. Cancelling ctx stops the
// scheduler early; the partial run is still evaluated and saved, and the
// context error is returned alongside the result.
func (s *Service) Run(ctx context.Context) (*Result, error) {
	reg, err := registry.Load(s.cfg.VendorsFile, s.cfg.Baseline)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSetup, err)
	}
	src, err := querysource.Load(s.cfg.QueriesFile, querysource.WithSeed(s.cfg.Seed))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSetup, err)
	}

	runID := s.newID()
	sched := scheduler.New(
		scheduler.WithClock(s.now),
		scheduler.WithIDs(s.newID),
		scheduler.WithLogger(s.logger.Named("scheduler")),
	)
	s.mu.Lock()
	s.sched = sched
	s.mu.Unlock()

	s.logger.Info(ctx, "run started",
		logger.String("run_id", runID),
		logger.Int("vendors", reg.Len()),
		logger.String("baseline", reg.Baseline().Name),
		logger.Duration("plateau_duration", s.cfg.PlateauDuration))

	startedAt := s.now()
	events, runErr := sched.Run(ctx, s.cfg.Plateaus, s.cfg.PlateauDuration, reg.Vendors(), src, s.prober)
	if runErr != nil && ctx.Err() == nil {
		return nil, fmt.Errorf("%w: %w", ErrSetup, runErr)
	}
	if runErr != nil {
		s.logger.Warn(ctx, "run interrupted, evaluating partial results", logger.Int("events", len(events)))
	}

	res := s.evaluate(ctx, runID, reg.Baseline().Name, events)

	doc := store.NewDocument(runID, events)
	doc.StartedAt = startedAt.UTC()
	doc.FinishedAt = s.now().UTC()
	doc.Baseline = res.Baseline
	doc.Plateaus = s.cfg.Plateaus
	doc.PlateauDurationSec = s.cfg.PlateauDuration.Seconds()
	doc.Vendors = reg.Vendors()
	doc.Aggregates = res.Aggregates
	doc.Decisions = res.Decisions

	if len(events) == 0 {
		s.logger.Warn(ctx, "no events recorded, nothing saved", logger.String("run_id", runID))
		return res, runErr
	}
	res.BatchPath, res.StreamPath, err = store.Save(context.WithoutCancel(ctx), s.cfg.OutputDir, &doc, events)
	if err != nil {
		return res, err
	}
	return res, runErr
}

// Analyze reads previously recorded files and evaluates them. Files that
// cannot be read are logged and skipped; an error is returned only when no
// event could be loaded at all.
func (s *Service) Analyze(ctx context.Context, paths []string) (*Result, error) {
	events, err := ingest.LoadFiles(ctx, paths,
		ingest.WithDedupe(),
		ingest.WithParallelism(s.cfg.IngestParallelism),
		ingest.WithLogger(s.logger.Named("ingest")))
	if len(events) == 0 {
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrNoInput, err)
		}
		return nil, ErrNoInput
	}
	if err != nil {
		s.logger.Warn(ctx, "some input files were skipped", logger.Error(err))
	}
	return s.evaluate(ctx, s.newID(), s.cfg.Baseline, events), nil
}

// evaluate aggregates events per vendor and renders a verdict for each.
func (s *Service) evaluate(ctx context.Context, runID, baseline string, events []model.ProbeEvent) *Result {
	aggs := aggregate.AggregateAll(events, baseline,
		aggregate.WithTopK(s.cfg.TopK),
		aggregate.WithPricePerGB(s.cfg.PricePerGB))

	var opts []decision.Option
	if s.cfg.StrictUnknowns {
		opts = append(opts, decision.WithStrictUnknowns())
	}
	if s.cfg.MinSamples > 0 {
		opts = append(opts, decision.WithMinSamples(s.cfg.MinSamples))
	}

	res := &Result{RunID: runID, Baseline: baseline, Events: events, Aggregates: aggs}
	if len(aggs) > 0 {
		res.Baseline = aggs[0].Baseline
	}
	for i := range aggs {
		d := decision.Decide(&aggs[i], opts...)
		metrics.RecordDecision(d.Vendor, d.Pass)
		if !d.Pass {
			s.logger.Info(ctx, "vendor failed",
				logger.String("vendor", d.Vendor),
				logger.Any("criteria", d.Failed()),
				logger.String("diagnosis", d.Diagnosis))
		}
		res.Decisions = append(res.Decisions, d)
	}

	s.mu.Lock()
	s.report = &api.Report{RunID: runID, Baseline: res.Baseline, Aggregates: aggs, Decisions: res.Decisions}
	s.mu.Unlock()
	return res
}

// Serve exposes progress, metrics and the last report over HTTP on the
// configured address until ctx is done. It outlives Run so the report of a
// finished run stays readable. The bound address is sent on ready.
func (s *Service) Serve(ctx context.Context, ready chan<- string) error {
	if s.cfg.MetricsAddr == "" {
		return ErrNoListener
	}
	if err := api.Serve(ctx, s.cfg.MetricsAddr, s, ready); err != nil {
		return fmt.Errorf("%w: %w", ErrSetup, err)
	}
	return nil
}

// Progress reports the scheduler of the current or last run.
func (s *Service) Progress() scheduler.Progress {
	s.mu.RLock()
	sched := s.sched
	s.mu.RUnlock()
	if sched == nil {
		return scheduler.Progress{}
	}
	return sched.Progress()
}

// Report returns the last evaluated run.
func (s *Service) Report() (api.Report, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.report == nil {
		return api.Report{}, false
	}
	return *s.report, true
}

// Summarize writes a human-readable summary of res to the service output.
func (s *Service) Summarize(res *Result) error {
	return WriteSummary(s.out, res)
}
