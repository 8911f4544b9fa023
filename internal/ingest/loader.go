// Package ingest converts persisted results, batch documents and event
// streams, into canonical probe events.
package ingest

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"

	"github.com/okian/pathbench/internal/domain/dedupe"
	"github.com/okian/pathbench/internal/domain/model"
	"github.com/okian/pathbench/internal/store"
	"github.com/okian/pathbench/pkg/logger"
	"github.com/okian/pathbench/pkg/metrics"
)

const defaultParallelism = 4

// Loader reads many input files into one time-ordered event list.
type Loader struct {
	parallelism int
	dedupe      bool
	logger      logger.Logger
}

// Option applies a configuration option to the Loader.
type Option func(*Loader)

// WithParallelism bounds how many files are read at once.
func WithParallelism(n int) Option {
	return func(l *Loader) {
		if n > 0 {
			l.parallelism = n
		}
	}
}

// WithDedupe drops events whose id was already read from an earlier file.
func WithDedupe() Option {
	return func(l *Loader) {
		l.dedupe = true
	}
}

// WithLogger sets a custom logger for the loader.
func WithLogger(lg logger.Logger) Option {
	return func(l *Loader) {
		if lg != nil {
			l.logger = lg
		}
	}
}

// NewLoader creates a loader.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{
		parallelism: defaultParallelism,
		logger:      logger.Get().Named("ingest"),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// LoadFiles reads paths with a new Loader.
func LoadFiles(ctx context.Context, paths []string, opts ...Option) ([]model.ProbeEvent, error) {
	return NewLoader(opts...).Load(ctx, paths)
}

// Load reads every file in parallel. A file that cannot be read or parsed
// is reported in the returned *multierror.Error while the events of every
// other file are still returned, sorted by timestamp.
func (l *Loader) Load(ctx context.Context, paths []string) ([]model.ProbeEvent, error) {
	perFile := make([][]model.ProbeEvent, len(paths))
	fileErrs := make([]error, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.parallelism)
	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			events, err := l.loadFile(gctx, path)
			if err != nil {
				metrics.RecordFileError()
				l.logger.Warn(gctx, "skipping input file", logger.String("path", path), logger.Error(err))
				fileErrs[i] = fmt.Errorf("%s: %w", path, err)
				return nil
			}
			perFile[i] = events
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var merr *multierror.Error
	var events []model.ProbeEvent
	for i := range paths {
		if fileErrs[i] != nil {
			merr = multierror.Append(merr, fileErrs[i])
			continue
		}
		events = append(events, perFile[i]...)
	}

	if l.dedupe {
		var dropped int
		events, dropped = dedupe.Filter(ctx, dedupe.NewInMemoryDeduper(), events)
		if dropped > 0 {
			l.logger.Info(ctx, "dropped duplicate events", logger.Int("duplicates", dropped))
		}
	}
	store.SortByTime(events)
	return events, merr.ErrorOrNil()
}

func (l *Loader) loadFile(ctx context.Context, path string) ([]model.ProbeEvent, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReadInput, err)
	}

	format := DetectFormat(path, data)
	var res Result
	switch format {
	case FormatBatch:
		res, err = ParseBatch(ctx, bytes.NewReader(data))
	default:
		res, err = ParseStream(ctx, bytes.NewReader(data))
	}
	if err != nil {
		return nil, err
	}

	metrics.RecordIngested(string(format), len(res.Events))
	if res.Malformed > 0 {
		metrics.RecordMalformed(string(format), res.Malformed)
	}
	l.logger.Debug(ctx, "input file read",
		logger.String("path", path),
		logger.String("format", string(format)),
		logger.Int("events", len(res.Events)),
		logger.Int("malformed", res.Malformed))
	return res.Events, nil
}
