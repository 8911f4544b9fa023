package store

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/okian/pathbench/internal/domain/aggregate"
	"github.com/okian/pathbench/internal/domain/decision"
	"github.com/okian/pathbench/internal/domain/model"
	"github.com/okian/pathbench/pkg/logger"
)

// Output file names inside a run directory.
const (
	BatchFile  = "results.json"
	StreamFile = "events.jsonl"

	directoryPermission = 0o750
	filePermission      = 0o640
)

// Document is the batch document of a run.
type Document struct {
	RunID              string                    `json:"runId"`
	StartedAt          time.Time                 `json:"startedAt"`
	FinishedAt         time.Time                 `json:"finishedAt"`
	Baseline           string                    `json:"baseline"`
	Plateaus           []int                     `json:"plateaus,omitempty"`
	PlateauDurationSec float64                   `json:"plateauDurationSec,omitempty"`
	Vendors            []model.Vendor            `json:"vendors"`
	Results            []BatchRecord             `json:"results"`
	Aggregates         []aggregate.VendorMetrics `json:"aggregates,omitempty"`
	Decisions          []decision.Decision       `json:"decisions,omitempty"`
}

// NewDocument fills the results of a document from events.
func NewDocument(runID string, events []model.ProbeEvent) Document {
	doc := Document{RunID: runID, Results: make([]BatchRecord, 0, len(events))}
	for i := range events {
		doc.Results = append(doc.Results, NewBatchRecord(&events[i]))
	}
	return doc
}

// WriteBatch writes doc as indented JSON.
func WriteBatch(w io.Writer, doc *Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("%w: batch document: %w", ErrWriteStore, err)
	}
	return nil
}

// WriteStream writes one JSON object per event and line.
func WriteStream(w io.Writer, events []model.ProbeEvent) error {
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	for i := range events {
		if err := enc.Encode(NewStreamRecord(&events[i])); err != nil {
			return fmt.Errorf("%w: event %d: %w", ErrWriteStore, i, err)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("%w: %w", ErrWriteStore, err)
	}
	return nil
}

// Save writes the batch document and the event stream of a run into dir.
// It returns the paths written.
func Save(ctx context.Context, dir string, doc *Document, events []model.ProbeEvent) (batchPath, streamPath string, err error) {
	if len(events) == 0 {
		return "", "", ErrNoEvents
	}
	if err := os.MkdirAll(dir, directoryPermission); err != nil {
		return "", "", fmt.Errorf("%w: failed to create directory: %w", ErrWriteStore, err)
	}

	batchPath = filepath.Join(dir, BatchFile)
	if err := writeFile(ctx, batchPath, func(w io.Writer) error { return WriteBatch(w, doc) }); err != nil {
		return "", "", err
	}
	streamPath = filepath.Join(dir, StreamFile)
	if err := writeFile(ctx, streamPath, func(w io.Writer) error { return WriteStream(w, events) }); err != nil {
		return "", "", err
	}

	logger.Get().Info(ctx, "results saved",
		logger.String("batch", batchPath),
		logger.String("stream", streamPath),
		logger.Int("events", len(events)))
	return batchPath, streamPath, nil
}

func writeFile(ctx context.Context, path string, write func(io.Writer) error) error {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, filePermission)
	if err != nil {
		return fmt.Errorf("%w: failed to create file: %w", ErrWriteStore, err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			logger.Get().Error(ctx, "failed to close file", logger.String("path", path), logger.Error(err))
		}
	}()
	return write(file)
}
