package ingest

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/okian/pathbench/internal/domain/model"
	"github.com/okian/pathbench/pkg/logger"
)

// Format is an input file format.
type Format string

// Supported formats.
const (
	FormatBatch  Format = "batch"
	FormatStream Format = "stream"
)

// Result is the outcome of parsing one input.
type Result struct {
	Events    []model.ProbeEvent
	Malformed int
}

// documentKeys name the record array of a batch document.
var documentKeys = []string{"results", "events"} //nolint:gochecknoglobals // shared field mapping

// ParseBatch reads a batch document: an object holding a results array, or a
// bare array of records. A document that is not valid JSON, or has no record
// array, is an error. Individual records that cannot be normalized are
// skipped and counted.
func ParseBatch(ctx context.Context, r io.Reader) (Result, error) {
	var doc json.RawMessage
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrMalformedDocument, err)
	}
	doc = bytes.TrimSpace(doc)

	var items []json.RawMessage
	switch {
	case len(doc) > 0 && doc[0] == '[':
		if err := json.Unmarshal(doc, &items); err != nil {
			return Result{}, fmt.Errorf("%w: %w", ErrMalformedDocument, err)
		}
	case len(doc) > 0 && doc[0] == '{':
		var top record
		if err := json.Unmarshal(doc, &top); err != nil {
			return Result{}, fmt.Errorf("%w: %w", ErrMalformedDocument, err)
		}
		raw, ok := top.lookup(documentKeys)
		if !ok {
			return Result{}, fmt.Errorf("%w: no results array", ErrMalformedDocument)
		}
		if err := json.Unmarshal(raw, &items); err != nil {
			return Result{}, fmt.Errorf("%w: results: %w", ErrMalformedDocument, err)
		}
	default:
		return Result{}, fmt.Errorf("%w: expected an object or an array", ErrMalformedDocument)
	}

	res := Result{Events: make([]model.ProbeEvent, 0, len(items))}
	for i, item := range items {
		ev, err := parseRecord(item)
		if err != nil {
			res.Malformed++
			logger.Get().Debug(ctx, "skipping batch record", logger.Int("index", i), logger.Error(err))
			continue
		}
		res.Events = append(res.Events, ev)
	}
	return res, nil
}

// ParseStream reads one JSON record per line. Blank lines are ignored and
// malformed lines are skipped and counted. Only read failures are errors.
func ParseStream(ctx context.Context, r io.Reader) (Result, error) {
	var res Result
	br := bufio.NewReader(r)
	for lineNo := 1; ; lineNo++ {
		line, err := br.ReadBytes('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return res, fmt.Errorf("%w: line %d: %w", ErrReadInput, lineNo, err)
		}
		if trimmed := bytes.TrimSpace(line); len(trimmed) > 0 {
			ev, perr := parseRecord(trimmed)
			if perr != nil {
				res.Malformed++
				logger.Get().Debug(ctx, "skipping stream line", logger.Int("line", lineNo), logger.Error(perr))
			} else {
				res.Events = append(res.Events, ev)
			}
		}
		if errors.Is(err, io.EOF) {
			return res, nil
		}
	}
}

func parseRecord(data []byte) (model.ProbeEvent, error) {
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return model.ProbeEvent{}, fmt.Errorf("%w: %w", ErrMalformedRecord, err)
	}
	if rec == nil {
		return model.ProbeEvent{}, fmt.Errorf("%w: not an object", ErrMalformedRecord)
	}
	return normalize(rec)
}

// DetectFormat picks a format from the file extension, falling back to the
// content: a single JSON value holding a record array is a batch document.
func DetectFormat(path string, data []byte) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jsonl", ".ndjson":
		return FormatStream
	case ".json":
		return FormatBatch
	}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' && json.Valid(trimmed) {
		return FormatBatch
	}
	var top record
	if json.Unmarshal(trimmed, &top) == nil {
		if _, ok := top.lookup(documentKeys); ok {
			if _, isVendorRecord := top.get(fieldVendor); !isVendorRecord {
				return FormatBatch
			}
		}
	}
	return FormatStream
}
