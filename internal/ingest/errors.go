package ingest

import "errors"

// Sentinel kinds for ingestion errors.
var (
	ErrMalformedRecord   = errors.New("malformed record")
	ErrMalformedDocument = errors.New("malformed batch document")
	ErrReadInput         = errors.New("failed to read input")
)
