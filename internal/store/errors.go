package store

import "errors"

// Sentinel kinds for result store errors.
var (
	ErrNoEvents   = errors.New("no events to write")
	ErrWriteStore = errors.New("failed to write results")
)
