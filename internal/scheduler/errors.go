package scheduler

import "errors"

// Sentinel kinds for scheduler configuration errors.
var (
	ErrInvalidPlateau  = errors.New("plateau sizes must be positive")
	ErrInvalidDuration = errors.New("plateau duration must be positive")
	ErrNoVendors       = errors.New("no vendors to probe")
)
