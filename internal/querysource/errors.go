package querysource

import "errors"

// Sentinel kinds for query source errors.
var (
	ErrNoQueries   = errors.New("no queries")
	ErrReadQueries = errors.New("failed to read queries file")
)
