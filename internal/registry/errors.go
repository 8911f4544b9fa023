package registry

import "errors"

// Sentinel kinds for vendor registry errors. All of them are configuration errors.
var (
	ErrNoVendors     = errors.New("vendor list is empty")
	ErrInvalidVendor = errors.New("invalid vendor")
	ErrReadVendors   = errors.New("failed to read vendors file")
)
