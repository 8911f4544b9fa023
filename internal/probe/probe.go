// Package probe defines the boundary to whatever performs a single attempt
// against a vendor.
package probe

import (
	"context"

	"github.com/okian/pathbench/internal/domain/model"
)

// Request is one attempt to run.
type Request struct {
	Vendor      model.Vendor
	Query       string
	Concurrency int
}

// Outcome is what a completed attempt reports. A completed attempt may still
// be blocked or have no results; it is the scheduler that decides ok-ness.
type Outcome struct {
	Blocked   bool
	BlockType string
	Timings   model.Timings
	TopK      []string

	SessionID   *string
	ObservedIP  *string
	ObservedASN *string
	HintGeo     *string
	ObservedGeo *string
	BytesUp     *int64
	BytesDown   *int64
}

// Prober performs one attempt. Returned errors are classified by the
// scheduler; typed errors from this package classify most reliably.
type Prober interface {
	Probe(ctx context.Context, req Request) (Outcome, error)
}

// Func adapts a function to Prober.
type Func func(ctx context.Context, req Request) (Outcome, error)

// Probe calls f.
func (f Func) Probe(ctx context.Context, req Request) (Outcome, error) { return f(ctx, req) }
