// Package model contains the canonical domain models passed between layers.
package model

import (
	"math"
	"time"
)

// Stage names a network timing stage of a single probe.
type Stage string

// Known stages, in wire order.
const (
	StageDNS             Stage = "dns"
	StageConnect         Stage = "connect"
	StageTLS             Stage = "tls"
	StageTTFB            Stage = "ttfb"
	StageContentDownload Stage = "contentDownload"
	StageTotal           Stage = "total"
)

// Stages lists every stage in a stable order.
var Stages = []Stage{StageDNS, StageConnect, StageTLS, StageTTFB, StageContentDownload, StageTotal}

// Synthetic failure-histogram key for successful events.
const SuccessKey = "success"

// Vendor is a named network path under test. A nil Routing means a direct path.
type Vendor struct {
	Name    string  `json:"name"`
	Routing *string `json:"routing"`
}

// Timings holds per-stage durations in milliseconds. A nil field is unknown;
// a set field is never negative.
type Timings struct {
	DNS             *float64 `json:"dns,omitempty"`
	Connect         *float64 `json:"connect,omitempty"`
	TLS             *float64 `json:"tls,omitempty"`
	TTFB            *float64 `json:"ttfb,omitempty"`
	ContentDownload *float64 `json:"contentDownload,omitempty"`
	Total           *float64 `json:"total,omitempty"`
}

// Get returns the timing of a stage.
func (t Timings) Get(s Stage) *float64 {
	switch s {
	case StageDNS:
		return t.DNS
	case StageConnect:
		return t.Connect
	case StageTLS:
		return t.TLS
	case StageTTFB:
		return t.TTFB
	case StageContentDownload:
		return t.ContentDownload
	case StageTotal:
		return t.Total
	}
	return nil
}

// Set stores a timing for a stage. Negative, non-finite or nil durations clear the stage.
func (t *Timings) Set(s Stage, v *float64) {
	if v != nil && (*v < 0 || math.IsNaN(*v) || math.IsInf(*v, 0)) {
		v = nil
	}
	switch s {
	case StageDNS:
		t.DNS = v
	case StageConnect:
		t.Connect = v
	case StageTLS:
		t.TLS = v
	case StageTTFB:
		t.TTFB = v
	case StageContentDownload:
		t.ContentDownload = v
	case StageTotal:
		t.Total = v
	}
}

// ProbeEvent is the canonical record of one probe attempt.
type ProbeEvent struct {
	ID            string    // optional unique id, used for de-duplication
	Vendor        string    // vendor name, never empty
	Query         *string   // nil events are excluded from correctness scoring
	Timestamp     time.Time // ordering only
	OK            bool      // completed, produced results, not blocked
	Blocked       bool      // block/captcha/http-error signal observed
	FailureReason *string   // classification tag; nil iff OK
	Error         string    // raw error text for diagnostics
	Concurrency   *int      // plateau worker count
	Timings       Timings
	TopK          []string

	SessionID   *string
	ObservedIP  *string
	ObservedASN *string
	HintGeo     *string
	ObservedGeo *string
	BytesUp     *int64
	BytesDown   *int64
}

// Reason returns the failure reason, or SuccessKey for successful events.
func (e *ProbeEvent) Reason() string {
	if e.FailureReason == nil {
		if e.OK {
			return SuccessKey
		}
		return ""
	}
	return *e.FailureReason
}

// StickyKey returns the session grouping key: session id, falling back to the observed IP.
func (e *ProbeEvent) StickyKey() (string, bool) {
	if e.SessionID != nil && *e.SessionID != "" {
		return "session:" + *e.SessionID, true
	}
	if e.ObservedIP != nil && *e.ObservedIP != "" {
		return "ip:" + *e.ObservedIP, true
	}
	return "", false
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T { return &v }

// Duration returns a non-negative stage duration between two marks, or nil when
// either mark is missing or the duration would be negative.
func Duration(start, end *float64) *float64 {
	if start == nil || end == nil {
		return nil
	}
	d := *end - *start
	if d < 0 || math.IsNaN(d) || math.IsInf(d, 0) {
		return nil
	}
	return &d
}
