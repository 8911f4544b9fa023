// Package aggregate turns probe events into per-vendor metrics relative to a
// baseline vendor.
package aggregate

import "github.com/okian/pathbench/internal/domain/model"

// Reliability breaks down outcomes. The rates of successes, blocked events
// and other failures partition the event count.
type Reliability struct {
	Events           int            `json:"events"`
	Successes        int            `json:"successes"`
	Blocked          int            `json:"blocked"`
	Captcha          int            `json:"captcha"`
	Timeouts         int            `json:"timeouts"`
	SuccessRate      Value          `json:"successRate"`
	BlockedRate      Value          `json:"blockedRate"`
	CaptchaRate      Value          `json:"captchaRate"`
	TimeoutRate      Value          `json:"timeoutRate"`
	OtherFailureRate Value          `json:"otherFailureRate"`
	Reasons          map[string]int `json:"reasons"`
}

// Latency holds total-latency percentiles over successful events.
type Latency struct {
	Samples int   `json:"samples"`
	P50     Value `json:"p50"`
	P95     Value `json:"p95"`
	P99     Value `json:"p99"`
}

// StageOverhead compares the p95 of one stage against the baseline.
type StageOverhead struct {
	Stage    model.Stage `json:"stage"`
	Vendor   Value       `json:"vendorP95"`
	Baseline Value       `json:"baselineP95"`
	Delta    Value       `json:"delta"`
	Ratio    Value       `json:"ratio"`
}

// TailAmp is p99/p50 of total latency for the vendor and the baseline.
type TailAmp struct {
	Vendor   Value `json:"vendor"`
	Baseline Value `json:"baseline"`
	Ratio    Value `json:"ratio"`
}

// CurvePoint is the outcome at one concurrency level.
type CurvePoint struct {
	Concurrency int   `json:"concurrency"`
	Events      int   `json:"events"`
	SuccessRate Value `json:"successRate"`
	P95         Value `json:"p95"`
}

// Correctness is the mean top-K Jaccard similarity against the baseline over
// the queries both sides answered.
type Correctness struct {
	Jaccard       Value `json:"jaccard"`
	SharedQueries int   `json:"sharedQueries"`
	K             int   `json:"k"`
}

// Sticky summarizes session survival. Censored sessions never failed and are
// excluded from the percentiles.
type Sticky struct {
	P50      Value `json:"p50"`
	P90      Value `json:"p90"`
	Sessions int   `json:"sessions"`
	Censored int   `json:"censored"`
}

// Geo summarizes exit-pool quality.
type Geo struct {
	MatchRate    Value `json:"matchRate"`
	Compared     int   `json:"compared"`
	DistinctIPs  int   `json:"distinctIps"`
	DistinctASNs int   `json:"distinctAsns"`
}

// Cost is the price of successful traffic.
type Cost struct {
	Bytes                Value `json:"bytes"`
	PricePerGB           Value `json:"pricePerGb"`
	PerThousandSuccesses Value `json:"perThousandSuccesses"`
}

// VendorMetrics is computed fresh on every aggregation.
type VendorMetrics struct {
	Vendor       string          `json:"vendor"`
	Baseline     string          `json:"baseline"`
	Reliability  Reliability     `json:"reliability"`
	Latency      Latency         `json:"latency"`
	LatencyRatio Value           `json:"latencyRatio"`
	Stages       []StageOverhead `json:"stages"`
	TailAmp      TailAmp         `json:"tailAmp"`
	Curve        []CurvePoint    `json:"curve"`
	Correctness  Correctness     `json:"correctness"`
	Sticky       Sticky          `json:"sticky"`
	Geo          Geo             `json:"geo"`
	Cost         Cost            `json:"cost"`
}

// Stage returns the overhead entry of a stage.
func (m *VendorMetrics) Stage(s model.Stage) (StageOverhead, bool) {
	for _, so := range m.Stages {
		if so.Stage == s {
			return so, true
		}
	}
	return StageOverhead{}, false
}
