// Package decision renders a PASS/FAIL verdict and a root-cause hint from
// aggregated vendor metrics.
package decision

import (
	"fmt"

	"github.com/okian/pathbench/internal/domain/aggregate"
	"github.com/okian/pathbench/internal/domain/model"
)

// Comparators.
const (
	AtMost  = "<="
	AtLeast = ">="
)

// Criterion names.
const (
	CriterionLatencyRatio = "latencyRatio"
	CriterionSuccessRate  = "successRate"
	CriterionCaptchaRate  = "captchaRate"
	CriterionStickyP50    = "stickyP50"
	CriterionTailAmpRatio = "tailAmpRatio"
	CriterionCorrectness  = "correctness"
)

// Diagnoses.
const (
	DiagnosisBlocking   = "blocking/ban"
	DiagnosisNetwork    = "pre-origin network degradation"
	DiagnosisThrottling = "target throttling"
	DiagnosisNone       = "no obvious root cause"
)

// Criterion is one evaluated row of the thresholds table.
type Criterion struct {
	Name       string          `json:"name"`
	Comparator string          `json:"comparator"`
	Threshold  float64         `json:"threshold"`
	Observed   aggregate.Value `json:"observed"`
	Unknown    bool            `json:"unknown"`
	Satisfied  bool            `json:"satisfied"`
}

// Decision is an auditable verdict for one vendor.
type Decision struct {
	Vendor         string      `json:"vendor"`
	Pass           bool        `json:"pass"`
	Thresholds     Thresholds  `json:"thresholds"`
	StrictUnknowns bool        `json:"strictUnknowns"`
	MinSamples     int         `json:"minSamples"`
	Samples        int         `json:"samples"`
	Criteria       []Criterion `json:"criteria"`
	Diagnosis      string      `json:"diagnosis"`
	Hint           string      `json:"hint"`
}

// Failed returns the names of unsatisfied criteria.
func (d *Decision) Failed() []string {
	var out []string
	for _, c := range d.Criteria {
		if !c.Satisfied {
			out = append(out, c.Name)
		}
	}
	return out
}

// Decide evaluates m. By default an unknown metric satisfies its criterion.
// Decide is pure: equal inputs give equal decisions.
func Decide(m *aggregate.VendorMetrics, opts ...Option) Decision {
	e := engine{thresholds: DefaultThresholds()}
	for _, opt := range opts {
		opt(&e)
	}
	t := e.thresholds

	d := Decision{
		Vendor:         m.Vendor,
		Thresholds:     t,
		StrictUnknowns: e.strictUnknowns,
		MinSamples:     e.minSamples,
		Samples:        m.Reliability.Events,
		Criteria: []Criterion{
			e.criterion(CriterionLatencyRatio, AtMost, t.MaxLatencyRatio, m.LatencyRatio),
			e.criterion(CriterionSuccessRate, AtLeast, t.MinSuccessRate, m.Reliability.SuccessRate),
			e.criterion(CriterionCaptchaRate, AtMost, t.MaxCaptchaRate, m.Reliability.CaptchaRate),
			e.criterion(CriterionStickyP50, AtLeast, t.MinStickyP50, m.Sticky.P50),
			e.criterion(CriterionTailAmpRatio, AtMost, t.MaxTailAmpRatio, m.TailAmp.Ratio),
			e.criterion(CriterionCorrectness, AtLeast, t.MinCorrectness, m.Correctness.Jaccard),
		},
	}

	d.Pass = d.Samples >= e.minSamples
	for _, c := range d.Criteria {
		d.Pass = d.Pass && c.Satisfied
	}
	d.Diagnosis, d.Hint = diagnose(m, t)
	return d
}

func (e *engine) criterion(name, cmp string, threshold float64, v aggregate.Value) Criterion {
	c := Criterion{Name: name, Comparator: cmp, Threshold: threshold, Observed: v}
	switch {
	case !v.Known:
		c.Unknown = true
		c.Satisfied = !e.strictUnknowns
	case cmp == AtMost:
		c.Satisfied = v.V <= threshold
	default:
		c.Satisfied = v.V >= threshold
	}
	return c
}

// diagnose walks the tree in priority order: blocking, then pre-origin
// network stages, then origin stages.
func diagnose(m *aggregate.VendorMetrics, t Thresholds) (string, string) {
	r := m.Reliability
	if exceeds(r.BlockedRate, t.MaxBlockedRate) || exceeds(r.CaptchaRate, t.MaxCaptchaRate) {
		return DiagnosisBlocking, fmt.Sprintf("blocked rate %s and captcha rate %s point to the target blocking this vendor",
			r.BlockedRate, r.CaptchaRate)
	}
	if s, ratio, ok := worstStage(m, t.MaxNetworkRatio, model.StageDNS, model.StageConnect, model.StageTLS); ok {
		return DiagnosisNetwork, fmt.Sprintf("%s p95 is %sx the baseline before reaching the origin", s, ratio)
	}
	if s, ratio, ok := worstStage(m, t.MaxOriginRatio, model.StageTTFB, model.StageContentDownload); ok {
		return DiagnosisThrottling, fmt.Sprintf("%s p95 is %sx the baseline while the network stages are normal", s, ratio)
	}
	return DiagnosisNone, "no stage or block signal stands out against the baseline"
}

func exceeds(v aggregate.Value, limit float64) bool {
	return v.Known && v.V > limit
}

// worstStage returns the stage with the highest known ratio above limit.
func worstStage(m *aggregate.VendorMetrics, limit float64, stages ...model.Stage) (model.Stage, aggregate.Value, bool) {
	var (
		worst model.Stage
		ratio aggregate.Value
	)
	for _, s := range stages {
		so, ok := m.Stage(s)
		if !ok || !exceeds(so.Ratio, limit) {
			continue
		}
		if !ratio.Known || so.Ratio.V > ratio.V {
			worst, ratio = s, so.Ratio
		}
	}
	return worst, ratio, ratio.Known
}
