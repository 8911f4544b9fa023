package decision

// Thresholds is the criteria table of a verdict plus the limits the
// diagnosis tree uses.
type Thresholds struct {
	MaxLatencyRatio float64 `json:"maxLatencyRatio"`
	MinSuccessRate  float64 `json:"minSuccessRate"`
	MaxCaptchaRate  float64 `json:"maxCaptchaRate"`
	MinStickyP50    float64 `json:"minStickyP50"`
	MaxTailAmpRatio float64 `json:"maxTailAmpRatio"`
	MinCorrectness  float64 `json:"minCorrectness"`

	// Diagnosis only.
	MaxBlockedRate  float64 `json:"maxBlockedRate"`
	MaxNetworkRatio float64 `json:"maxNetworkRatio"` // dns, connect, tls p95 vs baseline
	MaxOriginRatio  float64 `json:"maxOriginRatio"`  // ttfb, download p95 vs baseline
}

// DefaultThresholds returns the standard criteria table.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MaxLatencyRatio: 1.3,
		MinSuccessRate:  0.98,
		MaxCaptchaRate:  0.01,
		MinStickyP50:    10,
		MaxTailAmpRatio: 1.2,
		MinCorrectness:  0.9,

		MaxBlockedRate:  0.05,
		MaxNetworkRatio: 1.5,
		MaxOriginRatio:  1.5,
	}
}

// Option applies a configuration option to a decision.
type Option func(*engine)

type engine struct {
	thresholds     Thresholds
	strictUnknowns bool
	minSamples     int
}

// WithThresholds replaces the criteria table.
func WithThresholds(t Thresholds) Option {
	return func(e *engine) {
		e.thresholds = t
	}
}

// WithStrictUnknowns makes an unknown metric fail its criterion.
func WithStrictUnknowns() Option {
	return func(e *engine) {
		e.strictUnknowns = true
	}
}

// WithMinSamples requires at least n events before a vendor can pass.
func WithMinSamples(n int) Option {
	return func(e *engine) {
		if n > 0 {
			e.minSamples = n
		}
	}
}
