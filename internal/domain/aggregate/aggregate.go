package aggregate

import (
	"regexp"
	"sort"
	"strings"

	"github.com/okian/pathbench/internal/domain/model"
)

// Percentile ranks reported everywhere.
const (
	p50 = 50
	p90 = 90
	p95 = 95
	p99 = 99

	bytesPerGB  = 1e9
	perThousand = 1000
)

// Stages compared for overhead. Total is covered by LatencyRatio.
var overheadStages = []model.Stage{ //nolint:gochecknoglobals // immutable stage list
	model.StageDNS, model.StageConnect, model.StageTLS, model.StageTTFB, model.StageContentDownload,
}

var (
	captchaPattern = regexp.MustCompile(`(?i)captcha|challenge`) //nolint:gochecknoglobals // compiled once
	timeoutPattern = regexp.MustCompile(`(?i)timeout|timed out`) //nolint:gochecknoglobals // compiled once
)

// Aggregate computes the metrics of one vendor against the baseline's events.
// Neither slice is modified.
func Aggregate(vendor string, events, baseline []model.ProbeEvent, opts ...Option) VendorMetrics {
	o := newOptions(opts)
	events = sortedCopy(events)
	baseline = sortedCopy(baseline)

	m := VendorMetrics{
		Vendor:      vendor,
		Reliability: reliability(events),
		Latency:     latency(events),
		Curve:       curve(events),
		Correctness: correctness(events, baseline, o.topK),
		Sticky:      sticky(events),
		Geo:         geo(events),
		Cost:        cost(events, o.pricePerGB),
	}
	if len(baseline) > 0 {
		m.Baseline = baseline[0].Vendor
	}

	base := latency(baseline)
	m.LatencyRatio = m.Latency.P95.Ratio(base.P95)
	m.Stages = stageOverhead(events, baseline)

	vendorAmp := m.Latency.P99.Ratio(m.Latency.P50)
	baseAmp := base.P99.Ratio(base.P50)
	m.TailAmp = TailAmp{Vendor: vendorAmp, Baseline: baseAmp, Ratio: vendorAmp.Ratio(baseAmp)}
	return m
}

// AggregateAll groups events by vendor and aggregates each against the
// vendor named baseline, or the first vendor seen when it has no events.
// Results follow the order in which vendors first appear.
func AggregateAll(events []model.ProbeEvent, baseline string, opts ...Option) []VendorMetrics {
	var order []string
	groups := make(map[string][]model.ProbeEvent)
	for i := range events {
		v := events[i].Vendor
		if _, ok := groups[v]; !ok {
			order = append(order, v)
		}
		groups[v] = append(groups[v], events[i])
	}
	if len(order) == 0 {
		return nil
	}
	if _, ok := groups[baseline]; !ok {
		baseline = order[0]
	}

	out := make([]VendorMetrics, 0, len(order))
	for _, v := range order {
		m := Aggregate(v, groups[v], groups[baseline], opts...)
		m.Baseline = baseline
		out = append(out, m)
	}
	return out
}

func sortedCopy(events []model.ProbeEvent) []model.ProbeEvent {
	out := make([]model.ProbeEvent, len(events))
	copy(out, events)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out
}

func successes(events []model.ProbeEvent) []model.ProbeEvent {
	out := make([]model.ProbeEvent, 0, len(events))
	for i := range events {
		if events[i].OK {
			out = append(out, events[i])
		}
	}
	return out
}

func stageValues(events []model.ProbeEvent, s model.Stage) []float64 {
	out := make([]float64, 0, len(events))
	for i := range events {
		if v := events[i].Timings.Get(s); v != nil {
			out = append(out, *v)
		}
	}
	return out
}

func reliability(events []model.ProbeEvent) Reliability {
	r := Reliability{Events: len(events), Reasons: make(map[string]int)}
	other := 0
	for i := range events {
		ev := &events[i]
		reason := ev.Reason()
		if reason == "" {
			reason = "unknown"
		}
		r.Reasons[reason]++
		switch {
		case ev.OK:
			r.Successes++
			continue
		case ev.Blocked:
			r.Blocked++
		default:
			other++
		}
		if captchaPattern.MatchString(reason) {
			r.Captcha++
		}
		if timeoutPattern.MatchString(reason) {
			r.Timeouts++
		}
	}
	r.SuccessRate = rate(r.Successes, r.Events)
	r.BlockedRate = rate(r.Blocked, r.Events)
	r.CaptchaRate = rate(r.Captcha, r.Events)
	r.TimeoutRate = rate(r.Timeouts, r.Events)
	r.OtherFailureRate = rate(other, r.Events)
	return r
}

func latency(events []model.ProbeEvent) Latency {
	totals := stageValues(successes(events), model.StageTotal)
	return Latency{
		Samples: len(totals),
		P50:     Percentile(totals, p50),
		P95:     Percentile(totals, p95),
		P99:     Percentile(totals, p99),
	}
}

func stageOverhead(events, baseline []model.ProbeEvent) []StageOverhead {
	vs, bs := successes(events), successes(baseline)
	out := make([]StageOverhead, 0, len(overheadStages))
	for _, s := range overheadStages {
		so := StageOverhead{Stage: s}
		if len(vs) > 0 && len(bs) > 0 {
			so.Vendor = Percentile(stageValues(vs, s), p95)
			so.Baseline = Percentile(stageValues(bs, s), p95)
			so.Delta = so.Vendor.Sub(so.Baseline)
			so.Ratio = so.Vendor.Ratio(so.Baseline)
		}
		out = append(out, so)
	}
	return out
}

func curve(events []model.ProbeEvent) []CurvePoint {
	groups := make(map[int][]model.ProbeEvent)
	for i := range events {
		if c := events[i].Concurrency; c != nil {
			groups[*c] = append(groups[*c], events[i])
		}
	}
	levels := make([]int, 0, len(groups))
	for c := range groups {
		levels = append(levels, c)
	}
	sort.Ints(levels)

	out := make([]CurvePoint, 0, len(levels))
	for _, c := range levels {
		g := groups[c]
		ok := successes(g)
		out = append(out, CurvePoint{
			Concurrency: c,
			Events:      len(g),
			SuccessRate: rate(len(ok), len(g)),
			P95:         Percentile(stageValues(ok, model.StageTotal), p95),
		})
	}
	return out
}

// latestByQuery keeps the most recent successful event per query. Events
// must be in time order.
func latestByQuery(events []model.ProbeEvent) map[string][]string {
	out := make(map[string][]string)
	for i := range events {
		if events[i].OK && events[i].Query != nil {
			out[*events[i].Query] = events[i].TopK
		}
	}
	return out
}

func correctness(events, baseline []model.ProbeEvent, k int) Correctness {
	c := Correctness{K: k}
	vendorTop, baseTop := latestByQuery(events), latestByQuery(baseline)
	// Summed in query order so equal inputs give bit-identical means.
	queries := make([]string, 0, len(vendorTop))
	for q := range vendorTop {
		if _, ok := baseTop[q]; ok {
			queries = append(queries, q)
		}
	}
	sort.Strings(queries)
	sum := 0.0
	for _, q := range queries {
		sum += Jaccard(firstK(vendorTop[q], k), firstK(baseTop[q], k))
	}
	c.SharedQueries = len(queries)
	if c.SharedQueries > 0 {
		c.Jaccard = Of(sum / float64(c.SharedQueries))
	}
	return c
}

func sticky(events []model.ProbeEvent) Sticky {
	type group struct {
		run    int
		failed bool
	}
	groups := make(map[string]*group)
	var order []string
	for i := range events {
		key, ok := events[i].StickyKey()
		if !ok {
			continue
		}
		g, seen := groups[key]
		if !seen {
			g = &group{}
			groups[key] = g
			order = append(order, key)
		}
		if g.failed {
			continue
		}
		if events[i].OK {
			g.run++
		} else {
			g.failed = true
		}
	}

	s := Sticky{}
	counts := make([]float64, 0, len(order))
	for _, key := range order {
		g := groups[key]
		if !g.failed {
			s.Censored++
			continue
		}
		counts = append(counts, float64(g.run))
	}
	s.Sessions = len(counts)
	s.P50 = Percentile(counts, p50)
	s.P90 = Percentile(counts, p90)
	return s
}

func geo(events []model.ProbeEvent) Geo {
	g := Geo{}
	ips := make(map[string]struct{})
	asns := make(map[string]struct{})
	matched := 0
	for i := range events {
		ev := &events[i]
		if ev.ObservedIP != nil && *ev.ObservedIP != "" {
			ips[*ev.ObservedIP] = struct{}{}
		}
		if ev.ObservedASN != nil && *ev.ObservedASN != "" {
			asns[*ev.ObservedASN] = struct{}{}
		}
		if ev.HintGeo == nil || ev.ObservedGeo == nil {
			continue
		}
		hint, observed := strings.TrimSpace(*ev.HintGeo), strings.TrimSpace(*ev.ObservedGeo)
		if hint == "" || observed == "" {
			continue
		}
		g.Compared++
		if strings.EqualFold(hint, observed) {
			matched++
		}
	}
	g.MatchRate = rate(matched, g.Compared)
	g.DistinctIPs = len(ips)
	g.DistinctASNs = len(asns)
	return g
}

func cost(events []model.ProbeEvent, pricePerGB float64) Cost {
	c := Cost{}
	if pricePerGB > 0 {
		c.PricePerGB = Of(pricePerGB)
	}
	ok := successes(events)
	var total int64
	counted := false
	for i := range ok {
		if ok[i].BytesUp != nil {
			total += *ok[i].BytesUp
			counted = true
		}
		if ok[i].BytesDown != nil {
			total += *ok[i].BytesDown
			counted = true
		}
	}
	if counted {
		c.Bytes = Of(float64(total))
	}
	if counted && pricePerGB > 0 && len(ok) > 0 {
		c.PerThousandSuccesses = Of(float64(total) / bytesPerGB * pricePerGB / float64(len(ok)) * perThousand)
	}
	return c
}
