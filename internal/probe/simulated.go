package probe

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"github.com/okian/pathbench/internal/domain/model"
)

// Default simulation constants.
const (
	defaultMinLatency    = 80 * time.Millisecond
	defaultMaxLatency    = 150 * time.Millisecond
	defaultRandomSeed    = 42
	defaultSessionLength = 25
	defaultResults       = 10
	defaultBytesUp       = 2048
	defaultBytesDownMin  = 150_000
	defaultBytesDownMax  = 450_000
	defaultGeo           = "us"
	blockTypeCaptcha     = "captcha"
)

// Stage shares of the total latency, in wire order.
var stageShares = []struct { //nolint:gochecknoglobals // immutable split
	stage model.Stage
	share float64
}{
	{model.StageDNS, 0.05},
	{model.StageConnect, 0.10},
	{model.StageTLS, 0.15},
	{model.StageTTFB, 0.50},
	{model.StageContentDownload, 0.20},
}

// Profile describes how a simulated vendor behaves.
type Profile struct {
	MinLatency    time.Duration
	MaxLatency    time.Duration
	BlockRate     float64 // share of attempts answered with a captcha page
	FailureRate   float64 // share of attempts failing with a transport error
	DriftRate     float64 // per-result chance of diverging from the canonical ranking
	SessionLength int     // attempts served by one exit before rotation
	Geo           string  // region the exit actually reports
}

// SimOption applies a configuration option to the Simulated prober.
type SimOption func(*Simulated)

// WithProfile sets the behavior of one vendor.
func WithProfile(vendor string, p Profile) SimOption {
	return func(s *Simulated) {
		s.profiles[vendor] = normalizeProfile(p)
	}
}

// WithDefaultProfile sets the behavior of vendors without their own profile.
func WithDefaultProfile(p Profile) SimOption {
	return func(s *Simulated) {
		s.fallback = normalizeProfile(p)
	}
}

// WithSimSeed sets the seed of the simulation. 0 seeds from the clock, so
// runs differ.
func WithSimSeed(seed int64) SimOption {
	return func(s *Simulated) {
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		s.rng = rand.New(rand.NewSource(seed)) //nolint:gosec // simulation, not security
	}
}

// WithoutDelay reports latencies without sleeping them.
func WithoutDelay() SimOption {
	return func(s *Simulated) {
		s.sleep = false
	}
}

// Simulated is a Prober that models vendors statistically. It is safe for
// concurrent use.
type Simulated struct {
	profiles map[string]Profile
	fallback Profile
	sleep    bool

	mu       sync.Mutex
	rng      *rand.Rand
	sessions map[string]*session
}

type session struct {
	id   int
	used int
}

// NewSimulated creates a simulated prober.
func NewSimulated(opts ...SimOption) *Simulated {
	s := &Simulated{
		profiles: make(map[string]Profile),
		fallback: normalizeProfile(Profile{}),
		sleep:    true,
		rng:      rand.New(rand.NewSource(defaultRandomSeed)), //nolint:gosec // deterministic simulation
		sessions: make(map[string]*session),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func normalizeProfile(p Profile) Profile {
	if p.MinLatency <= 0 || p.MaxLatency < p.MinLatency {
		p.MinLatency, p.MaxLatency = defaultMinLatency, defaultMaxLatency
	}
	if p.SessionLength <= 0 {
		p.SessionLength = defaultSessionLength
	}
	if p.Geo == "" {
		p.Geo = defaultGeo
	}
	return p
}

type draw struct {
	latency   time.Duration
	failure   bool
	blocked   bool
	drift     []bool
	bytesDown int64
	sessionID int
}

// Probe simulates one attempt.
func (s *Simulated) Probe(ctx context.Context, req Request) (Outcome, error) {
	p, ok := s.profiles[req.Vendor.Name]
	if !ok {
		p = s.fallback
	}
	d := s.roll(req.Vendor.Name, p)

	if s.sleep {
		select {
		case <-ctx.Done():
			return Outcome{}, fmt.Errorf("context cancelled: %w", ctx.Err())
		case <-time.After(d.latency):
		}
	}

	out := Outcome{
		SessionID:   model.Ptr(req.Vendor.Name + "-" + strconv.Itoa(d.sessionID)),
		ObservedIP:  model.Ptr(fmt.Sprintf("10.%d.%d.%d", len(req.Vendor.Name)%256, (d.sessionID/256)%256, d.sessionID%256)),
		ObservedASN: model.Ptr("AS" + strconv.Itoa(64512+len(req.Vendor.Name))),
		HintGeo:     model.Ptr(defaultGeo),
		ObservedGeo: model.Ptr(p.Geo),
	}
	if d.failure {
		// Session and exit are known even when the transfer failed.
		return out, s.failure(req.Vendor)
	}

	total := float64(d.latency) / float64(time.Millisecond)
	out.BytesUp = model.Ptr(int64(defaultBytesUp))
	out.BytesDown = model.Ptr(d.bytesDown)
	out.Timings.Set(model.StageTotal, &total)
	for _, sh := range stageShares {
		out.Timings.Set(sh.stage, model.Ptr(total*sh.share))
	}
	if d.blocked {
		out.Blocked = true
		out.BlockType = blockTypeCaptcha
		return out, nil
	}
	out.TopK = results(req.Vendor.Name, req.Query, d.drift)
	return out, nil
}

// roll draws every random decision of one attempt under the lock.
func (s *Simulated) roll(vendor string, p Profile) draw {
	s.mu.Lock()
	defer s.mu.Unlock()

	d := draw{latency: p.MinLatency}
	if span := int64(p.MaxLatency - p.MinLatency); span > 0 {
		d.latency += time.Duration(s.rng.Int63n(span))
	}
	d.failure = s.rng.Float64() < p.FailureRate
	d.blocked = !d.failure && s.rng.Float64() < p.BlockRate
	d.drift = make([]bool, defaultResults)
	for i := range d.drift {
		d.drift[i] = s.rng.Float64() < p.DriftRate
	}
	d.bytesDown = defaultBytesDownMin + s.rng.Int63n(defaultBytesDownMax-defaultBytesDownMin)

	sess, ok := s.sessions[vendor]
	if !ok {
		sess = &session{}
		s.sessions[vendor] = sess
	}
	if sess.used >= p.SessionLength {
		sess.id++
		sess.used = 0
	}
	sess.used++
	d.sessionID = sess.id
	// The attempt that fails or is blocked still belongs to the session it ends.
	if d.failure || d.blocked {
		sess.id++
		sess.used = 0
	}
	return d
}

func (s *Simulated) failure(v model.Vendor) error {
	if v.Routing != nil {
		return &ProxyError{Proxy: *v.Routing, Err: errors.New("connection refused")}
	}
	return &NetworkError{Op: "dial", Err: errors.New("connection reset by peer")}
}

// results builds a stable ranking for a query; drifted positions are replaced
// by vendor-specific identifiers.
func results(vendor, query string, drift []bool) []string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(query))
	base := strconv.FormatUint(uint64(h.Sum32()), 36)
	out := make([]string, len(drift))
	for i, drifted := range drift {
		if drifted {
			out[i] = fmt.Sprintf("https://%s.example.test/%s/%d", vendor, base, i)
			continue
		}
		out[i] = fmt.Sprintf("https://example.test/%s/%d", base, i)
	}
	return out
}
