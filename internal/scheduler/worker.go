package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/pathbench/internal/domain/model"
	"github.com/okian/pathbench/internal/probe"
	"github.com/okian/pathbench/pkg/logger"
	"github.com/okian/pathbench/pkg/metrics"
)

// worker probes one vendor until the plateau deadline.
type worker struct {
	id          int
	vendor      model.Vendor
	concurrency int
	deadline    time.Time
	source      QuerySource
	prober      probe.Prober
	out         Appender
	s           *Scheduler
}

// run loops: check the deadline, pick a query, probe, record. A probe is
// never interrupted; only starting a new one is gated.
func (w *worker) run(ctx context.Context) {
	metrics.WorkerStarted(w.vendor.Name)
	defer metrics.WorkerStopped(w.vendor.Name)

	// Probes outlive cancellation of the run.
	probeCtx := context.WithoutCancel(ctx)
	for {
		started := w.s.now()
		if !started.Before(w.deadline) || ctx.Err() != nil {
			return
		}
		query, ok := w.source.Next()
		if !ok {
			return
		}

		req := probe.Request{Vendor: w.vendor, Query: query, Concurrency: w.concurrency}
		outcome, err := w.probe(probeCtx, req)
		elapsed := w.s.now().Sub(started)

		ev := w.event(req, started, elapsed, outcome, err)
		w.out.Append(ev)
		w.s.countEvent()

		total := ev.Timings.Total
		metrics.RecordProbe(w.vendor.Name, ev.Reason(), valueOr(total), total != nil)
		if err != nil {
			w.s.logger.Debug(ctx, "probe failed",
				logger.String("vendor", w.vendor.Name),
				logger.Int("worker", w.id),
				logger.String("reason", ev.Reason()),
				logger.Error(err))
		}
	}
}

// probe calls the prober, turning a panic into an error so that a faulty
// adapter fails one attempt instead of the process.
func (w *worker) probe(ctx context.Context, req probe.Request) (out probe.Outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = probe.Outcome{}, fmt.Errorf("probe panicked: %v", r)
		}
	}()
	return w.prober.Probe(ctx, req)
}

// event converts a probe result into a canonical event.
func (w *worker) event(req probe.Request, started time.Time, elapsed time.Duration, out probe.Outcome, err error) model.ProbeEvent { //nolint:gocritic // hugeParam: outcome is consumed once
	ev := model.ProbeEvent{
		ID:          w.s.newID(),
		Vendor:      req.Vendor.Name,
		Query:       model.Ptr(req.Query),
		Timestamp:   started,
		Concurrency: model.Ptr(req.Concurrency),
	}

	measured := float64(elapsed) / float64(time.Millisecond)
	if err != nil {
		c := Classify(err)
		ev.Blocked = c.Blocked
		ev.FailureReason = model.Ptr(c.Reason)
		ev.Error = err.Error()
		ev.Timings.Set(model.StageTotal, &measured)
		enrich(&ev, &out)
		return ev
	}

	ev.Timings = out.Timings
	if ev.Timings.Total == nil {
		ev.Timings.Set(model.StageTotal, &measured)
	}
	ev.TopK = out.TopK
	enrich(&ev, &out)

	switch {
	case out.Blocked:
		ev.Blocked = true
		reason := out.BlockType
		if reason == "" {
			reason = ReasonBlocked
		}
		ev.FailureReason = &reason
	case len(out.TopK) == 0:
		ev.FailureReason = model.Ptr(ReasonNoResults)
	default:
		ev.OK = true
	}
	return ev
}

// enrich copies session, exit and traffic details, which a failed attempt
// may still report.
func enrich(ev *model.ProbeEvent, out *probe.Outcome) {
	ev.SessionID = out.SessionID
	ev.ObservedIP = out.ObservedIP
	ev.ObservedASN = out.ObservedASN
	ev.HintGeo = out.HintGeo
	ev.ObservedGeo = out.ObservedGeo
	ev.BytesUp = out.BytesUp
	ev.BytesDown = out.BytesDown
}

func valueOr(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
