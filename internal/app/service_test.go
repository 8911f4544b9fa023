package service_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	app "github.com/okian/pathbench/internal/app"
	"github.com/okian/pathbench/internal/config"
	"github.com/okian/pathbench/internal/domain/decision"
	"github.com/okian/pathbench/internal/domain/model"
	"github.com/okian/pathbench/internal/ingest"
	"github.com/okian/pathbench/internal/probe"
	"github.com/okian/pathbench/internal/registry"
	"github.com/smartystreets/goconvey/convey"
)

func steady(_ context.Context, req probe.Request) (probe.Outcome, error) {
	time.Sleep(time.Millisecond)
	out := probe.Outcome{
		TopK:      []string{"https://r.test/" + req.Query + "/1", "https://r.test/" + req.Query + "/2"},
		SessionID: model.Ptr(req.Vendor.Name + "-1"),
	}
	for _, s := range model.Stages {
		out.Timings.Set(s, model.Ptr(10.0))
	}
	out.Timings.Set(model.StageTotal, model.Ptr(50.0))
	return out, nil
}

func testConfig(dir string) *config.Config {
	cfg := config.New(context.Background())
	cfg.Plateaus = []int{1, 2}
	cfg.PlateauDuration = 20 * time.Millisecond
	cfg.OutputDir = filepath.Join(dir, "out")
	cfg.Seed = 7
	return cfg
}

func writeFile(dir, name, content string) string {
	path := filepath.Join(dir, name)
	convey.So(os.WriteFile(path, []byte(content), 0o600), convey.ShouldBeNil)
	return path
}

func TestServiceRun(t *testing.T) {
	convey.Convey("Given a service with two vendors and a steady prober", t, func() {
		dir := t.TempDir()
		cfg := testConfig(dir)
		cfg.VendorsFile = writeFile(dir, "vendors.json",
			`[{"name":"direct","routing":null},{"name":"p1","routing":"http://p1.test:8080"}]`)
		var out bytes.Buffer
		svc := app.New(cfg, app.WithProber(probe.Func(steady)), app.WithOutput(&out))

		convey.Convey("When the run completes", func() {
			res, err := svc.Run(context.Background())

			convey.Convey("Then both vendors are evaluated against the baseline", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(res.Baseline, convey.ShouldEqual, "direct")
				convey.So(len(res.Events), convey.ShouldBeGreaterThan, 0)
				convey.So(len(res.Aggregates), convey.ShouldEqual, 2)
				convey.So(len(res.Decisions), convey.ShouldEqual, 2)
				for _, d := range res.Decisions {
					convey.So(d.Pass, convey.ShouldBeTrue)
				}
			})

			convey.Convey("Then both result files are written and read back identically", func() {
				fromBatch, err := ingest.LoadFiles(context.Background(), []string{res.BatchPath})
				convey.So(err, convey.ShouldBeNil)
				fromStream, err := ingest.LoadFiles(context.Background(), []string{res.StreamPath})
				convey.So(err, convey.ShouldBeNil)
				convey.So(len(fromBatch), convey.ShouldEqual, len(res.Events))
				convey.So(len(fromStream), convey.ShouldEqual, len(res.Events))
			})

			convey.Convey("Then the report is available and progress is finished", func() {
				report, ok := svc.Report()
				convey.So(ok, convey.ShouldBeTrue)
				convey.So(report.RunID, convey.ShouldEqual, res.RunID)
				p := svc.Progress()
				convey.So(p.Running, convey.ShouldBeFalse)
				convey.So(p.PlateausRun, convey.ShouldEqual, 2)
			})

			convey.Convey("Then the summary lists every vendor", func() {
				convey.So(svc.Summarize(res), convey.ShouldBeNil)
				convey.So(out.String(), convey.ShouldContainSubstring, "direct")
				convey.So(out.String(), convey.ShouldContainSubstring, "p1")
				convey.So(out.String(), convey.ShouldContainSubstring, "PASS")
			})
		})

		convey.Convey("When the run is cancelled before it starts", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			res, err := svc.Run(ctx)

			convey.Convey("Then the context error is returned and nothing is saved", func() {
				convey.So(errors.Is(err, context.Canceled), convey.ShouldBeTrue)
				convey.So(res, convey.ShouldNotBeNil)
				convey.So(res.Events, convey.ShouldBeEmpty)
				convey.So(res.BatchPath, convey.ShouldBeEmpty)
				_, statErr := os.Stat(filepath.Join(cfg.OutputDir, "results.json"))
				convey.So(os.IsNotExist(statErr), convey.ShouldBeTrue)
			})
		})
	})
}

func TestServiceRunSetupErrors(t *testing.T) {
	convey.Convey("Given a vendors file without vendors", t, func() {
		dir := t.TempDir()
		cfg := testConfig(dir)
		cfg.VendorsFile = writeFile(dir, "vendors.json", `[]`)

		_, err := app.New(cfg, app.WithProber(probe.Func(steady))).Run(context.Background())

		convey.Convey("Then the run fails before probing", func() {
			convey.So(errors.Is(err, app.ErrSetup), convey.ShouldBeTrue)
			convey.So(errors.Is(err, registry.ErrNoVendors), convey.ShouldBeTrue)
		})
	})
}

func TestServiceAnalyze(t *testing.T) {
	convey.Convey("Given recorded events where p1 is mostly blocked", t, func() {
		dir := t.TempDir()
		var lines []string
		base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		for i := 0; i < 20; i++ {
			ts := base.Add(time.Duration(i) * time.Second).Format(time.RFC3339Nano)
			lines = append(lines, fmt.Sprintf(
				`{"id":"d-%d","vendor":"direct","q":"q%d","timestamp":%q,"ok":true,"timings":{"total":100},"topK":["a","b"]}`,
				i, i%4, ts))
			if i%2 == 0 {
				lines = append(lines, fmt.Sprintf(
					`{"id":"p-%d","vendor":"p1","q":"q%d","timestamp":%q,"ok":false,"blocked":true,"failureReason":"captcha"}`,
					i, i%4, ts))
			} else {
				lines = append(lines, fmt.Sprintf(
					`{"id":"p-%d","vendor":"p1","q":"q%d","timestamp":%q,"ok":true,"timings":{"total":110},"topK":["a","b"]}`,
					i, i%4, ts))
			}
		}
		path := writeFile(dir, "events.jsonl", strings.Join(lines, "\n")+"\n")
		dup := writeFile(dir, "copy.jsonl", lines[0]+"\n")

		cfg := testConfig(dir)
		var out bytes.Buffer
		svc := app.New(cfg, app.WithOutput(&out))

		convey.Convey("When analyzing the files, one of them a duplicate", func() {
			res, err := svc.Analyze(context.Background(), []string{path, dup})

			convey.Convey("Then duplicates are dropped and p1 fails as blocked", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(len(res.Events), convey.ShouldEqual, 40)
				convey.So(res.Baseline, convey.ShouldEqual, "direct")
				convey.So(len(res.Decisions), convey.ShouldEqual, 2)

				p1 := res.Decisions[1]
				convey.So(p1.Vendor, convey.ShouldEqual, "p1")
				convey.So(p1.Pass, convey.ShouldBeFalse)
				convey.So(p1.Failed(), convey.ShouldContain, decision.CriterionSuccessRate)
				convey.So(p1.Diagnosis, convey.ShouldEqual, decision.DiagnosisBlocking)
			})

			convey.Convey("Then the summary marks the failing vendor", func() {
				convey.So(svc.Summarize(res), convey.ShouldBeNil)
				convey.So(out.String(), convey.ShouldContainSubstring, "FAIL")
				convey.So(out.String(), convey.ShouldContainSubstring, decision.DiagnosisBlocking)
			})
		})

		convey.Convey("When a missing file is analyzed along with a good one", func() {
			res, err := svc.Analyze(context.Background(), []string{path, filepath.Join(dir, "missing.jsonl")})

			convey.Convey("Then the good file is still evaluated", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(len(res.Events), convey.ShouldEqual, 40)
			})
		})

		convey.Convey("When only missing files are analyzed", func() {
			_, err := svc.Analyze(context.Background(), []string{filepath.Join(dir, "missing.jsonl")})

			convey.Convey("Then there is nothing to analyze", func() {
				convey.So(errors.Is(err, app.ErrNoInput), convey.ShouldBeTrue)
			})
		})
	})
}

func TestServiceRunSimulated(t *testing.T) {
	convey.Convey("Given the default vendor and a fast simulated profile exiting in another region", t, func() {
		cfg := testConfig(t.TempDir())
		cfg.Plateaus = []int{2}
		cfg.Simulate = map[string]config.SimProfile{
			"default": {LatencyMinMS: 1, LatencyMaxMS: 2, SessionLength: 5, Geo: "de"},
		}
		svc := app.New(cfg)

		convey.Convey("When the run completes", func() {
			res, err := svc.Run(context.Background())

			convey.Convey("Then the direct vendor is probed by the simulated prober", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(len(res.Aggregates), convey.ShouldEqual, 1)
				convey.So(res.Aggregates[0].Vendor, convey.ShouldEqual, registry.DefaultVendor)
				convey.So(len(res.Events), convey.ShouldBeGreaterThan, 0)
				for _, ev := range res.Events {
					convey.So(ev.SessionID, convey.ShouldNotBeNil)
					convey.So(*ev.Concurrency, convey.ShouldEqual, 2)
				}
			})

			convey.Convey("Then the configured exit region shows up as geo mismatches", func() {
				g := res.Aggregates[0].Geo
				convey.So(g.Compared, convey.ShouldEqual, len(res.Events))
				convey.So(g.MatchRate.Known, convey.ShouldBeTrue)
				convey.So(g.MatchRate.V, convey.ShouldEqual, 0.0)
			})
		})
	})
}

func TestServiceServeReport(t *testing.T) {
	convey.Convey("Given a service serving HTTP on an ephemeral port", t, func() {
		dir := t.TempDir()
		cfg := testConfig(dir)
		cfg.MetricsAddr = "127.0.0.1:0"
		cfg.VendorsFile = writeFile(dir, "vendors.json", `[{"name":"direct"},{"name":"p1"}]`)
		svc := app.New(cfg, app.WithProber(probe.Func(steady)))

		ctx, cancel := context.WithCancel(context.Background())
		ready := make(chan string, 1)
		served := make(chan error, 1)
		go func() { served <- svc.Serve(ctx, ready) }()
		addr := <-ready
		client := &http.Client{Timeout: 2 * time.Second}

		getReport := func() (int, map[string]any) {
			resp, err := client.Get("http://" + addr + "/report")
			convey.So(err, convey.ShouldBeNil)
			defer func() { _ = resp.Body.Close() }()
			var body map[string]any
			_ = json.NewDecoder(resp.Body).Decode(&body)
			return resp.StatusCode, body
		}

		convey.Convey("When no run has finished yet", func() {
			code, _ := getReport()
			convey.So(code, convey.ShouldEqual, http.StatusNotFound)
		})

		convey.Convey("When a run finishes", func() {
			res, err := svc.Run(context.Background())
			convey.So(err, convey.ShouldBeNil)

			convey.Convey("Then the listener still serves that run's report", func() {
				code, body := getReport()
				convey.So(code, convey.ShouldEqual, http.StatusOK)
				convey.So(body["runId"], convey.ShouldEqual, res.RunID)
				decisions, ok := body["decisions"].([]any)
				convey.So(ok, convey.ShouldBeTrue)
				convey.So(len(decisions), convey.ShouldEqual, 2)
			})
		})

		convey.Reset(func() {
			cancel()
			convey.So(<-served, convey.ShouldBeNil)
		})
	})

	convey.Convey("Given a service without a listen address", t, func() {
		err := app.New(testConfig(t.TempDir())).Serve(context.Background(), nil)
		convey.So(errors.Is(err, app.ErrNoListener), convey.ShouldBeTrue)
	})
}
