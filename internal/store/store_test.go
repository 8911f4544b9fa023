package store_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/okian/pathbench/internal/domain/aggregate"
	"github.com/okian/pathbench/internal/domain/model"
	"github.com/okian/pathbench/internal/store"
	. "github.com/smartystreets/goconvey/convey"
)

var t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func TestStore(t *testing.T) {
	Convey("Given an empty store", t, func() {
		s := store.New()

		Convey("When many workers append concurrently", func() {
			const workers, perWorker = 50, 40
			var wg sync.WaitGroup
			for w := 0; w < workers; w++ {
				wg.Add(1)
				go func(w int) {
					defer wg.Done()
					for i := 0; i < perWorker; i++ {
						s.Append(model.ProbeEvent{Vendor: "direct", Timestamp: t0.Add(time.Duration(w*perWorker+i) * time.Millisecond)})
					}
				}(w)
			}
			wg.Wait()

			Convey("Then no append is lost", func() {
				So(s.Len(), ShouldEqual, workers*perWorker)
				events := s.Events()
				for i := 1; i < len(events); i++ {
					So(events[i-1].Timestamp.After(events[i].Timestamp), ShouldBeFalse)
				}
			})
		})

		Convey("When events arrive out of order", func() {
			s.Append(model.ProbeEvent{ID: "late", Vendor: "p1", Timestamp: t0.Add(time.Second)})
			s.Append(model.ProbeEvent{ID: "tie-1", Vendor: "direct", Timestamp: t0})
			s.Append(model.ProbeEvent{ID: "tie-2", Vendor: "p1", Timestamp: t0})

			Convey("Then Events sorts stably and ByVendor groups", func() {
				events := s.Events()
				So(events[0].ID, ShouldEqual, "tie-1")
				So(events[1].ID, ShouldEqual, "tie-2")
				So(events[2].ID, ShouldEqual, "late")

				by := s.ByVendor()
				So(len(by["p1"]), ShouldEqual, 2)
				So(by["p1"][0].ID, ShouldEqual, "tie-2")
				So(len(by["direct"]), ShouldEqual, 1)
			})

			Convey("Then the returned slice is a copy", func() {
				events := s.Events()
				events[0].Vendor = "changed"
				So(s.Events()[0].Vendor, ShouldEqual, "direct")
			})
		})
	})
}

func TestSave(t *testing.T) {
	ctx := context.Background()

	Convey("Given the events of a run", t, func() {
		events := []model.ProbeEvent{
			{ID: "e1", Vendor: "direct", OK: true, Timestamp: t0, Query: model.Ptr("q"), TopK: []string{"a", "b"},
				Concurrency: model.Ptr(2), Timings: model.Timings{Total: model.Ptr(120.5)}},
			{ID: "e2", Vendor: "direct", Timestamp: t0.Add(time.Second), FailureReason: model.Ptr("timeout")},
		}
		doc := store.NewDocument("run-1", events)
		doc.Baseline = "direct"
		doc.Aggregates = aggregate.AggregateAll(events, "direct")
		dir := filepath.Join(t.TempDir(), "out")

		Convey("When saving", func() {
			batch, stream, err := store.Save(ctx, dir, &doc, events)
			So(err, ShouldBeNil)

			Convey("Then the batch document carries run metadata and records", func() {
				data, err := os.ReadFile(batch)
				So(err, ShouldBeNil)
				var got map[string]any
				So(json.Unmarshal(data, &got), ShouldBeNil)
				So(got["runId"], ShouldEqual, "run-1")
				results := got["results"].([]any)
				So(len(results), ShouldEqual, 2)
				first := results[0].(map[string]any)
				So(first["conc"], ShouldEqual, 2.0)
				So(first["results"], ShouldResemble, []any{map[string]any{"url": "a"}, map[string]any{"url": "b"}})
				So(results[1].(map[string]any)["blockType"], ShouldEqual, "timeout")
				So(string(data), ShouldContainSubstring, `"latencyRatio": 1`)
			})

			Convey("Then the stream has one short-named record per line", func() {
				data, err := os.ReadFile(stream)
				So(err, ShouldBeNil)
				lines := strings.Split(strings.TrimSpace(string(data)), "\n")
				So(len(lines), ShouldEqual, 2)
				So(lines[0], ShouldContainSubstring, `"q":"q"`)
				So(lines[0], ShouldContainSubstring, `"concurrency":2`)
				So(lines[0], ShouldContainSubstring, `"topK":["a","b"]`)
				So(lines[1], ShouldContainSubstring, `"failureReason":"timeout"`)
			})
		})

		Convey("When there is nothing to save", func() {
			_, _, err := store.Save(ctx, dir, &doc, nil)
			So(errors.Is(err, store.ErrNoEvents), ShouldBeTrue)
		})

		Convey("When the directory cannot be created", func() {
			blocker := filepath.Join(t.TempDir(), "file")
			So(os.WriteFile(blocker, nil, 0o600), ShouldBeNil)
			_, _, err := store.Save(ctx, filepath.Join(blocker, "sub"), &doc, events)
			So(errors.Is(err, store.ErrWriteStore), ShouldBeTrue)
		})
	})

	Convey("Given unknown aggregate values", t, func() {
		var buf bytes.Buffer
		doc := store.NewDocument("run-2", nil)
		doc.Aggregates = []aggregate.VendorMetrics{{Vendor: "p1"}}
		So(store.WriteBatch(&buf, &doc), ShouldBeNil)

		Convey("Then they are written as null", func() {
			So(buf.String(), ShouldContainSubstring, `"latencyRatio": null`)
		})
	})
}
