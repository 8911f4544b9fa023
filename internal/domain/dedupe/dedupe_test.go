package dedupe_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	dedupe "github.com/okian/pathbench/internal/domain/dedupe"
	"github.com/okian/pathbench/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestInMemoryDeduper(t *testing.T) {
	ctx := context.Background()

	Convey("Given a new InMemoryDeduper", t, func() {
		Convey("When recording events", func() {
			d := dedupe.NewInMemoryDeduper()

			Convey("And the event is new", func() {
				seen := d.SeenAndRecord(ctx, "event-1")

				Convey("Then it should return false and record the event", func() {
					So(seen, ShouldBeFalse)
					So(d.Size(), ShouldEqual, 1)
				})
			})

			Convey("And the event was already seen", func() {
				d.SeenAndRecord(ctx, "event-1")
				seen := d.SeenAndRecord(ctx, "event-1")

				Convey("Then it should return true", func() {
					So(seen, ShouldBeTrue)
					So(d.Size(), ShouldEqual, 1)
				})
			})
		})

		Convey("When the deduper is bounded", func() {
			d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(3))
			for i := 0; i < 5; i++ {
				d.SeenAndRecord(ctx, fmt.Sprintf("event-%d", i))
			}

			Convey("Then the oldest ids are evicted first", func() {
				So(d.Size(), ShouldEqual, 3)
				So(d.SeenAndRecord(ctx, "event-4"), ShouldBeTrue)
				So(d.SeenAndRecord(ctx, "event-2"), ShouldBeTrue)
				So(d.SeenAndRecord(ctx, "event-0"), ShouldBeFalse)
			})
		})

		Convey("When many goroutines record the same ids", func() {
			d := dedupe.NewInMemoryDeduper()
			var wg sync.WaitGroup
			var mu sync.Mutex
			fresh := 0
			for g := 0; g < 8; g++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					for i := 0; i < 100; i++ {
						if !d.SeenAndRecord(ctx, fmt.Sprintf("event-%d", i)) {
							mu.Lock()
							fresh++
							mu.Unlock()
						}
					}
				}()
			}
			wg.Wait()

			Convey("Then each id is new exactly once", func() {
				So(fresh, ShouldEqual, 100)
				So(d.Size(), ShouldEqual, 100)
			})
		})
	})
}

func TestFilter(t *testing.T) {
	Convey("Given events ingested twice", t, func() {
		events := []model.ProbeEvent{
			{ID: "a", Vendor: "direct"},
			{ID: "b", Vendor: "direct"},
			{Vendor: "direct"},
			{ID: "a", Vendor: "direct"},
			{Vendor: "direct"},
		}

		kept, dropped := dedupe.Filter(context.Background(), dedupe.NewInMemoryDeduper(), events)

		Convey("Then repeated ids are dropped and id-less events are kept", func() {
			So(dropped, ShouldEqual, 1)
			So(len(kept), ShouldEqual, 4)
			So(kept[0].ID, ShouldEqual, "a")
			So(kept[1].ID, ShouldEqual, "b")
			So(kept[3].ID, ShouldEqual, "")
		})
	})
}
