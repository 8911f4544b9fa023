package model_test

import (
	"math"
	"testing"

	model "github.com/okian/pathbench/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestDuration(t *testing.T) {
	convey.Convey("Given two navigation marks", t, func() {
		convey.Convey("When both are present and ordered", func() {
			d := model.Duration(model.Ptr(10.0), model.Ptr(35.5))

			convey.Convey("Then the duration is their difference", func() {
				convey.So(d, convey.ShouldNotBeNil)
				convey.So(*d, convey.ShouldEqual, 25.5)
			})
		})

		convey.Convey("When the end precedes the start", func() {
			convey.Convey("Then the duration is absent, never negative", func() {
				convey.So(model.Duration(model.Ptr(40.0), model.Ptr(10.0)), convey.ShouldBeNil)
			})
		})

		convey.Convey("When either mark is missing", func() {
			convey.Convey("Then the duration is absent", func() {
				convey.So(model.Duration(nil, model.Ptr(10.0)), convey.ShouldBeNil)
				convey.So(model.Duration(model.Ptr(10.0), nil), convey.ShouldBeNil)
			})
		})

		convey.Convey("When the marks are equal", func() {
			d := model.Duration(model.Ptr(7.0), model.Ptr(7.0))

			convey.Convey("Then a zero duration is kept", func() {
				convey.So(d, convey.ShouldNotBeNil)
				convey.So(*d, convey.ShouldEqual, 0)
			})
		})
	})
}

func TestTimings(t *testing.T) {
	convey.Convey("Given an empty Timings", t, func() {
		var tm model.Timings

		convey.Convey("When setting every stage", func() {
			for i, s := range model.Stages {
				tm.Set(s, model.Ptr(float64(i+1)))
			}

			convey.Convey("Then Get returns what was set", func() {
				for i, s := range model.Stages {
					convey.So(*tm.Get(s), convey.ShouldEqual, float64(i+1))
				}
			})
		})

		convey.Convey("When setting invalid durations", func() {
			tm.Set(model.StageDNS, model.Ptr(-1.0))
			tm.Set(model.StageTLS, model.Ptr(math.NaN()))
			tm.Set(model.StageTotal, model.Ptr(math.Inf(1)))

			convey.Convey("Then the stages stay absent", func() {
				convey.So(tm.DNS, convey.ShouldBeNil)
				convey.So(tm.TLS, convey.ShouldBeNil)
				convey.So(tm.Total, convey.ShouldBeNil)
			})
		})

		convey.Convey("When asking for an unknown stage", func() {
			convey.So(tm.Get(model.Stage("bogus")), convey.ShouldBeNil)
		})
	})
}

func TestProbeEvent(t *testing.T) {
	convey.Convey("Given probe events", t, func() {
		convey.Convey("When the event succeeded", func() {
			ev := model.ProbeEvent{Vendor: "direct", OK: true}

			convey.Convey("Then its reason is the success key", func() {
				convey.So(ev.Reason(), convey.ShouldEqual, model.SuccessKey)
			})
		})

		convey.Convey("When the event failed with a reason", func() {
			ev := model.ProbeEvent{Vendor: "p1", FailureReason: model.Ptr("timeout")}

			convey.Convey("Then its reason is the tag", func() {
				convey.So(ev.Reason(), convey.ShouldEqual, "timeout")
			})
		})

		convey.Convey("When grouping by sticky key", func() {
			withSession := model.ProbeEvent{SessionID: model.Ptr("s1"), ObservedIP: model.Ptr("1.2.3.4")}
			withIP := model.ProbeEvent{ObservedIP: model.Ptr("1.2.3.4")}
			bare := model.ProbeEvent{SessionID: model.Ptr("")}

			convey.Convey("Then session id wins and ip is the fallback", func() {
				k, ok := withSession.StickyKey()
				convey.So(ok, convey.ShouldBeTrue)
				convey.So(k, convey.ShouldEqual, "session:s1")

				k, ok = withIP.StickyKey()
				convey.So(ok, convey.ShouldBeTrue)
				convey.So(k, convey.ShouldEqual, "ip:1.2.3.4")

				_, ok = bare.StickyKey()
				convey.So(ok, convey.ShouldBeFalse)
			})
		})
	})
}
