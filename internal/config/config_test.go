package config_test

import (
	"context"
	"testing"
	"time"

	"github.com/okian/pathbench/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New(context.Background())

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.LogLevel, convey.ShouldEqual, "info")
			convey.So(cfg.Plateaus, convey.ShouldResemble, []int{1, 4, 8})
			convey.So(cfg.PlateauDuration, convey.ShouldEqual, 30*time.Second)
			convey.So(cfg.Baseline, convey.ShouldEqual, "direct")
			convey.So(cfg.TopK, convey.ShouldEqual, 10)
			convey.So(cfg.MinSamples, convey.ShouldEqual, 0)
			convey.So(cfg.StrictUnknowns, convey.ShouldBeFalse)
			convey.So(cfg.Simulate, convey.ShouldContainKey, "default")
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}
