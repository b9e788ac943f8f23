package config_test

import (
	"testing"

	"github.com/okian/scorecard/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.DBDriver, convey.ShouldEqual, "sqlite")
			convey.So(cfg.RecomputeQueueSize, convey.ShouldEqual, 1024)
			convey.So(cfg.WorkerCount, convey.ShouldEqual, 2)
			convey.So(cfg.SelectionThreshold, convey.ShouldEqual, 70)
			convey.So(cfg.DefaultMainCategory, convey.ShouldEqual, "신규")
			convey.So(cfg.DefaultSubCategory, convey.ShouldEqual, "일시동행")
			convey.So(cfg.AdminToken, convey.ShouldBeEmpty)
		})

		convey.Convey("And the defaults should validate", func() {
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}
