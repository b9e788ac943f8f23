package config_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/okian/scorecard/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()
		defer clearConfigEnvVars()

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 2)
				convey.So(cfg.SelectionThreshold, convey.ShouldEqual, 70)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("SCORECARD_ADDR", ":8080")
			_ = os.Setenv("SCORECARD_QUEUE_SIZE", "64")
			_ = os.Setenv("SCORECARD_WORKER_COUNT", "4")
			_ = os.Setenv("SCORECARD_SELECTION_THRESHOLD", "75.5")
			_ = os.Setenv("SCORECARD_ADMIN_TOKEN", "s3cret")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.RecomputeQueueSize, convey.ShouldEqual, 64)
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 4)
				convey.So(cfg.SelectionThreshold, convey.ShouldEqual, 75.5)
				convey.So(cfg.AdminToken, convey.ShouldEqual, "s3cret")
			})
		})

		convey.Convey("When loading config with YAML file", func() {
			tmpFile := createTempConfigFile(`
addr: ":9090"
db_driver: sqlite3
db_dsn: "file:test.db"
default_main_category: "기존"
max_results_limit: 50
`)
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("SCORECARD_CONFIG", tmpFile)

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load from YAML file and keep other defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.DBDriver, convey.ShouldEqual, "sqlite3")
				convey.So(cfg.DBDSN, convey.ShouldEqual, "file:test.db")
				convey.So(cfg.DefaultMainCategory, convey.ShouldEqual, "기존")
				convey.So(cfg.DefaultSubCategory, convey.ShouldEqual, "일시동행")
				convey.So(cfg.MaxResultsLimit, convey.ShouldEqual, 50)
			})
		})

		convey.Convey("When file and environment variables are both set", func() {
			tmpFile := createTempConfigFile(`
addr: ":9090"
worker_count: 8
`)
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("SCORECARD_CONFIG", tmpFile)
			_ = os.Setenv("SCORECARD_WORKER_COUNT", "3")

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables should win", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 3)
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			tmpFile := createTempConfigFile(`invalid: yaml: content: [`)
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("SCORECARD_CONFIG", tmpFile)

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			_ = os.Setenv("SCORECARD_CONFIG", "/non/existent/file.yaml")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with empty addr", func() {
			_ = os.Setenv("SCORECARD_ADDR", "")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "addr must not be empty")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When the driver is unknown", func() {
			_ = os.Setenv("SCORECARD_DB_DRIVER", "postgres")

			_, err := config.Load(ctx)

			convey.Convey("Then it should be rejected", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the threshold is out of range", func() {
			_ = os.Setenv("SCORECARD_SELECTION_THRESHOLD", "120")

			_, err := config.Load(ctx)

			convey.Convey("Then it should be rejected", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err.Error(), convey.ShouldContainSubstring, "selection_threshold")
			})
		})

		convey.Convey("When a numeric variable is not a number", func() {
			_ = os.Setenv("SCORECARD_WORKER_COUNT", "not_a_number")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})
	})
}

// Helper functions.

func clearConfigEnvVars() {
	envVars := []string{
		"SCORECARD_CONFIG",
		"SCORECARD_ADDR",
		"SCORECARD_QUEUE_SIZE",
		"SCORECARD_WORKER_COUNT",
		"SCORECARD_SELECTION_THRESHOLD",
		"SCORECARD_ADMIN_TOKEN",
		"SCORECARD_DB_DRIVER",
	}
	for _, envVar := range envVars {
		_ = os.Unsetenv(envVar)
	}
}

func createTempConfigFile(content string) string {
	tmpFile, err := os.CreateTemp("", "scorecard-config-*.yaml")
	if err != nil {
		panic(err)
	}

	if _, err := tmpFile.WriteString(content); err != nil {
		panic(err)
	}

	if err := tmpFile.Close(); err != nil {
		panic(err)
	}

	return tmpFile.Name()
}
