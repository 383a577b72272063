package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/velat/hubcal/internal/config"
	. "github.com/smartystreets/goconvey/convey"
)

func TestLoad(t *testing.T) {
	Convey("Given a clean environment", t, func() {
		t.Setenv("HUBCAL_CONFIG", "")

		Convey("When loading without overrides", func() {
			cfg, err := config.Load()

			Convey("Then defaults apply", func() {
				So(err, ShouldBeNil)
				So(cfg.StorePath, ShouldEqual, "hub_calibration.json")
				So(cfg.ScanTimeoutMS, ShouldEqual, 10_000)
				So(cfg.StepAttempts, ShouldEqual, 3)
				So(cfg.PollIntervalMS, ShouldEqual, 2_000)
				So(cfg.HubVendorID, ShouldEqual, "VID_2109")
				So(cfg.PortCount, ShouldEqual, 7)
			})
		})

		Convey("When env vars override defaults", func() {
			t.Setenv("HUBCAL_LOG_LEVEL", "debug")
			t.Setenv("HUBCAL_SCAN_TIMEOUT_MS", "5000")
			t.Setenv("HUBCAL_METRICS_ADDR", ":9097")
			cfg, err := config.Load()

			Convey("Then the overrides win", func() {
				So(err, ShouldBeNil)
				So(cfg.LogLevel, ShouldEqual, "debug")
				So(cfg.ScanTimeoutMS, ShouldEqual, 5000)
				So(cfg.MetricsAddr, ShouldEqual, ":9097")
			})
		})

		Convey("When a YAML file is provided", func() {
			dir := t.TempDir()
			path := filepath.Join(dir, "hubcal.yaml")
			So(os.WriteFile(path, []byte("store_path: /tmp/cal.json\npoll_interval_ms: 500\n"), 0o600), ShouldBeNil)
			t.Setenv("HUBCAL_CONFIG", path)
			cfg, err := config.Load()

			Convey("Then file values override defaults", func() {
				So(err, ShouldBeNil)
				So(cfg.StorePath, ShouldEqual, "/tmp/cal.json")
				So(cfg.PollIntervalMS, ShouldEqual, 500)
			})

			Convey("And env still overrides the file", func() {
				t.Setenv("HUBCAL_POLL_INTERVAL_MS", "250")
				cfg, err := config.Load()
				So(err, ShouldBeNil)
				So(cfg.PollIntervalMS, ShouldEqual, 250)
			})
		})

		Convey("When the config file is missing", func() {
			t.Setenv("HUBCAL_CONFIG", filepath.Join(t.TempDir(), "nope.yaml"))
			_, err := config.Load()

			Convey("Then loading fails with ErrLoadConfig", func() {
				So(errors.Is(err, config.ErrLoadConfig), ShouldBeTrue)
			})
		})

		Convey("When a value is invalid", func() {
			t.Setenv("HUBCAL_SCAN_TIMEOUT_MS", "0")
			_, err := config.Load()

			Convey("Then validation fails with ErrInvalidConfig", func() {
				So(errors.Is(err, config.ErrInvalidConfig), ShouldBeTrue)
			})
		})

		Convey("When port_count exceeds the supported hub size", func() {
			t.Setenv("HUBCAL_PORT_COUNT", "9")
			_, err := config.Load()

			Convey("Then validation rejects it", func() {
				So(errors.Is(err, config.ErrInvalidConfig), ShouldBeTrue)
			})
		})
	})
}
