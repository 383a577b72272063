// Package config defines tool configuration and its loading order.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Layer file and environment overrides on top via Load.
// - External errors are wrapped with this package's sentinels.
package config

// Config contains process configuration for the hubcal tool.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// StorePath is the calibration document location. Relative paths are
	// resolved against the working directory.
	StorePath string `koanf:"store_path"`

	// ScanTimeoutMS bounds a single device scan.
	ScanTimeoutMS int `koanf:"scan_timeout_ms"`

	// StepAttempts bounds retries within one calibration step.
	StepAttempts int `koanf:"step_attempts"`

	// PollIntervalMS sets the monitor poll period.
	PollIntervalMS int `koanf:"poll_interval_ms"`

	// MetricsAddr exposes /metrics while monitoring when non-empty,
	// e.g. ":9097". Empty disables the endpoint.
	MetricsAddr string `koanf:"metrics_addr"`

	// HubVendorID filters hub controllers to the target chip's vendor,
	// e.g. "VID_2109".
	HubVendorID string `koanf:"hub_vendor_id"`

	// PortCount is the number of physical ports on the hub, at most 7.
	PortCount int `koanf:"port_count"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:       "info",
		StorePath:      "hub_calibration.json",
		ScanTimeoutMS:  10_000,
		StepAttempts:   3,
		PollIntervalMS: 2_000,
		MetricsAddr:    "",
		HubVendorID:    "VID_2109",
		PortCount:      7,
	}
}
