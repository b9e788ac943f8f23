// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Load layers defaults, an optional YAML file and SCORECARD_ env vars.
// - Validation failures wrap ErrInvalidConfig.
package config

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log encoding: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// DBDriver names the database/sql driver: "sqlite" (pure Go) or "sqlite3" (cgo).
	DBDriver string `koanf:"db_driver"`

	// DBDSN is the data source name handed to the driver.
	DBDSN string `koanf:"db_dsn"`

	// RecomputeQueueSize bounds the in-memory recompute queue.
	RecomputeQueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of recompute workers.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize bounds the idempotency key cache.
	DedupeSize int `koanf:"dedupe_size"`

	// SelectionThreshold is the average score at or above which a candidate
	// is suggested for final selection.
	SelectionThreshold float64 `koanf:"selection_threshold"`

	// DefaultMainCategory and DefaultSubCategory replace absent candidate categories.
	DefaultMainCategory string `koanf:"default_main_category"`
	DefaultSubCategory  string `koanf:"default_sub_category"`

	// MaxResultsLimit caps GET /leaderboard?limit.
	MaxResultsLimit int `koanf:"max_results_limit"`

	// AdminToken guards admin routes. Empty disables the check.
	AdminToken string `koanf:"admin_token"`

	// AccessCodeSalt and AccessCodeMinLength shape evaluator access codes.
	AccessCodeSalt      string `koanf:"access_code_salt"`
	AccessCodeMinLength int    `koanf:"access_code_min_length"`

	// SnapshotIntervalMS is the period of the background results refresh.
	SnapshotIntervalMS int `koanf:"snapshot_interval_ms"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:            "info",
		LogFormat:           "text",
		Addr:                ":9080",
		DBDriver:            "sqlite",
		DBDSN:               "file:scorecard.db?_pragma=foreign_keys(1)",
		RecomputeQueueSize:  1024,
		WorkerCount:         2,
		DedupeSize:          50_000,
		SelectionThreshold:  70,
		DefaultMainCategory: "신규",
		DefaultSubCategory:  "일시동행",
		MaxResultsLimit:     500,
		AccessCodeSalt:      "scorecard evaluator access codes",
		AccessCodeMinLength: 6,
		SnapshotIntervalMS:  30_000,
	}
}
