// Package config provides file, environment, and flag configuration for clonepulse.
package config

import (
	"errors"
	"log/slog"
)

// Config is the top-level configuration struct for clonepulse.
// Field tags use mapstructure for viper unmarshalling.
type Config struct {
	Dataset DatasetConfig `mapstructure:"dataset"`
	GitHub  GitHubConfig  `mapstructure:"github"`
	Report  ReportConfig  `mapstructure:"report"`
	Log     LogConfig     `mapstructure:"log"`
	OTel    OTelConfig    `mapstructure:"otel"`
}

// DatasetConfig holds the persisted dataset and badge artifact locations.
type DatasetConfig struct {
	// Path is the dataset JSON file. Its directory also receives the
	// rotating compressed backup of the previous snapshot.
	Path string `mapstructure:"path"`

	// BadgeDir receives badge_clones.json and milestone_badge.json.
	BadgeDir string `mapstructure:"badge_dir"`

	// Backup controls whether the previous snapshot is kept as <path>.prev.lz4.
	Backup bool `mapstructure:"backup"`
}

// GitHubConfig holds the traffic API source settings.
type GitHubConfig struct {
	User       string `mapstructure:"user"`
	Repo       string `mapstructure:"repo"`
	APIBase    string `mapstructure:"api_base"`
	TimeoutSec int    `mapstructure:"timeout_sec"`
}

// ReportConfig holds reporting defaults overridable per invocation.
type ReportConfig struct {
	Weeks  int    `mapstructure:"weeks"`
	Output string `mapstructure:"output"`
}

// LogConfig holds structured logging settings.
type LogConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

// OTelConfig holds OpenTelemetry export settings.
// An empty endpoint disables export entirely.
type OTelConfig struct {
	Endpoint    string  `mapstructure:"endpoint"`
	Headers     string  `mapstructure:"headers"`
	Insecure    bool    `mapstructure:"insecure"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
	Environment string  `mapstructure:"environment"`
}

// sampleRatioMax is the upper bound for the trace sampling ratio.
const sampleRatioMax = 1.0

// Sentinel errors for configuration validation.
var (
	// ErrMissingDatasetPath indicates the dataset path is empty.
	ErrMissingDatasetPath = errors.New("dataset.path must not be empty")
	// ErrMissingBadgeDir indicates the badge directory is empty.
	ErrMissingBadgeDir = errors.New("dataset.badge_dir must not be empty")
	// ErrMissingReportOutput indicates the report output path is empty.
	ErrMissingReportOutput = errors.New("report.output must not be empty")
	// ErrInvalidReportWeeks indicates the default weeks value is negative.
	ErrInvalidReportWeeks = errors.New("report.weeks must be non-negative")
	// ErrInvalidTimeout indicates the HTTP timeout is negative.
	ErrInvalidTimeout = errors.New("github.timeout_sec must be non-negative")
	// ErrInvalidSampleRatio indicates the sampling ratio is out of range.
	ErrInvalidSampleRatio = errors.New("otel.sample_ratio must be between 0 and 1")
	// ErrInvalidLogLevel indicates an unknown log level name.
	ErrInvalidLogLevel = errors.New("log.level must be one of debug, info, warn, error")
)

// Validate checks Config invariants and returns the first error found.
func (c *Config) Validate() error {
	if c.Dataset.Path == "" {
		return ErrMissingDatasetPath
	}

	if c.Dataset.BadgeDir == "" {
		return ErrMissingBadgeDir
	}

	if c.Report.Output == "" {
		return ErrMissingReportOutput
	}

	if c.Report.Weeks < 0 {
		return ErrInvalidReportWeeks
	}

	if c.GitHub.TimeoutSec < 0 {
		return ErrInvalidTimeout
	}

	if c.OTel.SampleRatio < 0 || c.OTel.SampleRatio > sampleRatioMax {
		return ErrInvalidSampleRatio
	}

	_, levelErr := c.Log.SlogLevel()

	return levelErr
}

// SlogLevel maps the configured level name to a slog.Level.
func (l LogConfig) SlogLevel() (slog.Level, error) {
	switch l.Level {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, ErrInvalidLogLevel
	}
}
