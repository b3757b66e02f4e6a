package config_test

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clonepulse/clonepulse/internal/config"
)

func validConfig() config.Config {
	return config.Config{
		Dataset: config.DatasetConfig{
			Path:     config.DefaultDatasetPath,
			BadgeDir: config.DefaultBadgeDir,
		},
		Report: config.ReportConfig{
			Weeks:  config.DefaultReportWeeks,
			Output: config.DefaultReportOutput,
		},
	}
}

func TestValidate_Defaults(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	require.NoError(t, cfg.Validate())
}

func TestValidate_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr error
	}{
		{
			name:    "empty dataset path",
			mutate:  func(c *config.Config) { c.Dataset.Path = "" },
			wantErr: config.ErrMissingDatasetPath,
		},
		{
			name:    "empty badge dir",
			mutate:  func(c *config.Config) { c.Dataset.BadgeDir = "" },
			wantErr: config.ErrMissingBadgeDir,
		},
		{
			name:    "empty report output",
			mutate:  func(c *config.Config) { c.Report.Output = "" },
			wantErr: config.ErrMissingReportOutput,
		},
		{
			name:    "negative weeks",
			mutate:  func(c *config.Config) { c.Report.Weeks = -3 },
			wantErr: config.ErrInvalidReportWeeks,
		},
		{
			name:    "negative timeout",
			mutate:  func(c *config.Config) { c.GitHub.TimeoutSec = -1 },
			wantErr: config.ErrInvalidTimeout,
		},
		{
			name:    "sample ratio above one",
			mutate:  func(c *config.Config) { c.OTel.SampleRatio = 1.5 },
			wantErr: config.ErrInvalidSampleRatio,
		},
		{
			name:    "unknown log level",
			mutate:  func(c *config.Config) { c.Log.Level = "loud" },
			wantErr: config.ErrInvalidLogLevel,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := validConfig()
			tt.mutate(&cfg)

			assert.ErrorIs(t, cfg.Validate(), tt.wantErr)
		})
	}
}

func TestSlogLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		level string
		want  slog.Level
	}{
		{"debug", "debug", slog.LevelDebug},
		{"info", "info", slog.LevelInfo},
		{"empty defaults to info", "", slog.LevelInfo},
		{"warn", "warn", slog.LevelWarn},
		{"error", "error", slog.LevelError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := config.LogConfig{Level: tt.level}.SlogLevel()
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
