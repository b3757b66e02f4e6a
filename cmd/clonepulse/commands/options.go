// Package commands implements CLI command handlers for clonepulse.
package commands

import (
	"context"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/clonepulse/clonepulse/internal/config"
	"github.com/clonepulse/clonepulse/internal/observability"
	"github.com/clonepulse/clonepulse/pkg/version"
)

// observabilityInit builds the telemetry providers for one run. Swapped in
// tests to keep the global OTel state untouched.
type observabilityInit func(observability.Config) (observability.Providers, error)

// commonOptions holds the flags shared by the fetch and report commands.
type commonOptions struct {
	configPath string
	logLevel   string
	logJSON    bool
	noColor    bool
}

// registerCommonFlags wires the shared flags into cmd.
func registerCommonFlags(cmd *cobra.Command, opts *commonOptions) {
	cmd.Flags().StringVar(&opts.configPath, "config", "", "Config file path (default: .clonepulse.yaml in CWD or $HOME)")
	cmd.Flags().StringVar(&opts.logLevel, "log-level", "", "Override log level (debug, info, warn, error)")
	cmd.Flags().BoolVar(&opts.logJSON, "log-json", false, "Force JSON log output")
	cmd.Flags().BoolVar(&opts.noColor, "no-color", false, "Disable colored console output")
}

// loadConfig loads the configuration and applies the shared flag overrides.
func (o *commonOptions) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.LoadConfig(o.configPath)
	if err != nil {
		return nil, err
	}

	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}

	if cmd.Flags().Changed("log-json") {
		cfg.Log.JSON = o.logJSON
	}

	if o.noColor {
		color.NoColor = true //nolint:reassign // intentional override of library global
	}

	return cfg, nil
}

// buildProviders maps the loaded configuration onto the telemetry init.
// Each invocation gets a fresh run ID for log correlation.
func buildProviders(initFn observabilityInit, cfg *config.Config, mode observability.RunMode) (observability.Providers, error) {
	level, err := cfg.Log.SlogLevel()
	if err != nil {
		return observability.Providers{}, err
	}

	obsCfg := observability.DefaultConfig()
	obsCfg.ServiceVersion = version.Version
	obsCfg.Environment = cfg.OTel.Environment
	obsCfg.Mode = mode
	obsCfg.RunID = uuid.NewString()
	obsCfg.OTLPEndpoint = cfg.OTel.Endpoint
	obsCfg.OTLPHeaders = observability.ParseOTLPHeaders(cfg.OTel.Headers)
	obsCfg.OTLPInsecure = cfg.OTel.Insecure
	obsCfg.SampleRatio = cfg.OTel.SampleRatio
	obsCfg.LogLevel = level
	obsCfg.LogJSON = cfg.Log.JSON

	return initFn(obsCfg)
}

// shutdownProviders flushes pending telemetry. A flush failure is worth a
// warning, never a failed run.
func shutdownProviders(pv observability.Providers) {
	err := pv.Shutdown(context.Background())
	if err != nil {
		pv.Logger.Warn("telemetry shutdown incomplete", "err", err)
	}
}
