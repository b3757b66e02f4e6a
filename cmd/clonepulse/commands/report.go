package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/clonepulse/clonepulse/internal/config"
	"github.com/clonepulse/clonepulse/internal/dataset"
	"github.com/clonepulse/clonepulse/internal/observability"
	"github.com/clonepulse/clonepulse/internal/report"
	"github.com/clonepulse/clonepulse/internal/weekly"
)

// Console summary formats.
const (
	// FormatTable renders the selected buckets as an aligned table.
	FormatTable = "table"
	// FormatJSON renders the selected buckets as indented JSON.
	FormatJSON = "json"
	// FormatYAML renders the selected buckets as YAML.
	FormatYAML = "yaml"
)

// ErrUnknownFormat indicates an unsupported console summary format.
var ErrUnknownFormat = errors.New("unknown format")

// reportExecutor runs the reporting pipeline. Swapped in tests.
type reportExecutor func(
	ctx context.Context,
	cfg *config.Config,
	output string,
	opts weekly.Options,
	pv observability.Providers,
) (*report.Result, error)

// ReportCommand holds configuration and dependencies for the report command.
type ReportCommand struct {
	commonOptions

	year   string
	start  string
	weeks  int
	output string
	format string

	exec    reportExecutor
	obsInit observabilityInit
}

// NewReportCommand creates the report command.
func NewReportCommand() *cobra.Command {
	return newReportCommandWithDeps(runReport, observability.Init)
}

func newReportCommandWithDeps(exec reportExecutor, obsInit observabilityInit) *cobra.Command {
	rc := &ReportCommand{exec: exec, obsInit: obsInit}

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Render the weekly clone dashboard",
		Long: `Aggregate the daily history into Monday-aligned weekly buckets and render
the dashboard chart. Window selection modes, strongest first:

  --year YYYY         one calendar year
  --start YYYY-MM-DD  explicit range of --weeks weeks
  (default)           trailing --weeks weeks`,
		Args: cobra.NoArgs,
		RunE: rc.run,
	}

	cmd.Flags().StringVar(&rc.year, "year", "", "Filter to one calendar year (YYYY)")
	cmd.Flags().StringVar(&rc.start, "start", "", "Window start date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&rc.weeks, "weeks", config.DefaultReportWeeks, "Number of weeks to plot")
	cmd.Flags().StringVar(&rc.output, "output", "", "Dashboard output path (default from config)")
	cmd.Flags().StringVar(&rc.format, "format", FormatTable, "Console summary format: table, json, yaml")
	registerCommonFlags(cmd, &rc.commonOptions)

	return cmd
}

func (rc *ReportCommand) run(cmd *cobra.Command, _ []string) error {
	if rc.weeks < 0 {
		return fmt.Errorf("%w: got %d", weekly.ErrNegativeWeeks, rc.weeks)
	}

	if !isKnownFormat(rc.format) {
		return fmt.Errorf("%w: %s (use table, json, or yaml)", ErrUnknownFormat, rc.format)
	}

	cfg, err := rc.loadConfig(cmd)
	if err != nil {
		return err
	}

	weeks := rc.weeks
	if !cmd.Flags().Changed("weeks") {
		weeks = cfg.Report.Weeks
	}

	output := rc.output
	if output == "" {
		output = cfg.Report.Output
	}

	pv, err := buildProviders(rc.obsInit, cfg, observability.ModeReport)
	if err != nil {
		return err
	}
	defer shutdownProviders(pv)

	opts := weekly.Options{Year: rc.year, Start: rc.start, Weeks: weeks}

	result, err := rc.exec(cmd.Context(), cfg, output, opts, pv)
	if err != nil {
		return err
	}

	return printReportSummary(cmd.OutOrStdout(), rc.format, result)
}

func isKnownFormat(format string) bool {
	switch format {
	case FormatTable, FormatJSON, FormatYAML:
		return true
	}

	return false
}

// runReport wires the real collaborators and executes the pipeline.
func runReport(
	ctx context.Context,
	cfg *config.Config,
	output string,
	opts weekly.Options,
	pv observability.Providers,
) (*report.Result, error) {
	metrics, err := observability.NewPipelineMetrics(pv.Meter)
	if err != nil {
		return nil, err
	}

	pipe := report.New(report.Config{
		Store:   dataset.NewStore(cfg.Dataset.Path, cfg.Dataset.Backup, pv.Logger),
		Output:  output,
		Logger:  pv.Logger,
		Metrics: metrics,
		Tracer:  pv.Tracer,
	})

	return pipe.Run(ctx, opts)
}

// bucketRow is the console-facing view of one weekly bucket.
type bucketRow struct {
	Week       string  `json:"week"        yaml:"week"`
	ReportDate string  `json:"report_date" yaml:"report_date"`
	Clones     int     `json:"clones"      yaml:"clones"`
	ClonesAvg  float64 `json:"clones_avg"  yaml:"clones_avg"`
	Uniques    int     `json:"uniques"     yaml:"uniques"`
	UniquesAvg float64 `json:"uniques_avg" yaml:"uniques_avg"`
}

func bucketRows(buckets []weekly.Bucket) []bucketRow {
	rows := make([]bucketRow, 0, len(buckets))

	for _, b := range buckets {
		rows = append(rows, bucketRow{
			Week:       b.WeekStart.Format(dataset.DateLayout),
			ReportDate: b.ReportDate.Format(dataset.DateLayout),
			Clones:     b.Count,
			ClonesAvg:  b.CountAvg,
			Uniques:    b.Uniques,
			UniquesAvg: b.UniquesAvg,
		})
	}

	return rows
}

// printReportSummary writes the console summary. The json and yaml formats
// emit only the machine-readable bucket rows; table mode adds the
// human-facing lines around them.
func printReportSummary(w io.Writer, format string, result *report.Result) error {
	rows := bucketRows(result.Window.Buckets)

	switch format {
	case FormatJSON:
		return encodeJSON(w, rows)
	case FormatYAML:
		return encodeYAML(w, rows)
	}

	if !result.Charted() {
		fmt.Fprintln(w, result.Placeholder)
		fmt.Fprintf(w, "Placeholder written to %s\n", result.Output)

		return nil
	}

	printBucketTable(w, rows)

	latest := result.Window.Buckets[len(result.Window.Buckets)-1]
	fmt.Fprintf(w, "Latest week: %s → %s (reported on %s)\n",
		latest.WeekStart.Format(dataset.DateLayout),
		latest.WeekStart.AddDate(0, 0, 6).Format(dataset.DateLayout),
		latest.ReportDate.Format(dataset.DateLayout))

	if len(result.Annotations) > 0 {
		fmt.Fprintf(w, "Annotations plotted: %d\n", len(result.Annotations))
	}

	color.New(color.FgGreen).Fprintf(w, "Dashboard written to %s\n", result.Output)

	return nil
}

func printBucketTable(w io.Writer, rows []bucketRow) {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.SeparateRows = false
	tbl.Style().Options.SeparateColumns = false
	tbl.Style().Options.DrawBorder = false
	tbl.AppendHeader(table.Row{"Week", "Reported", "Clones", "Clones (3w avg)", "Uniques", "Uniques (3w avg)"})

	for _, row := range rows {
		tbl.AppendRow(table.Row{
			row.Week,
			row.ReportDate,
			row.Clones,
			fmt.Sprintf("%.2f", row.ClonesAvg),
			row.Uniques,
			fmt.Sprintf("%.2f", row.UniquesAvg),
		})
	}

	fmt.Fprintln(w, tbl.Render())
}

func encodeJSON(w io.Writer, rows []bucketRow) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	err := enc.Encode(rows)
	if err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}

	return nil
}

func encodeYAML(w io.Writer, rows []bucketRow) error {
	data, err := yaml.Marshal(rows)
	if err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}

	_, writeErr := w.Write(data)
	if writeErr != nil {
		return fmt.Errorf("write summary: %w", writeErr)
	}

	return nil
}
