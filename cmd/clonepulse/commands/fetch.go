package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/clonepulse/clonepulse/internal/badge"
	"github.com/clonepulse/clonepulse/internal/config"
	"github.com/clonepulse/clonepulse/internal/dataset"
	"github.com/clonepulse/clonepulse/internal/github"
	"github.com/clonepulse/clonepulse/internal/ingest"
	"github.com/clonepulse/clonepulse/internal/observability"
)

// Environment fallbacks for the repository coordinates, matching the
// CI workflow contract.
const (
	envGitHubUser = "GITHUB_USER"
	envGitHubRepo = "GITHUB_REPO"
)

// Sentinel errors for the fetch command.
var (
	// ErrMissingUser indicates no GitHub owner was supplied.
	ErrMissingUser = errors.New("github user not set: pass --user or set GITHUB_USER")
	// ErrMissingRepo indicates no GitHub repository was supplied.
	ErrMissingRepo = errors.New("github repository not set: pass --repo or set GITHUB_REPO")
)

// ingestExecutor runs the ingestion pipeline. Swapped in tests.
type ingestExecutor func(
	ctx context.Context,
	cfg *config.Config,
	user, repo string,
	pv observability.Providers,
) (*ingest.Result, error)

// FetchCommand holds configuration and dependencies for the fetch command.
type FetchCommand struct {
	commonOptions

	user string
	repo string

	exec    ingestExecutor
	obsInit observabilityInit
}

// NewFetchCommand creates the fetch command.
func NewFetchCommand() *cobra.Command {
	return newFetchCommandWithDeps(runIngest, observability.Init)
}

func newFetchCommandWithDeps(exec ingestExecutor, obsInit observabilityInit) *cobra.Command {
	fc := &FetchCommand{exec: exec, obsInit: obsInit}

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch clone telemetry and merge it into the dataset",
		Long: `Fetch the GitHub clone traffic snapshot for one repository, merge it into
the persisted dataset, refresh the record marker, and rewrite the badge
artifacts. Requires the TOKEN environment variable.`,
		Args: cobra.NoArgs,
		RunE: fc.run,
	}

	cmd.Flags().StringVar(&fc.user, "user", "", "GitHub repository owner (fallback: GITHUB_USER)")
	cmd.Flags().StringVar(&fc.repo, "repo", "", "GitHub repository name (fallback: GITHUB_REPO)")
	registerCommonFlags(cmd, &fc.commonOptions)

	return cmd
}

func (fc *FetchCommand) run(cmd *cobra.Command, _ []string) error {
	cfg, err := fc.loadConfig(cmd)
	if err != nil {
		return err
	}

	user, repo, err := resolveRepoCoords(fc.user, fc.repo, cfg)
	if err != nil {
		return err
	}

	pv, err := buildProviders(fc.obsInit, cfg, observability.ModeFetch)
	if err != nil {
		return err
	}
	defer shutdownProviders(pv)

	result, err := fc.exec(cmd.Context(), cfg, user, repo, pv)
	if err != nil {
		return err
	}

	printFetchSummary(cmd.OutOrStdout(), user, repo, result)

	return nil
}

// resolveRepoCoords picks the owner and repository from flags, environment,
// and config, in that order, and validates both names.
func resolveRepoCoords(user, repo string, cfg *config.Config) (string, string, error) {
	if user == "" {
		user = os.Getenv(envGitHubUser)
	}

	if user == "" {
		user = cfg.GitHub.User
	}

	if repo == "" {
		repo = os.Getenv(envGitHubRepo)
	}

	if repo == "" {
		repo = cfg.GitHub.Repo
	}

	if user == "" {
		return "", "", ErrMissingUser
	}

	if repo == "" {
		return "", "", ErrMissingRepo
	}

	userErr := github.ValidateName(user, "user")
	if userErr != nil {
		return "", "", userErr
	}

	repoErr := github.ValidateName(repo, "repo")
	if repoErr != nil {
		return "", "", repoErr
	}

	return user, repo, nil
}

// runIngest wires the real collaborators and executes the pipeline.
func runIngest(
	ctx context.Context,
	cfg *config.Config,
	user, repo string,
	pv observability.Providers,
) (*ingest.Result, error) {
	token, err := github.TokenFromEnv()
	if err != nil {
		return nil, err
	}

	client := github.NewClient(token,
		github.WithBaseURL(cfg.GitHub.APIBase),
		github.WithHTTPClient(&http.Client{
			Timeout: time.Duration(cfg.GitHub.TimeoutSec) * time.Second,
		}),
	)

	metrics, err := observability.NewPipelineMetrics(pv.Meter)
	if err != nil {
		return nil, err
	}

	pipe := ingest.New(ingest.Config{
		Source:   client,
		Store:    dataset.NewStore(cfg.Dataset.Path, cfg.Dataset.Backup, pv.Logger),
		BadgeDir: cfg.Dataset.BadgeDir,
		Logger:   pv.Logger,
		Metrics:  metrics,
		Tracer:   pv.Tracer,
	})

	return pipe.Run(ctx, user, repo)
}

// printFetchSummary renders the post-run console summary.
func printFetchSummary(w io.Writer, user, repo string, result *ingest.Result) {
	color.New(color.FgGreen).Fprintf(w, "Fetched clone traffic for %s/%s\n", user, repo)

	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.DrawBorder = false
	tbl.Style().Options.SeparateColumns = false
	tbl.Style().Options.SeparateHeader = false
	tbl.Style().Options.SeparateRows = false

	tbl.AppendRow(table.Row{"Rows fetched", result.Fetched})
	tbl.AppendRow(table.Row{"Rows merged", result.Merged})
	tbl.AppendRow(table.Row{"Rows skipped", result.Skipped})
	tbl.AppendRow(table.Row{"Days tracked", result.Days})
	tbl.AppendRow(table.Row{"Total clones", humanize.Comma(int64(result.TotalClones))})
	tbl.AppendRow(table.Row{"Unique clones", humanize.Comma(int64(result.UniqueClones))})

	fmt.Fprintln(w, tbl.Render())

	color.New(color.FgYellow).Fprintf(w, "Milestone: %s\n", badge.EvaluateMilestone(result.TotalClones).Message)

	if result.Marker != nil {
		fmt.Fprintf(w, "%s on %s\n", result.Marker.Label, result.Marker.Date)
	}
}
