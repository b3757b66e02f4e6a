// Package main provides the entry point for the clonepulse CLI tool.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/clonepulse/clonepulse/cmd/clonepulse/commands"
	"github.com/clonepulse/clonepulse/pkg/version"
)

func main() {
	version.InitBinaryVersion()

	rootCmd := &cobra.Command{
		Use:   "clonepulse",
		Short: "ClonePulse - GitHub clone telemetry tracker",
		Long: `ClonePulse tracks GitHub repository clone traffic over time.

Commands:
  fetch     Pull the latest clone counts and merge them into the dataset
  report    Render the weekly clone dashboard`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Add commands.
	rootCmd.AddCommand(commands.NewFetchCommand())
	rootCmd.AddCommand(commands.NewReportCommand())
	rootCmd.AddCommand(versionCmd())

	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Fprintf(os.Stdout, "clonepulse %s (commit: %s, built: %s)\n", version.Version, version.Commit, version.Date)
		},
	}
}
