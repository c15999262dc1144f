// Package main provides the entry point for the proscan CLI.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/proscan/pkg/version"
)

// exitCodeFailure is the exit code for ordinary command failures.
const exitCodeFailure = 1

// ExitError carries a specific process exit code out of a command.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string { return e.Err.Error() }

func (e *ExitError) Unwrap() error { return e.Err }

func main() {
	version.InitBinaryVersion()

	err := newRootCommand().Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}

	return exitCodeFailure
}

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	verbose    bool
	noColor    bool
}

func newRootCommand() *cobra.Command {
	gf := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "proscan",
		Short: "Real-time barcode inspection: decode, grade and deduplicate scans",
		Long: `proscan decodes 1D and 2D barcodes in camera frames, grades print quality
A to F from blur, contrast and edge integrity, suppresses repeated reads of
the same code within a time window, and keeps running pass/fail statistics.

Commands:
  scan      Inspect frames from image files or directories
  validate  Check scan records against the record schema
  metrics   List the print-quality metrics and their defect thresholds`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&gf.configPath, "config", "", "config file (default is ./.proscan.yaml or $HOME/.proscan.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&gf.verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&gf.noColor, "no-color", false, "disable colored output")

	rootCmd.AddCommand(newScanCommand(gf))
	rootCmd.AddCommand(newValidateCommand(gf))
	rootCmd.AddCommand(newMetricsCommand(gf))
	rootCmd.AddCommand(versionCmd())

	return rootCmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	}
}
