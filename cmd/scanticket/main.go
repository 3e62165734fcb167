package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	internalerrors "github.com/rcourtman/scanticket/internal/errors"
)

// Version information (set at build time with -ldflags)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// execute runs the CLI and maps the outcome to the process exit code.
func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		if _, ok := internalerrors.KindOf(err); !ok {
			// Flag parsing and other cobra errors are usage problems.
			return internalerrors.ExitConfiguration
		}
		return internalerrors.ExitCode(err)
	}
	return internalerrors.ExitOK
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "scanticket",
		Short: "Create Jira tickets from ZAP and Snyk scan reports",
		Long: `scanticket reads a ZAP or Snyk JSON report, normalises its findings and creates
one Jira ticket per new finding, skipping findings that already have an open ticket.

Every flag can also be supplied as a GitHub Actions input (INPUT_<FLAG>) or as an
environment variable (FLAG_WITH_UNDERSCORES), optionally loaded from a .env file.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(cmd, stderr)
		},
	}
	bindRunFlags(rootCmd)

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Process a scan report (default command)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(cmd, stderr)
		},
	}
	bindRunFlags(runCmd)

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(stdout, "scanticket %s\n", Version)
			if BuildTime != "unknown" {
				fmt.Fprintf(stdout, "Built: %s\n", BuildTime)
			}
			if GitCommit != "unknown" {
				fmt.Fprintf(stdout, "Commit: %s\n", GitCommit)
			}
		},
	}

	rootCmd.AddCommand(runCmd, versionCmd)
	return rootCmd
}
