package main

import (
	"context"
	"io"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/rcourtman/scanticket/internal/config"
	"github.com/rcourtman/scanticket/internal/logging"
	"github.com/rcourtman/scanticket/internal/metrics"
	"github.com/rcourtman/scanticket/internal/pipeline"
	"github.com/rcourtman/scanticket/pkg/jira"
)

const (
	envFileFlag = "env-file"
	pushTimeout = 10 * time.Second
)

func bindRunFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	for _, input := range config.Inputs {
		flags.String(input.Name, "", input.Usage)
	}
	flags.String(envFileFlag, config.DefaultEnvFile, "dotenv file to preload (ignored when the default is missing)")
}

// flagLookup only reports flags the user actually set, so unset flags fall
// through to the environment.
func flagLookup(cmd *cobra.Command) config.Lookup {
	return func(name string) (string, bool) {
		flag := cmd.Flags().Lookup(name)
		if flag == nil || !flag.Changed {
			return "", false
		}
		return flag.Value.String(), true
	}
}

func runScan(cmd *cobra.Command, stderr io.Writer) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	// Baseline logger for configuration errors.
	logger := logging.Init(logging.Config{
		Format:    config.DefaultLogFormat,
		Level:     config.DefaultLogLevel,
		Component: "scanticket",
		Output:    stderr,
	})

	envFile, _ := cmd.Flags().GetString(envFileFlag)
	if err := config.LoadEnvFile(envFile, cmd.Flags().Changed(envFileFlag)); err != nil {
		logger.Error().Err(err).Msg("Failed to load environment file")
		return err
	}

	cfg, err := config.Load(config.Chain(flagLookup(cmd), config.ActionInputs(nil), config.EnvVars(nil)))
	if err != nil {
		logger.Error().Err(err).Msg("Invalid configuration")
		return err
	}

	runID := logging.NewRunID()
	logger = logging.Init(logging.Config{
		Format:    cfg.LogFormat,
		Level:     cfg.LogLevel,
		Component: "scanticket",
		RunID:     runID,
		Output:    stderr,
	})

	client, err := jira.NewClient(cfg.JiraClientConfig())
	if err != nil {
		logger.Error().Err(err).Msg("Failed to create Jira client")
		return err
	}

	logger.Info().
		Str("scan_type", cfg.ScanType).
		Str("report", cfg.ReportPath).
		Str("project", cfg.ProjectKey).
		Stringer("tracker", client).
		Bool("enterprise", client.Enterprise()).
		Bool("dry_run", cfg.DryRun).
		Msg("Starting scan ticket run")

	recorder := metrics.NewRecorder()
	driver := pipeline.New(cfg, client,
		pipeline.WithLogger(logger),
		pipeline.WithMetrics(recorder),
		pipeline.WithRunID(runID),
	)

	summary, runErr := driver.Run(ctx)
	event := logger.Info()
	if runErr != nil {
		event = logger.Error().Err(runErr)
	}
	event.Object("summary", summary).Msg("Scan ticket run finished")

	if logging.IsLevelEnabled(zerolog.DebugLevel) {
		if snapshot, err := recorder.Snapshot(); err != nil {
			logger.Debug().Err(err).Msg("Failed to gather run metrics")
		} else {
			logger.Debug().Interface("metrics", snapshot).Msg("Run metrics")
		}
	}

	if cfg.PushgatewayURL != "" {
		pushCtx, cancel := context.WithTimeout(context.Background(), pushTimeout)
		defer cancel()
		grouping := map[string]string{"project": cfg.ProjectKey, "run_id": runID}
		if err := recorder.Push(pushCtx, cfg.PushgatewayURL, grouping); err != nil {
			logger.Warn().Err(err).Msg("Failed to push run metrics")
		}
	}

	return runErr
}
