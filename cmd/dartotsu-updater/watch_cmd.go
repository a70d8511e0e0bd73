package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/itsmechinmoy/dartotsu-updater/internal/config"
	"github.com/itsmechinmoy/dartotsu-updater/internal/upstream"
	"github.com/itsmechinmoy/dartotsu-updater/internal/utils/logger"
	"github.com/spf13/cobra"
)

// createWatchCommand creates the watch subcommand
func createWatchCommand() *cobra.Command {
	opts := &syncOptions{}
	var commitLogs string

	watchCmd := &cobra.Command{
		Use:   "watch [flags]",
		Short: "Wait for an upstream build and sync it",
		Long: `Watch scans the newest upstream commits for a [build.X] marker. When one
is found it polls the upstream build workflow until it completes and, if it
succeeded, runs sync for that build type.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := opts.apply(cfg); err != nil {
				return err
			}

			parent := cmd.Context()
			if parent == nil {
				parent = context.Background()
			}
			ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
			defer stop()

			return executeWatch(ctx, cmd, newMonitor(cfg), func(ctx context.Context, buildType string) error {
				return runSync(ctx, cmd, cfg, buildType, commitLogs, opts.dryRun)
			})
		},
	}

	opts.addFlags(watchCmd.Flags())
	watchCmd.Flags().StringVar(&commitLogs, "commit-logs", "",
		"Percent-encoded commit logs for the release body")
	return watchCmd
}

// executeWatch detects a build commit, waits for the workflow and calls sync
// when it succeeded. A missing marker, an unreadable commit list or an
// unsuccessful build is not an error.
func executeWatch(ctx context.Context, cmd *cobra.Command, m *upstream.Monitor, sync func(context.Context, string) error) error {
	log := logger.Logger()

	buildType, ok, err := m.DetectBuild(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return err
		}
		log.Errorf("Error fetching commits: %v", err)
	}
	if err != nil || !ok {
		log.Info("No matching build commit found.")
		fmt.Fprintln(cmd.OutOrStdout(), "no build commit found")
		return nil
	}
	log.Infof("Found build commit with type: %s", buildType)

	result, err := m.WaitForWorkflow(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return err
		}
		log.Errorf("%v", err)
		return nil
	}
	if result == upstream.Succeeded {
		return sync(ctx, buildType)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "build %s %s, not syncing\n", buildType, result)
	return nil
}

func newMonitor(cfg *config.GlobalConfig) *upstream.Monitor {
	return &upstream.Monitor{
		API:           newUpstreamAPI(cfg),
		Repo:          cfg.Upstream.Repo,
		Workflow:      cfg.Upstream.Workflow,
		Markers:       cfg.Upstream.Markers,
		CommitsToScan: cfg.Upstream.CommitsToScan,
		PollInterval:  cfg.Watch.PollInterval,
		MaxAttempts:   cfg.Watch.MaxAttempts,
	}
}
