package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/itsmechinmoy/dartotsu-updater/internal/config"
	"github.com/itsmechinmoy/dartotsu-updater/internal/pipeline"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// syncOptions are the flags shared by sync and watch.
type syncOptions struct {
	serviceAccount     string
	serviceAccountFile string
	dryRun             bool
}

func (o *syncOptions) addFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.serviceAccount, "service-account", "",
		"Service account key JSON (overrides SERVICE_ACCOUNT_JSON)")
	fs.StringVar(&o.serviceAccountFile, "service-account-file", "",
		"Path to a service account key file (overrides source.serviceAccountFile)")
	fs.BoolVar(&o.dryRun, "dry-run", false,
		"Download and hash only; skip git and release changes")
}

// apply copies the flag overrides into cfg and rejects malformed credentials.
func (o *syncOptions) apply(cfg *config.GlobalConfig) error {
	if o.serviceAccount != "" {
		cfg.ServiceAccountJSON = o.serviceAccount
	}
	if o.serviceAccountFile != "" {
		cfg.Source.ServiceAccountFile = o.serviceAccountFile
	}
	if cfg.ServiceAccountJSON != "" && !json.Valid([]byte(cfg.ServiceAccountJSON)) {
		return fmt.Errorf("service account credentials are not valid JSON")
	}
	return nil
}

// createSyncCommand creates the sync subcommand
func createSyncCommand() *cobra.Command {
	opts := &syncOptions{}

	syncCmd := &cobra.Command{
		Use:   "sync [flags] BUILD_TYPE [COMMIT_LOGS]",
		Short: "Fetch the artifacts of a build and publish them",
		Long: `Sync downloads every file in the folders configured for BUILD_TYPE,
commits them to the local repository and creates or updates the release
tagged with the first seven characters of the upstream commit.

COMMIT_LOGS is percent-encoded (%0A for newlines) as produced by CI and
becomes the "Commit Logs" section of the release body.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := opts.apply(cfg); err != nil {
				return err
			}

			var commitLogs string
			if len(args) > 1 {
				commitLogs = args[1]
			}
			return runSync(cmd.Context(), cmd, cfg, args[0], commitLogs, opts.dryRun)
		},
	}

	opts.addFlags(syncCmd.Flags())
	return syncCmd
}

// runSync wires the collaborators for cfg and runs the pipeline once.
func runSync(ctx context.Context, cmd *cobra.Command, cfg *config.GlobalConfig, buildType, commitLogs string, dryRun bool) error {
	if ctx == nil {
		ctx = context.Background()
	}

	src, err := newSource(ctx, cfg)
	if err != nil {
		return fmt.Errorf("opening source store: %w", err)
	}
	defer src.Close()

	deps := pipeline.Deps{
		Source:   src,
		Releases: newReleaseStore(cfg),
		Commits:  newCommitLookup(cfg),
		Progress: cmd.ErrOrStderr(),
	}
	if cfg.Git.Enabled && !dryRun {
		vcs, err := newVCS(cfg)
		if err != nil {
			return fmt.Errorf("opening git repository: %w", err)
		}
		deps.VCS = vcs
	}

	res, err := pipeline.New(cfg, deps).Run(ctx, pipeline.Options{
		BuildType:  buildType,
		CommitLogs: commitLogs,
		DryRun:     dryRun,
	})
	if err != nil {
		return err
	}

	printSyncSummary(cmd.OutOrStdout(), res)
	return nil
}

func printSyncSummary(w io.Writer, res *pipeline.Result) {
	if len(res.Artifacts) == 0 {
		fmt.Fprintln(w, "nothing to publish")
		return
	}
	if res.Release == nil {
		fmt.Fprintf(w, "fetched %d file(s), release %s not published\n", len(res.Artifacts), res.Tag)
		return
	}
	fmt.Fprintf(w, "release %s %s: %d uploaded, %d replaced\n",
		res.Tag, res.Release.Outcome, len(res.Release.Uploaded), len(res.Release.Deleted))
}
