package main

import (
	"fmt"
	"os"

	"github.com/itsmechinmoy/dartotsu-updater/internal/config"
	"github.com/itsmechinmoy/dartotsu-updater/internal/utils/logger"
	"github.com/spf13/cobra"
)

// Global flags
var (
	configFile string // --config
	logLevel   string // --log-level
	verbose    bool   // --verbose
)

func main() {
	if _, err := logger.Init("info"); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	rootCmd := createRootCommand()
	if err := rootCmd.Execute(); err != nil {
		logger.Logger().Errorf("%v", err)
		logger.Sync()
		os.Exit(1)
	}
}

// createRootCommand builds the root command with every subcommand attached.
func createRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "dartotsu-updater",
		Short: "Mirror Dartotsu build artifacts into GitHub releases",
		Long: `dartotsu-updater downloads the build artifacts of a Dartotsu build from
the configured source store, commits them to the local repository and
publishes or refreshes the GitHub release tagged with the upstream commit.

Only assets whose SHA-256 checksum changed are re-uploaded; a release that
already matches is left untouched.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "",
		fmt.Sprintf("Path to the configuration file (default %s when present)", config.DefaultConfigFile))
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"Enable debug logging (same as --log-level debug)")

	rootCmd.AddCommand(createSyncCommand())
	rootCmd.AddCommand(createWatchCommand())
	rootCmd.AddCommand(createTagCommand())
	rootCmd.AddCommand(createChecksumsCommand())
	rootCmd.AddCommand(createStatusCommand())

	attachLoggingHooks(rootCmd)
	return rootCmd
}

// resolveRequestedLogLevel returns the level asked for on the command line,
// or "" when neither --log-level nor --verbose was given.
func resolveRequestedLogLevel(cmd *cobra.Command) string {
	if logLevel != "" {
		return logLevel
	}
	if cmd == nil {
		return ""
	}
	if f := cmd.Flags().Lookup("verbose"); f != nil && f.Changed && f.Value.String() == "true" {
		return "debug"
	}
	return ""
}

// attachLoggingHooks makes every subcommand apply the requested log level
// before it runs.
func attachLoggingHooks(root *cobra.Command) {
	for _, sub := range root.Commands() {
		sub.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
			return logger.SetLogLevel(resolveRequestedLogLevel(cmd))
		}
	}
}

// loadConfig reads the configuration for one invocation. The configured log
// level applies unless one was requested on the command line.
func loadConfig(cmd *cobra.Command) (*config.GlobalConfig, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}
	if resolveRequestedLogLevel(cmd) == "" {
		if err := logger.SetLogLevel(cfg.Logging.Level); err != nil {
			return nil, err
		}
	}
	logger.Logger().Debugf("loaded configuration (source %s, release repo %s)", cfg.Source.Type, cfg.Release.Repo)
	return cfg, nil
}
