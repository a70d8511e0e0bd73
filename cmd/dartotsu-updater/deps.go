package main

import (
	"context"

	"github.com/itsmechinmoy/dartotsu-updater/internal/config"
	"github.com/itsmechinmoy/dartotsu-updater/internal/github"
	"github.com/itsmechinmoy/dartotsu-updater/internal/gitops"
	"github.com/itsmechinmoy/dartotsu-updater/internal/pipeline"
	"github.com/itsmechinmoy/dartotsu-updater/internal/release"
	"github.com/itsmechinmoy/dartotsu-updater/internal/sourcestore"
	"github.com/itsmechinmoy/dartotsu-updater/internal/upstream"
	"github.com/itsmechinmoy/dartotsu-updater/internal/utils/logger"
	"github.com/itsmechinmoy/dartotsu-updater/internal/utils/shell"
)

// Factories for the external collaborators. Tests replace them.
var (
	newSource = func(ctx context.Context, cfg *config.GlobalConfig) (sourcestore.Source, error) {
		return sourcestore.New(ctx, cfg)
	}

	newReleaseStore = func(cfg *config.GlobalConfig) release.Store {
		return newGitHubClient(cfg).Releases(cfg.Release.Repo)
	}

	newCommitLookup = func(cfg *config.GlobalConfig) release.CommitLookup {
		return newGitHubClient(cfg)
	}

	newUpstreamAPI = func(cfg *config.GlobalConfig) upstream.API {
		return newGitHubClient(cfg)
	}

	// newVCS returns nil when git is not installed; the run then skips committing.
	newVCS = func(cfg *config.GlobalConfig) (pipeline.VCS, error) {
		if !shell.IsCommandExist("git") {
			logger.Logger().Warn("git not found in PATH, downloads will not be committed")
			return nil, nil
		}
		dir, err := config.NewConfigHelpers(cfg).GitWorkDir()
		if err != nil {
			return nil, err
		}
		return gitops.NewRepo(dir, cfg.Git.Remote, cfg.Git.Branch, nil), nil
	}
)

func newGitHubClient(cfg *config.GlobalConfig) *github.Client {
	return github.NewClient(cfg.Release.APIURL, cfg.Token, nil)
}
