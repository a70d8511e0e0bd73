// Package pipeline runs one update: fetch artifacts for a build type, commit
// them, then publish or refresh the release for the upstream commit.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/itsmechinmoy/dartotsu-updater/internal/artifact"
	"github.com/itsmechinmoy/dartotsu-updater/internal/changeset"
	"github.com/itsmechinmoy/dartotsu-updater/internal/config"
	"github.com/itsmechinmoy/dartotsu-updater/internal/fetcher"
	"github.com/itsmechinmoy/dartotsu-updater/internal/hasher"
	"github.com/itsmechinmoy/dartotsu-updater/internal/release"
	"github.com/itsmechinmoy/dartotsu-updater/internal/sourcestore"
	"github.com/itsmechinmoy/dartotsu-updater/internal/utils/logger"
)

// VCS is the local repository the downloads are committed to.
type VCS interface {
	ConfigureIdentity(name, email string) error
	// Exclude keeps paths relative to the work tree out of commits.
	Exclude(paths ...string) error
	CommitAndPush(message string) (bool, error)
}

// Deps are the collaborators of a run.
type Deps struct {
	Source   sourcestore.Source
	Releases release.Store
	Commits  release.CommitLookup
	// VCS may be nil when git is disabled.
	VCS VCS
	// Progress receives download progress bars; nil disables them.
	Progress io.Writer
}

// Options select what a run does.
type Options struct {
	BuildType string
	// CommitLogs is the percent-encoded commit log passed by CI.
	CommitLogs string
	// DryRun downloads and hashes but skips git and release mutation.
	DryRun bool
}

// Result summarizes a run.
type Result struct {
	RunID     string
	Artifacts []artifact.Artifact
	Skipped   []string
	Committed bool
	Tag       string
	Release   *release.Report
	Report    string
}

// Runner executes runs against one configuration.
type Runner struct {
	cfg  *config.GlobalConfig
	deps Deps
}

func New(cfg *config.GlobalConfig, deps Deps) *Runner {
	return &Runner{cfg: cfg, deps: deps}
}

// Run performs one update. Git failures are logged and do not stop the run;
// source listing failures skip the folder; download and release errors abort.
func (r *Runner) Run(ctx context.Context, opts Options) (*Result, error) {
	runID := uuid.NewString()
	logger.SetRunID(runID)
	defer logger.SetRunID("")
	log := logger.Logger()

	res := &Result{RunID: runID}
	helpers := config.NewConfigHelpers(r.cfg)

	downloadDir, err := helpers.CreateDownloadDir()
	if err != nil {
		return nil, err
	}
	cacheDir, err := helpers.CreateCacheDir()
	if err != nil {
		return nil, err
	}

	folders, err := r.cfg.FoldersFor(opts.BuildType)
	if err != nil {
		return nil, err
	}
	log.Infof("Starting %s run for build type %s", runID, opts.BuildType)

	res.Artifacts, res.Skipped, err = r.fetch(ctx, folders, downloadDir)
	if err != nil {
		return res, err
	}
	if len(res.Artifacts) == 0 {
		log.Info("No new or changed files to process.")
		return res, nil
	}

	if !opts.DryRun {
		res.Committed = r.commit(cacheDir)
	}

	res.Tag = release.DeriveTag(ctx, r.deps.Commits, r.cfg.Upstream.Repo)
	log.Infof("Using tag based on external commit hash: %s", res.Tag)

	if err := r.writeReport(opts.BuildType, res); err != nil {
		log.Warnf("Failed to write report: %v", err)
	}

	if !r.cfg.BuildTypeFor(opts.BuildType).ShouldPublish() {
		log.Infof("Build type %s does not publish a release.", opts.BuildType)
		return res, nil
	}

	commitLogs := release.DecodeCommitLogs(opts.CommitLogs)
	if opts.DryRun {
		log.Infof("Dry run, release %s not touched. Body would be:\n%s",
			res.Tag, release.ComposeBody(commitLogs, res.Artifacts, r.cfg.PresentationOrder()))
		return res, nil
	}

	sync := release.NewSynchronizer(r.deps.Releases, r.cfg.PresentationOrder(), cacheDir)
	res.Release, err = sync.Sync(ctx, release.Request{
		Tag:        res.Tag,
		CommitLogs: commitLogs,
		Artifacts:  res.Artifacts,
	})
	if err != nil {
		return res, fmt.Errorf("syncing release %s: %w", res.Tag, err)
	}
	return res, nil
}

// fetch downloads every file of every folder and keeps those the history
// guard has not seen with the same digest during this run.
func (r *Runner) fetch(ctx context.Context, folders []config.Folder, downloadDir string) ([]artifact.Artifact, []string, error) {
	log := logger.Logger()

	f := fetcher.New(r.deps.Source, downloadDir, r.deps.Progress)
	history := changeset.NewHistory()

	var (
		order   []string
		kept    = map[string]artifact.Artifact{}
		skipped []string
	)

	for _, folder := range folders {
		log.Infof("Fetching files from folder %s (%s)", folder.Key, folder.Location)
		entries, err := r.deps.Source.List(ctx, folder.Location)
		if err != nil {
			log.Errorf("Failed to list folder %s: %v", folder.Key, err)
			continue
		}
		if len(entries) == 0 {
			log.Infof("No files found in folder %s", folder.Key)
			continue
		}

		for _, e := range entries {
			log.Infof("Found file: %s", e.Name)
			a, err := f.Fetch(ctx, e)
			if err != nil {
				if errors.Is(err, sourcestore.ErrNotDownloadable) {
					log.Infof("Skipping non-downloadable file: %s", e.Name)
					skipped = append(skipped, e.Name)
					continue
				}
				return nil, skipped, fmt.Errorf("downloading %s: %w", e.Name, err)
			}
			log.Infof("Local checksum for %s: %s", a.Name, a.Digest)

			if !history.Observe(a.Name, a.Digest) {
				log.Infof("File %s is unchanged. Skipping.", a.Name)
				continue
			}
			if _, seen := kept[a.Name]; !seen {
				order = append(order, a.Name)
			}
			kept[a.Name] = a
		}
	}

	out := make([]artifact.Artifact, 0, len(order))
	for _, name := range order {
		out = append(out, kept[name])
	}
	return out, skipped, nil
}

// commit stages and pushes the download directory. A cache directory inside
// the work tree is excluded first. Errors are logged only.
func (r *Runner) commit(cacheDir string) bool {
	log := logger.Logger()
	g := r.cfg.Git
	if !g.Enabled || r.deps.VCS == nil {
		log.Debug("git disabled, not committing")
		return false
	}

	if err := r.deps.VCS.ConfigureIdentity(g.UserName, g.UserEmail); err != nil {
		log.Errorf("Error during git operations: %v", err)
		return false
	}
	log.Info("Configured Git identity.")

	if rel, ok := r.insideWorkTree(cacheDir); ok {
		if err := r.deps.VCS.Exclude(rel); err != nil {
			log.Errorf("Error during git operations: %v", err)
			return false
		}
		log.Debugf("Excluded cache directory %s from commits", rel)
	}

	committed, err := r.deps.VCS.CommitAndPush(g.CommitMessage)
	if err != nil {
		log.Errorf("Error during git operations: %v", err)
		return committed
	}
	if !committed {
		log.Info("No changes to commit.")
		return false
	}
	log.Info("Committed and pushed files to GitHub.")
	return true
}

// insideWorkTree returns dir relative to the git work tree when dir lies
// inside it.
func (r *Runner) insideWorkTree(dir string) (string, bool) {
	if dir == "" {
		return "", false
	}
	work, err := config.NewConfigHelpers(r.cfg).GitWorkDir()
	if err != nil {
		return "", false
	}
	rel, err := filepath.Rel(work, dir)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return rel, true
}

// writeReport records the fetched artifacts when a report directory is configured.
func (r *Runner) writeReport(buildType string, res *Result) error {
	dir, err := config.NewConfigHelpers(r.cfg).ReportDir()
	if err != nil || dir == "" {
		return err
	}

	report := logger.NewStringListReport(buildType)
	report.Add("run %s tag %s", res.RunID, res.Tag)
	for _, a := range r.cfg.PresentationOrder().Sort(res.Artifacts) {
		report.Add("%s %s", a.Name, hasher.Prefixed(a.Digest))
	}
	for _, name := range res.Skipped {
		report.Add("%s skipped (not downloadable)", name)
	}

	path, err := report.WriteToDir(dir)
	if err != nil {
		return err
	}
	res.Report = path
	return nil
}
