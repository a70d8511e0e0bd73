// Package upstream watches the application repository for build-trigger
// commits and waits for its build workflow to finish.
package upstream

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/itsmechinmoy/dartotsu-updater/internal/github"
	"github.com/itsmechinmoy/dartotsu-updater/internal/utils/logger"
)

// API is the subset of the GitHub client the monitor needs.
type API interface {
	RecentCommits(ctx context.Context, repo string, n int) ([]github.Commit, error)
	LatestWorkflowRun(ctx context.Context, repo, workflow string) (*github.WorkflowRun, error)
}

// Result is how waiting for the workflow ended.
type Result string

const (
	Succeeded Result = "succeeded"
	Failed    Result = "failed"
	TimedOut  Result = "timed out"
)

// Monitor checks one upstream repository.
type Monitor struct {
	API           API
	Repo          string
	Workflow      string
	Markers       []string
	CommitsToScan int
	PollInterval  time.Duration
	MaxAttempts   int
}

// DetectBuildType returns the first marker found as "[marker]" in the
// messages, scanning commits newest first and markers in configured order.
func DetectBuildType(commits []github.Commit, markers []string) (string, bool) {
	for _, c := range commits {
		for _, m := range markers {
			if strings.Contains(c.Message, "["+m+"]") {
				return m, true
			}
		}
	}
	return "", false
}

// DetectBuild fetches recent commits and looks for a build marker.
func (m *Monitor) DetectBuild(ctx context.Context) (string, bool, error) {
	commits, err := m.API.RecentCommits(ctx, m.Repo, m.CommitsToScan)
	if err != nil {
		return "", false, fmt.Errorf("fetching commits of %s: %w", m.Repo, err)
	}
	bt, ok := DetectBuildType(commits, m.Markers)
	return bt, ok, nil
}

// WaitForWorkflow polls the latest workflow run until it completes or
// MaxAttempts polls have been made.
func (m *Monitor) WaitForWorkflow(ctx context.Context) (Result, error) {
	log := logger.Logger()

	for attempt := 0; attempt < m.MaxAttempts; attempt++ {
		run, err := m.API.LatestWorkflowRun(ctx, m.Repo, m.Workflow)
		if err != nil {
			return Failed, fmt.Errorf("failed to fetch workflow status: %w", err)
		}

		if run.Completed() {
			if run.Succeeded() {
				log.Info("Workflow completed successfully.")
				return Succeeded, nil
			}
			log.Warnf("Workflow failed with conclusion: %s", run.Conclusion)
			return Failed, nil
		}

		log.Infof("Workflow still running, waiting %s...", m.PollInterval)
		timer := time.NewTimer(m.PollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return Failed, ctx.Err()
		case <-timer.C:
		}
	}

	log.Warn("Workflow did not complete in time.")
	return TimedOut, nil
}
