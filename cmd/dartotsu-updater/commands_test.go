package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/itsmechinmoy/dartotsu-updater/internal/config"
	"github.com/itsmechinmoy/dartotsu-updater/internal/github"
	"github.com/itsmechinmoy/dartotsu-updater/internal/pipeline"
	"github.com/itsmechinmoy/dartotsu-updater/internal/release"
	"github.com/itsmechinmoy/dartotsu-updater/internal/release/releasetest"
	"github.com/itsmechinmoy/dartotsu-updater/internal/upstream"
	"github.com/spf13/cobra"
)

type staticCommit string

func (s staticCommit) LatestCommit(context.Context, string) (string, error) {
	return string(s), nil
}

// setupCommandTest writes a config using an fs source under a temp dir and
// swaps the GitHub factories for in-memory fakes.
func setupCommandTest(t *testing.T, files map[string]string) (*releasetest.MemoryStore, string) {
	t.Helper()
	root := t.TempDir()

	srcDir := filepath.Join(root, "source", "apks")
	if err := os.MkdirAll(srcDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(srcDir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}

	cfgPath := filepath.Join(root, "dartotsu-updater.yml")
	cfgYAML := fmt.Sprintf(`downloadDir: %q
cacheDir: %q
source:
  type: fs
  root: %q
  folders:
    apks: apks
    others: others
git:
  enabled: false
`, filepath.Join(root, "downloads"), filepath.Join(root, "cache"), filepath.Join(root, "source"))
	if err := os.WriteFile(cfgPath, []byte(cfgYAML), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	store := releasetest.NewMemoryStore()

	prevStore, prevLookup, prevVCS := newReleaseStore, newCommitLookup, newVCS
	t.Cleanup(func() {
		newReleaseStore, newCommitLookup, newVCS = prevStore, prevLookup, prevVCS
	})
	newReleaseStore = func(*config.GlobalConfig) release.Store { return store }
	newCommitLookup = func(*config.GlobalConfig) release.CommitLookup { return staticCommit("abcdef1234567890") }
	newVCS = func(*config.GlobalConfig) (pipeline.VCS, error) {
		return nil, errors.New("git must not be used")
	}

	t.Setenv("SERVICE_ACCOUNT_JSON", "")
	return store, cfgPath
}

func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := createRootCommand()
	out := &bytes.Buffer{}
	root.SetOut(out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestSyncCommandCreatesRelease(t *testing.T) {
	store, cfgPath := setupCommandTest(t, map[string]string{
		"Dartotsu.apk":                     "apk",
		"Dartotsu_Android_x86_64_main.apk": "x86",
	})

	out, err := executeCommand(t, "--config", cfgPath, "sync", "build.apk", "feat%3A%20x%0Afix")
	if err != nil {
		t.Fatalf("sync failed: %v", err)
	}
	if !strings.Contains(out, "release abcdef1 created: 2 uploaded, 0 replaced") {
		t.Errorf("unexpected output %q", out)
	}

	want := []string{"create abcdef1", "upload Dartotsu.apk", "upload Dartotsu_Android_x86_64_main.apk"}
	if got := store.Calls(); strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("expected calls %v, got %v", want, got)
	}

	body := store.Release("abcdef1").Body
	if !strings.HasPrefix(body, "## Commit Logs\nfeat%3A%20x\nfix\n\n## Checksum Table\n") {
		t.Errorf("unexpected body %q", body)
	}
}

func TestSyncCommandSecondRunIsUnchanged(t *testing.T) {
	store, cfgPath := setupCommandTest(t, map[string]string{"Dartotsu.apk": "apk"})

	if _, err := executeCommand(t, "--config", cfgPath, "sync", "build.apk"); err != nil {
		t.Fatalf("first sync failed: %v", err)
	}
	out, err := executeCommand(t, "--config", cfgPath, "sync", "build.apk")
	if err != nil {
		t.Fatalf("second sync failed: %v", err)
	}
	if !strings.Contains(out, "release abcdef1 unchanged") {
		t.Errorf("unexpected output %q", out)
	}
	if len(store.Calls()) != 2 {
		t.Errorf("second run must not mutate, calls %v", store.Calls())
	}
}

func TestSyncCommandDryRun(t *testing.T) {
	store, cfgPath := setupCommandTest(t, map[string]string{"Dartotsu.apk": "apk"})

	out, err := executeCommand(t, "--config", cfgPath, "sync", "--dry-run", "build.apk")
	if err != nil {
		t.Fatalf("dry run failed: %v", err)
	}
	if !strings.Contains(out, "release abcdef1 not published") {
		t.Errorf("unexpected output %q", out)
	}
	if len(store.Calls()) != 0 {
		t.Errorf("dry run mutated the release: %v", store.Calls())
	}
}

func TestSyncCommandInputErrors(t *testing.T) {
	store, cfgPath := setupCommandTest(t, map[string]string{"Dartotsu.apk": "apk"})

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"missing build type", []string{"--config", cfgPath, "sync"}, "accepts between 1 and 2 arg(s)"},
		{"bad credentials", []string{"--config", cfgPath, "sync", "--service-account", "{not json", "build.apk"}, "not valid JSON"},
		{"missing config", []string{"--config", filepath.Join(t.TempDir(), "nope.yml"), "sync", "build.apk"}, "reading config file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := executeCommand(t, tt.args...)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
	if len(store.Calls()) != 0 {
		t.Errorf("input errors must not reach the release store: %v", store.Calls())
	}
}

func TestTagCommand(t *testing.T) {
	_, cfgPath := setupCommandTest(t, nil)

	out, err := executeCommand(t, "--config", cfgPath, "tag")
	if err != nil {
		t.Fatalf("tag failed: %v", err)
	}
	if out != "abcdef1\n" {
		t.Errorf("expected abcdef1, got %q", out)
	}
}

func TestChecksumsCommand(t *testing.T) {
	_, cfgPath := setupCommandTest(t, nil)

	dir := t.TempDir()
	for name, content := range map[string]string{"zzz.bin": "data2", "Dartotsu.apk": "data1"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	out, err := executeCommand(t, "--config", cfgPath, "checksums", dir)
	if err != nil {
		t.Fatalf("checksums failed: %v", err)
	}
	want := "## Checksum Table\n" +
		"| File Name | SHA-256 Checksum |\n" +
		"|-----------|-----------------|\n" +
		"| Dartotsu.apk | sha256:5b41362bc82b7f3d56edc5a306db22105707d01ff4819e26faef9724a2d406c9 |\n" +
		"| zzz.bin | sha256:d98cf53e0c8b77c14a96358d5b69584225b4bb9026423cbc2f7b0161894c402c |\n"
	if out != want {
		t.Errorf("expected\n%s\ngot\n%s", want, out)
	}
}

func TestChecksumsCommandEmptyDir(t *testing.T) {
	_, cfgPath := setupCommandTest(t, nil)

	if _, err := executeCommand(t, "--config", cfgPath, "checksums", t.TempDir()); err == nil {
		t.Fatal("expected an error for an empty directory")
	}
}

func TestStatusCommand(t *testing.T) {
	store, cfgPath := setupCommandTest(t, nil)
	store.Seed("abcdef1", map[string][]byte{
		"extra.txt":    []byte("x"),
		"Dartotsu.apk": []byte("apk"),
	})

	out, err := executeCommand(t, "--config", cfgPath, "status", "abcdef1")
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %q", out)
	}
	if lines[0] != "Release abcdef1" {
		t.Errorf("unexpected header %q", lines[0])
	}
	if !strings.HasPrefix(lines[2], "Dartotsu.apk") || !strings.HasPrefix(lines[3], "extra.txt") {
		t.Errorf("assets not in presentation order: %q", out)
	}

	latest, err := executeCommand(t, "--config", cfgPath, "status")
	if err != nil || latest != out {
		t.Errorf("latest release should match, got %q, %v", latest, err)
	}
}

func TestStatusCommandNotFound(t *testing.T) {
	_, cfgPath := setupCommandTest(t, nil)

	_, err := executeCommand(t, "--config", cfgPath, "status", "1234567")
	if err == nil || !strings.Contains(err.Error(), "release 1234567 not found") {
		t.Fatalf("expected not found error, got %v", err)
	}
}

type fakeUpstream struct {
	commits    []github.Commit
	commitsErr error
	run        github.WorkflowRun
}

func (f *fakeUpstream) RecentCommits(context.Context, string, int) ([]github.Commit, error) {
	return f.commits, f.commitsErr
}

func (f *fakeUpstream) LatestWorkflowRun(context.Context, string, string) (*github.WorkflowRun, error) {
	run := f.run
	return &run, nil
}

func TestExecuteWatch(t *testing.T) {
	success := github.WorkflowRun{Status: "completed", Conclusion: "success"}
	failure := github.WorkflowRun{Status: "completed", Conclusion: "failure"}

	tests := []struct {
		name       string
		messages   []string
		commitsErr error
		run        github.WorkflowRun
		wantSync   string
		wantOut    string
	}{
		{"syncs detected build", []string{"chore", "ship it [build.apk]"}, nil, success, "build.apk", ""},
		{"no marker", []string{"chore"}, nil, success, "", "no build commit found"},
		{"commit list unavailable", []string{"[build.apk]"}, errors.New("rate limited"), success, "", "no build commit found"},
		{"failed workflow", []string{"[build.all]"}, nil, failure, "", "build build.all failed, not syncing"},
		{"timed out", []string{"[build.ios]"}, nil, github.WorkflowRun{Status: "in_progress"}, "", "build build.ios timed out, not syncing"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &fakeUpstream{run: tt.run, commitsErr: tt.commitsErr}
			for _, m := range tt.messages {
				api.commits = append(api.commits, github.Commit{Message: m})
			}
			m := &upstream.Monitor{
				API:          api,
				Markers:      config.DefaultConfig().Upstream.Markers,
				PollInterval: time.Millisecond,
				MaxAttempts:  2,
			}

			cmd := &cobra.Command{}
			out := &bytes.Buffer{}
			cmd.SetOut(out)

			var synced string
			err := executeWatch(context.Background(), cmd, m, func(_ context.Context, bt string) error {
				synced = bt
				return nil
			})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if synced != tt.wantSync {
				t.Errorf("expected sync of %q, got %q", tt.wantSync, synced)
			}
			if !strings.Contains(out.String(), tt.wantOut) {
				t.Errorf("expected output containing %q, got %q", tt.wantOut, out.String())
			}
		})
	}
}

func TestExecuteWatchCancelledWhileFetchingCommits(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m := &upstream.Monitor{
		API:          &fakeUpstream{commitsErr: context.Canceled},
		Markers:      config.DefaultConfig().Upstream.Markers,
		PollInterval: time.Millisecond,
		MaxAttempts:  1,
	}
	cmd := &cobra.Command{}
	cmd.SetOut(&bytes.Buffer{})

	err := executeWatch(ctx, cmd, m, func(context.Context, string) error {
		t.Fatal("sync must not run")
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
}
