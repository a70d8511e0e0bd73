package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/itsmechinmoy/dartotsu-updater/internal/config"
	"github.com/itsmechinmoy/dartotsu-updater/internal/release"
	"github.com/itsmechinmoy/dartotsu-updater/internal/release/releasetest"
	"github.com/itsmechinmoy/dartotsu-updater/internal/sourcestore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCommits struct {
	sha string
	err error
}

func (f fakeCommits) LatestCommit(context.Context, string) (string, error) {
	return f.sha, f.err
}

type fakeVCS struct {
	calls     []string
	commitErr error
}

func (f *fakeVCS) ConfigureIdentity(name, email string) error {
	f.calls = append(f.calls, "identity "+name)
	return nil
}

func (f *fakeVCS) Exclude(paths ...string) error {
	f.calls = append(f.calls, "exclude "+strings.Join(paths, ","))
	return nil
}

func (f *fakeVCS) CommitAndPush(message string) (bool, error) {
	f.calls = append(f.calls, "commit "+message)
	if f.commitErr != nil {
		return false, f.commitErr
	}
	return true, nil
}

// placeholderSource reports the named entries as having no binary content,
// the way a Drive folder shortcut or a directory marker object behaves.
type placeholderSource struct {
	sourcestore.Source
	names map[string]bool
}

func (p placeholderSource) Download(ctx context.Context, e sourcestore.Entry, w io.Writer) error {
	if p.names[e.Name] {
		return fmt.Errorf("%s: %w", e.Name, sourcestore.ErrNotDownloadable)
	}
	return p.Source.Download(ctx, e, w)
}

type fixture struct {
	cfg   *config.GlobalConfig
	store *releasetest.MemoryStore
	vcs   *fakeVCS
	deps  Deps
}

// newFixture lays out an fs source with the given files per folder and a
// config pointing all directories into a temp dir.
func newFixture(t *testing.T, files map[string]map[string]string) *fixture {
	t.Helper()
	root := t.TempDir()

	srcRoot := filepath.Join(root, "source")
	for folder, entries := range files {
		dir := filepath.Join(srcRoot, folder)
		require.NoError(t, os.MkdirAll(dir, 0o755))
		for name, content := range entries {
			require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
		}
	}
	require.NoError(t, os.MkdirAll(srcRoot, 0o755))

	cfg := config.DefaultConfig()
	cfg.DownloadDir = filepath.Join(root, "downloads")
	cfg.CacheDir = filepath.Join(root, "cache")
	cfg.ReportDir = filepath.Join(root, "reports")
	cfg.Source.Type = "fs"
	cfg.Source.Root = srcRoot
	cfg.Source.Folders = map[string]string{"apks": "apks", "others": "others"}

	src, err := sourcestore.NewFileSource(srcRoot)
	require.NoError(t, err)

	f := &fixture{cfg: cfg, store: releasetest.NewMemoryStore(), vcs: &fakeVCS{}}
	f.deps = Deps{
		Source:   src,
		Releases: f.store,
		Commits:  fakeCommits{sha: "abcdef1234567890"},
		VCS:      f.vcs,
	}
	return f
}

func (f *fixture) run(t *testing.T, opts Options) *Result {
	t.Helper()
	res, err := New(f.cfg, f.deps).Run(context.Background(), opts)
	require.NoError(t, err)
	return res
}

func TestRunPublishesNewRelease(t *testing.T) {
	f := newFixture(t, map[string]map[string]string{
		"apks":   {"Dartotsu.apk": "apk"},
		"others": {"Dartotsu_Linux.zip": "linux", "Dartotsu.ipa": "ipa"},
	})

	res := f.run(t, Options{BuildType: "build.all", CommitLogs: "first%0Asecond"})

	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, "abcdef1", res.Tag)
	assert.True(t, res.Committed)
	assert.Equal(t, []string{"identity itsmechinmoy", "commit Add build files"}, f.vcs.calls)

	require.NotNil(t, res.Release)
	assert.Equal(t, release.Created, res.Release.Outcome)
	assert.Equal(t, []string{
		"create abcdef1",
		"upload Dartotsu.apk",
		"upload Dartotsu.ipa",
		"upload Dartotsu_Linux.zip",
	}, f.store.Calls())

	body := f.store.Release("abcdef1").Body
	assert.True(t, strings.HasPrefix(body, "## Commit Logs\nfirst\nsecond\n\n"), body)
	assert.Contains(t, body, "| Dartotsu.apk | sha256:")

	for _, name := range []string{"Dartotsu.apk", "Dartotsu.ipa", "Dartotsu_Linux.zip"} {
		assert.FileExists(t, filepath.Join(f.cfg.DownloadDir, name))
	}

	require.NotEmpty(t, res.Report)
	report, err := os.ReadFile(res.Report)
	require.NoError(t, err)
	assert.Contains(t, string(report), "run "+res.RunID+" tag abcdef1")
	assert.Contains(t, string(report), "Dartotsu.apk sha256:")
}

func TestRunSkipsDuplicateAcrossFolders(t *testing.T) {
	f := newFixture(t, map[string]map[string]string{
		"apks":   {"Dartotsu.apk": "same"},
		"others": {"Dartotsu.apk": "same"},
	})

	res := f.run(t, Options{BuildType: "build.all"})

	require.Len(t, res.Artifacts, 1)
	assert.Equal(t, []string{"create abcdef1", "upload Dartotsu.apk"}, f.store.Calls())
}

func TestRunKeepsLatestChangedDuplicate(t *testing.T) {
	f := newFixture(t, map[string]map[string]string{
		"apks":   {"Dartotsu.apk": "old"},
		"others": {"Dartotsu.apk": "new"},
	})

	res := f.run(t, Options{BuildType: "build.all"})

	require.Len(t, res.Artifacts, 1)
	data, err := os.ReadFile(res.Artifacts[0].Path)
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))
}

func TestRunBuildTypeFolders(t *testing.T) {
	f := newFixture(t, map[string]map[string]string{
		"apks":   {"Dartotsu.apk": "apk"},
		"others": {"Dartotsu.ipa": "ipa"},
	})

	res := f.run(t, Options{BuildType: "build.ios"})

	require.Len(t, res.Artifacts, 1)
	assert.Equal(t, "Dartotsu.ipa", res.Artifacts[0].Name)
}

func TestRunWithoutPublish(t *testing.T) {
	f := newFixture(t, map[string]map[string]string{
		"apks": {"Dartotsu.apk": "apk"},
	})

	res := f.run(t, Options{BuildType: "update_note"})

	assert.Nil(t, res.Release)
	assert.Empty(t, f.store.Calls())
	assert.True(t, res.Committed)
}

func TestRunDryRun(t *testing.T) {
	f := newFixture(t, map[string]map[string]string{
		"apks": {"Dartotsu.apk": "apk"},
	})

	res := f.run(t, Options{BuildType: "build.apk", DryRun: true})

	assert.Len(t, res.Artifacts, 1)
	assert.Nil(t, res.Release)
	assert.Empty(t, f.store.Calls())
	assert.Empty(t, f.vcs.calls)
}

func TestRunNothingFound(t *testing.T) {
	f := newFixture(t, map[string]map[string]string{})

	res := f.run(t, Options{BuildType: "build.all"})

	assert.Empty(t, res.Artifacts)
	assert.Empty(t, res.Tag)
	assert.Empty(t, f.store.Calls())
	assert.Empty(t, f.vcs.calls)
}

func TestRunListFailureSkipsFolder(t *testing.T) {
	// "apks" does not exist, so only "others" is fetched.
	f := newFixture(t, map[string]map[string]string{
		"others": {"Dartotsu_Windows.zip": "win"},
	})

	res := f.run(t, Options{BuildType: "build.all"})

	require.Len(t, res.Artifacts, 1)
	assert.Equal(t, "Dartotsu_Windows.zip", res.Artifacts[0].Name)
}

func TestRunGitFailureIsNotFatal(t *testing.T) {
	f := newFixture(t, map[string]map[string]string{
		"apks": {"Dartotsu.apk": "apk"},
	})
	f.vcs.commitErr = errors.New("push rejected")

	res := f.run(t, Options{BuildType: "build.apk"})

	assert.False(t, res.Committed)
	require.NotNil(t, res.Release)
	assert.Equal(t, release.Created, res.Release.Outcome)
}

func TestRunGitDisabled(t *testing.T) {
	f := newFixture(t, map[string]map[string]string{
		"apks": {"Dartotsu.apk": "apk"},
	})
	f.cfg.Git.Enabled = false

	f.run(t, Options{BuildType: "build.apk"})

	assert.Empty(t, f.vcs.calls)
}

func TestRunFallbackTag(t *testing.T) {
	f := newFixture(t, map[string]map[string]string{
		"apks": {"Dartotsu.apk": "apk"},
	})
	f.deps.Commits = fakeCommits{err: errors.New("rate limited")}

	res := f.run(t, Options{BuildType: "build.apk"})

	assert.Equal(t, release.FallbackTag, res.Tag)
	assert.Equal(t, []string{"create 0000000", "upload Dartotsu.apk"}, f.store.Calls())
}

func TestRunSecondRunIsNoop(t *testing.T) {
	f := newFixture(t, map[string]map[string]string{
		"apks": {"Dartotsu.apk": "apk"},
	})

	f.run(t, Options{BuildType: "build.apk"})
	res := f.run(t, Options{BuildType: "build.apk"})

	require.NotNil(t, res.Release)
	assert.Equal(t, release.Unchanged, res.Release.Outcome)
	assert.Equal(t, []string{"create abcdef1", "upload Dartotsu.apk"}, f.store.Calls())
}

func TestRunSkipsNonDownloadableEntries(t *testing.T) {
	f := newFixture(t, map[string]map[string]string{
		"apks":   {"Dartotsu.apk": "apk", "Shortcut": ""},
		"others": {"Dartotsu_Linux.zip": "linux"},
	})
	f.deps.Source = placeholderSource{Source: f.deps.Source, names: map[string]bool{"Shortcut": true}}

	res := f.run(t, Options{BuildType: "build.all"})

	assert.Equal(t, []string{"Shortcut"}, res.Skipped)
	require.Len(t, res.Artifacts, 2)
	assert.NoFileExists(t, filepath.Join(f.cfg.DownloadDir, "Shortcut"))
	assert.Equal(t, []string{
		"create abcdef1",
		"upload Dartotsu.apk",
		"upload Dartotsu_Linux.zip",
	}, f.store.Calls())
	assert.NotContains(t, f.store.Release("abcdef1").Body, "Shortcut")

	report, err := os.ReadFile(res.Report)
	require.NoError(t, err)
	assert.Contains(t, string(report), "Shortcut skipped (not downloadable)")
}

func TestRunExcludesCacheInsideWorkTree(t *testing.T) {
	f := newFixture(t, map[string]map[string]string{
		"apks": {"Dartotsu.apk": "apk"},
	})
	work := filepath.Dir(f.cfg.CacheDir)
	f.cfg.Git.WorkDir = work
	f.cfg.CacheDir = filepath.Join(work, ".cache", "release-assets")

	res := f.run(t, Options{BuildType: "build.apk"})

	assert.True(t, res.Committed)
	assert.Equal(t, []string{
		"identity itsmechinmoy",
		"exclude " + filepath.Join(".cache", "release-assets"),
		"commit Add build files",
	}, f.vcs.calls)
}

func TestRunDoesNotExcludeCacheOutsideWorkTree(t *testing.T) {
	f := newFixture(t, map[string]map[string]string{
		"apks": {"Dartotsu.apk": "apk"},
	})
	f.cfg.Git.WorkDir = filepath.Join(filepath.Dir(f.cfg.CacheDir), "checkout")

	f.run(t, Options{BuildType: "build.apk"})

	assert.Equal(t, []string{"identity itsmechinmoy", "commit Add build files"}, f.vcs.calls)
}
