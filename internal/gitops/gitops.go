// Package gitops commits downloaded artifacts back to the repository the
// updater runs in, using the git binary.
package gitops

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/itsmechinmoy/dartotsu-updater/internal/utils/shell"
)

// Runner executes a shell command in dir and returns its output.
type Runner func(cmdStr, dir string) (string, error)

func execRunner(cmdStr, dir string) (string, error) {
	return shell.ExecCmd(cmdStr, dir, nil)
}

// Repo is a local git checkout.
type Repo struct {
	dir    string
	remote string
	branch string
	run    Runner
}

// NewRepo returns a Repo at dir that pushes to remote/branch. A nil runner
// uses the system shell.
func NewRepo(dir, remote, branch string, run Runner) *Repo {
	if run == nil {
		run = execRunner
	}
	return &Repo{dir: dir, remote: remote, branch: branch, run: run}
}

func (r *Repo) git(args ...string) (string, error) {
	quoted := make([]string, len(args))
	for i, a := range args {
		quoted[i] = shell.Quote(a)
	}
	return r.run("git "+strings.Join(quoted, " "), r.dir)
}

// ConfigureIdentity sets the commit author for this repository only.
func (r *Repo) ConfigureIdentity(name, email string) error {
	if _, err := r.git("config", "user.name", name); err != nil {
		return fmt.Errorf("setting git user.name: %w", err)
	}
	if _, err := r.git("config", "user.email", email); err != nil {
		return fmt.Errorf("setting git user.email: %w", err)
	}
	return nil
}

// CommitAndPush stages everything, commits when the index differs from HEAD
// and pushes. It reports whether a commit was made.
func (r *Repo) CommitAndPush(message string) (bool, error) {
	if _, err := r.git("add", "."); err != nil {
		return false, fmt.Errorf("staging files: %w", err)
	}

	staged, err := r.git("diff", "--cached", "--name-only")
	if err != nil {
		return false, fmt.Errorf("inspecting staged changes: %w", err)
	}
	if strings.TrimSpace(staged) == "" {
		return false, nil
	}

	if _, err := r.git("commit", "-m", message); err != nil {
		return false, fmt.Errorf("committing: %w", err)
	}
	if _, err := r.git("push", r.remote, r.branch); err != nil {
		return true, fmt.Errorf("pushing to %s/%s: %w", r.remote, r.branch, err)
	}
	return true, nil
}

// Exclude adds paths, relative to the repository root, to the local
// info/exclude file so "git add ." never stages them. Entries already
// present are left alone.
func (r *Repo) Exclude(paths ...string) error {
	if len(paths) == 0 {
		return nil
	}
	out, err := r.git("rev-parse", "--git-path", "info/exclude")
	if err != nil {
		return fmt.Errorf("locating exclude file: %w", err)
	}
	file := strings.TrimSpace(out)
	if !filepath.IsAbs(file) {
		file = filepath.Join(r.dir, file)
	}

	existing, err := os.ReadFile(file)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("reading %s: %w", file, err)
	}
	have := map[string]bool{}
	for _, line := range strings.Split(string(existing), "\n") {
		have[strings.TrimSpace(line)] = true
	}

	var b strings.Builder
	if len(existing) > 0 && !strings.HasSuffix(string(existing), "\n") {
		b.WriteString("\n")
	}
	for _, p := range paths {
		entry := "/" + strings.Trim(filepath.ToSlash(p), "/") + "/"
		if have[entry] {
			continue
		}
		have[entry] = true
		b.WriteString(entry)
		b.WriteString("\n")
	}
	if strings.TrimSpace(b.String()) == "" {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(file), 0755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(file), err)
	}
	f, err := os.OpenFile(file, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("opening %s: %w", file, err)
	}
	if _, err := f.WriteString(b.String()); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", file, err)
	}
	return f.Close()
}
