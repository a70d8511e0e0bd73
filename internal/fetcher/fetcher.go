package fetcher

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/itsmechinmoy/dartotsu-updater/internal/artifact"
	"github.com/itsmechinmoy/dartotsu-updater/internal/hasher"
	"github.com/itsmechinmoy/dartotsu-updater/internal/sourcestore"
	"github.com/itsmechinmoy/dartotsu-updater/internal/utils/logger"
	"github.com/schollz/progressbar/v3"
)

// Fetcher downloads source entries into a directory, one at a time, hashing
// each file while it is written.
type Fetcher struct {
	src      sourcestore.Source
	destDir  string
	progress io.Writer
}

// New returns a Fetcher writing into destDir. Progress bars go to progress;
// nil disables them.
func New(src sourcestore.Source, destDir string, progress io.Writer) *Fetcher {
	return &Fetcher{src: src, destDir: destDir, progress: progress}
}

// Fetch downloads e to <destDir>/<name> and returns the resulting artifact.
// The destination is only replaced once the download completed.
func (f *Fetcher) Fetch(ctx context.Context, e sourcestore.Entry) (artifact.Artifact, error) {
	log := logger.Logger()

	name, err := safeName(e.Name)
	if err != nil {
		return artifact.Artifact{}, err
	}

	// ensure destination directory exists
	if err := os.MkdirAll(f.destDir, 0755); err != nil {
		return artifact.Artifact{}, fmt.Errorf("creating download dir: %w", err)
	}

	out, err := os.CreateTemp(f.destDir, "."+name+".part-*")
	if err != nil {
		return artifact.Artifact{}, fmt.Errorf("creating temp file for %s: %w", name, err)
	}
	tmpPath := out.Name()
	defer os.Remove(tmpPath)

	sum := hasher.NewWriter()
	writers := []io.Writer{out, sum}
	var bar *progressbar.ProgressBar
	if f.progress != nil {
		bar = newBar(f.progress, name, e.Size)
		writers = append(writers, bar)
	}

	err = f.src.Download(ctx, e, io.MultiWriter(writers...))
	if cerr := out.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("closing %s: %w", name, cerr)
	}
	if bar != nil {
		_ = bar.Finish()
	}
	if err != nil {
		return artifact.Artifact{}, err
	}

	destPath := filepath.Join(f.destDir, name)
	if err := os.Rename(tmpPath, destPath); err != nil {
		return artifact.Artifact{}, fmt.Errorf("moving %s into place: %w", name, err)
	}

	info, err := os.Stat(destPath)
	if err != nil {
		return artifact.Artifact{}, fmt.Errorf("stat %s: %w", destPath, err)
	}

	a := artifact.Artifact{
		Name:   name,
		Digest: sum.Sum(),
		Path:   destPath,
		Source: e.ID,
		Size:   info.Size(),
	}
	log.Debugf("downloaded %s (%d bytes) to %s", name, a.Size, destPath)
	return a, nil
}

func newBar(w io.Writer, name string, size int64) *progressbar.ProgressBar {
	if size <= 0 {
		size = -1
	}
	return progressbar.NewOptions64(size,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(fmt.Sprintf("Downloading %s", name)),
		progressbar.OptionShowDescriptionAtLineEnd(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowBytes(true),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionOnCompletion(func() { fmt.Fprintln(w) }),
	)
}

// safeName rejects names that would escape the download directory.
func safeName(name string) (string, error) {
	base := filepath.Base(name)
	if name == "" || base != name || base == "." || base == ".." {
		return "", fmt.Errorf("refusing unsafe file name %q", name)
	}
	return base, nil
}
