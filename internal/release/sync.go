package release

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/itsmechinmoy/dartotsu-updater/internal/artifact"
	"github.com/itsmechinmoy/dartotsu-updater/internal/changeset"
	"github.com/itsmechinmoy/dartotsu-updater/internal/hasher"
	"github.com/itsmechinmoy/dartotsu-updater/internal/utils/logger"
)

// Outcome is the state transition a sync performed.
type Outcome string

const (
	Created   Outcome = "created"
	Updated   Outcome = "updated"
	Unchanged Outcome = "unchanged"
)

// Request describes one release sync.
type Request struct {
	Tag        string
	CommitLogs string
	Artifacts  []artifact.Artifact
}

// Report summarizes what a sync did.
type Report struct {
	Outcome  Outcome
	Tag      string
	Release  *Release
	Diff     changeset.Result
	Uploaded []string
	Deleted  []string
}

// Synchronizer brings the release for a tag in line with a set of fresh artifacts.
type Synchronizer struct {
	store Store
	order artifact.Order
	// cacheDir holds downloaded copies of remote assets as <assetID>/<name>.
	// Empty disables the cache.
	cacheDir string
}

func NewSynchronizer(store Store, order artifact.Order, cacheDir string) *Synchronizer {
	return &Synchronizer{store: store, order: order, cacheDir: cacheDir}
}

// Sync creates the release when it is absent and otherwise uploads only new or
// modified artifacts. Nothing is mutated when the release already matches.
func (s *Synchronizer) Sync(ctx context.Context, req Request) (*Report, error) {
	log := logger.Logger()

	rel, err := s.store.GetReleaseByTag(ctx, req.Tag)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("looking up release %s: %w", req.Tag, err)
		}
		log.Infof("Release %s not found, proceeding with new release.", req.Tag)
		rel = nil
	}

	fresh := artifact.Digests(req.Artifacts)

	var remote artifact.DigestMap
	if rel != nil {
		remote = s.remoteDigests(ctx, rel)
	}

	diff := changeset.Compare(fresh, remote, s.order)
	report := &Report{Outcome: Unchanged, Tag: req.Tag, Release: rel, Diff: diff}

	for _, c := range diff.Changes {
		switch c.Status {
		case changeset.Modified:
			log.Infof("Changes detected for %s, updating asset.", c.Name)
		case changeset.New:
			log.Infof("New file detected: %s, adding asset.", c.Name)
		case changeset.Missing:
			log.Infof("Missing file detected: %s, skipping.", c.Name)
		default:
			log.Debugf("%s: Local=%s, Release=%s", c.Name, c.Local, c.Remote)
		}
	}

	if !diff.HasChanges() {
		log.Infof("All files match release %s, release not created or updated.", req.Tag)
		return report, nil
	}

	params := Params{
		TagName: req.Tag,
		Name:    req.Tag,
		Body:    ComposeBody(req.CommitLogs, req.Artifacts, s.order),
	}

	var target *Release
	if rel == nil {
		log.Infof("Creating new release with tag '%s'.", req.Tag)
		target, err = s.store.CreateRelease(ctx, params)
		if err != nil {
			return nil, fmt.Errorf("creating release %s: %w", req.Tag, err)
		}
		report.Outcome = Created
	} else {
		log.Infof("Updating existing release with tag '%s'.", req.Tag)
		target, err = s.store.UpdateRelease(ctx, rel.ID, params)
		if err != nil {
			return nil, fmt.Errorf("updating release %s: %w", req.Tag, err)
		}
		report.Outcome = Updated
	}
	report.Release = target

	// Uploads follow the checksum table order.
	for _, a := range s.order.Sort(req.Artifacts) {
		c, ok := diff.Lookup(a.Name)
		if !ok || (c.Status != changeset.New && c.Status != changeset.Modified) {
			continue
		}
		name := a.Name
		if rel != nil {
			if stale, ok := rel.Asset(name); ok {
				if err := s.store.DeleteAsset(ctx, stale.ID); err != nil {
					return report, fmt.Errorf("deleting stale asset %s: %w", name, err)
				}
				log.Infof("Deleted old asset: %s", name)
				report.Deleted = append(report.Deleted, name)
			}
		}

		uploaded, err := s.upload(ctx, target, a)
		if err != nil {
			return report, err
		}
		log.Infof("Uploaded %s to GitHub release.", name)
		report.Uploaded = append(report.Uploaded, name)

		if err := s.remember(uploaded, a.Path); err != nil {
			log.Warnf("Failed to cache %s: %v", name, err)
		}
	}

	log.Infof("Release %s %s successfully.", req.Tag, report.Outcome)
	return report, nil
}

func (s *Synchronizer) upload(ctx context.Context, rel *Release, a artifact.Artifact) (*Asset, error) {
	f, err := os.Open(a.Path)
	if err != nil {
		return nil, fmt.Errorf("opening %s for upload: %w", a.Name, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", a.Name, err)
	}

	asset, err := s.store.UploadAsset(ctx, rel, a.Name, f, info.Size())
	if err != nil {
		return nil, fmt.Errorf("failed to upload file %s: %w", a.Name, err)
	}
	return asset, nil
}

// remoteDigests hashes every asset of rel. An asset that cannot be hashed is
// recorded with an empty digest so it classifies as modified and is replaced.
func (s *Synchronizer) remoteDigests(ctx context.Context, rel *Release) artifact.DigestMap {
	log := logger.Logger()

	out := make(artifact.DigestMap, len(rel.Assets))
	for _, a := range rel.Assets {
		d, from, err := s.remoteDigest(ctx, a)
		if err != nil {
			log.Warnf("Could not compute release checksum for %s: %v", a.Name, err)
			out[a.Name] = ""
			continue
		}
		log.Infof("Release checksum for %s (from %s): %s", a.Name, from, d)
		out[a.Name] = d
	}
	return out
}

func (s *Synchronizer) remoteDigest(ctx context.Context, a Asset) (string, string, error) {
	if d, ok := hasher.ParsePrefixed(a.Digest); ok {
		return d, "API", nil
	}

	if s.cacheDir == "" {
		w := hasher.NewWriter()
		if err := s.store.DownloadAsset(ctx, a.ID, w); err != nil {
			return "", "", err
		}
		return w.Sum(), "download", nil
	}

	path := s.cachePath(a.ID, a.Name)
	if _, err := os.Stat(path); err == nil {
		d, err := hasher.File(path)
		return d, "cache", err
	}

	d, err := s.download(ctx, a, path)
	return d, "download", err
}

// download fetches an asset into the cache and returns its digest.
func (s *Synchronizer) download(ctx context.Context, a Asset, path string) (string, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("creating cache dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".part-*")
	if err != nil {
		return "", fmt.Errorf("creating cache file: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := hasher.NewWriter()
	if err := s.store.DownloadAsset(ctx, a.ID, io.MultiWriter(tmp, w)); err != nil {
		tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("closing cache file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("moving cache file into place: %w", err)
	}
	return w.Sum(), nil
}

// remember copies a just-uploaded local file into the cache under its new asset id.
func (s *Synchronizer) remember(a *Asset, localPath string) error {
	if s.cacheDir == "" || a == nil {
		return nil
	}
	path := s.cachePath(a.ID, a.Name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	src, err := os.Open(localPath)
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return err
	}
	return dst.Close()
}

func (s *Synchronizer) cachePath(id int64, name string) string {
	return filepath.Join(s.cacheDir, strconv.FormatInt(id, 10), filepath.Base(name))
}
