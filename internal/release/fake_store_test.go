package release

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/itsmechinmoy/dartotsu-updater/internal/artifact"
	"github.com/itsmechinmoy/dartotsu-updater/internal/hasher"
)

// fakeStore keeps releases in memory and records every mutating call.
type fakeStore struct {
	releases  map[string]*Release
	blobs     map[int64][]byte
	nextID    int64
	calls     []string
	downloads int
	failOn    string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		releases: map[string]*Release{},
		blobs:    map[int64][]byte{},
		nextID:   100,
	}
}

func (f *fakeStore) id() int64 {
	f.nextID++
	return f.nextID
}

func (f *fakeStore) GetReleaseByTag(_ context.Context, tag string) (*Release, error) {
	rel, ok := f.releases[tag]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *rel
	cp.Assets = append([]Asset(nil), rel.Assets...)
	return &cp, nil
}

func (f *fakeStore) LatestRelease(_ context.Context) (*Release, error) {
	var latest *Release
	for _, r := range f.releases {
		if latest == nil || r.ID > latest.ID {
			latest = r
		}
	}
	if latest == nil {
		return nil, ErrNotFound
	}
	return latest, nil
}

func (f *fakeStore) CreateRelease(_ context.Context, p Params) (*Release, error) {
	f.calls = append(f.calls, "create "+p.TagName)
	rel := &Release{ID: f.id(), TagName: p.TagName, Name: p.Name, Body: p.Body}
	f.releases[p.TagName] = rel
	return rel, nil
}

func (f *fakeStore) UpdateRelease(_ context.Context, id int64, p Params) (*Release, error) {
	f.calls = append(f.calls, "update "+p.TagName)
	for _, r := range f.releases {
		if r.ID == id {
			r.Body = p.Body
			r.Name = p.Name
			return r, nil
		}
	}
	return nil, ErrNotFound
}

func (f *fakeStore) DeleteAsset(_ context.Context, id int64) error {
	for _, r := range f.releases {
		for i, a := range r.Assets {
			if a.ID == id {
				f.calls = append(f.calls, "delete "+a.Name)
				r.Assets = append(r.Assets[:i], r.Assets[i+1:]...)
				delete(f.blobs, id)
				return nil
			}
		}
	}
	return fmt.Errorf("asset %d: %w", id, ErrNotFound)
}

func (f *fakeStore) UploadAsset(_ context.Context, rel *Release, name string, r io.Reader, size int64) (*Asset, error) {
	if name == f.failOn {
		return nil, fmt.Errorf("upload rejected")
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if int64(len(data)) != size {
		return nil, fmt.Errorf("size mismatch for %s: %d != %d", name, len(data), size)
	}
	stored := f.releases[rel.TagName]
	if _, dup := stored.Asset(name); dup {
		return nil, fmt.Errorf("asset %s already exists", name)
	}
	a := Asset{ID: f.id(), Name: name, Size: size}
	stored.Assets = append(stored.Assets, a)
	f.blobs[a.ID] = data
	f.calls = append(f.calls, "upload "+name)
	return &a, nil
}

func (f *fakeStore) DownloadAsset(_ context.Context, id int64, w io.Writer) error {
	data, ok := f.blobs[id]
	if !ok {
		return ErrNotFound
	}
	f.downloads++
	_, err := io.Copy(w, bytes.NewReader(data))
	return err
}

// writeArtifacts creates files in dir and returns hashed artifacts.
func writeArtifacts(t *testing.T, dir string, files map[string]string) []artifact.Artifact {
	t.Helper()
	var out []artifact.Artifact
	for name, content := range files {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
		out = append(out, artifact.Artifact{Name: name, Path: path, Digest: hasher.Bytes([]byte(content)), Size: int64(len(content))})
	}
	return out
}
