// Package releasetest provides an in-memory release.Store for tests.
package releasetest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/itsmechinmoy/dartotsu-updater/internal/release"
)

// MemoryStore keeps releases and asset contents in memory and records every
// mutating call as "create TAG", "update TAG", "delete NAME" or "upload NAME".
type MemoryStore struct {
	mu       sync.Mutex
	releases []*release.Release
	blobs    map[int64][]byte
	nextID   int64
	calls    []string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: map[int64][]byte{}}
}

// Calls returns the mutating calls made so far.
func (m *MemoryStore) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

// Release returns a copy of the release tagged tag, or nil.
func (m *MemoryStore) Release(tag string) *release.Release {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rel := m.find(tag); rel != nil {
		return clone(rel)
	}
	return nil
}

// Seed adds a release with the given asset contents without recording calls.
func (m *MemoryStore) Seed(tag string, assets map[string][]byte) *release.Release {
	m.mu.Lock()
	defer m.mu.Unlock()
	rel := &release.Release{ID: m.id(), TagName: tag, Name: tag}
	for name, data := range assets {
		a := release.Asset{ID: m.id(), Name: name, Size: int64(len(data))}
		m.blobs[a.ID] = data
		rel.Assets = append(rel.Assets, a)
	}
	m.releases = append(m.releases, rel)
	return clone(rel)
}

func (m *MemoryStore) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *MemoryStore) find(tag string) *release.Release {
	for _, r := range m.releases {
		if r.TagName == tag {
			return r
		}
	}
	return nil
}

func clone(r *release.Release) *release.Release {
	cp := *r
	cp.Assets = append([]release.Asset(nil), r.Assets...)
	return &cp
}

func (m *MemoryStore) GetReleaseByTag(_ context.Context, tag string) (*release.Release, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rel := m.find(tag)
	if rel == nil {
		return nil, release.ErrNotFound
	}
	return clone(rel), nil
}

func (m *MemoryStore) LatestRelease(context.Context) (*release.Release, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.releases) == 0 {
		return nil, release.ErrNotFound
	}
	return clone(m.releases[len(m.releases)-1]), nil
}

func (m *MemoryStore) CreateRelease(_ context.Context, p release.Params) (*release.Release, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.find(p.TagName) != nil {
		return nil, fmt.Errorf("release %s already exists", p.TagName)
	}
	m.calls = append(m.calls, "create "+p.TagName)
	rel := &release.Release{ID: m.id(), TagName: p.TagName, Name: p.Name, Body: p.Body}
	m.releases = append(m.releases, rel)
	return clone(rel), nil
}

func (m *MemoryStore) UpdateRelease(_ context.Context, id int64, p release.Params) (*release.Release, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.releases {
		if r.ID == id {
			m.calls = append(m.calls, "update "+p.TagName)
			r.Name = p.Name
			r.Body = p.Body
			return clone(r), nil
		}
	}
	return nil, release.ErrNotFound
}

func (m *MemoryStore) DeleteAsset(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.releases {
		for i, a := range r.Assets {
			if a.ID == id {
				m.calls = append(m.calls, "delete "+a.Name)
				r.Assets = append(r.Assets[:i], r.Assets[i+1:]...)
				delete(m.blobs, id)
				return nil
			}
		}
	}
	return fmt.Errorf("asset %d: %w", id, release.ErrNotFound)
}

func (m *MemoryStore) UploadAsset(_ context.Context, rel *release.Release, name string, r io.Reader, size int64) (*release.Asset, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	stored := m.find(rel.TagName)
	if stored == nil {
		return nil, release.ErrNotFound
	}
	if _, dup := stored.Asset(name); dup {
		return nil, fmt.Errorf("asset %s already exists", name)
	}
	a := release.Asset{ID: m.id(), Name: name, Size: int64(len(data))}
	stored.Assets = append(stored.Assets, a)
	m.blobs[a.ID] = data
	m.calls = append(m.calls, "upload "+name)
	return &a, nil
}

func (m *MemoryStore) DownloadAsset(_ context.Context, id int64, w io.Writer) error {
	m.mu.Lock()
	data, ok := m.blobs[id]
	m.mu.Unlock()
	if !ok {
		return release.ErrNotFound
	}
	_, err := io.Copy(w, bytes.NewReader(data))
	return err
}
