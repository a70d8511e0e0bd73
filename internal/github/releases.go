package github

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/itsmechinmoy/dartotsu-updater/internal/release"
)

// ReleaseStore implements release.Store for one repository.
type ReleaseStore struct {
	client *Client
	repo   string
}

var _ release.Store = (*ReleaseStore)(nil)

// Releases returns the release store of repo ("owner/name").
func (c *Client) Releases(repo string) *ReleaseStore {
	return &ReleaseStore{client: c, repo: repo}
}

func (s *ReleaseStore) getRelease(ctx context.Context, op, path string) (*release.Release, error) {
	req, err := s.client.newRequest(ctx, http.MethodGet, s.client.endpoint("repos/%s/%s", s.repo, path), nil)
	if err != nil {
		return nil, err
	}
	body, err := s.client.do(op, req, http.StatusOK)
	if err != nil {
		if isStatus(err, http.StatusNotFound) {
			return nil, fmt.Errorf("%s: %w", op, release.ErrNotFound)
		}
		return nil, err
	}

	var rel release.Release
	if err := decode(op, "release", body, &rel); err != nil {
		return nil, err
	}
	return &rel, nil
}

func (s *ReleaseStore) GetReleaseByTag(ctx context.Context, tag string) (*release.Release, error) {
	return s.getRelease(ctx, "get release "+tag, "releases/tags/"+url.PathEscape(tag))
}

func (s *ReleaseStore) LatestRelease(ctx context.Context) (*release.Release, error) {
	return s.getRelease(ctx, "get latest release", "releases/latest")
}

func (s *ReleaseStore) CreateRelease(ctx context.Context, p release.Params) (*release.Release, error) {
	op := "create release " + p.TagName
	body, err := s.client.sendJSON(ctx, op, http.MethodPost, s.client.endpoint("repos/%s/releases", s.repo), p, http.StatusCreated)
	if err != nil {
		return nil, err
	}
	var rel release.Release
	if err := decode(op, "release", body, &rel); err != nil {
		return nil, err
	}
	return &rel, nil
}

func (s *ReleaseStore) UpdateRelease(ctx context.Context, id int64, p release.Params) (*release.Release, error) {
	op := "update release " + p.TagName
	body, err := s.client.sendJSON(ctx, op, http.MethodPatch, s.client.endpoint("repos/%s/releases/%d", s.repo, id), p, http.StatusOK)
	if err != nil {
		return nil, err
	}
	var rel release.Release
	if err := decode(op, "release", body, &rel); err != nil {
		return nil, err
	}
	return &rel, nil
}

func (s *ReleaseStore) DeleteAsset(ctx context.Context, id int64) error {
	op := fmt.Sprintf("delete asset %d", id)
	req, err := s.client.newRequest(ctx, http.MethodDelete, s.client.endpoint("repos/%s/releases/assets/%d", s.repo, id), nil)
	if err != nil {
		return err
	}
	_, err = s.client.do(op, req, http.StatusNoContent)
	return err
}

// UploadAsset posts r to the release's upload URL. The URL template suffix
// ("{?name,label}") is dropped and the name passed as a query parameter.
func (s *ReleaseStore) UploadAsset(ctx context.Context, rel *release.Release, name string, r io.Reader, size int64) (*release.Asset, error) {
	op := "upload asset " + name
	if rel == nil || rel.UploadURL == "" {
		return nil, fmt.Errorf("%s: release has no upload URL", op)
	}
	base, _, _ := strings.Cut(rel.UploadURL, "{")
	target := base + "?name=" + url.QueryEscape(name)

	req, err := s.client.newRequest(ctx, http.MethodPost, target, r)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	req.ContentLength = size

	body, err := s.client.do(op, req, http.StatusCreated)
	if err != nil {
		return nil, err
	}
	var asset release.Asset
	if err := decode(op, "asset", body, &asset); err != nil {
		return nil, err
	}
	return &asset, nil
}

// DownloadAsset streams the binary content of an asset into w. Redirects to
// the storage backend are followed by the HTTP client.
func (s *ReleaseStore) DownloadAsset(ctx context.Context, id int64, w io.Writer) error {
	op := fmt.Sprintf("download asset %d", id)
	req, err := s.client.newRequest(ctx, http.MethodGet, s.client.endpoint("repos/%s/releases/assets/%d", s.repo, id), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/octet-stream")

	resp, err := s.client.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: failed to send request: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if resp.StatusCode == http.StatusNotFound {
			return fmt.Errorf("%s: %w", op, release.ErrNotFound)
		}
		return &APIError{Op: op, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}
	if _, err := io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
