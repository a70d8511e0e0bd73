package release

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned by a Store when the requested release does not exist.
var ErrNotFound = errors.New("release not found")

// Asset is a named binary attached to a release.
type Asset struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Size int64  `json:"size"`
	// Digest is the server-computed "sha256:<hex>" value, empty when the
	// platform did not provide one.
	Digest      string `json:"digest,omitempty"`
	DownloadURL string `json:"browser_download_url,omitempty"`
}

// Release is a published, tagged set of assets with a markdown body.
type Release struct {
	ID        int64   `json:"id"`
	TagName   string  `json:"tag_name"`
	Name      string  `json:"name"`
	Body      string  `json:"body"`
	HTMLURL   string  `json:"html_url,omitempty"`
	UploadURL string  `json:"upload_url"`
	Assets    []Asset `json:"assets"`
}

// Asset returns the asset called name.
func (r *Release) Asset(name string) (Asset, bool) {
	for _, a := range r.Assets {
		if a.Name == name {
			return a, true
		}
	}
	return Asset{}, false
}

// Params carries the mutable fields of a release.
type Params struct {
	TagName string `json:"tag_name"`
	Name    string `json:"name"`
	Body    string `json:"body"`
}

// Store is the release side of a code-hosting repository.
type Store interface {
	GetReleaseByTag(ctx context.Context, tag string) (*Release, error)
	LatestRelease(ctx context.Context) (*Release, error)
	CreateRelease(ctx context.Context, p Params) (*Release, error)
	UpdateRelease(ctx context.Context, id int64, p Params) (*Release, error)
	DeleteAsset(ctx context.Context, id int64) error
	UploadAsset(ctx context.Context, rel *Release, name string, r io.Reader, size int64) (*Asset, error)
	DownloadAsset(ctx context.Context, id int64, w io.Writer) error
}
