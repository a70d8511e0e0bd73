// Package sourcestore lists and downloads build artifacts from the storage
// service the CI pipeline publishes them to.
package sourcestore

import (
	"context"
	"errors"
	"io"
)

// ErrNotDownloadable marks an entry that exists but has no binary content,
// such as a native Google Docs file. Callers skip it.
var ErrNotDownloadable = errors.New("file is not downloadable")

// Type names a backend.
type Type string

const (
	TypeDrive Type = "drive"
	TypeGCS   Type = "gcs"
	TypeS3    Type = "s3"
	TypeFS    Type = "fs"
)

// Entry is one file found in a folder.
type Entry struct {
	// ID is the backend handle used to download the file.
	ID     string
	Name   string
	Size   int64
	Folder string
}

// Source is a read-only view of a folder-organized file store.
type Source interface {
	// List returns the files directly inside folder.
	List(ctx context.Context, folder string) ([]Entry, error)
	// Download writes the content of e to w.
	Download(ctx context.Context, e Entry, w io.Writer) error
	Close() error
}
