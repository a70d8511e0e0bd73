package sourcestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const (
	driveFolderMimeType = "application/vnd.google-apps.folder"
	notDownloadable     = "fileNotDownloadable"
)

// DriveSource reads folders of a Google Drive shared with a service account.
type DriveSource struct {
	svc *drive.Service
}

// NewDriveSource builds a read-only Drive client. credentialsJSON is the
// service account key; extra options are appended (endpoint overrides in tests).
func NewDriveSource(ctx context.Context, credentialsJSON []byte, extra ...option.ClientOption) (*DriveSource, error) {
	opts := []option.ClientOption{option.WithScopes(drive.DriveReadonlyScope)}
	if len(credentialsJSON) > 0 {
		opts = append(opts, option.WithCredentialsJSON(credentialsJSON))
	}
	opts = append(opts, extra...)

	svc, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Drive client: %w", err)
	}
	return &DriveSource{svc: svc}, nil
}

func (s *DriveSource) List(ctx context.Context, folder string) ([]Entry, error) {
	q := fmt.Sprintf("'%s' in parents and trashed = false", strings.ReplaceAll(folder, "'", `\'`))

	var out []Entry
	err := s.svc.Files.List().
		Q(q).
		Fields("nextPageToken, files(id, name, size, mimeType)").
		Pages(ctx, func(page *drive.FileList) error {
			for _, f := range page.Files {
				if f.MimeType == driveFolderMimeType {
					continue
				}
				out = append(out, Entry{ID: f.Id, Name: f.Name, Size: f.Size, Folder: folder})
			}
			return nil
		})
	if err != nil {
		return nil, fmt.Errorf("listing Drive folder %s: %w", folder, err)
	}
	return out, nil
}

func (s *DriveSource) Download(ctx context.Context, e Entry, w io.Writer) error {
	resp, err := s.svc.Files.Get(e.ID).Context(ctx).Download()
	if err != nil {
		if isNotDownloadable(err) {
			return fmt.Errorf("%s: %w", e.Name, ErrNotDownloadable)
		}
		return fmt.Errorf("downloading %s from Drive: %w", e.Name, err)
	}
	defer resp.Body.Close()

	if _, err := io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("downloading %s from Drive: %w", e.Name, err)
	}
	return nil
}

func (s *DriveSource) Close() error { return nil }

func isNotDownloadable(err error) bool {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		for _, item := range gerr.Errors {
			if item.Reason == notDownloadable {
				return true
			}
		}
		if strings.Contains(gerr.Body, notDownloadable) || strings.Contains(gerr.Message, notDownloadable) {
			return true
		}
	}
	return strings.Contains(err.Error(), notDownloadable)
}
