package sourcestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// GCSSource treats object prefixes in a Cloud Storage bucket as folders.
type GCSSource struct {
	client *storage.Client
	bucket string
}

// NewGCSSource creates a bucket reader. Without credentialsJSON the client
// falls back to application default credentials.
func NewGCSSource(ctx context.Context, bucket string, credentialsJSON []byte, extra ...option.ClientOption) (*GCSSource, error) {
	if bucket == "" {
		return nil, fmt.Errorf("gcs source requires a bucket")
	}
	var opts []option.ClientOption
	if len(credentialsJSON) > 0 {
		opts = append(opts, option.WithCredentialsJSON(credentialsJSON))
	}
	opts = append(opts, extra...)

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}
	return &GCSSource{client: client, bucket: bucket}, nil
}

func (s *GCSSource) List(ctx context.Context, folder string) ([]Entry, error) {
	prefix := folderPrefix(folder)
	it := s.client.Bucket(s.bucket).Objects(ctx, &storage.Query{Prefix: prefix, Delimiter: "/"})

	var out []Entry
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("listing gs://%s/%s: %w", s.bucket, prefix, err)
		}
		// synthetic directory entries
		if attrs.Name == "" || strings.HasSuffix(attrs.Name, "/") {
			continue
		}
		out = append(out, Entry{ID: attrs.Name, Name: path.Base(attrs.Name), Size: attrs.Size, Folder: folder})
	}
	return out, nil
}

func (s *GCSSource) Download(ctx context.Context, e Entry, w io.Writer) error {
	r, err := s.client.Bucket(s.bucket).Object(e.ID).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return fmt.Errorf("%s: %w", e.Name, ErrNotDownloadable)
		}
		return fmt.Errorf("gcs get failed for %s: %w", e.ID, err)
	}
	defer func() { _ = r.Close() }()

	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("gcs read failed for %s: %w", e.ID, err)
	}
	return nil
}

func (s *GCSSource) Close() error {
	return s.client.Close()
}

// folderPrefix turns a folder name into an object key prefix ending in "/".
// The bucket root is "" or "/".
func folderPrefix(folder string) string {
	folder = strings.Trim(folder, "/")
	if folder == "" {
		return ""
	}
	return folder + "/"
}
