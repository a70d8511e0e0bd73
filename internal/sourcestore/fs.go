package sourcestore

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
)

// FileSource serves folders from a local directory tree.
type FileSource struct {
	root string
}

// NewFileSource returns a source rooted at root, which must be a directory.
func NewFileSource(root string) (*FileSource, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("fs source root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("fs source root %s is not a directory", root)
	}
	return &FileSource{root: root}, nil
}

func (s *FileSource) List(ctx context.Context, folder string) ([]Entry, error) {
	dir := filepath.Join(s.root, filepath.FromSlash(folder))
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", dir, err)
	}

	var out []Entry
	for _, de := range entries {
		if !de.Type().IsRegular() {
			continue
		}
		info, err := de.Info()
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", de.Name(), err)
		}
		out = append(out, Entry{
			ID:     filepath.Join(dir, de.Name()),
			Name:   de.Name(),
			Size:   info.Size(),
			Folder: folder,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *FileSource) Download(ctx context.Context, e Entry, w io.Writer) error {
	f, err := os.Open(e.ID)
	if err != nil {
		return fmt.Errorf("opening %s: %w", e.ID, err)
	}
	defer f.Close()

	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("reading %s: %w", e.ID, err)
	}
	return nil
}

func (s *FileSource) Close() error { return nil }
