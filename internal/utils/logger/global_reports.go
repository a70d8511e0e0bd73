package logger

import (
	"fmt"
	"os"
	"path/filepath"
)

// StringListReport is a titled list of lines flushed to a text file at the end of a run.
type StringListReport struct {
	Title string
	Items []string
}

// NewStringListReport returns an empty report with the given title.
func NewStringListReport(title string) *StringListReport {
	return &StringListReport{Title: title, Items: []string{}}
}

// Add appends one formatted line.
func (r *StringListReport) Add(format string, args ...any) {
	r.Items = append(r.Items, fmt.Sprintf(format, args...))
}

// WriteToDir appends the report to <dir>/fetched-<title>.txt and clears it.
// It returns the path written to.
func (r *StringListReport) WriteToDir(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating report dir: %w", err)
	}

	reportFullPath := filepath.Join(dir, fmt.Sprintf("fetched-%s.txt", safeTitle(r.Title)))

	f, err := os.OpenFile(reportFullPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return "", fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	for _, item := range r.Items {
		if _, err := fmt.Fprintln(f, item); err != nil {
			return "", fmt.Errorf("writing to file: %w", err)
		}
	}

	r.Items = []string{}
	if _, err := fmt.Fprintln(f); err != nil {
		return "", fmt.Errorf("writing new line to file: %w", err)
	}

	return reportFullPath, nil
}

// safeTitle replaces anything but ASCII letters and digits with underscores.
func safeTitle(title string) string {
	if title == "" {
		return "untitled"
	}
	out := make([]byte, 0, len(title))
	for _, r := range title {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			out = append(out, byte(r))
		} else {
			out = append(out, '_')
		}
	}
	return string(out)
}
