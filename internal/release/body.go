package release

import (
	"strings"

	"github.com/itsmechinmoy/dartotsu-updater/internal/artifact"
	"github.com/itsmechinmoy/dartotsu-updater/internal/hasher"
)

const (
	commitLogsHeading    = "## Commit Logs\n"
	checksumTableHeading = "## Checksum Table\n"
	checksumTableHeader  = "| File Name | SHA-256 Checksum |\n|-----------|-----------------|\n"
)

// placeholders are messages the upstream notifier emits instead of real logs.
var placeholders = []string{
	"● No new commits",
	"● No workflow run data available",
	"● No sendMessage job found",
	"● Error fetching commit logs",
}

var commitLogReplacer = strings.NewReplacer("%0A", "\n", "%0D", "\r", "%25", "%")

// DecodeCommitLogs undoes the percent-encoding CI applies to multi-line values.
func DecodeCommitLogs(s string) string {
	return commitLogReplacer.Replace(s)
}

// IsPlaceholder reports whether logs carry no real commit information.
func IsPlaceholder(logs string) bool {
	trimmed := strings.TrimSpace(logs)
	if trimmed == "" {
		return true
	}
	for _, p := range placeholders {
		if trimmed == p {
			return true
		}
	}
	return false
}

// ChecksumTable renders one markdown row per artifact in presentation order.
// It returns "" for an empty list.
func ChecksumTable(list []artifact.Artifact, order artifact.Order) string {
	if len(list) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(checksumTableHeader)
	for _, a := range order.Sort(list) {
		b.WriteString("| ")
		b.WriteString(a.Name)
		b.WriteString(" | ")
		b.WriteString(hasher.Prefixed(a.Digest))
		b.WriteString(" |\n")
	}
	return b.String()
}

// ComposeBody builds the release notes: an optional commit log section
// followed by an optional checksum table.
func ComposeBody(commitLogs string, list []artifact.Artifact, order artifact.Order) string {
	var b strings.Builder
	if !IsPlaceholder(commitLogs) {
		b.WriteString(commitLogsHeading)
		b.WriteString(commitLogs)
		b.WriteString("\n\n")
	}
	if table := ChecksumTable(list, order); table != "" {
		b.WriteString(checksumTableHeading)
		b.WriteString(table)
	}
	return b.String()
}
