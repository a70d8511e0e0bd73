// Package changeset classifies artifacts by comparing fresh digests against the
// digests of a previously published release.
package changeset

import (
	"sort"

	"github.com/itsmechinmoy/dartotsu-updater/internal/artifact"
)

// Status is the classification of one artifact name.
type Status string

const (
	Unchanged Status = "unchanged"
	New       Status = "new"
	Modified  Status = "modified"
	// Missing names exist remotely but not in the fresh set. They are reported
	// and never acted on.
	Missing Status = "missing"
)

// Change describes one name in the union of the fresh and remote sets.
type Change struct {
	Name   string `json:"name"`
	Status Status `json:"status"`
	Local  string `json:"local,omitempty"`
	Remote string `json:"remote,omitempty"`
}

// Result holds every change in presentation order.
type Result struct {
	Changes []Change `json:"changes"`
}

// Compare classifies every name present in fresh or remote. A nil remote map
// means there is no previous release, so every fresh name is New.
func Compare(fresh, remote artifact.DigestMap, order artifact.Order) Result {
	// Keys union
	keys := make([]string, 0, len(fresh)+len(remote))
	seen := map[string]struct{}{}
	for k := range fresh {
		seen[k] = struct{}{}
		keys = append(keys, k)
	}
	for k := range remote {
		if _, ok := seen[k]; !ok {
			keys = append(keys, k)
		}
	}

	sort.Strings(keys)
	keys = order.SortNames(keys)

	out := Result{Changes: make([]Change, 0, len(keys))}
	for _, k := range keys {
		l, lok := fresh[k]
		r, rok := remote[k]

		c := Change{Name: k, Local: l, Remote: r}
		switch {
		case lok && !rok:
			c.Status = New
		case !lok && rok:
			c.Status = Missing
		case l == r:
			c.Status = Unchanged
		default:
			c.Status = Modified
		}
		out.Changes = append(out.Changes, c)
	}

	return out
}

// HasChanges reports whether at least one name is New or Modified.
func (r Result) HasChanges() bool {
	for _, c := range r.Changes {
		if c.Status == New || c.Status == Modified {
			return true
		}
	}
	return false
}

// Names returns, in result order, the names whose status is one of statuses.
func (r Result) Names(statuses ...Status) []string {
	var out []string
	for _, c := range r.Changes {
		for _, s := range statuses {
			if c.Status == s {
				out = append(out, c.Name)
				break
			}
		}
	}
	return out
}

// Count returns how many names have the given status.
func (r Result) Count(s Status) int {
	n := 0
	for _, c := range r.Changes {
		if c.Status == s {
			n++
		}
	}
	return n
}

// Lookup returns the change recorded for name.
func (r Result) Lookup(name string) (Change, bool) {
	for _, c := range r.Changes {
		if c.Name == name {
			return c, true
		}
	}
	return Change{}, false
}
