package artifact

import (
	"sort"
)

// Artifact is one named build output tracked through a run.
type Artifact struct {
	// Name is the file name; unique within a run.
	Name string
	// Digest is the lowercase hex SHA-256 of the content.
	Digest string
	// Path is where the content lives on the local filesystem.
	Path string
	// Source is an opaque handle into the store the artifact came from.
	Source string
	// Size in bytes, -1 when unknown.
	Size int64
}

// DigestMap maps artifact name to content digest.
type DigestMap map[string]string

// Digests builds a DigestMap from a list. Later entries win on duplicate names.
func Digests(list []Artifact) DigestMap {
	out := make(DigestMap, len(list))
	for _, a := range list {
		out[a.Name] = a.Digest
	}
	return out
}

// Names returns the keys of m sorted lexicographically.
func (m DigestMap) Names() []string {
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Index returns the artifacts keyed by name.
func Index(list []Artifact) map[string]Artifact {
	out := make(map[string]Artifact, len(list))
	for _, a := range list {
		out[a.Name] = a
	}
	return out
}
