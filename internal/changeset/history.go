package changeset

// History remembers the digest last seen for each name during one run. It
// keeps a file that appears in two folders from being processed twice.
type History struct {
	seen map[string]string
}

func NewHistory() *History {
	return &History{seen: make(map[string]string)}
}

// Observe records digest for name. It returns true when the name is new to the
// run or its digest differs from the one last observed.
func (h *History) Observe(name, digest string) bool {
	prev, ok := h.seen[name]
	h.seen[name] = digest
	return !ok || prev != digest
}

// Len returns the number of distinct names observed.
func (h *History) Len() int {
	return len(h.seen)
}
