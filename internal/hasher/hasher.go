// Package hasher computes the SHA-256 content digests used for change detection.
//
// Input is always streamed through a fixed-size buffer, so the memory used does
// not grow with the size of the artifact.
package hasher

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"strings"
)

// Algorithm is the name used when a digest is rendered with a prefix, e.g. "sha256:ab12...".
const Algorithm = "sha256"

// HexLen is the length of a hex-encoded digest.
const HexLen = sha256.Size * 2

const bufSize = 32 * 1024

// Writer is an io.Writer that accumulates a digest of everything written to it.
type Writer struct {
	h hash.Hash
}

// NewWriter returns an empty digest writer.
func NewWriter() *Writer {
	return &Writer{h: sha256.New()}
}

func (w *Writer) Write(p []byte) (int, error) {
	return w.h.Write(p)
}

// Sum returns the lowercase hex digest of the bytes written so far.
func (w *Writer) Sum() string {
	return hex.EncodeToString(w.h.Sum(nil))
}

// Reader digests r until EOF.
func Reader(r io.Reader) (string, error) {
	w := NewWriter()
	buf := make([]byte, bufSize)
	if _, err := io.CopyBuffer(w, r, buf); err != nil {
		return "", fmt.Errorf("hashing stream: %w", err)
	}
	return w.Sum(), nil
}

// File digests the file at path.
func File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening %s for hashing: %w", path, err)
	}
	defer f.Close()

	sum, err := Reader(f)
	if err != nil {
		return "", fmt.Errorf("hashing %s: %w", path, err)
	}
	return sum, nil
}

// Bytes digests an in-memory buffer.
func Bytes(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// Prefixed renders a digest as "sha256:<hex>".
func Prefixed(digest string) string {
	return Algorithm + ":" + digest
}

// ParsePrefixed extracts the hex digest from "sha256:<hex>".
// ok is false for other algorithms or malformed values.
func ParsePrefixed(s string) (digest string, ok bool) {
	algo, digest, found := strings.Cut(strings.TrimSpace(s), ":")
	if !found || !strings.EqualFold(algo, Algorithm) {
		return "", false
	}
	digest = strings.ToLower(digest)
	if !IsDigest(digest) {
		return "", false
	}
	return digest, true
}

// IsDigest reports whether s looks like a lowercase hex SHA-256 digest.
func IsDigest(s string) bool {
	if len(s) != HexLen {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil && strings.ToLower(s) == s
}
