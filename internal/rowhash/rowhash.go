// Package rowhash fingerprints CSV rows over a chosen set of columns, for
// duplicate detection and change comparison.
package rowhash

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"

	"gamcsv/internal/indexed"
)

// Hasher computes a deterministic SHA-256 over selected fields of a row.
//
// Canonical form:
//   - Fields are taken in the given order.
//   - Each present value is written as its byte length, ':' and the value, so
//     no choice of separator can make two different rows collide.
//   - A missing column is encoded as a single NUL byte, so missing differs
//     from empty.
//   - Output is a lowercase hex string (length 64).
type Hasher struct {
	// Fields is the ordered list of columns hashed.
	Fields []string

	// TrimSpace trims surrounding whitespace of values before hashing.
	TrimSpace bool
}

// Sum returns the hex fingerprint of row.
func (h Hasher) Sum(row indexed.FlatRow) string {
	var b strings.Builder
	b.Grow(len(h.Fields) * 24)

	for _, f := range h.Fields {
		v, ok := row[f]
		if !ok {
			b.WriteByte('\x00')
			continue
		}
		if h.TrimSpace && hasEdgeSpace(v) {
			v = strings.TrimSpace(v)
		}
		writeChunk(&b, v)
	}

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

func writeChunk(b *strings.Builder, s string) {
	b.WriteString(strconv.Itoa(len(s)))
	b.WriteByte(':')
	b.WriteString(s)
}

// hasEdgeSpace is a cheap check before calling strings.TrimSpace.
func hasEdgeSpace(s string) bool {
	if s == "" {
		return false
	}
	return isSpace(s[0]) || isSpace(s[len(s)-1])
}

func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '\v', '\f':
		return true
	}
	return false
}

// Seen tracks fingerprints already emitted.
type Seen map[string]struct{}

// Add records sum and reports whether it was new.
func (s Seen) Add(sum string) bool {
	if _, ok := s[sum]; ok {
		return false
	}
	s[sum] = struct{}{}
	return true
}
