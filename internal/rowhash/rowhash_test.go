package rowhash

import (
	"testing"

	"gamcsv/internal/indexed"
)

func TestSum_DeterministicWithTrim(t *testing.T) {
	h := Hasher{Fields: []string{"id", "name"}, TrimSpace: true}

	s1 := h.Sum(indexed.FlatRow{"id": "1", "name": " Budget "})
	s2 := h.Sum(indexed.FlatRow{"id": "1", "name": "Budget", "other": "ignored"})
	if len(s1) != 64 {
		t.Fatalf("expected sha256 hex length 64, got %d (%q)", len(s1), s1)
	}
	if s1 != s2 {
		t.Fatalf("expected same hash after trimming; s1=%q s2=%q", s1, s2)
	}
}

func TestSum_ChangesWhenFieldChanges(t *testing.T) {
	h := Hasher{Fields: []string{"id"}}
	if h.Sum(indexed.FlatRow{"id": "A"}) == h.Sum(indexed.FlatRow{"id": "B"}) {
		t.Fatalf("expected different hashes when inputs differ")
	}
}

func TestSum_MissingVsEmptyDifferent(t *testing.T) {
	h := Hasher{Fields: []string{"id", "name"}}
	missing := h.Sum(indexed.FlatRow{"id": "1"})
	empty := h.Sum(indexed.FlatRow{"id": "1", "name": ""})
	if missing == empty {
		t.Fatalf("expected missing and empty to hash differently")
	}
}

func TestSum_NoSeparatorCollisions(t *testing.T) {
	h := Hasher{Fields: []string{"a", "b"}}
	x := h.Sum(indexed.FlatRow{"a": "x\x1fy", "b": ""})
	y := h.Sum(indexed.FlatRow{"a": "x", "b": "y"})
	z := h.Sum(indexed.FlatRow{"a": "1:x", "b": ""})
	w := h.Sum(indexed.FlatRow{"a": "", "b": "x"})
	if x == y || z == w {
		t.Fatalf("length-prefixed values collided")
	}
}

func TestSum_FieldOrderMatters(t *testing.T) {
	row := indexed.FlatRow{"a": "1", "b": "2"}
	if (Hasher{Fields: []string{"a", "b"}}).Sum(row) == (Hasher{Fields: []string{"b", "a"}}).Sum(row) {
		t.Fatalf("expected field order to change the fingerprint")
	}
}

func TestSeen(t *testing.T) {
	h := Hasher{Fields: []string{"orgUnitPath"}}
	a := indexed.FlatRow{"orgUnitPath": "/Staff", "name": "A"}
	b := indexed.FlatRow{"orgUnitPath": "/Staff", "name": "B"}

	seen := Seen{}
	if !seen.Add(h.Sum(a)) {
		t.Fatalf("first Add should be new")
	}
	if seen.Add(h.Sum(b)) {
		t.Fatalf("second Add of same fingerprint should not be new")
	}
}
