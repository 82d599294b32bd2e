package csvio

import (
	"fmt"
	"strings"

	"gamcsv/internal/indexed"
)

// MissingColumnError reports a required column absent from a file's header.
// The export was produced with the wrong field selection, so it is fatal.
type MissingColumnError struct {
	File   string
	Column string
	Header []string
}

func (e *MissingColumnError) Error() string {
	if len(e.Header) == 0 {
		return fmt.Sprintf("no headers in %s, field %s is required", e.File, e.Column)
	}
	return fmt.Sprintf("field %s is not in %s field names: %s", e.Column, e.File, strings.Join(e.Header, ","))
}

// Require checks that every col is in header.
func Require(file string, header []string, cols ...string) error {
	for _, c := range cols {
		if indexOf(header, c) < 0 {
			return &MissingColumnError{File: file, Column: c, Header: append([]string(nil), header...)}
		}
	}
	return nil
}

// RequireAny checks that at least one of cols is in header; the error names
// the first candidate.
func RequireAny(file string, header []string, cols ...string) error {
	for _, c := range cols {
		if indexOf(header, c) >= 0 {
			return nil
		}
	}
	if len(cols) == 0 {
		return nil
	}
	return &MissingColumnError{File: file, Column: strings.Join(cols, "|"), Header: append([]string(nil), header...)}
}

// Get returns the value of the first candidate column present in row, or def
// when none is. A present candidate wins even when its value is empty.
func Get(row indexed.FlatRow, candidates []string, def string) string {
	for _, c := range candidates {
		if v, ok := row[c]; ok {
			return v
		}
	}
	return def
}

// InsertAfter returns header with col placed right after anchor, or appended
// when anchor is absent. A col already in header is left where it is.
func InsertAfter(header []string, anchor, col string) []string {
	if indexOf(header, col) >= 0 {
		return append([]string(nil), header...)
	}
	i := indexOf(header, anchor)
	if i < 0 {
		return append(append([]string(nil), header...), col)
	}
	return InsertAt(header, i+1, col)
}

// InsertAt returns header with col inserted at position i (clamped).
func InsertAt(header []string, i int, col string) []string {
	if i < 0 {
		i = 0
	}
	if i > len(header) {
		i = len(header)
	}
	out := make([]string, 0, len(header)+1)
	out = append(out, header[:i]...)
	out = append(out, col)
	return append(out, header[i:]...)
}

// Without returns header minus the listed columns, keeping order.
func Without(header []string, drop ...string) []string {
	if len(drop) == 0 {
		return append([]string(nil), header...)
	}
	skip := make(map[string]struct{}, len(drop))
	for _, d := range drop {
		skip[d] = struct{}{}
	}
	out := make([]string, 0, len(header))
	for _, h := range header {
		if _, ok := skip[h]; !ok {
			out = append(out, h)
		}
	}
	return out
}

func indexOf(header []string, col string) int {
	for i, h := range header {
		if h == col {
			return i
		}
	}
	return -1
}
