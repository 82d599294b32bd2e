// Package indexed implements the codec for the repeated-group column
// convention used by directory-tool CSV exports.
//
// A list of N structured items is flattened into one CSV row as columns named
// prefix.0.field, prefix.1.field, ... prefix.N.field. This package turns such a
// row back into records, filters them, explodes them into one row per item and
// aggregates them. Everything here is pure: no I/O, no logging.
package indexed

import (
	"sort"
	"strconv"
	"strings"
)

// FlatRow is one CSV data row addressed by column name.
type FlatRow map[string]string

// Clone returns a shallow copy of r.
func (r FlatRow) Clone() FlatRow {
	out := make(FlatRow, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Keys returns the column names of r in ascending order.
func (r FlatRow) Keys() []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// IndexedField is a column name split into its repeated-group parts.
type IndexedField struct {
	Prefix   string
	Index    int
	Subfield string
}

// Column renders f back into its flattened column name.
func (f IndexedField) Column() string {
	return f.Prefix + "." + strconv.Itoa(f.Index) + "." + f.Subfield
}

// ParseColumn splits column into (prefix, index, subfield) when it has the
// shape prefix.N.subfield for the given prefix.
//
// Edge cases:
//   - The subfield may itself contain dots ("start.dateTime"); only the first
//     "prefix.N." is split off.
//   - Non-digit, empty or overflowing indices are reported as non-matching,
//     never as errors.
//   - An empty prefix never matches.
func ParseColumn(column, prefix string) (IndexedField, bool) {
	if prefix == "" {
		return IndexedField{}, false
	}
	rest, ok := strings.CutPrefix(column, prefix+".")
	if !ok {
		return IndexedField{}, false
	}
	num, sub, ok := strings.Cut(rest, ".")
	if !ok || sub == "" || !isDigits(num) {
		return IndexedField{}, false
	}
	n, err := strconv.Atoi(num)
	if err != nil {
		return IndexedField{}, false
	}
	return IndexedField{Prefix: prefix, Index: n, Subfield: sub}, true
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
