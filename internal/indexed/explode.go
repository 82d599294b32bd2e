package indexed

import "strings"

// Rename maps a record subfield to its output column name.
type Rename func(subfield string) string

// Identity keeps subfield names as they are.
func Identity(subfield string) string { return subfield }

// Dotted renames subfield to outPrefix.subfield.
func Dotted(outPrefix string) Rename {
	if outPrefix == "" {
		return Identity
	}
	return func(subfield string) string { return outPrefix + "." + subfield }
}

// Mapped renames the subfields listed in m and falls back to next for the
// rest. A nil next means Identity.
func Mapped(m map[string]string, next Rename) Rename {
	if next == nil {
		next = Identity
	}
	return func(subfield string) string {
		if to, ok := m[subfield]; ok && to != "" {
			return to
		}
		return next(subfield)
	}
}

// Explode produces one output row per record: base with every prefix.*
// column removed, merged with the record's subfields renamed by rename.
// Columns under prefix that do not parse as prefix.N.field, such as
// prefix.x.role, are dropped too.
//
// When to use:
//   - One-item-per-row outputs (one ACL per row, one attendee per row).
//
// Edge cases:
//   - Zero records yields zero rows; the base row is dropped, not emitted
//     with empty item columns.
//   - A renamed subfield that collides with a scalar column overwrites it in
//     that output row.
//   - A nil rename means Identity.
func Explode(base FlatRow, prefix string, records []Record, rename Rename) []FlatRow {
	if len(records) == 0 {
		return nil
	}
	if rename == nil {
		rename = Identity
	}

	scalar := make(FlatRow, len(base))
	for k, v := range base {
		if !underPrefix(k, prefix) {
			scalar[k] = v
		}
	}

	out := make([]FlatRow, 0, len(records))
	for _, r := range records {
		row := scalar.Clone()
		for sub, v := range r.Fields {
			row[rename(sub)] = v
		}
		out = append(out, row)
	}
	return out
}

// ExplodeHeader returns the output header matching Explode for an input
// header. Scalar columns keep their order; the renamed subfields are placed
// where the first prefix.* column stood, in first-appearance order.
func ExplodeHeader(header []string, prefix string, rename Rename) []string {
	if rename == nil {
		rename = Identity
	}
	plan := NewPlan(header, prefix)

	scalars := make(map[string]struct{}, len(header))
	for _, col := range header {
		if !underPrefix(col, prefix) {
			scalars[col] = struct{}{}
		}
	}

	out := make([]string, 0, len(scalars)+len(plan.subfields))
	inserted := false
	for _, col := range header {
		if !underPrefix(col, prefix) {
			out = append(out, col)
			continue
		}
		if inserted {
			continue
		}
		inserted = true
		seen := make(map[string]struct{}, len(plan.subfields))
		for _, sub := range plan.subfields {
			name := rename(sub)
			if _, ok := scalars[name]; ok {
				continue
			}
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			out = append(out, name)
		}
	}
	return out
}

func underPrefix(column, prefix string) bool {
	return prefix != "" && strings.HasPrefix(column, prefix+".")
}
