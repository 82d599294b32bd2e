package indexed

import "sort"

// Record is one element of a repeated group: the subfields found under a
// single prefix.N in a row.
type Record struct {
	Index  int
	Fields map[string]string
}

// Get returns the value of sub, or "" when the subfield is absent.
func (r Record) Get(sub string) string {
	return r.Fields[sub]
}

// Has reports whether sub was present for this index, even if empty.
func (r Record) Has(sub string) bool {
	_, ok := r.Fields[sub]
	return ok
}

// Empty reports whether every subfield value is the empty string.
//
// Exports pad rows that have fewer items than the widest row in the file, so
// a record with only empty values usually means "no item at this index".
func (r Record) Empty() bool {
	for _, v := range r.Fields {
		if v != "" {
			return false
		}
	}
	return true
}

// Without returns a copy of r with the named subfields removed.
func (r Record) Without(subs ...string) Record {
	out := Record{Index: r.Index, Fields: make(map[string]string, len(r.Fields))}
	for k, v := range r.Fields {
		out.Fields[k] = v
	}
	for _, s := range subs {
		delete(out.Fields, s)
	}
	return out
}

type planField struct {
	column   string
	index    int
	subfield string
}

// Plan is the header-level half of decoding: which columns of a file belong
// to a repeated group and which are scalars. Build it once per file, then
// decode every row with it.
type Plan struct {
	fields    []planField
	scalars   []string
	subfields []string
}

// NewPlan classifies header for prefix. Column order is kept, so a later
// duplicate (prefix, N, subfield) wins when rows are decoded.
func NewPlan(header []string, prefix string) *Plan {
	p := &Plan{}
	seen := make(map[string]struct{})
	for _, col := range header {
		f, ok := ParseColumn(col, prefix)
		if !ok {
			p.scalars = append(p.scalars, col)
			continue
		}
		p.fields = append(p.fields, planField{column: col, index: f.Index, subfield: f.Subfield})
		if _, dup := seen[f.Subfield]; !dup {
			seen[f.Subfield] = struct{}{}
			p.subfields = append(p.subfields, f.Subfield)
		}
	}
	return p
}

// Subfields returns the distinct subfields in first-appearance order.
func (p *Plan) Subfields() []string { return p.subfields }

// HasGroup reports whether any header column belongs to the group.
func (p *Plan) HasGroup() bool { return len(p.fields) > 0 }

// Decode groups row's indexed columns into records ordered by index.
// Columns absent from row are skipped, so short rows decode without error.
func (p *Plan) Decode(row FlatRow) []Record {
	if len(p.fields) == 0 {
		return nil
	}
	byIndex := make(map[int]map[string]string)
	for _, f := range p.fields {
		v, ok := row[f.column]
		if !ok {
			continue
		}
		m := byIndex[f.index]
		if m == nil {
			m = make(map[string]string)
			byIndex[f.index] = m
		}
		m[f.subfield] = v
	}
	return sortedRecords(byIndex)
}

// Base returns a copy of row holding only the scalar columns of the plan.
func (p *Plan) Base(row FlatRow) FlatRow {
	out := make(FlatRow, len(p.scalars))
	for _, col := range p.scalars {
		if v, ok := row[col]; ok {
			out[col] = v
		}
	}
	return out
}

// Decode returns the records of the repeated group prefix found in row, one
// per distinct index, in ascending index order.
//
// Edge cases:
//   - Keys that do not match prefix.N.subfield are ignored, including keys
//     with malformed indices.
//   - A row with no matching keys decodes to an empty slice.
//   - Duplicate (N, subfield) pairs merge last-write-wins in key order.
func Decode(row FlatRow, prefix string) []Record {
	return NewPlan(row.Keys(), prefix).Decode(row)
}

func sortedRecords(byIndex map[int]map[string]string) []Record {
	indices := make([]int, 0, len(byIndex))
	for n := range byIndex {
		indices = append(indices, n)
	}
	sort.Ints(indices)

	out := make([]Record, 0, len(indices))
	for _, n := range indices {
		out = append(out, Record{Index: n, Fields: byIndex[n]})
	}
	return out
}
