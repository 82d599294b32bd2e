package indexed

import (
	"fmt"
	"regexp"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseColumn(t *testing.T) {
	t.Parallel()

	tests := []struct {
		column string
		prefix string
		want   IndexedField
		ok     bool
	}{
		{"permissions.3.role", "permissions", IndexedField{"permissions", 3, "role"}, true},
		{"attendees.0.start.dateTime", "attendees", IndexedField{"attendees", 0, "start.dateTime"}, true},
		{"permissions.10.permissionDetails.0.inherited", "permissions", IndexedField{"permissions", 10, "permissionDetails.0.inherited"}, true},
		{"permissions", "permissions", IndexedField{}, false},
		{"permissions.x.role", "permissions", IndexedField{}, false},
		{"permissions..role", "permissions", IndexedField{}, false},
		{"permissions.-1.role", "permissions", IndexedField{}, false},
		{"permissions.3", "permissions", IndexedField{}, false},
		{"permissions.3.", "permissions", IndexedField{}, false},
		{"permissionsX.3.role", "permissions", IndexedField{}, false},
		{"owners.0.emailAddress", "permissions", IndexedField{}, false},
		{"permissions.99999999999999999999999.role", "permissions", IndexedField{}, false},
		{"a.0.b", "", IndexedField{}, false},
	}

	for _, tc := range tests {
		t.Run(tc.column, func(t *testing.T) {
			t.Parallel()
			got, ok := ParseColumn(tc.column, tc.prefix)
			if ok != tc.ok {
				t.Fatalf("ok=%v, want %v", ok, tc.ok)
			}
			if got != tc.want {
				t.Fatalf("field=%+v, want %+v", got, tc.want)
			}
			if ok && got.Column() != tc.column {
				t.Fatalf("Column()=%q, want %q", got.Column(), tc.column)
			}
		})
	}
}

// TestDecode_OneRecordPerIndex verifies that every distinct index yields one
// record holding exactly its own subfields.
func TestDecode_OneRecordPerIndex(t *testing.T) {
	t.Parallel()

	row := FlatRow{
		"id":                 "F1",
		"permissions.0.type": "user",
		"permissions.0.role": "writer",
		"permissions.2.type": "anyone",
		"permissions.bad.x":  "ignored",
		"permissions.1.id":   "p1",
		"owners.0.email":     "o@x.com",
	}

	got := Decode(row, "permissions")
	want := []Record{
		{Index: 0, Fields: map[string]string{"type": "user", "role": "writer"}},
		{Index: 1, Fields: map[string]string{"id": "p1"}},
		{Index: 2, Fields: map[string]string{"type": "anyone"}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Decode mismatch (-want +got):\n%s", diff)
	}
}

// TestDecode_NoMatchingKeys verifies the boundary case: nothing under the
// prefix decodes to an empty sequence and exploding it drops the row.
func TestDecode_NoMatchingKeys(t *testing.T) {
	t.Parallel()

	row := FlatRow{"id": "F1", "title": "doc"}
	recs := Decode(row, "permissions")
	if len(recs) != 0 {
		t.Fatalf("len(records)=%d, want 0", len(recs))
	}
	if rows := Explode(row, "permissions", recs, nil); len(rows) != 0 {
		t.Fatalf("Explode rows=%d, want 0 (base row must be dropped)", len(rows))
	}
}

func TestPlan_DecodeShortRowAndLastWriteWins(t *testing.T) {
	t.Parallel()

	header := []string{"id", "p.0.a", "p.00.a", "p.1.b"}
	plan := NewPlan(header, "p")

	if diff := cmp.Diff([]string{"a", "b"}, plan.Subfields()); diff != "" {
		t.Fatalf("Subfields (-want +got):\n%s", diff)
	}

	got := plan.Decode(FlatRow{"id": "1", "p.0.a": "first", "p.00.a": "second"})
	want := []Record{{Index: 0, Fields: map[string]string{"a": "second"}}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Decode (-want +got):\n%s", diff)
	}

	base := plan.Base(FlatRow{"id": "1", "p.0.a": "x"})
	if diff := cmp.Diff(FlatRow{"id": "1"}, base); diff != "" {
		t.Fatalf("Base (-want +got):\n%s", diff)
	}
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	t.Parallel()

	recs := []Record{
		{Index: 0, Fields: map[string]string{"type": "user", "emailAddress": "a@x.com"}},
		{Index: 3, Fields: map[string]string{"type": "domain", "domain": "x.com"}},
		{Index: 7, Fields: map[string]string{"start.date": "2024-01-01"}},
	}
	row := encode(recs, "items")
	row["scalar"] = "kept"

	got := Decode(row, "items")
	if diff := cmp.Diff(recs, got); diff != "" {
		t.Fatalf("round trip (-want +got):\n%s", diff)
	}
}

func TestFilter_PreservesOrderAndIsIdempotent(t *testing.T) {
	t.Parallel()

	recs := []Record{
		{Index: 0, Fields: map[string]string{"type": "user", "role": "owner", "emailAddress": "o@x.com"}},
		{Index: 1, Fields: map[string]string{"type": "user", "role": "writer", "emailAddress": "w@y.com"}},
		{Index: 2, Fields: map[string]string{"type": "anyone", "role": "reader"}},
		{Index: 3, Fields: map[string]string{"type": "group", "role": "reader", "emailAddress": "g@x.com"}},
	}

	preds := map[string]Predicate{
		"notEquals": NotEquals("role", "owner"),
		"in":        In("type", "user", "group"),
		"matches":   Matches("emailAddress", regexp.MustCompile(`@x\.com$`)),
		"nonEmpty":  NonEmpty("emailAddress"),
		"all":       All(In("type", "user", "group"), NotEquals("role", "owner"), nil),
		"nil":       nil,
	}

	for name, pred := range preds {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			once := Filter(recs, pred)
			twice := Filter(once, pred)
			if diff := cmp.Diff(once, twice); diff != "" {
				t.Fatalf("not idempotent (-once +twice):\n%s", diff)
			}
			for i := 1; i < len(once); i++ {
				if once[i-1].Index >= once[i].Index {
					t.Fatalf("order not preserved: %d before %d", once[i-1].Index, once[i].Index)
				}
			}
		})
	}

	got := Filter(recs, All(In("type", "user", "group"), NotEquals("role", "owner")))
	if len(got) != 2 || got[0].Index != 1 || got[1].Index != 3 {
		t.Fatalf("All filter kept %+v, want indices 1 and 3", got)
	}
}

func TestRecord_EmptyAndWithout(t *testing.T) {
	t.Parallel()

	r := Record{Index: 1, Fields: map[string]string{"a": "", "b": ""}}
	if !r.Empty() {
		t.Fatalf("Empty()=false, want true")
	}
	if kept := Filter([]Record{r}, NotBlank()); len(kept) != 0 {
		t.Fatalf("NotBlank kept an all-empty record")
	}

	w := Record{Index: 1, Fields: map[string]string{"email": "a@x.com", "photoLink": "http://p"}}.Without("photoLink")
	if w.Has("photoLink") || w.Get("email") != "a@x.com" {
		t.Fatalf("Without()=%+v", w)
	}
}

// TestExplode_PermissionsScenario covers the id + two ACL columns example:
// one input row becomes one row per permission.
func TestExplode_PermissionsScenario(t *testing.T) {
	t.Parallel()

	header := []string{"id", "permissions.0.type", "permissions.0.role", "permissions.1.type", "permissions.1.role"}
	row := FlatRow{
		"id":                 "F1",
		"permissions.0.type": "user",
		"permissions.0.role": "writer",
		"permissions.1.type": "anyone",
		"permissions.1.role": "reader",
	}

	recs := Decode(row, "permissions")
	got := Explode(row, "permissions", recs, nil)
	want := []FlatRow{
		{"id": "F1", "type": "user", "role": "writer"},
		{"id": "F1", "type": "anyone", "role": "reader"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Explode (-want +got):\n%s", diff)
	}

	if diff := cmp.Diff([]string{"id", "type", "role"}, ExplodeHeader(header, "permissions", nil)); diff != "" {
		t.Fatalf("ExplodeHeader (-want +got):\n%s", diff)
	}
}

func TestExplode_RowCountAndColumns(t *testing.T) {
	t.Parallel()

	for n := 0; n < 5; n++ {
		recs := make([]Record, n)
		for i := range recs {
			recs[i] = Record{Index: i, Fields: map[string]string{"email": fmt.Sprintf("u%d@x.com", i), "role": "reader"}}
		}
		base := encode(recs, "attendees")
		base["summary"] = "standup"

		rows := Explode(base, "attendees", recs, Dotted("attendee"))
		if len(rows) != n {
			t.Fatalf("n=%d: rows=%d, want %d", n, len(rows), n)
		}
		for _, r := range rows {
			for k := range r {
				if _, ok := ParseColumn(k, "attendees"); ok {
					t.Fatalf("n=%d: indexed column %q survived explode", n, k)
				}
			}
			if r["summary"] != "standup" || r["attendee.role"] != "reader" || r["attendee.email"] == "" {
				t.Fatalf("n=%d: row=%v", n, r)
			}
		}
	}
}

func TestExplode_DropsMalformedPrefixColumns(t *testing.T) {
	t.Parallel()

	header := []string{"id", "permissions.x.role", "permissions.0.role", "permissions.count"}
	row := FlatRow{
		"id":                 "F1",
		"permissions.x.role": "bogus",
		"permissions.0.role": "reader",
		"permissions.count":  "1",
	}

	got := Explode(row, "permissions", Decode(row, "permissions"), nil)
	if diff := cmp.Diff([]FlatRow{{"id": "F1", "role": "reader"}}, got); diff != "" {
		t.Fatalf("Explode (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"id", "role"}, ExplodeHeader(header, "permissions", nil)); diff != "" {
		t.Fatalf("ExplodeHeader (-want +got):\n%s", diff)
	}
}

func TestExplodeHeader_RenameAndPlacement(t *testing.T) {
	t.Parallel()

	header := []string{"Owner", "id", "permissions.0.id", "permissions.0.role", "name", "permissions.1.role", "permissions.1.domain"}
	rename := Mapped(map[string]string{"id": "permissionId"}, Dotted("permission"))

	got := ExplodeHeader(header, "permissions", rename)
	want := []string{"Owner", "id", "permissionId", "permission.role", "permission.domain", "name"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("ExplodeHeader (-want +got):\n%s", diff)
	}
}

func TestAggregate_ScenarioAndSum(t *testing.T) {
	t.Parallel()

	var recs []Record
	for i, k := range []string{"k1", "k1", "k2"} {
		recs = append(recs, Record{Index: i, Fields: map[string]string{"key": k}})
	}

	g := Aggregate(recs, func(r Record) string { return r.Get("key") }, nil)
	got := g.Counts(ByKey)
	want := []Count{{Key: "k1", N: 2}, {Key: "k2", N: 1}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Counts (-want +got):\n%s", diff)
	}

	sum := 0
	for _, c := range got {
		sum += c.N
	}
	if sum != len(recs) {
		t.Fatalf("sum=%d, want %d", sum, len(recs))
	}
}

func TestAggregate_CollectsValues(t *testing.T) {
	t.Parallel()

	recs := []Record{
		{Index: 0, Fields: map[string]string{"type": "user", "role": "reader"}},
		{Index: 1, Fields: map[string]string{"type": "user", "role": "writer"}},
		{Index: 2, Fields: map[string]string{"type": "anyone", "role": "reader"}},
	}
	g := Aggregate(recs, func(r Record) string { return r.Get("type") }, func(r Record) string { return r.Get("role") })

	if diff := cmp.Diff([]string{"reader", "writer"}, g.Values("user")); diff != "" {
		t.Fatalf("Values (-want +got):\n%s", diff)
	}
	if got := g.Values("group"); got != nil {
		t.Fatalf("Values(group)=%v, want nil", got)
	}
}

// TestSortCounts_CountDescIsStable verifies ties on count fall back to key
// ascending regardless of input order.
func TestSortCounts_CountDescIsStable(t *testing.T) {
	t.Parallel()

	in := []Count{{"b", 2}, {"a", 1}, {"C", 2}, {"d", 5}, {"a2", 1}}
	for i := 0; i < 10; i++ {
		cp := append(append([]Count(nil), in[i%len(in):]...), in[:i%len(in)]...)
		SortCounts(cp, ByCountDesc)
		want := []Count{{"d", 5}, {"C", 2}, {"b", 2}, {"a", 1}, {"a2", 1}}
		if diff := cmp.Diff(want, cp); diff != "" {
			t.Fatalf("iteration %d (-want +got):\n%s", i, diff)
		}
	}
}

func TestCounter(t *testing.T) {
	t.Parallel()

	c := NewCounter()
	c.Add("x.com", 1)
	c.Add("y.com", 2)
	c.Add("x.com", 1)
	c.Add("z.com", 0)

	if c.Len() != 3 || c.Get("x.com") != 2 {
		t.Fatalf("Len=%d Get=%d", c.Len(), c.Get("x.com"))
	}
	want := []Count{{"x.com", 2}, {"y.com", 2}, {"z.com", 0}}
	if diff := cmp.Diff(want, c.Counts(ByCountDesc)); diff != "" {
		t.Fatalf("Counts (-want +got):\n%s", diff)
	}
}

// encode flattens records into prefix.N.subfield columns using each
// record's Index.
func encode(records []Record, prefix string) FlatRow {
	out := make(FlatRow)
	for _, r := range records {
		for sub, v := range r.Fields {
			out[IndexedField{Prefix: prefix, Index: r.Index, Subfield: sub}.Column()] = v
		}
	}
	return out
}
