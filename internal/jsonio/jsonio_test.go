package jsonio

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"gamcsv/internal/indexed"

	"github.com/google/go-cmp/cmp"
)

func ids(t *testing.T, input string) []string {
	t.Helper()
	objs, err := ReadObjects(context.Background(), strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadObjects: %v", err)
	}
	out := make([]string, 0, len(objs))
	for _, o := range objs {
		out = append(out, Scalar(o["id"]))
	}
	return out
}

func TestStreamObjects_Shapes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{name: "empty", input: "", want: []string{}},
		{name: "root_array_with_null_and_trailing_jsonl", input: `[{"id":1},null,{"id":2}]` + "\n" + `{"id":3}`, want: []string{"1", "2", "3"}},
		{name: "envelope_skips_rest", input: `{"files":[{"id":"a"},{"id":"b"}],"nextPageToken":{"x":[1,2,{"y":null}]}}`, want: []string{"a", "b"}},
		{name: "single_object", input: `{"id":"only","permissions":[{"role":"owner"}]}`, want: []string{"only"}},
		{name: "jsonl", input: "{\"id\":\"x\"}\n{\"id\":\"y\"}\n", want: []string{"x", "y"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if diff := cmp.Diff(tc.want, ids(t, tc.input)); diff != "" {
				t.Fatalf("ids (-want +got):\n%s", diff)
			}
		})
	}
}

func TestStreamObjects_SingleObjectMaterializesNestedValues(t *testing.T) {
	t.Parallel()

	objs, err := ReadObjects(context.Background(), strings.NewReader(`{"id":"f1","owners":{"emailAddress":"a@x.com"},"permissions":[{"role":"reader","allowFileDiscovery":false}]}`))
	if err != nil {
		t.Fatalf("ReadObjects: %v", err)
	}
	if len(objs) != 1 {
		t.Fatalf("objects=%d, want 1", len(objs))
	}
	perms, ok := objs[0]["permissions"].([]any)
	if !ok || len(perms) != 1 {
		t.Fatalf("permissions=%#v", objs[0]["permissions"])
	}
	if perms[0].(map[string]any)["allowFileDiscovery"] != false {
		t.Fatalf("nested bool lost: %#v", perms[0])
	}
}

func TestStreamObjects_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
	}{
		{name: "root_scalar", input: `42`},
		{name: "array_of_scalars", input: `[{"id":1}, 2]`},
		{name: "truncated", input: `[{"id":1},`},
		{name: "bad_trailing", input: `{"id":1} {"id":`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if _, err := ReadObjects(context.Background(), strings.NewReader(tc.input)); err == nil {
				t.Fatalf("ReadObjects(%q) err=nil, want error", tc.input)
			}
		})
	}
}

func TestStreamObjects_ContextCanceledAndEmitError(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	n := 0
	err := StreamObjects(ctx, strings.NewReader(`[{"id":1},{"id":2}]`), func(map[string]any) error { n++; return nil })
	if !errors.Is(err, context.Canceled) || n != 0 {
		t.Fatalf("err=%v n=%d, want context.Canceled and nothing emitted", err, n)
	}

	stop := errors.New("stop")
	err = StreamObjects(context.Background(), strings.NewReader(`[{"id":1},{"id":2}]`), func(map[string]any) error { return stop })
	if !errors.Is(err, stop) {
		t.Fatalf("emit error not returned: %v", err)
	}
}

func TestFlatten_IndexedConvention(t *testing.T) {
	t.Parallel()

	var obj map[string]any
	dec := json.NewDecoder(strings.NewReader(`{
		"id": "f1",
		"size": 1024,
		"starred": true,
		"trashed": false,
		"description": null,
		"name": {"givenName": "Ann"},
		"parents": ["p0", "p1"],
		"permissions": [{"role": "owner", "emailAddress": "a@x.com"}, {"role": "reader", "type": "anyone"}]
	}`))
	dec.UseNumber()
	if err := dec.Decode(&obj); err != nil {
		t.Fatalf("decode: %v", err)
	}

	want := indexed.FlatRow{
		"id":                         "f1",
		"size":                       "1024",
		"starred":                    "True",
		"trashed":                    "False",
		"description":                "",
		"name.givenName":             "Ann",
		"parents":                    "2",
		"parents.0":                  "p0",
		"parents.1":                  "p1",
		"permissions":                "2",
		"permissions.0.role":         "owner",
		"permissions.0.emailAddress": "a@x.com",
		"permissions.1.role":         "reader",
		"permissions.1.type":         "anyone",
	}
	got := Flatten(obj)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Flatten (-want +got):\n%s", diff)
	}

	recs := indexed.Decode(got, "permissions")
	if len(recs) != 2 || recs[1].Get("type") != "anyone" {
		t.Fatalf("flattened permissions do not decode: %+v", recs)
	}
}

func TestMarshal_SortedKeysAndSeparators(t *testing.T) {
	t.Parallel()

	v := map[string]any{
		"b":     json.Number("1.50"),
		"a":     "Zoë <x@y.com>",
		"list":  []any{true, nil, "q\"uote"},
		"inner": map[string]any{"z": false, "y": "1"},
	}
	got, err := Marshal(v)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	want := `{"a": "Zoë <x@y.com>", "b": 1.50, "inner": {"y": "1", "z": false}, "list": [true, null, "q\"uote"]}`
	if string(got) != want {
		t.Fatalf("Marshal=\n%s\nwant\n%s", got, want)
	}
}

func TestListWriter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	lw := NewListWriter(&buf, "\n")
	for _, v := range []any{map[string]any{"a": "1"}, map[string]any{"a": "2"}} {
		if err := lw.Write(v); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}
	if err := lw.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	want := "[\n  {\"a\": \"1\"},\n  {\"a\": \"2\"}\n]\n"
	if buf.String() != want {
		t.Fatalf("list=%q, want %q", buf.String(), want)
	}

	buf.Reset()
	empty := NewListWriter(&buf, "\r\n")
	if err := empty.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if buf.String() != "[\r\n]\r\n" || empty.Count() != 0 {
		t.Fatalf("empty list=%q", buf.String())
	}
}
