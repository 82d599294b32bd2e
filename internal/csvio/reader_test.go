package csvio

import (
	"bytes"
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"

	"gamcsv/internal/indexed"
)

func TestReader_CellBytesPassThrough(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		in    string
		quote rune
		want  []indexed.FlatRow
	}{
		{
			name: "latin-1 byte unquoted",
			in:   "a\n\xe9\n",
			want: []indexed.FlatRow{{"a": "\xe9"}},
		},
		{
			name: "latin-1 bytes quoted next to doubled quote",
			in:   "a,b\n\"Ren\xe9e \"\"R\"\"\",caf\xe9\n",
			want: []indexed.FlatRow{{"a": "Ren\xe9e \"R\"", "b": "caf\xe9"}},
		},
		{
			name: "invalid byte before separator and line end",
			in:   "a,b\n\xff,\xfe\r\n",
			want: []indexed.FlatRow{{"a": "\xff", "b": "\xfe"}},
		},
		{
			name: "truncated multi-byte sequence at end of input",
			in:   "a\nx\xc3",
			want: []indexed.FlatRow{{"a": "x\xc3"}},
		},
		{
			name: "replacement character stays as is",
			in:   "a\n�\n",
			want: []indexed.FlatRow{{"a": "�"}},
		},
		{
			name: "raw CR inside quotes",
			in:   "a,b\n\"x\ry\",2\n\"p\r\nq\",3\n",
			want: []indexed.FlatRow{{"a": "x\ry", "b": "2"}, {"a": "p\r\nq", "b": "3"}},
		},
		{
			name:  "invalid byte after custom quote",
			in:    "a\n'it''s\xe9'\n",
			quote: '\'',
			want:  []indexed.FlatRow{{"a": "it's\xe9"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r := mustReader(t, tt.in, ReaderOptions{Dialect: Dialect{Quote: tt.quote}})
			rows, err := r.ReadAll(context.Background())
			if err != nil {
				t.Fatalf("ReadAll: %v", err)
			}
			if diff := cmp.Diff(tt.want, rows); diff != "" {
				t.Fatalf("rows (-want +got):\n%s", diff)
			}
		})
	}
}

func TestReaderWriter_NonUTF8RoundTrip(t *testing.T) {
	t.Parallel()

	in := "name,dept\nRen\xe9e,\"R&D, caf\xe9\"\n"
	r := mustReader(t, in, ReaderOptions{})
	rows, err := r.ReadAll(context.Background())
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}

	var out bytes.Buffer
	w := NewWriter(&out, DefaultDialect())
	if err := w.WriteHeader(r.Header()); err != nil {
		t.Fatalf("WriteHeader: %v", err)
	}
	for _, row := range rows {
		if err := w.WriteRow(row); err != nil {
			t.Fatalf("WriteRow: %v", err)
		}
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if got := out.String(); got != in {
		t.Fatalf("round trip=%q, want %q", got, in)
	}
}
