package jsonio

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
)

// Marshal encodes v with sorted object keys, non-ASCII text kept as is, and
// ", " / ": " separators, matching the JSON the directory tool itself
// writes into CSV cells.
func Marshal(v any) ([]byte, error) {
	var b bytes.Buffer
	if err := writeValue(&b, v); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

func writeValue(b *bytes.Buffer, v any) error {
	switch t := v.(type) {
	case nil:
		b.WriteString("null")
	case bool:
		if t {
			b.WriteString("true")
		} else {
			b.WriteString("false")
		}
	case json.Number:
		b.WriteString(t.String())
	case string:
		return writeString(b, t)
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				b.WriteString(", ")
			}
			if err := writeString(b, k); err != nil {
				return err
			}
			b.WriteString(": ")
			if err := writeValue(b, t[k]); err != nil {
				return err
			}
		}
		b.WriteByte('}')
	case []any:
		b.WriteByte('[')
		for i, e := range t {
			if i > 0 {
				b.WriteString(", ")
			}
			if err := writeValue(b, e); err != nil {
				return err
			}
		}
		b.WriteByte(']')
	default:
		// Go-typed values (float64, []string, structs) take the stdlib path.
		raw, err := json.Marshal(t)
		if err != nil {
			return fmt.Errorf("json: marshal %T: %w", v, err)
		}
		b.Write(raw)
	}
	return nil
}

func writeString(b *bytes.Buffer, s string) error {
	var sb bytes.Buffer
	enc := json.NewEncoder(&sb)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return err
	}
	b.Write(bytes.TrimSuffix(sb.Bytes(), []byte("\n")))
	return nil
}

// ListWriter writes a JSON array with one object per line:
//
//	[
//	  {"a": "1"},
//	  {"a": "2"}
//	]
type ListWriter struct {
	w    io.Writer
	term string
	n    int
}

// NewListWriter writes to w using term as the line terminator.
func NewListWriter(w io.Writer, term string) *ListWriter {
	if term == "" {
		term = "\n"
	}
	return &ListWriter{w: w, term: term}
}

// Write appends one element.
func (l *ListWriter) Write(v any) error {
	raw, err := Marshal(v)
	if err != nil {
		return err
	}
	sep := "[" + l.term
	if l.n > 0 {
		sep = "," + l.term
	}
	l.n++
	_, err = fmt.Fprintf(l.w, "%s  %s", sep, raw)
	return err
}

// Close terminates the array. An empty list is written as "[" and "]" on
// two lines.
func (l *ListWriter) Close() error {
	if l.n == 0 {
		_, err := io.WriteString(l.w, "["+l.term+"]"+l.term)
		return err
	}
	_, err := io.WriteString(l.w, l.term+"]"+l.term)
	return err
}

// Count is the number of elements written.
func (l *ListWriter) Count() int { return l.n }
