package csvio

import (
	"bufio"
	"io"
	"strings"

	"gamcsv/internal/indexed"
)

// Writer emits a header followed by rows projected onto it.
type Writer struct {
	bw     *bufio.Writer
	d      Dialect
	header []string
	rows   int
}

// NewWriter returns a Writer using d (zero fields take defaults).
func NewWriter(w io.Writer, d Dialect) *Writer {
	return &Writer{bw: bufio.NewWriter(w), d: d.WithDefaults()}
}

// WriteHeader writes the header row and fixes the column order for WriteRow.
func (w *Writer) WriteHeader(header []string) error {
	w.header = append([]string(nil), header...)
	return w.WriteRecord(header)
}

// Header returns the columns fixed by WriteHeader.
func (w *Writer) Header() []string { return w.header }

// WriteRow writes row in header order. Columns absent from row are written
// empty and columns not in the header are ignored.
func (w *Writer) WriteRow(row indexed.FlatRow) error {
	rec := make([]string, len(w.header))
	for i, col := range w.header {
		rec[i] = row[col]
	}
	if err := w.WriteRecord(rec); err != nil {
		return err
	}
	w.rows++
	return nil
}

// Rows returns the number of data rows written through WriteRow.
func (w *Writer) Rows() int { return w.rows }

// WriteRecord writes raw fields, quoting where needed.
func (w *Writer) WriteRecord(fields []string) error {
	for i, f := range fields {
		if i > 0 {
			if _, err := w.bw.WriteRune(w.d.Comma); err != nil {
				return err
			}
		}
		if err := w.writeField(f, len(fields) == 1); err != nil {
			return err
		}
	}
	_, err := w.bw.WriteString(w.d.LineTerminator)
	return err
}

// Flush writes any buffered data to the underlying writer.
func (w *Writer) Flush() error {
	return w.bw.Flush()
}

func (w *Writer) writeField(f string, only bool) error {
	// A lone empty field is quoted so the record is not read back as a blank line.
	if !w.needsQuotes(f) && !(only && f == "") {
		_, err := w.bw.WriteString(f)
		return err
	}

	q := string(w.d.Quote)
	if _, err := w.bw.WriteString(q); err != nil {
		return err
	}
	if _, err := w.bw.WriteString(strings.ReplaceAll(f, q, q+q)); err != nil {
		return err
	}
	_, err := w.bw.WriteString(q)
	return err
}

func (w *Writer) needsQuotes(f string) bool {
	if f == "" {
		return false
	}
	return strings.ContainsRune(f, w.d.Comma) ||
		strings.ContainsRune(f, w.d.Quote) ||
		strings.ContainsAny(f, "\r\n")
}
