package csvio

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"gamcsv/internal/indexed"
)

const utf8BOM = "\uFEFF"

// ReaderOptions controls how a Reader interprets its input.
type ReaderOptions struct {
	// Name identifies the file in error messages. "-" is shown as "stdin".
	Name string

	Dialect Dialect

	// Headerless means the input has no header row; Columns names the fields
	// positionally instead.
	Headerless bool
	Columns    []string

	// HeaderMap renames header columns on read (old export name -> new name).
	HeaderMap map[string]string

	// StrictWidth rejects rows with more fields than the header.
	StrictWidth bool
}

// Reader streams header-addressed rows from a CSV source.
type Reader struct {
	name   string
	rr     *recordReader
	header []string
	strict bool
	rows   int
}

// NewReader reads the header row (unless Headerless) and returns a Reader
// positioned at the first data row.
//
// Edge cases:
//   - A UTF-8 BOM before the first header cell is stripped.
//   - Header cells are trimmed of surrounding whitespace.
//   - Empty input yields an empty header and no rows, not an error; callers
//     that need columns find out through Require.
func NewReader(r io.Reader, opts ReaderOptions) (*Reader, error) {
	d := opts.Dialect.WithDefaults()
	if err := d.Validate(); err != nil {
		return nil, err
	}
	br := bufio.NewReader(r)
	if b, err := br.Peek(len(utf8BOM)); err == nil && string(b) == utf8BOM {
		_, _ = br.Discard(len(utf8BOM))
	}
	rd := &Reader{
		name:   displayName(opts.Name),
		rr:     &recordReader{br: br, d: d},
		strict: opts.StrictWidth,
	}

	if opts.Headerless {
		rd.header = append([]string(nil), opts.Columns...)
		return rd, nil
	}

	hdr, err := rd.rr.read()
	if errors.Is(err, io.EOF) {
		return rd, nil
	}
	if err != nil {
		return nil, &ParseError{File: rd.name, Line: rd.rr.line, Err: fmt.Errorf("read header: %w", err)}
	}
	for i, h := range hdr {
		if i == 0 {
			h = strings.TrimPrefix(h, utf8BOM)
		}
		h = strings.TrimSpace(h)
		if mapped, ok := opts.HeaderMap[h]; ok && mapped != "" {
			h = mapped
		}
		hdr[i] = h
	}
	rd.header = hdr
	return rd, nil
}

// Name returns the display name of the source.
func (r *Reader) Name() string { return r.name }

// Header returns the column names in file order.
func (r *Reader) Header() []string { return r.header }

// Line returns the physical line number of the last record read.
func (r *Reader) Line() int { return r.rr.line }

// Rows returns the number of data rows returned so far.
func (r *Reader) Rows() int { return r.rows }

// Require fails with a *MissingColumnError naming the first absent column.
func (r *Reader) Require(cols ...string) error {
	return Require(r.name, r.header, cols...)
}

// Has reports whether col is in the header.
func (r *Reader) Has(col string) bool {
	return indexOf(r.header, col) >= 0
}

// Next returns the next data row, or io.EOF after the last one.
// Rows shorter than the header get "" for the missing columns; extra fields
// are dropped unless StrictWidth is set.
func (r *Reader) Next() (indexed.FlatRow, error) {
	rec, err := r.rr.read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, &ParseError{File: r.name, Line: r.rr.line, Err: err}
	}
	if r.strict && len(rec) > len(r.header) {
		return nil, &ParseError{File: r.name, Line: r.rr.line,
			Err: fmt.Errorf("row has %d fields, header has %d", len(rec), len(r.header))}
	}

	row := make(indexed.FlatRow, len(r.header))
	for i, col := range r.header {
		if i < len(rec) {
			row[col] = rec[i]
		} else {
			row[col] = ""
		}
	}
	r.rows++
	return row, nil
}

// ForEach calls fn for every remaining row, stopping at the first error or
// when ctx is cancelled.
func (r *Reader) ForEach(ctx context.Context, fn func(indexed.FlatRow) error) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		row, err := r.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := fn(row); err != nil {
			return err
		}
	}
}

// ReadAll collects every remaining row.
func (r *Reader) ReadAll(ctx context.Context) ([]indexed.FlatRow, error) {
	var out []indexed.FlatRow
	err := r.ForEach(ctx, func(row indexed.FlatRow) error {
		out = append(out, row)
		return nil
	})
	return out, err
}

// recordReader splits a byte stream into records. It follows the
// spreadsheet-export flavour of CSV: a quote inside an unquoted field is
// literal, a doubled quote inside a quoted field is one quote, and text after
// a closing quote is appended to the field.
type recordReader struct {
	br   *bufio.Reader
	d    Dialect
	line int
}

func (rr *recordReader) read() ([]string, error) {
	for {
		rec, blank, err := rr.readOne()
		if err != nil {
			return nil, err
		}
		if !blank {
			return rec, nil
		}
	}
}

// readOne reads one physical record. blank is true for an empty line, which
// callers skip.
func (rr *recordReader) readOne() (rec []string, blank bool, err error) {
	var (
		field   strings.Builder
		sawAny  bool
		atStart = true
	)
	rr.line++

	endField := func() {
		rec = append(rec, field.String())
		field.Reset()
		atStart = true
	}

	for {
		c, raw, rerr := rr.next()
		if rerr != nil {
			if !errors.Is(rerr, io.EOF) {
				return nil, false, rerr
			}
			if !sawAny {
				return nil, false, io.EOF
			}
			endField()
			return rec, false, nil
		}

		switch {
		case c == '\n':
			if !sawAny {
				return nil, true, nil
			}
			endField()
			return rec, false, nil

		case c == '\r':
			rr.skip('\n')
			if !sawAny {
				return nil, true, nil
			}
			endField()
			return rec, false, nil

		case c == rr.d.Comma:
			sawAny = true
			endField()

		case c == rr.d.Quote && atStart:
			sawAny = true
			atStart = false
			if err := rr.readQuoted(&field); err != nil {
				return nil, false, err
			}

		default:
			sawAny = true
			atStart = false
			put(&field, c, raw)
		}
	}
}

// readQuoted consumes a quoted field body up to and including its closing
// quote. Embedded line breaks advance the line counter.
func (rr *recordReader) readQuoted(field *strings.Builder) error {
	for {
		c, raw, err := rr.next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return ErrUnterminatedQuote
			}
			return err
		}
		if c == rr.d.Quote {
			if rr.skip(rr.d.Quote) {
				field.WriteRune(c)
				continue
			}
			return nil
		}
		if c == '\n' {
			rr.line++
		}
		put(field, c, raw)
	}
}

// next returns the next rune. A byte that is not valid UTF-8 comes back as
// utf8.RuneError with raw holding the byte, so cells keep their encoding.
// raw is -1 otherwise.
func (rr *recordReader) next() (c rune, raw int, err error) {
	c, size, err := rr.br.ReadRune()
	if err != nil || c != utf8.RuneError || size != 1 {
		return c, -1, err
	}
	if err := rr.br.UnreadRune(); err != nil {
		return 0, -1, err
	}
	b, err := rr.br.ReadByte()
	return c, int(b), err
}

// skip consumes the next rune if it is want.
func (rr *recordReader) skip(want rune) bool {
	b, _ := rr.br.Peek(utf8.UTFMax)
	if len(b) == 0 {
		return false
	}
	c, size := utf8.DecodeRune(b)
	if c != want || (c == utf8.RuneError && size == 1) {
		return false
	}
	_, _ = rr.br.Discard(size)
	return true
}

func put(field *strings.Builder, c rune, raw int) {
	if raw >= 0 {
		field.WriteByte(byte(raw))
		return
	}
	field.WriteRune(c)
}

func displayName(name string) string {
	if name == "" || name == "-" {
		return "stdin"
	}
	return name
}
