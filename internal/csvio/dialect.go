// Package csvio reads and writes the CSV files exchanged with the directory
// tool: header-addressed rows, a configurable quote character and line
// terminator, and "-" for the standard streams.
package csvio

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

// Dialect describes the CSV flavour of a file.
type Dialect struct {
	// Comma separates fields. Defaults to ','.
	Comma rune
	// Quote encloses fields that contain special characters. Defaults to '"'.
	Quote rune
	// LineTerminator ends every written record. Defaults to "\n".
	LineTerminator string
}

// DefaultDialect returns the dialect used when nothing is configured.
func DefaultDialect() Dialect {
	return Dialect{Comma: ',', Quote: '"', LineTerminator: "\n"}
}

// WithDefaults fills zero fields from DefaultDialect.
func (d Dialect) WithDefaults() Dialect {
	def := DefaultDialect()
	if d.Comma == 0 {
		d.Comma = def.Comma
	}
	if d.Quote == 0 {
		d.Quote = def.Quote
	}
	if d.LineTerminator == "" {
		d.LineTerminator = def.LineTerminator
	}
	return d
}

// Validate reports dialects the reader cannot parse unambiguously.
func (d Dialect) Validate() error {
	d = d.WithDefaults()
	switch {
	case d.Comma == d.Quote:
		return fmt.Errorf("csv dialect: comma and quote are both %q", d.Comma)
	case !validDelim(d.Comma):
		return fmt.Errorf("csv dialect: invalid comma %q", d.Comma)
	case !validDelim(d.Quote):
		return fmt.Errorf("csv dialect: invalid quote %q", d.Quote)
	case d.LineTerminator != "\n" && d.LineTerminator != "\r\n":
		return fmt.Errorf("csv dialect: line terminator must be \\n or \\r\\n, got %q", d.LineTerminator)
	}
	return nil
}

func validDelim(r rune) bool {
	return r != 0 && r != '\r' && r != '\n' && utf8.ValidRune(r) && r != utf8.RuneError
}

// ParseQuote converts a flag value into a quote rune. The empty string means
// the default quote.
func ParseQuote(s string) (rune, error) {
	if s == "" {
		return '"', nil
	}
	r, size := utf8.DecodeRuneInString(s)
	if size != len(s) || r == utf8.RuneError {
		return 0, fmt.Errorf("quote char must be a single character, got %q", s)
	}
	return r, nil
}

// ErrUnterminatedQuote is returned when a quoted field runs to end of input.
var ErrUnterminatedQuote = errors.New("unterminated quoted field")

// ParseError locates a read failure in its file.
type ParseError struct {
	File string
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s:%d: %v", e.File, e.Line, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
