// Package transform implements the gamcsv commands. Each command is an
// options struct with a Run method that reads its inputs through an Env,
// writes its outputs through the same Env and returns a Result.
package transform

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"gamcsv/internal/csvio"
	"gamcsv/internal/logging"
	"gamcsv/internal/lookup"
)

// Env is what a command needs from the outside world.
type Env struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	Dialect csvio.Dialect

	// HeaderMap and StrictWidth apply to every file opened through the Env.
	HeaderMap   map[string]string
	StrictWidth bool

	// Lookup configures the index built over secondary files.
	Lookup lookup.Options
}

func (e *Env) stderr() io.Writer {
	if e.Stderr != nil {
		return e.Stderr
	}
	return io.Discard
}

// Input is an open CSV source. Close releases the file, never stdin.
type Input struct {
	*csvio.Reader
	c io.Closer
}

// Close closes the underlying file.
func (in *Input) Close() error { return in.c.Close() }

// OpenCSV opens name ("-" is stdin) and reads its header.
func (e *Env) OpenCSV(name string) (*Input, error) {
	return e.OpenCSVWith(name, csvio.ReaderOptions{})
}

// OpenCSVWith is OpenCSV with explicit reader options. Name and Dialect are
// filled in from the Env, HeaderMap when opts has none, and StrictWidth when
// the Env sets it.
func (e *Env) OpenCSVWith(name string, opts csvio.ReaderOptions) (*Input, error) {
	rc, err := csvio.Open(name, e.Stdin)
	if err != nil {
		return nil, err
	}
	opts.Name = name
	opts.Dialect = e.Dialect
	if opts.HeaderMap == nil {
		opts.HeaderMap = e.HeaderMap
	}
	opts.StrictWidth = opts.StrictWidth || e.StrictWidth
	r, err := csvio.NewReader(rc, opts)
	if err != nil {
		_ = rc.Close()
		return nil, err
	}
	return &Input{Reader: r, c: rc}, nil
}

// Output is an open CSV destination.
type Output struct {
	*csvio.Writer
	name string
	c    io.Closer
}

// Close flushes buffered rows and closes the file, never stdout.
func (o *Output) Close() error {
	ferr := o.Flush()
	cerr := o.c.Close()
	if ferr != nil {
		return fmt.Errorf("write %s: %w", o.name, ferr)
	}
	if cerr != nil {
		return fmt.Errorf("close %s: %w", o.name, cerr)
	}
	return nil
}

// CreateCSV creates name ("-" is stdout) and writes header to it.
func (e *Env) CreateCSV(name string, header []string) (*Output, error) {
	wc, err := csvio.Create(name, e.Stdout)
	if err != nil {
		return nil, err
	}
	w := csvio.NewWriter(wc, e.Dialect)
	out := &Output{Writer: w, name: name, c: wc}
	if err := w.WriteHeader(header); err != nil {
		_ = wc.Close()
		return nil, fmt.Errorf("write %s: %w", name, err)
	}
	return out, nil
}

// newIndex builds a lookup index with the configured backend.
func (e *Env) newIndex(ctx context.Context) (lookup.Index, error) {
	idx, err := lookup.New(ctx, e.Lookup)
	if err != nil {
		return nil, fmt.Errorf("lookup index: %w", err)
	}
	return idx, nil
}

// Result summarizes a command run.
type Result struct {
	RowsIn    int
	RowsOut   int
	Unmatched int
}

// Report collects recoverable conditions: one stderr line each, counted.
type Report struct {
	w   io.Writer
	log *slog.Logger
	n   int
}

// NewReport returns a Report writing to the Env's stderr and debug-logging
// through the logger carried by ctx.
func (e *Env) NewReport(ctx context.Context) *Report {
	return &Report{w: e.stderr(), log: logging.FromContext(ctx)}
}

// Unmatched records one condition.
func (r *Report) Unmatched(format string, args ...any) {
	r.n++
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(r.w, msg)
	r.log.Debug("unmatched", "detail", msg)
}

// Count is the number of conditions recorded.
func (r *Report) Count() int { return r.n }

// UsageError reports invalid arguments or option values, detected before any
// row is read.
type UsageError struct {
	Err error
}

func (e *UsageError) Error() string { return e.Err.Error() }

func (e *UsageError) Unwrap() error { return e.Err }

// Usagef builds a *UsageError.
func Usagef(format string, args ...any) error {
	return &UsageError{Err: fmt.Errorf(format, args...)}
}

// IsUsage reports whether err is or wraps a *UsageError.
func IsUsage(err error) bool {
	var u *UsageError
	return errors.As(err, &u)
}

// closeInto closes c and stores its error in *err unless one is already set.
// Use it deferred, right after a successful open.
func closeInto(err *error, c io.Closer) {
	if cerr := c.Close(); cerr != nil && *err == nil {
		*err = cerr
	}
}
