package csvio

import (
	"fmt"
	"io"
	"os"
)

type nopReadCloser struct{ io.Reader }

func (nopReadCloser) Close() error { return nil }

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

// IsStd reports whether name designates a standard stream.
func IsStd(name string) bool {
	return name == "" || name == "-"
}

// Open opens name for reading; "-" or "" returns stdin wrapped so that Close
// leaves it open.
func Open(name string, stdin io.Reader) (io.ReadCloser, error) {
	if IsStd(name) {
		return nopReadCloser{stdin}, nil
	}
	f, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	return f, nil
}

// Create truncates or creates name for writing; "-" or "" returns stdout
// wrapped so that Close leaves it open.
func Create(name string, stdout io.Writer) (io.WriteCloser, error) {
	if IsStd(name) {
		return nopWriteCloser{stdout}, nil
	}
	f, err := os.Create(name)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", name, err)
	}
	return f, nil
}
