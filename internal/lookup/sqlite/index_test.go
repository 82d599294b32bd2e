package sqlite

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
)

func TestIndex_CloseRemovesFile(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	x, err := Open(ctx, t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := os.Stat(x.Path()); err != nil {
		t.Fatalf("database file missing after Open: %v", err)
	}
	if err := x.Put(ctx, "k", "v"); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := x.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := os.Stat(x.Path()); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("database file still present after Close: %v", err)
	}
}

func TestIndex_BatchesAcrossCommits(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	x, err := Open(ctx, t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer func() { _ = x.Close() }()

	total := batchSize*2 + 17
	for i := 0; i < total; i++ {
		if err := x.Put(ctx, fmt.Sprintf("SN%06d", i), fmt.Sprintf("dev-%d", i)); err != nil {
			t.Fatalf("Put %d: %v", i, err)
		}
	}
	if err := x.Put(ctx, "SN000000", "replaced"); err != nil {
		t.Fatalf("Put replace: %v", err)
	}

	if got := x.Len(); got != total {
		t.Fatalf("Len()=%d, want %d", got, total)
	}
	v, ok, err := x.Get(ctx, "SN000000")
	if err != nil || !ok || v != "replaced" {
		t.Fatalf("Get(SN000000)=(%q,%v,%v)", v, ok, err)
	}

	first := ""
	if err := x.Range(ctx, func(k, _ string) error {
		if first == "" {
			first = k
		}
		return nil
	}); err != nil {
		t.Fatalf("Range: %v", err)
	}
	if first != "SN000000" {
		t.Fatalf("first key=%q, want insertion order kept after update", first)
	}
}

func TestIndex_RangePagesAllowGet(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	x, err := Open(ctx, t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer func() { _ = x.Close() }()

	total := rangePage*2 + 3
	for i := 0; i < total; i++ {
		if err := x.Put(ctx, fmt.Sprintf("k%05d", i), fmt.Sprintf("v%d", i)); err != nil {
			t.Fatalf("Put %d: %v", i, err)
		}
	}

	n := 0
	err = x.Range(ctx, func(k, v string) error {
		if want := fmt.Sprintf("k%05d", n); k != want {
			t.Fatalf("entry %d key=%q, want %q", n, k, want)
		}
		got, ok, err := x.Get(ctx, k)
		if err != nil || !ok || got != v {
			t.Fatalf("Get(%q) inside Range=(%q,%v,%v), want %q", k, got, ok, err, v)
		}
		n++
		return nil
	})
	if err != nil {
		t.Fatalf("Range: %v", err)
	}
	if n != total {
		t.Fatalf("Range visited %d entries, want %d", n, total)
	}
}

func TestIndex_RangeStopsOnError(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	x, err := Open(ctx, t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer func() { _ = x.Close() }()

	for _, k := range []string{"a", "b", "c"} {
		if err := x.Put(ctx, k, k); err != nil {
			t.Fatalf("Put: %v", err)
		}
	}
	stop := errors.New("stop")
	seen := 0
	err = x.Range(ctx, func(string, string) error {
		seen++
		return stop
	})
	if !errors.Is(err, stop) || seen != 1 {
		t.Fatalf("Range err=%v seen=%d, want stop after 1", err, seen)
	}
}
