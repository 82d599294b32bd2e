// Package sqlite is an on-disk lookup.Index backed by modernc.org/sqlite, for
// secondary files too large to index in memory. Importing it registers the
// "sqlite" kind.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"

	_ "modernc.org/sqlite"

	"gamcsv/internal/lookup"
)

const (
	// batchSize bounds the number of Puts buffered in one write transaction.
	batchSize = 5000

	// rangePage is the number of entries Range holds in memory at once.
	rangePage = 1000
)

func init() {
	lookup.Register("sqlite", func(ctx context.Context, opts lookup.Options) (lookup.Index, error) {
		return Open(ctx, opts.Dir)
	})
}

// Index stores entries in a temporary SQLite database file that is removed
// on Close.
//
// Writes are batched in a transaction that is committed before any read, so
// Get always observes every earlier Put.
type Index struct {
	db   *sql.DB
	path string

	tx      *sql.Tx
	put     *sql.Stmt
	pending int
	seq     int64
}

// Open creates a fresh database file in dir (os.TempDir() when empty).
func Open(ctx context.Context, dir string) (*Index, error) {
	f, err := os.CreateTemp(dir, "gamcsv-lookup-*.db")
	if err != nil {
		return nil, fmt.Errorf("sqlite lookup: create temp file: %w", err)
	}
	path := f.Name()
	_ = f.Close()

	dsn := "file:" + path + "?" + url.Values{
		"_pragma": {"journal_mode(OFF)", "synchronous(OFF)"},
	}.Encode()

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		_ = os.Remove(path)
		return nil, err
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		_ = os.Remove(path)
		return nil, err
	}
	const ddl = `CREATE TABLE IF NOT EXISTS entries (
	k   TEXT PRIMARY KEY,
	v   TEXT NOT NULL,
	seq INTEGER NOT NULL
)`
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		_ = db.Close()
		_ = os.Remove(path)
		return nil, fmt.Errorf("sqlite lookup: create table: %w", err)
	}
	return &Index{db: db, path: path}, nil
}

// Path is the database file location.
func (x *Index) Path() string { return x.path }

func (x *Index) Put(ctx context.Context, key, value string) error {
	if x.tx == nil {
		tx, err := x.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("sqlite lookup: begin: %w", err)
		}
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO entries (k, v, seq) VALUES (?, ?, ?)
			 ON CONFLICT(k) DO UPDATE SET v = excluded.v`)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("sqlite lookup: prepare: %w", err)
		}
		x.tx, x.put = tx, stmt
	}

	x.seq++
	if _, err := x.put.ExecContext(ctx, key, value, x.seq); err != nil {
		return fmt.Errorf("sqlite lookup: put %q: %w", key, err)
	}
	x.pending++
	if x.pending >= batchSize {
		return x.commit()
	}
	return nil
}

func (x *Index) commit() error {
	if x.tx == nil {
		return nil
	}
	_ = x.put.Close()
	err := x.tx.Commit()
	x.tx, x.put, x.pending = nil, nil, 0
	if err != nil {
		return fmt.Errorf("sqlite lookup: commit: %w", err)
	}
	return nil
}

func (x *Index) Get(ctx context.Context, key string) (string, bool, error) {
	if err := x.commit(); err != nil {
		return "", false, err
	}
	var v string
	err := x.db.QueryRowContext(ctx, `SELECT v FROM entries WHERE k = ?`, key).Scan(&v)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return "", false, nil
	case err != nil:
		return "", false, fmt.Errorf("sqlite lookup: get %q: %w", key, err)
	}
	return v, true, nil
}

// Range walks the entries in insertion order, one page of rangePage rows at
// a time. Each page is closed before fn runs, since fn may call Get and the
// pool holds a single connection.
func (x *Index) Range(ctx context.Context, fn func(key, value string) error) error {
	if err := x.commit(); err != nil {
		return err
	}
	type entry struct {
		k, v string
		seq  int64
	}
	var (
		after int64
		page  = make([]entry, 0, rangePage)
	)
	for {
		page = page[:0]
		rows, err := x.db.QueryContext(ctx,
			`SELECT k, v, seq FROM entries WHERE seq > ? ORDER BY seq LIMIT ?`, after, rangePage)
		if err != nil {
			return fmt.Errorf("sqlite lookup: range: %w", err)
		}
		for rows.Next() {
			var e entry
			if err := rows.Scan(&e.k, &e.v, &e.seq); err != nil {
				_ = rows.Close()
				return fmt.Errorf("sqlite lookup: range: %w", err)
			}
			page = append(page, e)
		}
		err = rows.Err()
		_ = rows.Close()
		if err != nil {
			return fmt.Errorf("sqlite lookup: range: %w", err)
		}

		for _, e := range page {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := fn(e.k, e.v); err != nil {
				return err
			}
		}
		if len(page) < rangePage {
			return nil
		}
		after = page[len(page)-1].seq
	}
}

// Len returns the number of distinct keys, or 0 if the count query fails.
func (x *Index) Len() int {
	if err := x.commit(); err != nil {
		return 0
	}
	var n int
	if err := x.db.QueryRow(`SELECT COUNT(*) FROM entries`).Scan(&n); err != nil {
		return 0
	}
	return n
}

// Close closes the database and removes its file.
func (x *Index) Close() error {
	cerr := x.commit()
	if err := x.db.Close(); err != nil && cerr == nil {
		cerr = err
	}
	if err := os.Remove(x.path); err != nil && !errors.Is(err, os.ErrNotExist) && cerr == nil {
		cerr = err
	}
	return cerr
}

var _ lookup.Index = (*Index)(nil)
