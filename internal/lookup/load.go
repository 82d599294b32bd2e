package lookup

import (
	"context"
	"fmt"

	"gamcsv/internal/csvio"
	"gamcsv/internal/indexed"
)

// Load indexes every row of r: keyFn(row[keyCol]) -> row[valueCol].
// Rows with an empty normalized key are skipped. It returns the number of
// rows read.
//
// Errors:
//   - *csvio.MissingColumnError if either column is absent, before any row
//     is read.
func Load(ctx context.Context, idx Index, r *csvio.Reader, keyCol, valueCol string, keyFn KeyFunc) (int, error) {
	if err := r.Require(keyCol, valueCol); err != nil {
		return 0, err
	}
	n := 0
	err := r.ForEach(ctx, func(row indexed.FlatRow) error {
		n++
		key := keyFn(row[keyCol])
		if key == "" {
			return nil
		}
		if err := idx.Put(ctx, key, row[valueCol]); err != nil {
			return fmt.Errorf("index %s: %w", r.Name(), err)
		}
		return nil
	})
	return n, err
}

// LoadSet indexes keyFn(row[keyCol]) for membership tests; values are empty.
func LoadSet(ctx context.Context, idx Index, r *csvio.Reader, keyCol string, keyFn KeyFunc) (int, error) {
	if err := r.Require(keyCol); err != nil {
		return 0, err
	}
	n := 0
	err := r.ForEach(ctx, func(row indexed.FlatRow) error {
		n++
		key := keyFn(row[keyCol])
		if key == "" {
			return nil
		}
		return idx.Put(ctx, key, "")
	})
	return n, err
}
