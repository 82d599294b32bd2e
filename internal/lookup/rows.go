package lookup

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"gamcsv/internal/indexed"
)

// Rows stores whole rows in an Index, for joins that copy several columns
// from the secondary file.
type Rows struct {
	Index Index
}

// Put stores row under key; a later Put for the same key wins.
//
// Rows are stored as a JSON list of alternating column names and values,
// each base64 encoded by encoding/json, so cells that are not valid UTF-8
// come back byte for byte.
func (s Rows) Put(ctx context.Context, key string, row indexed.FlatRow) error {
	b, err := json.Marshal(encodePairs(row))
	if err != nil {
		return fmt.Errorf("encode row %q: %w", key, err)
	}
	return s.Index.Put(ctx, key, string(b))
}

// Get returns the row stored under key.
func (s Rows) Get(ctx context.Context, key string) (indexed.FlatRow, bool, error) {
	v, ok, err := s.Index.Get(ctx, key)
	if err != nil || !ok {
		return nil, ok, err
	}
	row, err := decodeRow(key, v)
	return row, err == nil, err
}

// Range calls fn for every stored row in first-insertion order.
func (s Rows) Range(ctx context.Context, fn func(key string, row indexed.FlatRow) error) error {
	return s.Index.Range(ctx, func(key, value string) error {
		row, err := decodeRow(key, value)
		if err != nil {
			return err
		}
		return fn(key, row)
	})
}

func encodePairs(row indexed.FlatRow) [][]byte {
	cols := make([]string, 0, len(row))
	for c := range row {
		cols = append(cols, c)
	}
	sort.Strings(cols)
	pairs := make([][]byte, 0, 2*len(cols))
	for _, c := range cols {
		pairs = append(pairs, []byte(c), []byte(row[c]))
	}
	return pairs
}

func decodeRow(key, v string) (indexed.FlatRow, error) {
	var pairs [][]byte
	if err := json.Unmarshal([]byte(v), &pairs); err != nil {
		return nil, fmt.Errorf("decode row %q: %w", key, err)
	}
	if len(pairs)%2 != 0 {
		return nil, fmt.Errorf("decode row %q: odd number of fields", key)
	}
	row := make(indexed.FlatRow, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		row[string(pairs[i])] = string(pairs[i+1])
	}
	return row, nil
}
