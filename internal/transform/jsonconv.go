package transform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"gamcsv/internal/csvio"
	"gamcsv/internal/indexed"
	"gamcsv/internal/jsonio"
	"gamcsv/internal/logging"
)

// JSONToCSV flattens the JSON objects of inName into indexed columns. The
// header is the union of every object's columns in natural order, so
// items.2 sorts before items.10.
func JSONToCSV(ctx context.Context, env *Env, inName, outName string) (res Result, err error) {
	rc, err := csvio.Open(inName, env.Stdin)
	if err != nil {
		return res, err
	}
	defer closeInto(&err, rc)

	var rows []indexed.FlatRow
	columns := map[string]struct{}{}
	err = jsonio.StreamObjects(ctx, rc, func(obj map[string]any) error {
		row := jsonio.Flatten(obj)
		for k := range row {
			columns[k] = struct{}{}
		}
		rows = append(rows, row)
		return nil
	})
	res.RowsIn = len(rows)
	if err != nil {
		return res, fmt.Errorf("read %s: %w", inName, err)
	}

	header := make([]string, 0, len(columns))
	for c := range columns {
		header = append(header, c)
	}
	sort.Slice(header, func(i, j int) bool { return naturalLess(header[i], header[j]) })
	if len(header) == 0 {
		logging.FromContext(ctx).Warn("no objects in input", "file", inName)
	}

	out, err := env.CreateCSV(outName, header)
	if err != nil {
		return res, err
	}
	defer closeInto(&err, out)
	for _, row := range rows {
		if err := out.WriteRow(row); err != nil {
			return res, err
		}
	}
	res.RowsOut = out.Rows()
	return res, nil
}

// naturalLess compares dotted column names segment by segment, numerically
// where both segments are numbers.
func naturalLess(a, b string) bool {
	as, bs := strings.Split(a, "."), strings.Split(b, ".")
	for i := 0; i < len(as) && i < len(bs); i++ {
		if as[i] == bs[i] {
			continue
		}
		an, aerr := strconv.Atoi(as[i])
		bn, berr := strconv.Atoi(bs[i])
		if aerr == nil && berr == nil {
			return an < bn
		}
		return as[i] < bs[i]
	}
	return len(as) < len(bs)
}

// CSVToJSONOptions merges the JSON columns of each row into one object.
type CSVToJSONOptions struct {
	// MergePlain also copies the non-JSON columns, except SkipFields, into
	// the object as strings.
	MergePlain bool
	SkipFields []string

	// List writes a single JSON array instead of a one-column CSV.
	List bool

	// NoHeader omits the JSON header of the CSV output.
	NoHeader bool
}

// Run writes one JSON object per row of inName. Columns whose name starts
// with JSON hold objects; their keys are merged left to right.
func (o CSVToJSONOptions) Run(ctx context.Context, env *Env, inName, outName string) (res Result, err error) {
	in, err := env.OpenCSV(inName)
	if err != nil {
		return res, err
	}
	defer closeInto(&err, in)

	skip := stringSet(o.SkipFields)
	var plain, jsonCols []string
	for _, c := range in.Header() {
		switch {
		case strings.HasPrefix(c, "JSON"):
			jsonCols = append(jsonCols, c)
		case o.MergePlain && !contains(skip, c):
			plain = append(plain, c)
		}
	}
	if len(jsonCols) == 0 {
		return res, &csvio.MissingColumnError{File: in.Name(), Column: "JSON*", Header: in.Header()}
	}

	wc, err := csvio.Create(outName, env.Stdout)
	if err != nil {
		return res, err
	}
	d := env.Dialect.WithDefaults()

	var emit func(obj map[string]any) error
	if o.List {
		lw := jsonio.NewListWriter(wc, d.LineTerminator)
		defer closeInto(&err, wc)
		defer func() {
			if err == nil {
				err = lw.Close()
			}
		}()
		emit = lw.Write
	} else {
		out := &Output{Writer: csvio.NewWriter(wc, env.Dialect), name: outName, c: wc}
		defer closeInto(&err, out)
		if !o.NoHeader {
			if err := out.WriteRecord([]string{"JSON"}); err != nil {
				return res, fmt.Errorf("write %s: %w", outName, err)
			}
		}
		emit = func(obj map[string]any) error {
			raw, err := jsonio.Marshal(obj)
			if err != nil {
				return err
			}
			return out.WriteRecord([]string{string(raw)})
		}
	}

	err = in.ForEach(ctx, func(row indexed.FlatRow) error {
		obj := map[string]any{}
		for _, c := range plain {
			obj[c] = row[c]
		}
		for _, c := range jsonCols {
			fields, err := decodeObject(row[c])
			if err != nil {
				return &csvio.ParseError{File: in.Name(), Line: in.Line(), Err: fmt.Errorf("column %s: %w", c, err)}
			}
			for k, v := range fields {
				obj[k] = v
			}
		}
		res.RowsOut++
		return emit(obj)
	})
	res.RowsIn = in.Rows()
	return res, err
}

func decodeObject(s string) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(s)))
	dec.UseNumber()
	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, fmt.Errorf("trailing data after object")
	}
	return obj, nil
}
