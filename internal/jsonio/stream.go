// Package jsonio converts between JSON documents and the flat, indexed-column
// rows gamcsv works with.
package jsonio

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Emit receives one decoded object. Returning an error stops the stream.
type Emit func(obj map[string]any) error

// StreamObjects decodes JSON objects from r and calls emit for each one.
//
// Streaming behavior:
//   - A root array streams each object element one by one; null elements are
//     skipped.
//   - A root object whose first field is an array streams that array's
//     objects (envelope pattern, e.g. {"items": [...], "nextPageToken": ""})
//     and skips the rest of the object.
//   - Any other root object is emitted as one object.
//   - Objects following the root value (JSONL) are emitted as well.
//
// Numbers are decoded as json.Number so they keep their literal text.
//
// Errors:
//   - Empty input is not an error; nothing is emitted.
//   - A non-object array element or root scalar is an error naming the
//     element position.
func StreamObjects(ctx context.Context, r io.Reader, emit Emit) error {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	n := 0
	counted := func(obj map[string]any) error {
		n++
		return emit(obj)
	}

	tok, err := dec.Token()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("json: read first token: %w", err)
	}

	d, ok := tok.(json.Delim)
	if !ok {
		return fmt.Errorf("json: unsupported root token %T (want object or array)", tok)
	}

	switch d {
	case '[':
		if err := streamArrayOfObjects(ctx, dec, counted, &n); err != nil {
			return err
		}
		if err := expectDelim(dec, ']', "array end"); err != nil {
			return err
		}

	case '{':
		streamed, single, err := streamEnvelopeOrSingle(ctx, dec, counted, &n)
		if err != nil {
			return err
		}
		if err := expectDelim(dec, '}', "object end"); err != nil {
			return err
		}
		if !streamed {
			if err := counted(single); err != nil {
				return err
			}
		}

	default:
		return fmt.Errorf("json: unsupported root delimiter %q", d)
	}

	return streamTrailingObjects(ctx, dec, counted, &n)
}

// ReadObjects collects every object StreamObjects would emit.
func ReadObjects(ctx context.Context, r io.Reader) ([]map[string]any, error) {
	var out []map[string]any
	err := StreamObjects(ctx, r, func(obj map[string]any) error {
		out = append(out, obj)
		return nil
	})
	return out, err
}

func expectDelim(dec *json.Decoder, want json.Delim, what string) error {
	end, err := dec.Token()
	if err != nil {
		return fmt.Errorf("json: read %s: %w", what, err)
	}
	if end != want {
		return fmt.Errorf("json: expected %q, got %v", want, end)
	}
	return nil
}

func streamTrailingObjects(ctx context.Context, dec *json.Decoder, emit Emit, n *int) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		var obj map[string]any
		if err := dec.Decode(&obj); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("json: decode object %d: %w", *n+1, err)
		}
		if obj == nil {
			continue
		}
		if err := emit(obj); err != nil {
			return err
		}
	}
}

// streamArrayOfObjects streams elements of the current array ('[' already
// consumed).
func streamArrayOfObjects(ctx context.Context, dec *json.Decoder, emit Emit, n *int) error {
	for dec.More() {
		if err := ctx.Err(); err != nil {
			return err
		}
		var raw any
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("json: decode object %d: %w", *n+1, err)
		}
		if raw == nil {
			continue
		}
		obj, ok := raw.(map[string]any)
		if !ok {
			return fmt.Errorf("json: element %d is not an object (got %T)", *n+1, raw)
		}
		if err := emit(obj); err != nil {
			return err
		}
	}
	return nil
}

// streamEnvelopeOrSingle walks a root object ('{' already consumed). If the
// first field is an array it is streamed as records and the remaining fields
// are skipped; otherwise the whole object is materialized and returned.
func streamEnvelopeOrSingle(ctx context.Context, dec *json.Decoder, emit Emit, n *int) (streamed bool, single map[string]any, _ error) {
	single = make(map[string]any)

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return false, nil, fmt.Errorf("json: read object key: %w", err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return false, nil, fmt.Errorf("json: object key not a string (got %T)", keyTok)
		}

		valTok, err := dec.Token()
		if err != nil {
			return false, nil, fmt.Errorf("json: read value of %q: %w", key, err)
		}

		if delim, ok := valTok.(json.Delim); ok && delim == '[' && len(single) == 0 {
			if err := streamArrayOfObjects(ctx, dec, emit, n); err != nil {
				return false, nil, err
			}
			if err := expectDelim(dec, ']', "envelope array end"); err != nil {
				return false, nil, err
			}
			for dec.More() {
				if _, err := dec.Token(); err != nil {
					return true, nil, fmt.Errorf("json: skip envelope key: %w", err)
				}
				if err := skipNextValue(dec); err != nil {
					return true, nil, err
				}
			}
			return true, nil, nil
		}

		val, err := materializeValue(dec, valTok)
		if err != nil {
			return false, nil, err
		}
		single[key] = val
	}

	return false, single, nil
}

// skipNextValue skips the next JSON value without materializing it.
func skipNextValue(dec *json.Decoder) error {
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("json: skip value token: %w", err)
	}
	d, ok := tok.(json.Delim)
	if !ok {
		return nil
	}

	switch d {
	case '{':
		for dec.More() {
			if _, err := dec.Token(); err != nil {
				return fmt.Errorf("json: skip object key: %w", err)
			}
			if err := skipNextValue(dec); err != nil {
				return err
			}
		}
		return expectDelim(dec, '}', "skipped object end")

	case '[':
		for dec.More() {
			if err := skipNextValue(dec); err != nil {
				return err
			}
		}
		return expectDelim(dec, ']', "skipped array end")

	default:
		return fmt.Errorf("json: unexpected delimiter %q", d)
	}
}

// materializeValue builds a Go value for the current JSON value given its
// first token.
func materializeValue(dec *json.Decoder, tok any) (any, error) {
	d, ok := tok.(json.Delim)
	if !ok {
		return tok, nil
	}

	switch d {
	case '{':
		m := make(map[string]any)
		for dec.More() {
			kt, err := dec.Token()
			if err != nil {
				return nil, fmt.Errorf("json: read nested object key: %w", err)
			}
			k, ok := kt.(string)
			if !ok {
				return nil, fmt.Errorf("json: nested object key not string (got %T)", kt)
			}
			vt, err := dec.Token()
			if err != nil {
				return nil, fmt.Errorf("json: read value of %q: %w", k, err)
			}
			v, err := materializeValue(dec, vt)
			if err != nil {
				return nil, err
			}
			m[k] = v
		}
		return m, expectDelim(dec, '}', "nested object end")

	case '[':
		arr := []any{}
		for dec.More() {
			vt, err := dec.Token()
			if err != nil {
				return nil, fmt.Errorf("json: read nested array value: %w", err)
			}
			v, err := materializeValue(dec, vt)
			if err != nil {
				return nil, err
			}
			arr = append(arr, v)
		}
		return arr, expectDelim(dec, ']', "nested array end")

	default:
		return nil, fmt.Errorf("json: unexpected delimiter %q", d)
	}
}
