package jsonio

import (
	"encoding/json"
	"fmt"
	"strconv"

	"gamcsv/internal/indexed"
)

// Flatten converts a decoded JSON object into a FlatRow using the directory
// export column convention:
//
//   - nested objects become dotted keys ("name.givenName");
//   - an array under key becomes key = element count plus key.N for scalar
//     elements or key.N.sub for object elements, i.e. indexed columns;
//   - booleans render as True/False, null as the empty string, and
//     json.Number keeps its literal text.
func Flatten(obj map[string]any) indexed.FlatRow {
	row := indexed.FlatRow{}
	flattenInto(row, "", obj)
	return row
}

func flattenInto(row indexed.FlatRow, key string, v any) {
	switch t := v.(type) {
	case map[string]any:
		for k, sub := range t {
			flattenInto(row, join(key, k), sub)
		}
	case []any:
		if key != "" {
			row[key] = strconv.Itoa(len(t))
		}
		for i, sub := range t {
			flattenInto(row, join(key, strconv.Itoa(i)), sub)
		}
	default:
		if key != "" {
			row[key] = Scalar(t)
		}
	}
}

func join(prefix, k string) string {
	if prefix == "" {
		return k
	}
	return prefix + "." + k
}

// Scalar renders one JSON scalar the way the directory export writes it.
func Scalar(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		if t {
			return "True"
		}
		return "False"
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}
