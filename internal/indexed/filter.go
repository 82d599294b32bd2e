package indexed

import "regexp"

// Predicate decides whether a record is kept by Filter.
type Predicate func(Record) bool

// Filter returns the records for which pred is true, in input order.
// A nil pred keeps every record. Filter never mutates records.
func Filter(records []Record, pred Predicate) []Record {
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if pred == nil || pred(r) {
			out = append(out, r)
		}
	}
	return out
}

// NotEquals matches records whose subfield sub differs from v.
func NotEquals(sub, v string) Predicate {
	return func(r Record) bool { return r.Get(sub) != v }
}

// In matches records whose subfield sub is one of values.
func In(sub string, values ...string) Predicate {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return func(r Record) bool {
		_, ok := set[r.Get(sub)]
		return ok
	}
}

// Matches matches records whose subfield sub matches re.
func Matches(sub string, re *regexp.Regexp) Predicate {
	return func(r Record) bool { return re.MatchString(r.Get(sub)) }
}

// NonEmpty matches records with a non-empty value for sub.
func NonEmpty(sub string) Predicate {
	return func(r Record) bool { return r.Get(sub) != "" }
}

// NotBlank matches records that carry at least one non-empty value.
func NotBlank() Predicate {
	return func(r Record) bool { return !r.Empty() }
}

// All is the logical AND of preds. Nil entries are skipped.
func All(preds ...Predicate) Predicate {
	return func(r Record) bool {
		for _, p := range preds {
			if p != nil && !p(r) {
				return false
			}
		}
		return true
	}
}
