package indexed

import "sort"

// Order selects how counted keys are emitted.
type Order int

const (
	// ByKey orders by key ascending, case-sensitive byte comparison.
	ByKey Order = iota
	// ByCountDesc orders by count descending, ties by key ascending.
	ByCountDesc
)

// Count is one key with its multiplicity.
type Count struct {
	Key string
	N   int
}

// SortCounts orders counts in place. ByCountDesc is a stable sort applied
// after the key sort, so equal counts come out in key order.
func SortCounts(counts []Count, order Order) {
	sort.SliceStable(counts, func(i, j int) bool { return counts[i].Key < counts[j].Key })
	if order == ByCountDesc {
		sort.SliceStable(counts, func(i, j int) bool { return counts[i].N > counts[j].N })
	}
}

// Groups is the result of Aggregate: values collected per key.
type Groups struct {
	values map[string][]string
}

// Aggregate groups records by key(r) and collects value(r) per group, in
// record order. A nil value collects the key itself, which is enough for
// pure counting.
func Aggregate(records []Record, key, value func(Record) string) *Groups {
	g := &Groups{values: make(map[string][]string)}
	for _, r := range records {
		k := key(r)
		v := k
		if value != nil {
			v = value(r)
		}
		g.values[k] = append(g.values[k], v)
	}
	return g
}

// Values returns the values collected for key in record order.
func (g *Groups) Values(key string) []string {
	return g.values[key]
}

// Counts returns the size of each group in the requested order.
func (g *Groups) Counts(order Order) []Count {
	out := make([]Count, 0, len(g.values))
	for k, vs := range g.values {
		out = append(out, Count{Key: k, N: len(vs)})
	}
	SortCounts(out, order)
	return out
}

// Counter is a string multiset with deterministic output, for counting
// over rows rather than decoded records.
type Counter struct {
	m map[string]int
}

// NewCounter returns an empty Counter.
func NewCounter() *Counter {
	return &Counter{m: make(map[string]int)}
}

// Add increments key by n. Adding zero still registers the key.
func (c *Counter) Add(key string, n int) {
	c.m[key] += n
}

// Get returns the count for key.
func (c *Counter) Get(key string) int { return c.m[key] }

// Has reports whether key was ever added.
func (c *Counter) Has(key string) bool {
	_, ok := c.m[key]
	return ok
}

// Len is the number of distinct keys.
func (c *Counter) Len() int { return len(c.m) }

// Counts returns the keys with their counts in the requested order.
func (c *Counter) Counts(order Order) []Count {
	out := make([]Count, 0, len(c.m))
	for k, n := range c.m {
		out = append(out, Count{Key: k, N: n})
	}
	SortCounts(out, order)
	return out
}
