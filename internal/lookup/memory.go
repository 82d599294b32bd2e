package lookup

import "context"

func init() {
	Register("memory", func(context.Context, Options) (Index, error) {
		return NewMemory(), nil
	})
}

// Memory is a map-backed Index. It is not safe for concurrent use.
type Memory struct {
	values map[string]string
	order  []string
}

// NewMemory returns an empty in-memory Index.
func NewMemory() *Memory {
	return &Memory{values: map[string]string{}}
}

func (m *Memory) Put(_ context.Context, key, value string) error {
	if _, ok := m.values[key]; !ok {
		m.order = append(m.order, key)
	}
	m.values[key] = value
	return nil
}

func (m *Memory) Get(_ context.Context, key string) (string, bool, error) {
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *Memory) Range(ctx context.Context, fn func(key, value string) error) error {
	for _, k := range m.order {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(k, m.values[k]); err != nil {
			return err
		}
	}
	return nil
}

func (m *Memory) Len() int { return len(m.values) }

func (m *Memory) Close() error { return nil }
