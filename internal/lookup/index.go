// Package lookup indexes a secondary CSV file by its join key so the primary
// file can be streamed past it with constant-time lookups.
package lookup

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Options selects and configures an Index backend.
//
// Edge cases:
//   - Kind defaults to "memory" when empty.
//   - Dir is only used by on-disk backends; empty means os.TempDir().
type Options struct {
	Kind string
	Dir  string
}

// Index maps join keys to values. Keys are stored as given; callers normalize
// them with a KeyFunc before Put and Get.
type Index interface {
	// Put stores value under key. A later Put for the same key wins.
	Put(ctx context.Context, key, value string) error

	// Get returns the value stored under key and whether it was present.
	Get(ctx context.Context, key string) (string, bool, error)

	// Range calls fn for every key in first-insertion order and stops at the
	// first error fn returns.
	Range(ctx context.Context, fn func(key, value string) error) error

	// Len is the number of distinct keys.
	Len() int

	// Close releases backend resources. Call it once.
	Close() error
}

// Factory builds an Index for one run.
type Factory func(ctx context.Context, opts Options) (Index, error)

var (
	registryMu sync.RWMutex
	factories  = map[string]Factory{}
)

// Register makes a backend available to New under kind.
//
// Call Register from an init() function in the backend package.
//
// Panics:
//   - If kind is empty.
//   - If f is nil.
//   - If kind is already registered.
func Register(kind string, f Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if kind == "" {
		panic("lookup: Register called with empty kind")
	}
	if f == nil {
		panic("lookup: Register called with nil factory")
	}
	if _, exists := factories[kind]; exists {
		panic(fmt.Sprintf("lookup: factory already registered for kind=%q", kind))
	}
	factories[kind] = f
}

// Kinds lists the registered backend names, sorted.
func Kinds() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// New constructs an Index using the registered backend factory.
//
// Errors:
//   - Returns an error if opts.Kind is not registered (the sqlite backend
//     registers itself when internal/lookup/sqlite is imported).
//   - Returns whatever error the registered factory returns.
func New(ctx context.Context, opts Options) (Index, error) {
	if opts.Kind == "" {
		opts.Kind = "memory"
	}

	registryMu.RLock()
	f := factories[opts.Kind]
	registryMu.RUnlock()

	if f == nil {
		return nil, fmt.Errorf("unsupported lookup kind=%s (registered: %v)", opts.Kind, Kinds())
	}
	return f(ctx, opts)
}
