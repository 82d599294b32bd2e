// Package metrics is the backend-neutral metrics surface used by gamcsv.
//
// Commands record through the package-level helpers; the binary decides once
// at startup which Backend receives them. The default backend discards
// everything, so library code and tests never need to configure metrics.
package metrics

import (
	"sync"
	"time"
)

// Labels are metric dimensions (command, status, kind).
type Labels map[string]string

// Backend receives metric observations.
type Backend interface {
	IncCounter(name string, delta float64, labels Labels)
	ObserveHistogram(name string, value float64, labels Labels)
	Flush() error
}

// Metric names recorded by gamcsv.
const (
	CommandTotal    = "gamcsv_command_total"
	CommandDuration = "gamcsv_command_duration_seconds"
	RowsTotal       = "gamcsv_rows_total"
	UnmatchedTotal  = "gamcsv_unmatched_total"
)

type nopBackend struct{}

func (nopBackend) IncCounter(string, float64, Labels)       {}
func (nopBackend) ObserveHistogram(string, float64, Labels) {}
func (nopBackend) Flush() error                             { return nil }

// Nop returns a Backend that discards all observations.
func Nop() Backend { return nopBackend{} }

var (
	mu      sync.RWMutex
	backend Backend = nopBackend{}
)

// SetBackend installs b as the process-wide backend. A nil b restores Nop.
// It returns the previously installed backend.
func SetBackend(b Backend) Backend {
	mu.Lock()
	defer mu.Unlock()
	prev := backend
	if b == nil {
		b = nopBackend{}
	}
	backend = b
	return prev
}

func current() Backend {
	mu.RLock()
	defer mu.RUnlock()
	return backend
}

// IncCounter adds delta to a counter on the current backend.
func IncCounter(name string, delta float64, labels Labels) {
	current().IncCounter(name, delta, labels)
}

// ObserveHistogram records one sample on the current backend.
func ObserveHistogram(name string, value float64, labels Labels) {
	current().ObserveHistogram(name, value, labels)
}

// Flush flushes the current backend.
func Flush() error {
	return current().Flush()
}

// RecordCommand records the outcome of one command run.
func RecordCommand(command, status string, elapsed time.Duration, rowsIn, rowsOut, unmatched int) {
	l := Labels{"command": command, "status": status}
	IncCounter(CommandTotal, 1, l)
	ObserveHistogram(CommandDuration, elapsed.Seconds(), l)
	IncCounter(RowsTotal, float64(rowsIn), Labels{"command": command, "kind": "read"})
	IncCounter(RowsTotal, float64(rowsOut), Labels{"command": command, "kind": "written"})
	IncCounter(UnmatchedTotal, float64(unmatched), Labels{"command": command})
}
