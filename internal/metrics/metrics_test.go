package metrics

import (
	"sync"
	"testing"
	"time"
)

type recordingBackend struct {
	mu       sync.Mutex
	counters map[string]float64
	samples  map[string][]float64
	flushes  int
}

func newRecordingBackend() *recordingBackend {
	return &recordingBackend{counters: map[string]float64{}, samples: map[string][]float64{}}
}

func (r *recordingBackend) IncCounter(name string, delta float64, labels Labels) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counters[name+"|"+labels["command"]+"|"+labels["kind"]+labels["status"]] += delta
}

func (r *recordingBackend) ObserveHistogram(name string, value float64, labels Labels) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.samples[name] = append(r.samples[name], value)
}

func (r *recordingBackend) Flush() error {
	r.flushes++
	return nil
}

// TestRecordCommand_RoutesToInstalledBackend is not parallel: it swaps the
// process-wide backend.
func TestRecordCommand_RoutesToInstalledBackend(t *testing.T) {
	rec := newRecordingBackend()
	prev := SetBackend(rec)
	defer SetBackend(prev)

	RecordCommand("add-org-unit", "ok", 1500*time.Millisecond, 10, 9, 1)
	if err := Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	if got := rec.counters[CommandTotal+"|add-org-unit|ok"]; got != 1 {
		t.Fatalf("command counter=%v, want 1", got)
	}
	if got := rec.counters[RowsTotal+"|add-org-unit|read"]; got != 10 {
		t.Fatalf("rows read=%v, want 10", got)
	}
	if got := rec.counters[RowsTotal+"|add-org-unit|written"]; got != 9 {
		t.Fatalf("rows written=%v, want 9", got)
	}
	if got := rec.counters[UnmatchedTotal+"|add-org-unit|"]; got != 1 {
		t.Fatalf("unmatched=%v, want 1", got)
	}
	if s := rec.samples[CommandDuration]; len(s) != 1 || s[0] != 1.5 {
		t.Fatalf("duration samples=%v", s)
	}
	if rec.flushes != 1 {
		t.Fatalf("flushes=%d, want 1", rec.flushes)
	}
}

func TestSetBackend_NilRestoresNop(t *testing.T) {
	prev := SetBackend(nil)
	defer SetBackend(prev)

	IncCounter(CommandTotal, 1, nil)
	if err := Flush(); err != nil {
		t.Fatalf("nop Flush: %v", err)
	}
}
