// Package metrics accumulates per-run fetch counters.
//
// Counters is a leaf type owned by the pool coordinator. Workers never
// touch it directly; they return outcome records that the coordinator
// folds in under the collector's own lock.
package metrics

import "sync"

// Snapshot is an immutable point-in-time view of the run counters.
// Returned by Counters.Snapshot(). Safe to read concurrently after creation.
type Snapshot struct {
	Total     int64
	Completed int64
	Succeeded int64
	Skipped   int64
	Failed    int64

	// Dimensions (informational, set at construction)
	RunID  string
	OutDir string
}

// Remaining is the number of items not yet completed.
func (s Snapshot) Remaining() int64 { return s.Total - s.Completed }

// Counters accumulates outcome counts during a single run.
// Thread-safe via sync.Mutex. All increment methods are nil-receiver safe.
type Counters struct {
	mu sync.Mutex

	total     int64
	completed int64
	succeeded int64
	skipped   int64
	failed    int64

	runID  string
	outDir string
}

// NewCounters creates a Counters collector for a run over total items.
func NewCounters(total int, runID, outDir string) *Counters {
	return &Counters{
		total:  int64(total),
		runID:  runID,
		outDir: outDir,
	}
}

// IncSucceeded records an item fetched and verified by a strategy.
func (c *Counters) IncSucceeded() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.succeeded++
	c.completed++
	c.mu.Unlock()
}

// IncSkipped records an item whose valid output already existed.
func (c *Counters) IncSkipped() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.skipped++
	c.completed++
	c.mu.Unlock()
}

// IncFailed records an item that exhausted every strategy.
func (c *Counters) IncFailed() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.failed++
	c.completed++
	c.mu.Unlock()
}

// Snapshot returns an immutable copy of all counters.
func (c *Counters) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		Total:     c.total,
		Completed: c.completed,
		Succeeded: c.succeeded,
		Skipped:   c.skipped,
		Failed:    c.failed,
		RunID:     c.runID,
		OutDir:    c.outDir,
	}
}
