package metrics

import (
	"sync"
	"testing"
)

func TestCounters_Snapshot(t *testing.T) {
	c := NewCounters(5, "run-1", "/tmp/out")
	c.IncSucceeded()
	c.IncSucceeded()
	c.IncSkipped()
	c.IncFailed()

	snap := c.Snapshot()
	if snap.Total != 5 || snap.Completed != 4 {
		t.Errorf("got total=%d completed=%d, want 5/4", snap.Total, snap.Completed)
	}
	if snap.Succeeded != 2 || snap.Skipped != 1 || snap.Failed != 1 {
		t.Errorf("got %d/%d/%d, want 2/1/1", snap.Succeeded, snap.Skipped, snap.Failed)
	}
	if snap.Remaining() != 1 {
		t.Errorf("got remaining %d, want 1", snap.Remaining())
	}
	if snap.RunID != "run-1" || snap.OutDir != "/tmp/out" {
		t.Errorf("dimensions lost: %+v", snap)
	}
}

func TestCounters_NilSafe(t *testing.T) {
	var c *Counters
	c.IncSucceeded()
	c.IncSkipped()
	c.IncFailed()
	if snap := c.Snapshot(); snap.Completed != 0 {
		t.Errorf("nil counters recorded something: %+v", snap)
	}
}

func TestCounters_ConcurrentIncrements(t *testing.T) {
	c := NewCounters(300, "run-2", "")
	var wg sync.WaitGroup
	for i := 0; i < 300; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			switch n % 3 {
			case 0:
				c.IncSucceeded()
			case 1:
				c.IncSkipped()
			default:
				c.IncFailed()
			}
		}(i)
	}
	wg.Wait()

	snap := c.Snapshot()
	if snap.Completed != 300 {
		t.Errorf("got completed %d, want 300", snap.Completed)
	}
	if snap.Succeeded+snap.Skipped+snap.Failed != 300 {
		t.Errorf("counters do not sum: %+v", snap)
	}
}
