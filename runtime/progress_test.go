package runtime

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/docxology/seqfetch/metrics"
)

func TestProgress_RenderLine(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgress(&buf)

	c := metrics.NewCounters(4, "run", "")
	c.IncSucceeded()
	c.IncFailed()
	p.Render(c.Snapshot(), 10*time.Second)
	p.Finish()

	out := buf.String()
	for _, want := range []string{"2/4", "ok=1", "fail=1", "50.0%"} {
		if !strings.Contains(out, want) {
			t.Errorf("line missing %q: %q", want, out)
		}
	}
	if !strings.HasSuffix(out, "\n") {
		t.Error("Finish did not terminate the line")
	}
}

func TestFormatETA(t *testing.T) {
	c := metrics.NewCounters(4, "run", "")
	c.IncSucceeded()
	c.IncSucceeded()
	// 2 done in 10s leaves 2 to go at 5s each.
	got := formatETA(c.Snapshot(), 10*time.Second)
	if got != "10s" {
		t.Errorf("got %q, want 10s", got)
	}
}

func TestFormatETA_NoData(t *testing.T) {
	c := metrics.NewCounters(4, "run", "")
	if got := formatETA(c.Snapshot(), time.Second); got != "--" {
		t.Errorf("got %q, want -- before any completion", got)
	}
	done := metrics.NewCounters(1, "run", "")
	done.IncSucceeded()
	if got := formatETA(done.Snapshot(), time.Second); got != "--" {
		t.Errorf("got %q, want -- when nothing remains", got)
	}
}

func TestStyleFor_TracksFailureRatio(t *testing.T) {
	clean := metrics.NewCounters(10, "run", "")
	clean.IncSucceeded()
	if styleFor(clean.Snapshot()).GetForeground() != successColor {
		t.Error("clean run not green")
	}

	degraded := metrics.NewCounters(10, "run", "")
	for i := 0; i < 9; i++ {
		degraded.IncSucceeded()
	}
	degraded.IncFailed()
	if styleFor(degraded.Snapshot()).GetForeground() != warningColor {
		t.Error("10% failures not amber")
	}

	failing := metrics.NewCounters(10, "run", "")
	failing.IncSucceeded()
	failing.IncFailed()
	if styleFor(failing.Snapshot()).GetForeground() != errorColor {
		t.Error("50% failures not red")
	}
}
