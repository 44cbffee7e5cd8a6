package runtime

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/docxology/seqfetch/metrics"
)

var (
	successColor = lipgloss.Color("#10B981") // Green
	warningColor = lipgloss.Color("#F59E0B") // Amber
	errorColor   = lipgloss.Color("#EF4444") // Red
	mutedColor   = lipgloss.Color("#6B7280") // Gray

	successStyle = lipgloss.NewStyle().Foreground(successColor)
	warningStyle = lipgloss.NewStyle().Foreground(warningColor)
	errorStyle   = lipgloss.NewStyle().Foreground(errorColor)
	mutedStyle   = lipgloss.NewStyle().Foreground(mutedColor)
)

// Progress renders a single mutating status line as items complete.
// Render and Finish are safe for concurrent use.
type Progress struct {
	mu  sync.Mutex
	out io.Writer
}

// NewProgress creates a progress line writing to out (normally stderr).
func NewProgress(out io.Writer) *Progress {
	return &Progress{out: out}
}

// Render overwrites the status line with the current snapshot. The line
// color tracks the failure ratio so a degrading run is visible at a glance.
func (p *Progress) Render(snap metrics.Snapshot, elapsed time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	percent := 0.0
	if snap.Total > 0 {
		percent = float64(snap.Completed) / float64(snap.Total) * 100
	}

	line := fmt.Sprintf("[%5.1f%%] %d/%d  ok=%d skip=%d fail=%d  eta=%s",
		percent, snap.Completed, snap.Total,
		snap.Succeeded, snap.Skipped, snap.Failed,
		formatETA(snap, elapsed))

	fmt.Fprintf(p.out, "\r%s", styleFor(snap).Render(line))
}

// Finish terminates the status line with a newline.
func (p *Progress) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.out)
}

func styleFor(snap metrics.Snapshot) lipgloss.Style {
	if snap.Completed == 0 {
		return mutedStyle
	}
	ratio := float64(snap.Failed) / float64(snap.Completed)
	switch {
	case ratio == 0:
		return successStyle
	case ratio < 0.25:
		return warningStyle
	default:
		return errorStyle
	}
}

// formatETA projects remaining time from average time per completed item.
func formatETA(snap metrics.Snapshot, elapsed time.Duration) string {
	if snap.Completed == 0 || snap.Remaining() == 0 {
		return "--"
	}
	perItem := elapsed / time.Duration(snap.Completed)
	return (perItem * time.Duration(snap.Remaining())).Round(time.Second).String()
}
