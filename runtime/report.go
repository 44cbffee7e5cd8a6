package runtime

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/docxology/seqfetch/metrics"
)

// FetchReport is the structured JSON report written by --report.
type FetchReport struct {
	RunID      string `json:"run_id"`
	OutDir     string `json:"out_dir"`
	ExitCode   int    `json:"exit_code"`
	DurationMs int64  `json:"duration_ms"`

	Metrics *metrics.Snapshot `json:"metrics"`
	Items   []OutcomeRecord   `json:"items"`
}

// BuildFetchReport composes a FetchReport from the pool's results.
// The exitCode is the process exit code that will be returned to the caller.
func BuildFetchReport(records []OutcomeRecord, snap metrics.Snapshot, duration time.Duration, exitCode int) *FetchReport {
	return &FetchReport{
		RunID:      snap.RunID,
		OutDir:     snap.OutDir,
		ExitCode:   exitCode,
		DurationMs: duration.Milliseconds(),
		Metrics:    &snap,
		Items:      records,
	}
}

// WriteFetchReport writes the report as JSON to the specified path.
// If path is "-", writes to stderr.
func WriteFetchReport(report *FetchReport, path string) error {
	if path == "" {
		return errors.New("report path must not be empty")
	}

	if path == "-" {
		return writeFetchReportTo(report, os.Stderr)
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write report to %s: %w", path, err)
	}
	return nil
}

// writeFetchReportTo writes report JSON to any writer (for testing).
func writeFetchReportTo(report *FetchReport, w io.Writer) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}

// summaryFile is the plain-text summary written into the output root.
const summaryFile = "download_summary.txt"

// WriteSummary writes the human-readable run summary next to the fetched data.
func WriteSummary(root string, snap metrics.Snapshot, duration time.Duration) error {
	content := fmt.Sprintf(
		"Total accessions: %d\nSucceeded: %d\nAlready present: %d\nFailed: %d\nTotal time: %s\n",
		snap.Total, snap.Succeeded, snap.Skipped, snap.Failed,
		duration.Round(time.Second))
	path := filepath.Join(root, summaryFile)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write summary to %s: %w", path, err)
	}
	return nil
}
