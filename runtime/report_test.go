package runtime

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/docxology/seqfetch/metrics"
	"github.com/docxology/seqfetch/types"
)

func sampleReport() *FetchReport {
	counters := metrics.NewCounters(2, "run-42", "/data/out")
	counters.IncSucceeded()
	counters.IncFailed()
	records := []OutcomeRecord{
		{Accession: "SRR1", Outcome: types.OutcomeSucceeded, Strategy: "sra-toolkit"},
		{Accession: "SRR2", Outcome: types.OutcomeFailed, Reason: "all strategies exhausted"},
	}
	return BuildFetchReport(records, counters.Snapshot(), 90*time.Second, 1)
}

func TestBuildFetchReport(t *testing.T) {
	report := sampleReport()
	if report.RunID != "run-42" || report.OutDir != "/data/out" {
		t.Errorf("dimensions lost: %+v", report)
	}
	if report.ExitCode != 1 || report.DurationMs != 90000 {
		t.Errorf("got exit=%d duration=%d", report.ExitCode, report.DurationMs)
	}
	if len(report.Items) != 2 {
		t.Errorf("got %d items", len(report.Items))
	}
}

func TestWriteFetchReport_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")
	if err := WriteFetchReport(sampleReport(), path); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var decoded FetchReport
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("report is not valid JSON: %v", err)
	}
	if decoded.RunID != "run-42" || decoded.Metrics.Failed != 1 {
		t.Errorf("round-trip lost data: %+v", decoded)
	}
}

func TestWriteFetchReport_EmptyPath(t *testing.T) {
	if err := WriteFetchReport(sampleReport(), ""); err == nil {
		t.Fatal("got nil error for empty path")
	}
}

func TestWriteFetchReportTo(t *testing.T) {
	var buf bytes.Buffer
	if err := writeFetchReportTo(sampleReport(), &buf); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, `"run_id": "run-42"`) {
		t.Errorf("output missing run_id: %s", out)
	}
	if !strings.HasSuffix(out, "\n") {
		t.Error("report does not end with newline")
	}
}

func TestWriteSummary(t *testing.T) {
	root := t.TempDir()
	counters := metrics.NewCounters(3, "run", root)
	counters.IncSucceeded()
	counters.IncSkipped()
	counters.IncFailed()

	if err := WriteSummary(root, counters.Snapshot(), 75*time.Second); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(filepath.Join(root, "download_summary.txt"))
	if err != nil {
		t.Fatal(err)
	}
	content := string(data)
	for _, want := range []string{
		"Total accessions: 3",
		"Succeeded: 1",
		"Already present: 1",
		"Failed: 1",
		"Total time: 1m15s",
	} {
		if !strings.Contains(content, want) {
			t.Errorf("summary missing %q:\n%s", want, content)
		}
	}
}
