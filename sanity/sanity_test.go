package sanity

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/docxology/seqfetch/log"
	"github.com/docxology/seqfetch/metadata"
)

func testLogger() *log.Logger {
	return log.NewLogger("test").WithOutput(io.Discard)
}

func loadTable(t *testing.T, content string) *metadata.Table {
	t.Helper()
	path := filepath.Join(t.TempDir(), "metadata.tsv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	table, err := metadata.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	return table
}

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func touchQuant(t *testing.T, out, run string) {
	t.Helper()
	dir := filepath.Join(out, "quant", run)
	for _, suffix := range []string{"_abundance.tsv", "_run_info.json", "_abundance.h5"} {
		touch(t, filepath.Join(dir, run+suffix))
	}
}

const sanityTable = "run\tlib_layout\tscientific_name\n" +
	"SRR001\tpaired\tHomo sapiens\n" +
	"SRR002\tsingle\tMus musculus\n"

func TestChecker_AllPresent(t *testing.T) {
	out := t.TempDir()
	index := t.TempDir()
	touch(t, filepath.Join(out, "SRR001", "SRR001_1.fastq.gz"))
	touch(t, filepath.Join(out, "SRR002", "SRR002.fastq.gz"))
	touch(t, filepath.Join(index, "Homo_sapiens.idx"))
	touch(t, filepath.Join(index, "Mus_musculus.idx"))
	touchQuant(t, out, "SRR001")
	touchQuant(t, out, "SRR002")

	report, err := NewChecker(out, index, testLogger()).Run(loadTable(t, sanityTable))
	if err != nil {
		t.Fatal(err)
	}
	if !report.Clean() {
		t.Errorf("got findings: %+v", report)
	}
}

func TestChecker_MissingFastqAndQuant(t *testing.T) {
	out := t.TempDir()
	touch(t, filepath.Join(out, "SRR001", "SRR001_1.fastq.gz"))
	touchQuant(t, out, "SRR001")

	report, err := NewChecker(out, "", testLogger()).Run(loadTable(t, sanityTable))
	if err != nil {
		t.Fatal(err)
	}
	if len(report.RunsWithoutFastq) != 1 || report.RunsWithoutFastq[0] != "SRR002" {
		t.Errorf("fastq findings: %v", report.RunsWithoutFastq)
	}
	if len(report.RunsWithoutQuant) != 1 || report.RunsWithoutQuant[0] != "SRR002" {
		t.Errorf("quant findings: %v", report.RunsWithoutQuant)
	}
}

func TestChecker_PipelineOutputDirCounts(t *testing.T) {
	out := t.TempDir()
	touch(t, filepath.Join(out, "getfastq", "SRR001", "SRR001_1.fastq.gz"))
	touch(t, filepath.Join(out, "SRR002", "SRR002.fq"))
	touchQuant(t, out, "SRR001")
	touchQuant(t, out, "SRR002")

	report, err := NewChecker(out, "", testLogger()).Run(loadTable(t, sanityTable))
	if err != nil {
		t.Fatal(err)
	}
	if len(report.RunsWithoutFastq) != 0 {
		t.Errorf("got %v, want pipeline output dir to count", report.RunsWithoutFastq)
	}
}

func TestChecker_PartialQuantIsMissing(t *testing.T) {
	out := t.TempDir()
	touch(t, filepath.Join(out, "SRR001", "SRR001_1.fastq.gz"))
	touch(t, filepath.Join(out, "SRR002", "SRR002.fastq.gz"))
	touchQuant(t, out, "SRR001")
	// SRR002 has only two of the three outputs.
	touch(t, filepath.Join(out, "quant", "SRR002", "SRR002_abundance.tsv"))
	touch(t, filepath.Join(out, "quant", "SRR002", "SRR002_run_info.json"))

	report, err := NewChecker(out, "", testLogger()).Run(loadTable(t, sanityTable))
	if err != nil {
		t.Fatal(err)
	}
	if len(report.RunsWithoutQuant) != 1 || report.RunsWithoutQuant[0] != "SRR002" {
		t.Errorf("got %v", report.RunsWithoutQuant)
	}
}

func TestChecker_SubspeciesIndexFallback(t *testing.T) {
	out := t.TempDir()
	index := t.TempDir()
	table := loadTable(t, "run\tlib_layout\tscientific_name\n"+
		"SRR001\tpaired\tCanis lupus familiaris\n")
	touch(t, filepath.Join(out, "SRR001", "SRR001_1.fastq.gz"))
	touchQuant(t, out, "SRR001")
	touch(t, filepath.Join(index, "Canis_lupus.idx"))

	report, err := NewChecker(out, index, testLogger()).Run(table)
	if err != nil {
		t.Fatal(err)
	}
	if len(report.SpeciesWithoutIndex) != 0 {
		t.Errorf("subspecies did not fall back: %v", report.SpeciesWithoutIndex)
	}
}

func TestChecker_WritesReportFiles(t *testing.T) {
	out := t.TempDir()
	report, err := NewChecker(out, "", testLogger()).Run(loadTable(t, sanityTable))
	if err != nil {
		t.Fatal(err)
	}
	if report.Clean() {
		t.Fatal("empty tree reported clean")
	}

	data, err := os.ReadFile(filepath.Join(out, "sanity", FastqReportFile))
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 || lines[0] != "SRR001" {
		t.Errorf("got report lines %v", lines)
	}

	// Quant report also written; index report written even when the check
	// was skipped, so downstream tooling can rely on its presence.
	for _, name := range []string{IndexReportFile, QuantReportFile} {
		if _, err := os.Stat(filepath.Join(out, "sanity", name)); err != nil {
			t.Errorf("report %s not written: %v", name, err)
		}
	}
}

func TestNormalizeSpecies(t *testing.T) {
	cases := []struct{ in, want string }{
		{"Homo sapiens", "Homo_sapiens"},
		{"Canis lupus familiaris", "Canis_lupus_familiaris"},
		{"E. coli", "E_coli"},
		{"  Mus musculus ", "Mus_musculus"},
	}
	for _, tc := range cases {
		if got := NormalizeSpecies(tc.in); got != tc.want {
			t.Errorf("NormalizeSpecies(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
