// Package sanity verifies the on-disk results of a fetch-and-quantify
// workflow: read files per accession, an alignment index per species, and
// quantification outputs per accession. Findings are written as plain-text
// report files next to the data so downstream steps can consume them.
package sanity

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/docxology/seqfetch/fastq"
	"github.com/docxology/seqfetch/log"
	"github.com/docxology/seqfetch/metadata"
)

// Report file names, written under <out>/sanity/.
const (
	FastqReportFile = "SRA_IDs_without_fastq.txt"
	IndexReportFile = "species_without_index.txt"
	QuantReportFile = "SRA_IDs_without_quant.txt"
)

// quantSuffixes are the per-accession quantification outputs that must all
// be present for an accession to count as quantified.
var quantSuffixes = []string{"_abundance.tsv", "_run_info.json", "_abundance.h5"}

// Checker inspects a fetch output tree.
type Checker struct {
	OutDir   string
	IndexDir string
	Logger   *log.Logger
}

// NewChecker creates a checker rooted at the fetch output directory.
// indexDir may be empty, which skips the index check.
func NewChecker(outDir, indexDir string, logger *log.Logger) *Checker {
	return &Checker{OutDir: outDir, IndexDir: indexDir, Logger: logger}
}

// Report lists everything the checks found missing.
type Report struct {
	RunsWithoutFastq    []string
	SpeciesWithoutIndex []string
	RunsWithoutQuant    []string
}

// Clean reports whether every check passed.
func (r *Report) Clean() bool {
	return len(r.RunsWithoutFastq) == 0 &&
		len(r.SpeciesWithoutIndex) == 0 &&
		len(r.RunsWithoutQuant) == 0
}

// Run executes all checks over the runs and species in table and writes
// the report files. Report files are written even when empty so a clean
// run is distinguishable from a run that never checked.
func (c *Checker) Run(table *metadata.Table) (*Report, error) {
	report := &Report{}

	for _, run := range table.Runs() {
		if !c.hasFastq(run) {
			report.RunsWithoutFastq = append(report.RunsWithoutFastq, run)
		}
		if !c.hasQuant(run) {
			report.RunsWithoutQuant = append(report.RunsWithoutQuant, run)
		}
	}

	if c.IndexDir != "" {
		species, ok := table.UniqueValues("scientific_name")
		if !ok {
			return report, fmt.Errorf("metadata has no scientific_name column")
		}
		for _, name := range species {
			if !c.hasIndex(name) {
				report.SpeciesWithoutIndex = append(report.SpeciesWithoutIndex, name)
			}
		}
	}

	sort.Strings(report.RunsWithoutFastq)
	sort.Strings(report.SpeciesWithoutIndex)
	sort.Strings(report.RunsWithoutQuant)

	if err := c.writeReports(report); err != nil {
		return report, err
	}
	return report, nil
}

// hasFastq reports whether any read file exists for run in the known
// output locations.
func (c *Checker) hasFastq(run string) bool {
	candidates := []string{
		filepath.Join(c.OutDir, run),
		filepath.Join(c.OutDir, "getfastq", run),
	}
	for _, dir := range candidates {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if !entry.IsDir() && fastq.HasReadExtension(entry.Name()) {
				return true
			}
		}
	}
	return false
}

// hasQuant reports whether all quantification outputs exist for run.
func (c *Checker) hasQuant(run string) bool {
	dir := filepath.Join(c.OutDir, "quant", run)
	for _, suffix := range quantSuffixes {
		if _, err := os.Stat(filepath.Join(dir, run+suffix)); err != nil {
			return false
		}
	}
	return true
}

// hasIndex reports whether an index file exists for species. The full
// normalized name is tried first; subspecies names fall back to the
// genus-species prefix.
func (c *Checker) hasIndex(species string) bool {
	name := NormalizeSpecies(species)
	if c.indexExists(name) {
		return true
	}
	tokens := strings.Split(name, "_")
	if len(tokens) > 2 {
		return c.indexExists(strings.Join(tokens[:2], "_"))
	}
	return false
}

func (c *Checker) indexExists(prefix string) bool {
	entries, err := os.ReadDir(c.IndexDir)
	if err != nil {
		return false
	}
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), prefix) {
			return true
		}
	}
	return false
}

// NormalizeSpecies converts a scientific name to its index file form:
// spaces become underscores and dots are stripped.
func NormalizeSpecies(species string) string {
	name := strings.ReplaceAll(strings.TrimSpace(species), " ", "_")
	return strings.ReplaceAll(name, ".", "")
}

func (c *Checker) writeReports(report *Report) error {
	dir := filepath.Join(c.OutDir, "sanity")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	files := map[string][]string{
		FastqReportFile: report.RunsWithoutFastq,
		IndexReportFile: report.SpeciesWithoutIndex,
		QuantReportFile: report.RunsWithoutQuant,
	}
	for name, lines := range files {
		content := ""
		if len(lines) > 0 {
			content = strings.Join(lines, "\n") + "\n"
		}
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
	}
	return nil
}
