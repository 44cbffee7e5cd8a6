// Package curate folds quantification results back into the metadata
// table: per-accession pseudoalignment rates are read from the
// quantifier's run info files and appended as a mapping_rate column, with
// an optional statistics script run over the result.
package curate

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/docxology/seqfetch/log"
	"github.com/docxology/seqfetch/metadata"
	"github.com/docxology/seqfetch/runtime"
)

// mappingRateKey is the quantifier run-info field holding the percentage
// of reads pseudoaligned.
const mappingRateKey = "p_pseudoaligned"

// MissingRate marks accessions whose run info could not be read.
const MissingRate = "NA"

// Curator extracts mapping rates and updates the metadata table.
type Curator struct {
	OutDir string
	Exec   *runtime.ExecContext
	Logger *log.Logger
}

// NewCurator creates a curator over the fetch output root.
func NewCurator(outDir string, exec *runtime.ExecContext, logger *log.Logger) *Curator {
	return &Curator{OutDir: outDir, Exec: exec, Logger: logger}
}

// MappingRates reads the mapping rate for each run from its quantifier
// run info file. Runs without a readable rate map to MissingRate and are
// also returned separately.
func (c *Curator) MappingRates(runs []string) (map[string]string, []string) {
	rates := make(map[string]string, len(runs))
	var missing []string
	for _, run := range runs {
		rate, err := c.readRate(run)
		if err != nil {
			c.Logger.Warn("mapping rate unavailable", map[string]any{
				"accession": run, "error": err.Error(),
			})
			rates[run] = MissingRate
			missing = append(missing, run)
			continue
		}
		rates[run] = rate
	}
	return rates, missing
}

func (c *Curator) readRate(run string) (string, error) {
	path := filepath.Join(c.OutDir, "quant", run, run+"_run_info.json")
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	var info map[string]any
	if err := json.Unmarshal(data, &info); err != nil {
		return "", fmt.Errorf("parse %s: %w", path, err)
	}
	value, ok := info[mappingRateKey]
	if !ok {
		return "", fmt.Errorf("%s missing key %s", path, mappingRateKey)
	}
	switch v := value.(type) {
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case string:
		return v, nil
	default:
		return "", fmt.Errorf("%s key %s has unexpected type %T", path, mappingRateKey, value)
	}
}

// UpdateMetadata appends the mapping_rate column to table and writes the
// updated TSV to dest.
func (c *Curator) UpdateMetadata(table *metadata.Table, rates map[string]string, dest string) error {
	table.AppendColumn("mapping_rate", rates)
	if err := table.Write(dest); err != nil {
		return fmt.Errorf("write updated metadata: %w", err)
	}
	return nil
}

// RunStats invokes the statistics script over the updated metadata via
// Rscript. A missing Rscript binary is an error only when a script was
// requested.
func (c *Curator) RunStats(ctx context.Context, script, metadataPath string) error {
	if c.Exec.Rscript == "" {
		return fmt.Errorf("Rscript not found on PATH")
	}
	res, err := c.Exec.Run(ctx, c.Exec.Rscript, script, metadataPath, c.OutDir)
	if err != nil {
		return fmt.Errorf("run %s: %w", script, err)
	}
	if res.ExitCode != 0 {
		c.Logger.Error("statistics script failed", map[string]any{
			"script": script, "exit_code": res.ExitCode, "output": res.Output,
		})
		return fmt.Errorf("%s exited %d", script, res.ExitCode)
	}
	return nil
}
