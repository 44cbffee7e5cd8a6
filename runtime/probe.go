package runtime

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/docxology/seqfetch/fastq"
	"github.com/docxology/seqfetch/log"
	"github.com/docxology/seqfetch/types"
)

// markerSuffix names the completion marker inside an item's directory.
const markerSuffix = ".completed"

// MarkerPath returns the completion marker path for an accession directory.
func MarkerPath(dir, accession string) string {
	return filepath.Join(dir, accession+markerSuffix)
}

// Prober decides whether usable output already exists for an accession.
//
// The completion marker is a cache of the validator's verdict, never
// authoritative on its own: a present marker triggers revalidation of the
// files it implies, and is deleted when they no longer pass. Invalid files
// discovered while scanning are removed eagerly so a later probe or a
// partially-run strategy cannot mistake them for valid output.
type Prober struct {
	Root   string
	Logger *log.Logger
}

// NewProber creates a prober over the output root.
func NewProber(root string, logger *log.Logger) *Prober {
	return &Prober{Root: root, Logger: logger}
}

func (p *Prober) dir(accession string) string {
	return filepath.Join(p.Root, accession)
}

// Probe reports whether valid output for accession is already on disk.
// On a fresh valid find without a marker, the marker is written
// (idempotently) so the next run short-circuits on it.
func (p *Prober) Probe(accession string, layout types.Layout) bool {
	dir := p.dir(accession)
	marker := MarkerPath(dir, accession)

	if _, err := os.Stat(marker); err == nil {
		if p.scanValid(accession, layout) {
			return true
		}
		// Stale or corrupted marker; discard and re-derive from the files.
		if err := os.Remove(marker); err != nil && !os.IsNotExist(err) {
			p.Logger.Warn("failed to remove stale completion marker", map[string]any{
				"marker": marker, "error": err.Error(),
			})
		}
		return false
	}

	if p.scanValid(accession, layout) {
		if err := p.WriteMarker(accession); err != nil {
			p.Logger.Warn("failed to write completion marker", map[string]any{
				"accession": accession, "error": err.Error(),
			})
		}
		return true
	}
	return false
}

// VerifyAndClean validates whatever output is currently on disk for
// accession, removing invalid files, and deletes the completion marker when
// no valid set remains. Strategies call this after producing files; the
// worker calls it before declaring success.
func (p *Prober) VerifyAndClean(accession string, layout types.Layout) bool {
	if p.scanValid(accession, layout) {
		return true
	}
	marker := MarkerPath(p.dir(accession), accession)
	if err := os.Remove(marker); err != nil && !os.IsNotExist(err) {
		p.Logger.Warn("failed to remove completion marker", map[string]any{
			"marker": marker, "error": err.Error(),
		})
	}
	return false
}

// WriteMarker records that accession's output passed validation. Idempotent.
func (p *Prober) WriteMarker(accession string) error {
	dir := p.dir(accession)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	content := fmt.Sprintf("Downloaded and verified on %s\n", time.Now().Format(time.RFC3339))
	return os.WriteFile(MarkerPath(dir, accession), []byte(content), 0o644)
}

// scanValid walks the known naming conventions for the layout and reports
// whether a complete valid file set exists, deleting invalid candidates as
// it goes. For an unknown layout the paired conventions are scanned first.
func (p *Prober) scanValid(accession string, layout types.Layout) bool {
	dir := p.dir(accession)
	for _, probe := range fastq.LayoutsToProbe(layout) {
		if probe == types.LayoutPaired {
			if p.scanPaired(dir, accession) {
				return true
			}
			continue
		}
		if p.scanSingle(dir, accession) {
			return true
		}
	}
	return false
}

func (p *Prober) scanPaired(dir, accession string) bool {
	for _, pair := range fastq.PairNames(accession) {
		p1 := filepath.Join(dir, pair.R1)
		p2 := filepath.Join(dir, pair.R2)
		if !isNonEmpty(p1) || !isNonEmpty(p2) {
			continue
		}
		v1 := fastq.Validate(p1)
		v2 := fastq.Validate(p2)
		if v1.Valid && v2.Valid {
			return true
		}
		if !v1.Valid {
			p.removeInvalid(p1, v1.Reason)
		}
		if !v2.Valid {
			p.removeInvalid(p2, v2.Reason)
		}
	}
	return false
}

func (p *Prober) scanSingle(dir, accession string) bool {
	for _, name := range fastq.SingleNames(accession) {
		path := filepath.Join(dir, name)
		if !isNonEmpty(path) {
			continue
		}
		v := fastq.Validate(path)
		if v.Valid {
			return true
		}
		p.removeInvalid(path, v.Reason)
	}
	return false
}

func (p *Prober) removeInvalid(path string, reason fastq.Reason) {
	p.Logger.Warn("removing invalid read file", map[string]any{
		"path": path, "reason": string(reason),
	})
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		p.Logger.Error("failed to remove invalid file", map[string]any{
			"path": path, "error": err.Error(),
		})
	}
}

func isNonEmpty(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Size() > 0
}
