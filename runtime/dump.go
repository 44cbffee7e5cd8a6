package runtime

import (
	"context"
	"os"
	"path/filepath"

	"github.com/docxology/seqfetch/fastq"
	"github.com/docxology/seqfetch/log"
	"github.com/docxology/seqfetch/types"
)

// DumpStrategy invokes the legacy fastq-dump tool directly. It first asks
// for split output (correct for paired data, harmless for single), and on
// failure retries unsplit. Success is any read file appearing afterward;
// content validation happens at the chain boundary like everywhere else.
type DumpStrategy struct {
	exec   *ExecContext
	logger *log.Logger
}

// NewDumpStrategy creates the legacy dump-tool strategy.
func NewDumpStrategy(exec *ExecContext, logger *log.Logger) *DumpStrategy {
	return &DumpStrategy{exec: exec, logger: logger}
}

func (s *DumpStrategy) Name() string { return "fastq-dump" }

func (s *DumpStrategy) Available() bool { return s.exec.FastqDump != "" }

func (s *DumpStrategy) Supports(types.Layout) bool { return true }

func (s *DumpStrategy) Attempt(ctx context.Context, item types.Item) (out Result) {
	if err := os.MkdirAll(item.Dir, 0o755); err != nil {
		return failure("create %s: %v", item.Dir, err)
	}
	before := snapshotReadFiles(item.Dir)
	defer func() {
		if !out.OK {
			clearNewReadFiles(item.Dir, before)
		}
	}()

	res, err := s.exec.Run(ctx, s.exec.FastqDump, item.Accession,
		"--outdir", item.Dir, "--gzip", "--split-files")
	if err != nil {
		return failure("fastq-dump: %v", err)
	}
	if res.ExitCode != 0 {
		s.logger.WithAccession(item.Accession).Info("split fastq-dump failed, retrying unsplit", map[string]any{
			"exit_code": res.ExitCode,
		})
		res, err = s.exec.Run(ctx, s.exec.FastqDump, item.Accession,
			"--outdir", item.Dir, "--gzip")
		if err != nil {
			return failure("fastq-dump: %v", err)
		}
		if res.ExitCode != 0 {
			return failure("fastq-dump exited %d", res.ExitCode)
		}
	}

	files := listReadFiles(item.Dir)
	if len(files) == 0 {
		return failure("fastq-dump exited cleanly but produced no read files")
	}
	return success(files...)
}

// snapshotReadFiles records which read files exist in dir before an
// attempt runs, so a failed attempt can remove only what it produced.
func snapshotReadFiles(dir string) map[string]struct{} {
	before := make(map[string]struct{})
	for _, f := range listReadFiles(dir) {
		before[f] = struct{}{}
	}
	return before
}

// clearNewReadFiles removes read files that appeared since the snapshot.
// A tool killed mid-write can leave a file whose leading records look
// fine; left in place it would pass the next run's presence probe.
func clearNewReadFiles(dir string, before map[string]struct{}) {
	for _, f := range listReadFiles(dir) {
		if _, ok := before[f]; ok {
			continue
		}
		os.Remove(f)
	}
}

// listReadFiles returns the read-data files directly inside dir.
func listReadFiles(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var files []string
	for _, entry := range entries {
		if entry.IsDir() || !fastq.HasReadExtension(entry.Name()) {
			continue
		}
		files = append(files, filepath.Join(dir, entry.Name()))
	}
	return files
}
