package runtime

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/docxology/seqfetch/fastq"
	"github.com/docxology/seqfetch/log"
	"github.com/docxology/seqfetch/types"
)

// prefetchMaxSize caps the repository-native archive size prefetch accepts.
const prefetchMaxSize = "50G"

// ToolkitStrategy fetches the repository-native archive with prefetch and
// converts it locally with fasterq-dump, then compresses the output. It is
// the fastest path and runs first when the toolkit is installed.
type ToolkitStrategy struct {
	exec    *ExecContext
	threads int
	logger  *log.Logger
}

// NewToolkitStrategy creates the direct sra-toolkit strategy.
func NewToolkitStrategy(exec *ExecContext, threads int, logger *log.Logger) *ToolkitStrategy {
	return &ToolkitStrategy{exec: exec, threads: threads, logger: logger}
}

func (s *ToolkitStrategy) Name() string { return "sra-toolkit" }

func (s *ToolkitStrategy) Available() bool {
	return s.exec.Prefetch != "" && s.exec.FasterqDump != ""
}

func (s *ToolkitStrategy) Supports(types.Layout) bool { return true }

func (s *ToolkitStrategy) Attempt(ctx context.Context, item types.Item) (out Result) {
	if err := os.MkdirAll(item.Dir, 0o755); err != nil {
		return failure("create %s: %v", item.Dir, err)
	}
	before := snapshotReadFiles(item.Dir)
	defer func() {
		if !out.OK {
			clearNewReadFiles(item.Dir, before)
		}
	}()
	logger := s.logger.WithAccession(item.Accession)

	res, err := s.exec.Run(ctx, s.exec.Prefetch, item.Accession, "--max-size", prefetchMaxSize)
	if err != nil {
		return failure("prefetch: %v", err)
	}
	if res.ExitCode != 0 {
		return failure("prefetch exited %d", res.ExitCode)
	}

	res, err = s.exec.Run(ctx, s.exec.FasterqDump, item.Accession,
		"--outdir", item.Dir,
		"--threads", strconv.Itoa(s.threads),
		"--split-files")
	if err != nil {
		return failure("fasterq-dump: %v", err)
	}
	if res.ExitCode != 0 {
		return failure("fasterq-dump exited %d", res.ExitCode)
	}

	// fasterq-dump writes uncompressed .fastq files.
	entries, err := os.ReadDir(item.Dir)
	if err != nil {
		return failure("read %s: %v", item.Dir, err)
	}
	var produced []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".fastq") {
			continue
		}
		path := filepath.Join(item.Dir, entry.Name())
		gz, err := fastq.CompressFile(path)
		if err != nil {
			logger.Warn("failed to compress toolkit output", map[string]any{
				"path": path, "error": err.Error(),
			})
			produced = append(produced, path)
			continue
		}
		produced = append(produced, gz)
	}
	if len(produced) == 0 {
		return failure("fasterq-dump produced no read files")
	}
	return success(produced...)
}
