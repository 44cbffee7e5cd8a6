package runtime

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/docxology/seqfetch/log"
	"github.com/docxology/seqfetch/types"
)

// streamKeywords select which pipeline output lines are worth surfacing.
// Everything else the tool prints is progress chatter.
var streamKeywords = []string{
	"Total bases:",
	"Downloading SRA",
	"Time elapsed",
	"Library layout",
	"ERROR",
	"Warning",
	"Exception",
}

// PipelineStrategy shells out to the amalgkit getfastq pipeline as the
// last-resort fetch path. The pipeline manages its own retrieval and may
// place results either in the item directory or under its own getfastq/
// subtree, so results are relocated before the chain validates them.
type PipelineStrategy struct {
	exec     *ExecContext
	root     string
	metadata string
	threads  int
	logger   *log.Logger
}

// NewPipelineStrategy creates the pipeline fallback. root is the output
// root the pipeline runs against and metadata the table it consults.
func NewPipelineStrategy(exec *ExecContext, root, metadata string, threads int, logger *log.Logger) *PipelineStrategy {
	return &PipelineStrategy{exec: exec, root: root, metadata: metadata, threads: threads, logger: logger}
}

func (s *PipelineStrategy) Name() string { return "amalgkit" }

func (s *PipelineStrategy) Available() bool { return s.exec.Amalgkit != "" && s.metadata != "" }

func (s *PipelineStrategy) Supports(types.Layout) bool { return true }

func (s *PipelineStrategy) Attempt(ctx context.Context, item types.Item) (out Result) {
	if err := os.MkdirAll(item.Dir, 0o755); err != nil {
		return failure("create %s: %v", item.Dir, err)
	}
	pipeDir := filepath.Join(s.root, "getfastq", item.Accession)
	before := snapshotReadFiles(item.Dir)
	beforePipe := snapshotReadFiles(pipeDir)
	defer func() {
		if !out.OK {
			clearNewReadFiles(item.Dir, before)
			clearNewReadFiles(pipeDir, beforePipe)
		}
	}()

	idList := filepath.Join(item.Dir, item.Accession+".id")
	if err := os.WriteFile(idList, []byte(item.Accession+"\n"), 0o644); err != nil {
		return failure("write id list: %v", err)
	}
	defer os.Remove(idList)

	logger := s.logger.WithAccession(item.Accession)
	onLine := func(line string) {
		for _, kw := range streamKeywords {
			if strings.Contains(line, kw) {
				logger.Info("pipeline output", map[string]any{"line": line})
				return
			}
		}
	}

	code, err := s.exec.Stream(ctx, onLine, s.exec.Amalgkit, "getfastq",
		"--id_list", idList,
		"--out_dir", s.root,
		"--threads", strconv.Itoa(s.threads),
		"--metadata", s.metadata,
		"--pfd", "no",
		"--fastp", "no",
	)
	if err != nil {
		return failure("amalgkit getfastq: %v", err)
	}
	if code != 0 {
		return failure("amalgkit getfastq exited %d", code)
	}

	files := s.collect(item)
	if len(files) == 0 {
		return failure("amalgkit getfastq exited cleanly but produced no read files")
	}
	return success(files...)
}

// collect gathers read files from the directories the pipeline is known
// to write into, relocating strays into the item directory.
func (s *PipelineStrategy) collect(item types.Item) []string {
	candidates := []string{
		item.Dir,
		filepath.Join(s.root, "getfastq", item.Accession),
	}
	var files []string
	for _, dir := range candidates {
		for _, src := range listReadFiles(dir) {
			dest := filepath.Join(item.Dir, filepath.Base(src))
			if src != dest {
				if err := os.Rename(src, dest); err != nil {
					s.logger.WithAccession(item.Accession).Warn("relocate failed", map[string]any{
						"from":  src,
						"error": err.Error(),
					})
					continue
				}
			}
			files = append(files, dest)
		}
	}
	return files
}
