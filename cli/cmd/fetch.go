package cmd

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/docxology/seqfetch/cli/config"
	"github.com/docxology/seqfetch/log"
	"github.com/docxology/seqfetch/metadata"
	"github.com/docxology/seqfetch/metrics"
	"github.com/docxology/seqfetch/runtime"
)

// Exit codes for fetch.
const (
	exitSuccess    = 0
	exitFetchError = 1
)

const (
	defaultThreads         = 4
	defaultParallel        = 4
	defaultConnectTimeout  = 30 * time.Second
	defaultTransferTimeout = 5 * time.Minute
)

// FetchCommand returns the fetch command, the only command that
// downloads data.
func FetchCommand() *cli.Command {
	return &cli.Command{
		Name:  "fetch",
		Usage: "Fetch and verify read data for a list of accessions",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to YAML config file",
			},
			&cli.StringFlag{
				Name:  "id-list",
				Usage: "Path to file with one accession per line",
			},
			&cli.StringFlag{
				Name:  "metadata",
				Usage: "Path to metadata TSV with library layouts",
			},
			&cli.StringFlag{
				Name:    "out-dir",
				Aliases: []string{"o"},
				Usage:   "Output root directory",
				Value:   ".",
			},
			&cli.IntFlag{
				Name:  "threads",
				Usage: "Threads passed to conversion tools",
			},
			&cli.IntFlag{
				Name:  "parallel",
				Usage: "Concurrent accessions",
			},
			&cli.BoolFlag{
				Name:  "force",
				Usage: "Refetch even when verified output already exists",
			},
			&cli.StringFlag{
				Name:  "amalgkit",
				Usage: "Path to the amalgkit binary",
			},
			&cli.StringFlag{
				Name:  "bin-dir",
				Usage: "Directory prepended to PATH for external tools",
			},
			&cli.StringFlag{
				Name:  "report",
				Usage: "Write a JSON run report to this path ('-' for stderr)",
			},
			&cli.BoolFlag{
				Name:  "test",
				Usage: "Probe tool and mirror availability, then exit",
			},
		},
		Action: fetchAction,
	}
}

// fetchChoice holds the merged config-file and flag values.
type fetchChoice struct {
	idList   string
	metadata string
	outDir   string
	threads  int
	parallel int
	force    bool
	amalgkit string
	binDir   string
	report   string

	connectTimeout  time.Duration
	transferTimeout time.Duration
}

// resolveFetchChoice merges config file values with CLI flags.
// Flags always win; unset values fall back to defaults.
func resolveFetchChoice(c *cli.Context) (fetchChoice, error) {
	choice := fetchChoice{
		threads:         defaultThreads,
		parallel:        defaultParallel,
		connectTimeout:  defaultConnectTimeout,
		transferTimeout: defaultTransferTimeout,
	}

	if path := c.String("config"); path != "" {
		cfg, err := config.Load(path)
		if err != nil {
			return choice, err
		}
		choice.idList = cfg.IDList
		choice.metadata = cfg.Metadata
		if cfg.OutDir != "" {
			choice.outDir = cfg.OutDir
		}
		if cfg.Threads > 0 {
			choice.threads = cfg.Threads
		}
		if cfg.Parallel > 0 {
			choice.parallel = cfg.Parallel
		}
		choice.force = cfg.Force
		choice.amalgkit = cfg.Tools.Amalgkit
		choice.binDir = cfg.Tools.BinDir
		choice.report = cfg.Report
		if cfg.HTTP.ConnectTimeout.Duration > 0 {
			choice.connectTimeout = cfg.HTTP.ConnectTimeout.Duration
		}
		if cfg.HTTP.TransferTimeout.Duration > 0 {
			choice.transferTimeout = cfg.HTTP.TransferTimeout.Duration
		}
	}

	if v := c.String("id-list"); v != "" {
		choice.idList = v
	}
	if v := c.String("metadata"); v != "" {
		choice.metadata = v
	}
	if c.IsSet("out-dir") || choice.outDir == "" {
		choice.outDir = c.String("out-dir")
	}
	if c.IsSet("threads") {
		choice.threads = c.Int("threads")
	}
	if c.IsSet("parallel") {
		choice.parallel = c.Int("parallel")
	}
	if c.Bool("force") {
		choice.force = true
	}
	if v := c.String("amalgkit"); v != "" {
		choice.amalgkit = v
	}
	if v := c.String("bin-dir"); v != "" {
		choice.binDir = v
	}
	if v := c.String("report"); v != "" {
		choice.report = v
	}

	return choice, nil
}

func fetchAction(c *cli.Context) error {
	choice, err := resolveFetchChoice(c)
	if err != nil {
		return cli.Exit(err.Error(), exitFetchError)
	}

	runID := uuid.New().String()
	logger := log.NewLogger(runID)

	exec := runtime.NewExecContext(choice.amalgkit, choice.binDir)
	client := runtime.NewMirrorClient(choice.connectTimeout, choice.transferTimeout)

	if c.Bool("test") {
		return probeAvailability(c.Context, choice, exec, client)
	}

	if choice.idList == "" {
		return cli.Exit("--id-list is required (flag or config)", exitFetchError)
	}
	if choice.metadata == "" {
		return cli.Exit("--metadata is required (flag or config)", exitFetchError)
	}
	if err := os.MkdirAll(choice.outDir, 0o755); err != nil {
		return cli.Exit(fmt.Sprintf("cannot create output directory %s: %v", choice.outDir, err), exitFetchError)
	}

	accessions, err := readIDList(choice.idList)
	if err != nil {
		return cli.Exit(err.Error(), exitFetchError)
	}
	if len(accessions) == 0 {
		return cli.Exit(fmt.Sprintf("no accessions found in %s", choice.idList), exitFetchError)
	}

	table, err := metadata.Load(choice.metadata)
	if err != nil {
		return cli.Exit(err.Error(), exitFetchError)
	}
	if dupes := table.DuplicateRuns(); len(dupes) > 0 {
		return cli.Exit(fmt.Sprintf("duplicate run accessions in metadata: %s", strings.Join(dupes, ", ")), exitFetchError)
	}

	ctx, cancel := context.WithCancel(c.Context)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	strategies := buildStrategies(ctx, choice, exec, client, logger)
	prober := runtime.NewProber(choice.outDir, logger)
	chain := runtime.NewChain(strategies, prober, logger)
	worker := runtime.NewWorker(choice.outDir, table, prober, chain, choice.force, logger)
	counters := metrics.NewCounters(len(accessions), runID, choice.outDir)
	progress := runtime.NewProgress(os.Stderr)
	pool := runtime.NewPool(worker, choice.parallel, counters, progress, logger)

	logger.Info("fetch run starting", map[string]any{
		"accessions": len(accessions),
		"parallel":   choice.parallel,
		"out_dir":    choice.outDir,
		"force":      choice.force,
	})

	records, snap, elapsed := pool.Run(ctx, accessions)

	exitCode := exitSuccess
	if snap.Failed > 0 {
		exitCode = exitFetchError
	}

	if err := runtime.WriteSummary(choice.outDir, snap, elapsed); err != nil {
		logger.Warn("summary write failed", map[string]any{"error": err.Error()})
	}
	if choice.report != "" {
		report := runtime.BuildFetchReport(records, snap, elapsed, exitCode)
		if err := runtime.WriteFetchReport(report, choice.report); err != nil {
			logger.Warn("report write failed", map[string]any{"error": err.Error()})
		}
	}

	logger.Info("fetch run finished", map[string]any{
		"succeeded":   snap.Succeeded,
		"skipped":     snap.Skipped,
		"failed":      snap.Failed,
		"duration_ms": elapsed.Milliseconds(),
	})

	return cli.Exit("", exitCode)
}

// buildStrategies assembles the fetch strategy chain in priority order.
func buildStrategies(ctx context.Context, choice fetchChoice, exec *runtime.ExecContext, client *http.Client, logger *log.Logger) []runtime.Strategy {
	strategies := []runtime.Strategy{
		runtime.NewToolkitStrategy(exec, choice.threads, logger),
		runtime.NewEBIPrefixMirror(client, logger),
		runtime.NewEBIFlatMirror(client, logger),
		runtime.NewERAMirror(client, logger),
		runtime.NewNCBIFastqStrategy(client, logger),
	}

	s3, err := runtime.NewS3ArchiveStrategy(ctx, exec, logger)
	if err != nil {
		logger.Warn("archive bucket client unavailable", map[string]any{"error": err.Error()})
	} else {
		strategies = append(strategies, s3)
	}

	strategies = append(strategies,
		runtime.NewDumpStrategy(exec, logger),
		runtime.NewPipelineStrategy(exec, choice.outDir, choice.metadata, choice.threads, logger),
	)
	return strategies
}

// readIDList reads one accession per line, skipping blanks and comments.
func readIDList(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read id list %s: %w", path, err)
	}
	defer f.Close()

	var accessions []string
	seen := make(map[string]struct{})
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if _, dup := seen[line]; dup {
			continue
		}
		seen[line] = struct{}{}
		accessions = append(accessions, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading id list %s: %w", path, err)
	}
	return accessions, nil
}

// probeAvailability reports which fetch paths are usable from this host.
func probeAvailability(ctx context.Context, choice fetchChoice, exec *runtime.ExecContext, client *http.Client) error {
	tools := []struct {
		name, path string
	}{
		{"prefetch", exec.Prefetch},
		{"fasterq-dump", exec.FasterqDump},
		{"fastq-dump", exec.FastqDump},
		{"amalgkit", exec.Amalgkit},
	}
	for _, tool := range tools {
		status := "missing"
		if tool.path != "" {
			status = tool.path
		}
		fmt.Printf("tool  %-14s %s\n", tool.name, status)
	}

	endpoints := []struct {
		name, url string
	}{
		{"ebi-mirror", "https://ftp.sra.ebi.ac.uk/vol1/"},
		{"ncbi-fastq", "https://trace.ncbi.nlm.nih.gov/"},
	}
	for _, ep := range endpoints {
		req, err := http.NewRequestWithContext(ctx, http.MethodHead, ep.url, nil)
		if err != nil {
			fmt.Printf("net   %-14s error: %v\n", ep.name, err)
			continue
		}
		resp, err := client.Do(req)
		if err != nil {
			fmt.Printf("net   %-14s unreachable: %v\n", ep.name, err)
			continue
		}
		resp.Body.Close()
		fmt.Printf("net   %-14s reachable (%d)\n", ep.name, resp.StatusCode)
	}
	return nil
}
