package runtime

import (
	"context"
	"sync"
	"time"

	"github.com/docxology/seqfetch/log"
	"github.com/docxology/seqfetch/metrics"
	"github.com/docxology/seqfetch/types"
)

// Pool fans a fixed accession list across a bounded set of workers and
// folds their outcomes into the shared counters.
type Pool struct {
	worker   *Worker
	parallel int
	counters *metrics.Counters
	progress *Progress
	logger   *log.Logger
}

// NewPool wires the pool. parallel values below 1 are clamped to 1.
func NewPool(worker *Worker, parallel int, counters *metrics.Counters, progress *Progress, logger *log.Logger) *Pool {
	if parallel < 1 {
		parallel = 1
	}
	return &Pool{
		worker:   worker,
		parallel: parallel,
		counters: counters,
		progress: progress,
		logger:   logger,
	}
}

// Run processes every accession and returns the per-item records in
// completion order alongside the final counter snapshot.
func (p *Pool) Run(ctx context.Context, accessions []string) ([]OutcomeRecord, metrics.Snapshot, time.Duration) {
	start := time.Now()

	sem := make(chan struct{}, p.parallel)
	results := make(chan OutcomeRecord, len(accessions))
	var wg sync.WaitGroup

submit:
	for _, accession := range accessions {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			p.logger.Warn("fetch run cancelled", map[string]any{"pending": len(accessions)})
			break submit
		}
		wg.Add(1)
		go func(acc string) {
			defer wg.Done()
			defer func() { <-sem }()
			results <- p.worker.Process(ctx, acc)
		}(accession)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	var records []OutcomeRecord
	for record := range results {
		switch record.Outcome {
		case types.OutcomeSucceeded:
			p.counters.IncSucceeded()
		case types.OutcomeAlreadyPresent:
			p.counters.IncSkipped()
		default:
			p.counters.IncFailed()
		}
		records = append(records, record)
		if p.progress != nil {
			p.progress.Render(p.counters.Snapshot(), time.Since(start))
		}
	}
	if p.progress != nil {
		p.progress.Finish()
	}

	return records, p.counters.Snapshot(), time.Since(start)
}
