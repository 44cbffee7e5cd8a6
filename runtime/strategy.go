package runtime

import (
	"context"
	"fmt"

	"github.com/docxology/seqfetch/log"
	"github.com/docxology/seqfetch/types"
)

// Result is the explicit outcome of one strategy attempt. Strategies report
// failure through Result, never by panicking or returning Go errors to the
// chain; the reason string exists for the log line only.
type Result struct {
	// OK is true when the strategy produced output for the item.
	OK bool
	// Files are the paths the strategy produced, relative to nothing in
	// particular; informational.
	Files []string
	// Reason describes why the attempt failed.
	Reason string
}

func success(files ...string) Result { return Result{OK: true, Files: files} }

func failure(format string, args ...any) Result {
	return Result{Reason: fmt.Sprintf(format, args...)}
}

// Strategy is one independent method of obtaining an item's read data.
// Strategies are stateless between items and tried in a fixed global order.
// An attempt must clean up any partial files it created on failure, so a
// later probe cannot misread half-written output as valid.
type Strategy interface {
	// Name identifies the strategy in logs and reports.
	Name() string
	// Available reports whether the strategy's external tooling is present.
	Available() bool
	// Supports reports whether the strategy can serve the given layout.
	Supports(layout types.Layout) bool
	// Attempt tries to produce the item's files in item.Dir.
	Attempt(ctx context.Context, item types.Item) Result
}

// Chain tries strategies in order until one succeeds and its output passes
// validation, or all are exhausted. Unexpected faults inside an attempt are
// recovered and converted into ordinary failures so one strategy's bug
// never aborts the item, let alone the pool.
type Chain struct {
	strategies []Strategy
	prober     *Prober
	logger     *log.Logger
}

// NewChain builds a chain over the given strategies.
func NewChain(strategies []Strategy, prober *Prober, logger *log.Logger) *Chain {
	return &Chain{strategies: strategies, prober: prober, logger: logger}
}

// Strategies returns the chain's strategies in attempt order.
func (c *Chain) Strategies() []Strategy { return c.strategies }

// Run drives item through the chain. Returns the first validated success
// and the name of the strategy that produced it, or a failed Result after
// exhaustion.
func (c *Chain) Run(ctx context.Context, item types.Item) (Result, string) {
	logger := c.logger.WithAccession(item.Accession)
	for _, s := range c.strategies {
		if ctx.Err() != nil {
			return failure("canceled: %v", ctx.Err()), ""
		}
		if !s.Available() {
			logger.Debug("strategy unavailable", map[string]any{"strategy": s.Name()})
			continue
		}
		if !s.Supports(item.Layout) {
			logger.Debug("strategy does not support layout", map[string]any{
				"strategy": s.Name(), "layout": string(item.Layout),
			})
			continue
		}

		logger.Info("attempting strategy", map[string]any{"strategy": s.Name()})
		res := safeAttempt(ctx, s, item)
		if !res.OK {
			logger.Warn("strategy failed", map[string]any{
				"strategy": s.Name(), "reason": res.Reason,
			})
			continue
		}

		// A content-integrity failure after a transport success triggers
		// the same fallback as a transport failure.
		if !c.prober.VerifyAndClean(item.Accession, item.Layout) {
			logger.Warn("strategy output failed validation", map[string]any{
				"strategy": s.Name(),
			})
			continue
		}
		return res, s.Name()
	}
	return failure("all strategies exhausted"), ""
}

// safeAttempt wraps one attempt so a panic becomes a failed Result.
func safeAttempt(ctx context.Context, s Strategy, item types.Item) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = failure("strategy %s panicked: %v", s.Name(), r)
		}
	}()
	return s.Attempt(ctx, item)
}
