package runtime

import (
	"context"
	"os"
	"path/filepath"

	"github.com/docxology/seqfetch/log"
	"github.com/docxology/seqfetch/types"
)

// LayoutResolver reports the library layout recorded for an accession.
// A metadata table satisfies this; tests inject fixed answers.
type LayoutResolver interface {
	ResolveLayout(accession string) types.Layout
}

// OutcomeRecord is the per-accession result a worker hands back to the
// pool coordinator.
type OutcomeRecord struct {
	Accession string        `json:"accession"`
	Outcome   types.Outcome `json:"outcome"`
	Strategy  string        `json:"strategy,omitempty"`
	Reason    string        `json:"reason,omitempty"`
}

// Worker processes one accession end to end: resolve its layout, skip if
// verified output already exists, otherwise walk the strategy chain and
// mark the result.
type Worker struct {
	root     string
	resolver LayoutResolver
	prober   *Prober
	chain    *Chain
	force    bool
	logger   *log.Logger
}

// NewWorker wires a worker over shared components. force bypasses the
// already-present check but never the post-fetch validation.
func NewWorker(root string, resolver LayoutResolver, prober *Prober, chain *Chain, force bool, logger *log.Logger) *Worker {
	return &Worker{
		root:     root,
		resolver: resolver,
		prober:   prober,
		chain:    chain,
		force:    force,
		logger:   logger,
	}
}

// Process fetches a single accession and reports its outcome.
func (w *Worker) Process(ctx context.Context, accession string) OutcomeRecord {
	layout := w.resolver.ResolveLayout(accession)
	item := types.Item{
		Accession: accession,
		Layout:    layout,
		Dir:       filepath.Join(w.root, accession),
	}
	logger := w.logger.WithAccession(accession)

	if !w.force && w.prober.Probe(accession, layout) {
		logger.Info("already present, skipping", map[string]any{"layout": string(layout)})
		return OutcomeRecord{Accession: accession, Outcome: types.OutcomeAlreadyPresent}
	}

	if err := os.MkdirAll(item.Dir, 0o755); err != nil {
		logger.Error("cannot create output directory", map[string]any{"error": err.Error()})
		return OutcomeRecord{Accession: accession, Outcome: types.OutcomeFailed, Reason: err.Error()}
	}

	result, strategy := w.chain.Run(ctx, item)
	if !result.OK {
		logger.Error("all strategies failed", map[string]any{"reason": result.Reason})
		return OutcomeRecord{Accession: accession, Outcome: types.OutcomeFailed, Reason: result.Reason}
	}

	if err := w.prober.WriteMarker(accession); err != nil {
		logger.Warn("marker write failed", map[string]any{"error": err.Error()})
	}
	logger.Info("fetch succeeded", map[string]any{
		"strategy": strategy,
		"files":    len(result.Files),
	})
	return OutcomeRecord{Accession: accession, Outcome: types.OutcomeSucceeded, Strategy: strategy}
}
