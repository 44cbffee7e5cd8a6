// Package types holds the shared domain types for seqfetch.
// It is a leaf package with no internal dependencies.
package types

// Layout is the library layout of a sequencing run, which determines how
// many read files an accession produces and how they are named.
type Layout string

const (
	// LayoutSingle is single-ended read data (one file per accession).
	LayoutSingle Layout = "single"
	// LayoutPaired is paired-ended read data (two mate files per accession).
	LayoutPaired Layout = "paired"
	// LayoutUnknown means the metadata could not determine the layout.
	// Downstream code must probe paired-capable naming patterns first.
	LayoutUnknown Layout = "unknown"
)

// Outcome is the terminal state of one accession after a fetch attempt.
type Outcome string

const (
	// OutcomeAlreadyPresent means valid output existed before any strategy ran.
	OutcomeAlreadyPresent Outcome = "already_present"
	// OutcomeSucceeded means a strategy produced output that passed validation.
	OutcomeSucceeded Outcome = "succeeded"
	// OutcomeFailed means every strategy was exhausted without valid output.
	OutcomeFailed Outcome = "failed"
)

// Item is one accession to fetch. Items are derived once from the input ID
// list and never mutated for the duration of a run.
type Item struct {
	// Accession is the opaque run identifier (e.g. SRR000001).
	Accession string
	// Layout is the resolved library layout, LayoutUnknown if undeterminable.
	Layout Layout
	// Dir is the accession's own output directory under the output root.
	Dir string
}
