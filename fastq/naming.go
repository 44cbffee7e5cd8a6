package fastq

import (
	"github.com/docxology/seqfetch/types"
)

// Pair is a paired-end file naming convention instantiated for one accession.
type Pair struct {
	R1, R2 string
}

// PairNames returns every paired-end naming convention produced by the
// download tools, in the fixed order they are probed. The sra-toolkit
// underscore patterns come first, then dotted pair numbering, then the
// short-extension variants.
func PairNames(accession string) []Pair {
	return []Pair{
		{accession + "_1.fastq.gz", accession + "_2.fastq.gz"},
		{accession + "_1.fastq", accession + "_2.fastq"},
		{accession + ".1.fastq.gz", accession + ".2.fastq.gz"},
		{accession + ".1.fastq", accession + ".2.fastq"},
		{accession + "_1.fq.gz", accession + "_2.fq.gz"},
		{accession + "_1.fq", accession + "_2.fq"},
	}
}

// SingleNames returns every single-end naming convention, in probe order.
func SingleNames(accession string) []string {
	return []string{
		accession + ".fastq.gz",
		accession + ".fastq",
		accession + ".fq.gz",
		accession + ".fq",
	}
}

// Extensions lists the file suffixes that count as read data when scanning
// a directory for tool output.
var Extensions = []string{".fastq.gz", ".fastq", ".fq.gz", ".fq"}

// LayoutsToProbe expands a layout into the concrete layouts to try, in
// order. An unknown layout probes the paired conventions first: they are
// the more permissive set, and a paired accession checked as single-ended
// would wrongly pass with only half its data.
func LayoutsToProbe(layout types.Layout) []types.Layout {
	switch layout {
	case types.LayoutPaired:
		return []types.Layout{types.LayoutPaired}
	case types.LayoutSingle:
		return []types.Layout{types.LayoutSingle}
	default:
		return []types.Layout{types.LayoutPaired, types.LayoutSingle}
	}
}

// HasReadExtension reports whether name ends in one of the read-data
// suffixes.
func HasReadExtension(name string) bool {
	for _, ext := range Extensions {
		if len(name) > len(ext) && name[len(name)-len(ext):] == ext {
			return true
		}
	}
	return false
}
