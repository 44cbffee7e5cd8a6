package runtime

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/docxology/seqfetch/types"
)

func TestPipeline_RelocatesFromPipelineDir(t *testing.T) {
	root := t.TempDir()
	// The fake pipeline writes into its own getfastq/ subtree, like the
	// real tool does.
	tool := fakeTool(t, `
idlist=""
outdir=""
while [ $# -gt 0 ]; do
  case "$1" in
    --id_list) idlist="$2"; shift ;;
    --out_dir) outdir="$2"; shift ;;
  esac
  shift
done
acc=$(head -n1 "$idlist")
mkdir -p "$outdir/getfastq/$acc"
touch "$outdir/getfastq/$acc/${acc}_1.fastq.gz" "$outdir/getfastq/$acc/${acc}_2.fastq.gz"
exit 0
`)
	s := NewPipelineStrategy(&ExecContext{Amalgkit: tool}, root, "metadata.tsv", 2, testLogger())
	item := types.Item{Accession: "SRR700", Layout: types.LayoutPaired, Dir: filepath.Join(root, "SRR700")}

	res := s.Attempt(context.Background(), item)
	if !res.OK {
		t.Fatalf("got failure: %s", res.Reason)
	}
	for _, name := range []string{"SRR700_1.fastq.gz", "SRR700_2.fastq.gz"} {
		if _, err := os.Stat(filepath.Join(item.Dir, name)); err != nil {
			t.Errorf("%s not relocated: %v", name, err)
		}
	}
}

func TestPipeline_ScratchFileRemoved(t *testing.T) {
	root := t.TempDir()
	tool := fakeTool(t, "exit 1\n")
	s := NewPipelineStrategy(&ExecContext{Amalgkit: tool}, root, "metadata.tsv", 2, testLogger())
	item := types.Item{Accession: "SRR701", Layout: types.LayoutSingle, Dir: filepath.Join(root, "SRR701")}

	res := s.Attempt(context.Background(), item)
	if res.OK {
		t.Fatal("got success from a failing pipeline")
	}
	if _, err := os.Stat(filepath.Join(item.Dir, "SRR701.id")); !os.IsNotExist(err) {
		t.Error("scratch id list left behind")
	}
}

func TestPipeline_CleanExitWithoutFilesFails(t *testing.T) {
	root := t.TempDir()
	tool := fakeTool(t, "exit 0\n")
	s := NewPipelineStrategy(&ExecContext{Amalgkit: tool}, root, "metadata.tsv", 2, testLogger())
	item := types.Item{Accession: "SRR702", Layout: types.LayoutSingle, Dir: filepath.Join(root, "SRR702")}

	if res := s.Attempt(context.Background(), item); res.OK {
		t.Fatal("got success with no produced files")
	}
}

func TestPipeline_Availability(t *testing.T) {
	available := NewPipelineStrategy(&ExecContext{Amalgkit: "/opt/amalgkit"}, "/out", "m.tsv", 1, testLogger())
	if !available.Available() {
		t.Error("unavailable with binary and metadata")
	}
	noTool := NewPipelineStrategy(&ExecContext{}, "/out", "m.tsv", 1, testLogger())
	if noTool.Available() {
		t.Error("available without the binary")
	}
	noMetadata := NewPipelineStrategy(&ExecContext{Amalgkit: "/opt/amalgkit"}, "/out", "", 1, testLogger())
	if noMetadata.Available() {
		t.Error("available without metadata")
	}
}

// Output the pipeline wrote before dying is cleared from both of its
// destination directories.
func TestPipeline_FailureRemovesPartialOutput(t *testing.T) {
	tool := fakeTool(t, `
while [ "$1" != "--out_dir" ]; do shift; done
root="$2"
mkdir -p "$root/getfastq/SRR907" "$root/SRR907"
printf '@SRR907.1\nACGT\n+\nIIII\n' > "$root/getfastq/SRR907/SRR907_1.fastq.gz"
printf '@SRR907.1\nACGT\n+\nIIII\n' > "$root/SRR907/SRR907.fastq.gz"
exit 1
`)
	root := t.TempDir()
	s := NewPipelineStrategy(&ExecContext{Amalgkit: tool}, root, "m.tsv", 1, testLogger())
	item := types.Item{Accession: "SRR907", Layout: types.LayoutSingle, Dir: filepath.Join(root, "SRR907")}

	res := s.Attempt(context.Background(), item)
	if res.OK {
		t.Fatal("got success from a failing pipeline")
	}
	if got := listReadFiles(item.Dir); len(got) != 0 {
		t.Errorf("partial output survived in item dir: %v", got)
	}
	if got := listReadFiles(filepath.Join(root, "getfastq", "SRR907")); len(got) != 0 {
		t.Errorf("partial output survived in pipeline dir: %v", got)
	}
}
