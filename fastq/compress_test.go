package fastq

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCompressFile_RoundTrip(t *testing.T) {
	path := writeFile(t, "reads.fastq", plausible(validRecord))

	gz, err := CompressFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if gz != path+".gz" {
		t.Errorf("got %q, want %q", gz, path+".gz")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("original survived compression")
	}
	if got := Validate(gz); !got.Valid {
		t.Errorf("compressed file invalid: %s", got.Reason)
	}
}

func TestCompressFile_MissingSource(t *testing.T) {
	_, err := CompressFile(filepath.Join(t.TempDir(), "absent.fastq"))
	if err == nil {
		t.Fatal("got nil error for missing source")
	}
}
