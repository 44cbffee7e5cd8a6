package runtime

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/docxology/seqfetch/types"
)

// fakeS3 serves canned object bodies keyed by object key.
type fakeS3 struct {
	objects map[string][]byte
	gets    []string
}

func (f *fakeS3) GetObject(_ context.Context, params *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	key := *params.Key
	f.gets = append(f.gets, *params.Bucket+"/"+key)
	body, ok := f.objects[key]
	if !ok {
		return nil, fmt.Errorf("NoSuchKey: %s", key)
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(body))}, nil
}

func TestS3Archive_FetchesExpectedKey(t *testing.T) {
	archive := bytes.Repeat([]byte{0xAB}, 2048)
	fake := &fakeS3{objects: map[string][]byte{"sra/SRR500/SRR500": archive}}
	// fastq-dump path set but never resolvable; the run itself will fail,
	// which is fine: the key lookup is what this test pins down.
	exec := &ExecContext{FastqDump: "/nonexistent/fastq-dump"}
	s := NewS3ArchiveStrategyWithClient(fake, exec, testLogger())

	item := types.Item{Accession: "SRR500", Layout: types.LayoutPaired, Dir: filepath.Join(t.TempDir(), "SRR500")}
	res := s.Attempt(context.Background(), item)
	if res.OK {
		t.Fatal("got success without a working converter")
	}
	if len(fake.gets) != 1 || fake.gets[0] != "sra-pub-run-odp/sra/SRR500/SRR500" {
		t.Errorf("got gets %v", fake.gets)
	}
	// The archive must not linger after a failed attempt.
	if _, err := os.Stat(filepath.Join(item.Dir, "SRR500.sra")); !os.IsNotExist(err) {
		t.Error("archive left behind")
	}
}

func TestS3Archive_MissingObject(t *testing.T) {
	fake := &fakeS3{objects: map[string][]byte{}}
	exec := &ExecContext{FastqDump: "fastq-dump"}
	s := NewS3ArchiveStrategyWithClient(fake, exec, testLogger())

	item := types.Item{Accession: "SRR501", Layout: types.LayoutSingle, Dir: filepath.Join(t.TempDir(), "SRR501")}
	res := s.Attempt(context.Background(), item)
	if res.OK {
		t.Fatal("got success for a missing object")
	}
}

func TestS3Archive_TinyObjectRejected(t *testing.T) {
	fake := &fakeS3{objects: map[string][]byte{
		"sra/SRR502/SRR502": []byte("<Error>AccessDenied</Error>"),
	}}
	exec := &ExecContext{FastqDump: "fastq-dump"}
	s := NewS3ArchiveStrategyWithClient(fake, exec, testLogger())

	item := types.Item{Accession: "SRR502", Layout: types.LayoutSingle, Dir: filepath.Join(t.TempDir(), "SRR502")}
	res := s.Attempt(context.Background(), item)
	if res.OK {
		t.Fatal("got success for an error body")
	}
}

func TestS3Archive_Availability(t *testing.T) {
	logger := testLogger()
	withTool := NewS3ArchiveStrategyWithClient(&fakeS3{}, &ExecContext{FastqDump: "fastq-dump"}, logger)
	if !withTool.Available() {
		t.Error("strategy unavailable despite client and converter")
	}
	withoutTool := NewS3ArchiveStrategyWithClient(&fakeS3{}, &ExecContext{}, logger)
	if withoutTool.Available() {
		t.Error("strategy available without a converter")
	}
	withoutClient := NewS3ArchiveStrategyWithClient(nil, &ExecContext{FastqDump: "fastq-dump"}, logger)
	if withoutClient.Available() {
		t.Error("strategy available without a client")
	}
}
