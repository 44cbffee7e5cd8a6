package runtime

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/docxology/seqfetch/iox"
	"github.com/docxology/seqfetch/log"
	"github.com/docxology/seqfetch/types"
)

// The NCBI Open Data Program mirrors repository-native archives in a public
// S3 bucket, one object per run at sra/<accession>/<accession>.
const (
	odpBucket = "sra-pub-run-odp"
	odpRegion = "us-east-1"
)

// S3ObjectGetter is the slice of the S3 API the strategy uses; the concrete
// client satisfies it and tests inject fakes.
type S3ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3ArchiveStrategy fetches the run archive from the public bucket with
// anonymous credentials and converts it locally with fastq-dump. It exists
// for runs the HTTP mirrors have not materialized as FASTQ.
type S3ArchiveStrategy struct {
	client S3ObjectGetter
	exec   *ExecContext
	logger *log.Logger
}

// NewS3ArchiveStrategy builds the strategy with an anonymous S3 client.
func NewS3ArchiveStrategy(ctx context.Context, exec *ExecContext, logger *log.Logger) (*S3ArchiveStrategy, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(odpRegion),
		awsconfig.WithCredentialsProvider(aws.AnonymousCredentials{}),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &S3ArchiveStrategy{
		client: s3.NewFromConfig(cfg),
		exec:   exec,
		logger: logger,
	}, nil
}

// NewS3ArchiveStrategyWithClient injects a prebuilt client (tests).
func NewS3ArchiveStrategyWithClient(client S3ObjectGetter, exec *ExecContext, logger *log.Logger) *S3ArchiveStrategy {
	return &S3ArchiveStrategy{client: client, exec: exec, logger: logger}
}

func (s *S3ArchiveStrategy) Name() string { return "ncbi-s3" }

// Available requires fastq-dump: the archive is useless without a converter.
func (s *S3ArchiveStrategy) Available() bool {
	return s.client != nil && s.exec.FastqDump != ""
}

func (s *S3ArchiveStrategy) Supports(types.Layout) bool { return true }

func (s *S3ArchiveStrategy) Attempt(ctx context.Context, item types.Item) Result {
	if err := os.MkdirAll(item.Dir, 0o755); err != nil {
		return failure("create %s: %v", item.Dir, err)
	}

	archive := filepath.Join(item.Dir, item.Accession+".sra")
	defer func() {
		if err := os.Remove(archive); err != nil && !os.IsNotExist(err) {
			s.logger.Warn("failed to remove archive", map[string]any{
				"path": archive, "error": err.Error(),
			})
		}
	}()

	if err := s.fetchArchive(ctx, item.Accession, archive); err != nil {
		return failure("fetch archive: %v", err)
	}

	args := []string{"--outdir", item.Dir, "--gzip"}
	if item.Layout != types.LayoutSingle {
		args = append(args, "--split-files")
	}
	args = append(args, archive)

	res, err := s.exec.Run(ctx, s.exec.FastqDump, args...)
	if err != nil {
		return failure("fastq-dump: %v", err)
	}
	if res.ExitCode != 0 {
		return failure("fastq-dump exited %d", res.ExitCode)
	}
	return success()
}

func (s *S3ArchiveStrategy) fetchArchive(ctx context.Context, accession, dest string) error {
	key := fmt.Sprintf("sra/%s/%s", accession, accession)
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(odpBucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("get s3://%s/%s: %w", odpBucket, key, err)
	}
	defer iox.DiscardClose(out.Body)

	f, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create %s: %w", dest, err)
	}
	n, err := io.Copy(f, out.Body)
	if err != nil {
		iox.DiscardClose(f)
		_ = os.Remove(dest)
		return fmt.Errorf("write %s: %w", dest, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(dest)
		return fmt.Errorf("close %s: %w", dest, err)
	}
	if n < minArchiveSize {
		_ = os.Remove(dest)
		return fmt.Errorf("archive suspiciously small (%d bytes)", n)
	}
	return nil
}

// minArchiveSize rejects error bodies served as archive objects.
const minArchiveSize = 1024
