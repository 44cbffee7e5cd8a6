package runtime

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/gzip"

	"github.com/docxology/seqfetch/fastq"
	"github.com/docxology/seqfetch/iox"
	"github.com/docxology/seqfetch/log"
	"github.com/docxology/seqfetch/types"
)

const ncbiFastqEndpoint = "https://trace.ncbi.nlm.nih.gov/Traces/sra-reads-be/fastq"

// NCBIFastqStrategy fetches read data from the NCBI fastq API. The
// endpoint serves a bare FASTQ stream for single-ended runs and a zip or
// tar bundle for multi-file submissions, so paired runs come back as
// archives and a bare stream for a paired accession is rejected.
type NCBIFastqStrategy struct {
	client   *http.Client
	endpoint string
	logger   *log.Logger
}

// NewNCBIFastqStrategy creates the NCBI fastq API strategy.
func NewNCBIFastqStrategy(client *http.Client, logger *log.Logger) *NCBIFastqStrategy {
	return &NCBIFastqStrategy{client: client, endpoint: ncbiFastqEndpoint, logger: logger}
}

func (s *NCBIFastqStrategy) Name() string { return "ncbi-fastq" }

func (s *NCBIFastqStrategy) Available() bool { return true }

func (s *NCBIFastqStrategy) Supports(types.Layout) bool { return true }

func (s *NCBIFastqStrategy) Attempt(ctx context.Context, item types.Item) Result {
	if err := os.MkdirAll(item.Dir, 0o755); err != nil {
		return failure("create %s: %v", item.Dir, err)
	}

	url := fmt.Sprintf("%s?acc=%s", s.endpoint, item.Accession)
	tmp := filepath.Join(item.Dir, item.Accession+".temp")

	if err := s.download(ctx, url, tmp); err != nil {
		_ = os.Remove(tmp)
		return failure("download: %v", err)
	}
	defer os.Remove(tmp)

	kind, err := sniffPayload(tmp)
	if err != nil {
		return failure("inspect response: %v", err)
	}
	if kind == payloadZip || kind == payloadTar || kind == payloadTarGz {
		return s.adoptArchive(item, tmp, kind)
	}
	return s.adoptStream(item, tmp, kind)
}

// adoptStream takes a bare FASTQ response as the single-end read file.
func (s *NCBIFastqStrategy) adoptStream(item types.Item, tmp string, kind payloadKind) Result {
	if item.Layout == types.LayoutPaired {
		return failure("endpoint returned a single stream for paired data")
	}
	if v := fastq.Validate(tmp); !v.Valid {
		return failure("response failed validation: %s", v.Reason)
	}

	if kind == payloadFastqGz {
		dest := filepath.Join(item.Dir, item.Accession+".fastq.gz")
		if err := os.Rename(tmp, dest); err != nil {
			return failure("rename: %v", err)
		}
		return success(dest)
	}
	plain := filepath.Join(item.Dir, item.Accession+".fastq")
	if err := os.Rename(tmp, plain); err != nil {
		return failure("rename: %v", err)
	}
	gz, err := fastq.CompressFile(plain)
	if err != nil {
		// Uncompressed output is still a valid convention.
		return success(plain)
	}
	return success(gz)
}

// adoptArchive unpacks the read files from a bundled response.
func (s *NCBIFastqStrategy) adoptArchive(item types.Item, tmp string, kind payloadKind) Result {
	var files []string
	var err error
	if kind == payloadZip {
		files, err = extractZipReads(tmp, item.Dir)
	} else {
		files, err = extractTarReads(tmp, item.Dir, kind == payloadTarGz)
	}
	if err != nil {
		removeFiles(files)
		return failure("extract archive: %v", err)
	}
	if len(files) == 0 {
		return failure("archive contained no read files")
	}
	for _, f := range files {
		if v := fastq.Validate(f); !v.Valid {
			removeFiles(files)
			return failure("archive member %s failed validation: %s", filepath.Base(f), v.Reason)
		}
	}
	return success(files...)
}

func (s *NCBIFastqStrategy) download(ctx context.Context, url, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer iox.DiscardClose(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	f, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create %s: %w", dest, err)
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		iox.DiscardClose(f)
		return fmt.Errorf("write %s: %w", dest, err)
	}
	return f.Close()
}

// payloadKind classifies a response body by its leading bytes.
type payloadKind int

const (
	payloadFastq payloadKind = iota
	payloadFastqGz
	payloadZip
	payloadTar
	payloadTarGz
)

var (
	zipMagic  = []byte("PK\x03\x04")
	gzipMagic = []byte{0x1f, 0x8b}
	tarMagic  = []byte("ustar")
)

const tarMagicOffset = 257

// sniffPayload inspects the leading bytes of the downloaded file. Gzip
// wraps either a tar bundle or a bare FASTQ stream, so the decompressed
// head is checked for the tar magic too.
func sniffPayload(path string) (payloadKind, error) {
	f, err := os.Open(path)
	if err != nil {
		return payloadFastq, err
	}
	defer f.Close()

	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return payloadFastq, err
	}
	head = head[:n]

	switch {
	case bytes.HasPrefix(head, zipMagic):
		return payloadZip, nil
	case bytes.HasPrefix(head, gzipMagic):
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			return payloadFastqGz, nil
		}
		zr, err := gzip.NewReader(f)
		if err != nil {
			return payloadFastqGz, nil
		}
		defer zr.Close()
		inner := make([]byte, tarMagicOffset+len(tarMagic))
		m, _ := io.ReadFull(zr, inner)
		if m == len(inner) && bytes.Equal(inner[tarMagicOffset:], tarMagic) {
			return payloadTarGz, nil
		}
		return payloadFastqGz, nil
	case len(head) >= tarMagicOffset+len(tarMagic) &&
		bytes.Equal(head[tarMagicOffset:tarMagicOffset+len(tarMagic)], tarMagic):
		return payloadTar, nil
	}
	return payloadFastq, nil
}

// extractZipReads unpacks the read-data members of a zip archive into
// dir, flattening any internal directory structure.
func extractZipReads(archivePath, dir string) ([]string, error) {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	var files []string
	for _, member := range r.File {
		name := filepath.Base(member.Name)
		if !fastq.HasReadExtension(name) {
			continue
		}
		src, err := member.Open()
		if err != nil {
			return files, err
		}
		dest := filepath.Join(dir, name)
		err = writeStream(dest, src)
		src.Close()
		if err != nil {
			return files, err
		}
		files = append(files, dest)
	}
	return files, nil
}

// extractTarReads unpacks the read-data members of a tar archive,
// optionally gzip-compressed, into dir.
func extractTarReads(archivePath, dir string, gzipped bool) ([]string, error) {
	f, err := os.Open(archivePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var src io.Reader = f
	if gzipped {
		zr, err := gzip.NewReader(f)
		if err != nil {
			return nil, err
		}
		defer zr.Close()
		src = zr
	}

	tr := tar.NewReader(src)
	var files []string
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return files, err
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		name := filepath.Base(hdr.Name)
		if !fastq.HasReadExtension(name) {
			continue
		}
		dest := filepath.Join(dir, name)
		if err := writeStream(dest, tr); err != nil {
			return files, err
		}
		files = append(files, dest)
	}
	return files, nil
}

func writeStream(dest string, src io.Reader) error {
	f, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, src); err != nil {
		iox.DiscardClose(f)
		return err
	}
	return f.Close()
}

func removeFiles(paths []string) {
	for _, p := range paths {
		os.Remove(p)
	}
}
