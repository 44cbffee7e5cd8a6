package runtime

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/docxology/seqfetch/fastq"
	"github.com/docxology/seqfetch/iox"
	"github.com/docxology/seqfetch/log"
	"github.com/docxology/seqfetch/types"
)

// userAgent identifies seqfetch to the mirrors, with a contact pointer as
// the archives request.
const userAgent = "Mozilla/5.0 seqfetch/0.2 (SRA fetch tool; +https://github.com/docxology/seqfetch)"

const (
	mirrorConnectTimeout  = 30 * time.Second
	mirrorTransferTimeout = 300 * time.Second
)

// NewMirrorClient builds the HTTP client shared by the mirror strategies,
// with explicit connect and total-transfer timeouts. Timeouts are the only
// cancellation the chain applies to HTTP strategies.
func NewMirrorClient(connectTimeout, transferTimeout time.Duration) *http.Client {
	if connectTimeout <= 0 {
		connectTimeout = mirrorConnectTimeout
	}
	if transferTimeout <= 0 {
		transferTimeout = mirrorTransferTimeout
	}
	return &http.Client{
		Timeout: transferTimeout,
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			DialContext:         (&net.Dialer{Timeout: connectTimeout}).DialContext,
			MaxIdleConnsPerHost: 4,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}

// urlBuilder maps (accession, file name) to a mirror URL. ok=false means
// the layout does not apply to this accession (e.g. the regional archive
// only serves ERR submissions).
type urlBuilder func(accession, file string) (string, bool)

// MirrorStrategy downloads read files over HTTP from one mirror URL layout.
// Each file goes to a temporary ".part" name, is validated immediately, and
// is removed on any failure; the strategy reports success only when every
// file the layout requires downloaded and validated.
type MirrorStrategy struct {
	name     string
	client   *http.Client
	buildURL urlBuilder
	logger   *log.Logger
}

// NewEBIPrefixMirror serves the primary EBI layout with prefix-based
// bucketing: vol1/fastq/<first6>/<bucket>/<accession>/.
func NewEBIPrefixMirror(client *http.Client, logger *log.Logger) *MirrorStrategy {
	return &MirrorStrategy{
		name:   "ebi-prefix",
		client: client,
		buildURL: func(accession, file string) (string, bool) {
			if len(accession) < 6 {
				return "", false
			}
			return fmt.Sprintf("https://ftp.sra.ebi.ac.uk/vol1/fastq/%s/%s/%s/%s",
				accession[:6], prefixBucket(accession), accession, file), true
		},
		logger: logger,
	}
}

// NewEBIFlatMirror serves the flat EBI layout: vol1/fastq/<accession>/.
func NewEBIFlatMirror(client *http.Client, logger *log.Logger) *MirrorStrategy {
	return &MirrorStrategy{
		name:   "ebi-flat",
		client: client,
		buildURL: func(accession, file string) (string, bool) {
			return fmt.Sprintf("https://ftp.sra.ebi.ac.uk/vol1/fastq/%s/%s", accession, file), true
		},
		logger: logger,
	}
}

// NewERAMirror serves the regional archive layout, applicable only to
// ERR-prefixed submissions: vol1/ERA/<first6>/<accession>/.
func NewERAMirror(client *http.Client, logger *log.Logger) *MirrorStrategy {
	return &MirrorStrategy{
		name:   "ebi-era",
		client: client,
		buildURL: func(accession, file string) (string, bool) {
			if !strings.HasPrefix(accession, "ERR") || len(accession) < 6 {
				return "", false
			}
			return fmt.Sprintf("https://ftp.sra.ebi.ac.uk/vol1/ERA/%s/%s/%s",
				accession[:6], accession, file), true
		},
		logger: logger,
	}
}

// prefixBucket derives the sub-bucket component from an accession's numeric
// tail: two or fewer digits past the prefix get "00"-padding, longer tails
// use "0" plus the last three digits.
func prefixBucket(accession string) string {
	remaining := len(accession) - 6
	switch {
	case remaining <= 0:
		return "00"
	case remaining <= 2:
		return "00" + accession[len(accession)-remaining:]
	default:
		return "0" + accession[len(accession)-3:]
	}
}

func (s *MirrorStrategy) Name() string { return s.name }

func (s *MirrorStrategy) Available() bool { return true }

func (s *MirrorStrategy) Supports(types.Layout) bool { return true }

func (s *MirrorStrategy) Attempt(ctx context.Context, item types.Item) Result {
	if _, ok := s.buildURL(item.Accession, ""); !ok {
		return failure("layout not applicable to %s", item.Accession)
	}
	if err := os.MkdirAll(item.Dir, 0o755); err != nil {
		return failure("create %s: %v", item.Dir, err)
	}

	var lastReason string
	for _, layout := range fastq.LayoutsToProbe(item.Layout) {
		files := mirrorFileSet(item.Accession, layout)
		downloaded, reason := s.fetchSet(ctx, item, files)
		if reason == "" {
			return success(downloaded...)
		}
		lastReason = reason
	}
	return failure("%s", lastReason)
}

// mirrorFileSet is the canonical gzip convention the mirrors serve: one
// file for single-ended data, the underscore pair for paired.
func mirrorFileSet(accession string, layout types.Layout) []string {
	if layout == types.LayoutPaired {
		pair := fastq.PairNames(accession)[0]
		return []string{pair.R1, pair.R2}
	}
	return []string{fastq.SingleNames(accession)[0]}
}

// fetchSet downloads every file in the set, validating as it goes. On any
// failure all files downloaded so far are removed and the reason returned.
func (s *MirrorStrategy) fetchSet(ctx context.Context, item types.Item, files []string) ([]string, string) {
	logger := s.logger.WithAccession(item.Accession)
	var done []string

	cleanup := func() {
		for _, path := range done {
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				logger.Warn("failed to remove partial download", map[string]any{
					"path": path, "error": err.Error(),
				})
			}
		}
	}

	for _, name := range files {
		url, _ := s.buildURL(item.Accession, name)
		dest := filepath.Join(item.Dir, name)

		logger.Info("downloading from mirror", map[string]any{
			"strategy": s.name, "url": url,
		})
		if err := s.downloadFile(ctx, url, dest); err != nil {
			cleanup()
			return nil, fmt.Sprintf("download %s: %v", name, err)
		}
		if v := fastq.Validate(dest); !v.Valid {
			_ = os.Remove(dest)
			cleanup()
			return nil, fmt.Sprintf("%s failed validation: %s", name, v.Reason)
		}
		done = append(done, dest)
	}
	return done, ""
}

// downloadFile GETs url into dest via a temporary ".part" name, renaming
// only after the body is fully written.
func (s *MirrorStrategy) downloadFile(ctx context.Context, url, dest string) error {
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

	part := dest + ".part"
	f, err := os.Create(part)
	if err != nil {
		return fmt.Errorf("create %s: %w", part, err)
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		iox.DiscardClose(f)
		_ = os.Remove(part)
		return fmt.Errorf("write %s: %w", part, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(part)
		return fmt.Errorf("close %s: %w", part, err)
	}

	info, err := os.Stat(part)
	if err != nil || info.Size() == 0 {
		_ = os.Remove(part)
		return fmt.Errorf("empty body from %s", url)
	}
	return os.Rename(part, dest)
}
