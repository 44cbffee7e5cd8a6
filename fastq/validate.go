// Package fastq inspects candidate read files and decides whether their
// content is well-formed FASTQ or a download artifact (truncated transfer,
// HTML error page served with a 200, broken gzip stream).
package fastq

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/docxology/seqfetch/iox"
)

// Reason classifies why a file failed validation.
type Reason string

const (
	ReasonNone           Reason = ""
	ReasonUnreadable     Reason = "unreadable"
	ReasonErrorPage      Reason = "error_page"
	ReasonBadCompression Reason = "bad_compression"
	ReasonTruncated      Reason = "truncated"
	ReasonBadHeader      Reason = "bad_header"
	ReasonBadSeparator   Reason = "bad_separator"
)

// Result is the verdict for one file. It is consumed immediately by the
// caller and never persisted.
type Result struct {
	Valid  bool
	Reason Reason
}

const (
	// Files under this size are suspect and get their header inspected for
	// error-page markers before the structural check.
	minPlausibleSize = 1024
	headerProbeBytes = 200
)

// errorMarkers are substrings that identify an HTML error response
// mislabelled as a data file. Matched case-insensitively.
var errorMarkers = []string{"<!doctype html", "<html", "error", "not found", "404"}

func invalid(reason Reason) Result { return Result{Valid: false, Reason: reason} }

// Validate inspects path and reports whether it holds plausible FASTQ data.
// A ".gz" suffix selects transparent decompression. Validate never returns a
// Go error: every I/O or decode failure degrades to an invalid Result.
func Validate(path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		return invalid(ReasonUnreadable)
	}

	if info.Size() < minPlausibleSize {
		switch probeErrorPage(path) {
		case probeErrorFound:
			return invalid(ReasonErrorPage)
		case probeUnreadable:
			return invalid(ReasonUnreadable)
		}
		// Small but not an error page; fall through to the structural check.
	}

	f, err := os.Open(path)
	if err != nil {
		return invalid(ReasonUnreadable)
	}
	defer iox.DiscardClose(f)

	compressed := strings.HasSuffix(path, ".gz")
	var r io.Reader = f
	if compressed {
		zr, err := gzip.NewReader(f)
		if err != nil {
			return invalid(ReasonBadCompression)
		}
		defer iox.DiscardClose(zr)
		r = zr
	}

	lines, err := readLines(r, 4)
	if err != nil {
		if compressed {
			return invalid(ReasonBadCompression)
		}
		return invalid(ReasonUnreadable)
	}
	if len(lines) < 4 {
		return invalid(ReasonTruncated)
	}
	if !strings.HasPrefix(lines[0], "@") {
		return invalid(ReasonBadHeader)
	}
	if !strings.HasPrefix(lines[2], "+") {
		return invalid(ReasonBadSeparator)
	}
	return Result{Valid: true}
}

type probeVerdict int

const (
	probeClean probeVerdict = iota
	probeErrorFound
	probeUnreadable
)

// probeErrorPage reads the leading raw bytes of path and scans them for
// error-page markers. The read is on the raw file, not the decompressed
// stream: mirrors serve HTML bodies under .gz names.
func probeErrorPage(path string) probeVerdict {
	f, err := os.Open(path)
	if err != nil {
		return probeUnreadable
	}
	defer iox.DiscardClose(f)

	buf := make([]byte, headerProbeBytes)
	n, err := io.ReadFull(f, buf)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return probeUnreadable
	}
	header := strings.ToLower(string(buf[:n]))
	for _, marker := range errorMarkers {
		if strings.Contains(header, marker) {
			return probeErrorFound
		}
	}
	return probeClean
}

// readLines reads up to n logical lines. A final unterminated line counts.
func readLines(r io.Reader, n int) ([]string, error) {
	br := bufio.NewReader(r)
	lines := make([]string, 0, n)
	for len(lines) < n {
		line, err := br.ReadString('\n')
		if line != "" {
			lines = append(lines, line)
		}
		if err == io.EOF {
			return lines, nil
		}
		if err != nil {
			return lines, err
		}
	}
	return lines, nil
}
