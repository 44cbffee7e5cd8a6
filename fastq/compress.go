package fastq

import (
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"

	"github.com/docxology/seqfetch/iox"
)

// CompressFile gzips path in place, producing path+".gz" and removing the
// original on success. Returns the compressed path.
func CompressFile(path string) (string, error) {
	src, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer iox.DiscardClose(src)

	dst := path + ".gz"
	out, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", dst, err)
	}

	zw := gzip.NewWriter(out)
	if _, err := io.Copy(zw, src); err != nil {
		iox.DiscardClose(zw)
		iox.DiscardClose(out)
		_ = os.Remove(dst)
		return "", fmt.Errorf("compress %s: %w", path, err)
	}
	if err := zw.Close(); err != nil {
		iox.DiscardClose(out)
		_ = os.Remove(dst)
		return "", fmt.Errorf("finish %s: %w", dst, err)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(dst)
		return "", fmt.Errorf("close %s: %w", dst, err)
	}

	if err := os.Remove(path); err != nil {
		return "", fmt.Errorf("remove %s: %w", path, err)
	}
	return dst, nil
}
