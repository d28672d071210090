package scanner

import (
	"crypto/md5" //nolint:gosec // change detection, not integrity verification
	"fmt"
	"io"
	"time"

	"media-catalog/internal/filesystem"
	"media-catalog/internal/metrics"
)

// HashFile streams a file and returns its content digest. The digest is
// stable across runs on identical bytes; it is compared, never verified.
func HashFile(path string, retry filesystem.RetryConfig) (string, error) {
	start := time.Now()

	f, err := filesystem.OpenWithRetry(path, retry)
	if err != nil {
		return "", fmt.Errorf("failed to open %s for hashing: %w", path, err)
	}
	defer f.Close()

	h := md5.New() //nolint:gosec // see above
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to hash %s: %w", path, err)
	}

	metrics.HashComputations.Inc()
	metrics.HashDuration.Observe(time.Since(start).Seconds())

	return fmt.Sprintf("%x", h.Sum(nil)), nil
}
