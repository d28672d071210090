// Package filesystem provides filesystem operations with retry logic for
// stale NFS file handles.
package filesystem

import (
	"errors"
	"os"
	"syscall"
	"time"

	"media-catalog/internal/logging"
	"media-catalog/internal/metrics"
)

// RetryConfig configures retry behavior for filesystem operations
type RetryConfig struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// DefaultRetryConfig returns sensible defaults for NFS retry behavior
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:     3,
		InitialBackoff: 50 * time.Millisecond,
		MaxBackoff:     500 * time.Millisecond,
	}
}

// isStaleError checks if an error is an NFS stale file handle error
func isStaleError(err error) bool {
	if err == nil {
		return false
	}

	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno == syscall.ESTALE
	}

	return false
}

// withRetry runs op, retrying on ESTALE with exponential backoff.
// Any other error returns immediately.
func withRetry(operation, path string, config RetryConfig, op func() error) error {
	var lastErr error
	backoff := config.InitialBackoff

	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		err := op()
		if err == nil {
			if attempt > 0 {
				logging.Info("NFS %s succeeded on retry %d for %s", operation, attempt, path)
				metrics.FilesystemRetrySuccess.WithLabelValues(operation).Inc()
			}
			return nil
		}

		lastErr = err

		if !isStaleError(err) {
			return err
		}

		metrics.FilesystemStaleErrors.WithLabelValues(operation).Inc()

		if attempt < config.MaxRetries {
			metrics.FilesystemRetryAttempts.WithLabelValues(operation).Inc()
			logging.Debug("NFS %s stale file handle for %s, retrying in %v (attempt %d/%d)",
				operation, path, backoff, attempt+1, config.MaxRetries)
			time.Sleep(backoff)

			backoff *= 2
			if backoff > config.MaxBackoff {
				backoff = config.MaxBackoff
			}
		}
	}

	logging.Warn("NFS %s failed after %d retries for %s: %v", operation, config.MaxRetries, path, lastErr)
	metrics.FilesystemRetryFailures.WithLabelValues(operation).Inc()
	return lastErr
}

// StatWithRetry performs os.Stat with retry logic for NFS stale file handle errors
func StatWithRetry(path string, config RetryConfig) (os.FileInfo, error) {
	var info os.FileInfo
	err := withRetry("stat", path, config, func() error {
		var err error
		info, err = os.Stat(path)
		return err
	})
	return info, err
}

// OpenWithRetry performs os.Open with retry logic for NFS stale file handle errors
func OpenWithRetry(path string, config RetryConfig) (*os.File, error) {
	var file *os.File
	err := withRetry("open", path, config, func() error {
		var err error
		file, err = os.Open(path)
		return err
	})
	return file, err
}

// ReadDirWithRetry performs os.ReadDir with retry logic for NFS stale file handle errors
func ReadDirWithRetry(path string, config RetryConfig) ([]os.DirEntry, error) {
	var entries []os.DirEntry
	err := withRetry("readdir", path, config, func() error {
		var err error
		entries, err = os.ReadDir(path)
		return err
	})
	return entries, err
}
