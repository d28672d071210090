// Package scanner implements the library scan engine: directory
// enumeration, incremental change detection against the media index, the
// scan orchestrator, and the recurring scan scheduler.
package scanner

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"media-catalog/internal/filesystem"
	"media-catalog/internal/logging"
)

var (
	// ErrPathNotFound is returned when a scan root does not exist.
	ErrPathNotFound = errors.New("path not found")
	// ErrPathUnreadable is returned when a scan root exists but cannot be read.
	ErrPathUnreadable = errors.New("path unreadable")
)

// WalkOptions controls directory enumeration.
type WalkOptions struct {
	// Recursive descends into subdirectories. When false only the root's
	// immediate entries are considered.
	Recursive bool
	// MaxDepth limits descent; 0 means unlimited. The root's immediate
	// entries are at depth 1.
	MaxDepth int
	// IncludeHidden includes entries whose name starts with ".".
	IncludeHidden bool
}

// Walker enumerates regular files under a root path. Enumeration is
// best-effort: a failure to read one subdirectory is logged and that
// subtree skipped, rather than aborting the whole walk.
type Walker struct {
	retry filesystem.RetryConfig
}

// NewWalker creates a Walker with the given filesystem retry behavior.
func NewWalker(retry filesystem.RetryConfig) *Walker {
	return &Walker{retry: retry}
}

// Walk calls fn for every regular file under root, subject to opts. Each
// invocation takes a fresh snapshot of the tree; callers may re-invoke.
// A non-nil error from fn stops the walk and is returned.
func (w *Walker) Walk(root string, opts WalkOptions, fn func(path string, info os.FileInfo) error) error {
	root = filepath.Clean(root)

	info, err := filesystem.StatWithRetry(root, w.retry)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrPathNotFound, root)
		}
		return fmt.Errorf("%w: %s: %v", ErrPathUnreadable, root, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", ErrPathUnreadable, root)
	}

	return w.walkDir(root, 1, opts, fn, true)
}

// Files collects the walk into a slice of absolute paths.
func (w *Walker) Files(root string, opts WalkOptions) ([]string, error) {
	var files []string
	err := w.Walk(root, opts, func(path string, _ os.FileInfo) error {
		files = append(files, path)
		return nil
	})
	return files, err
}

func (w *Walker) walkDir(dir string, depth int, opts WalkOptions, fn func(string, os.FileInfo) error, isRoot bool) error {
	if opts.MaxDepth > 0 && depth > opts.MaxDepth {
		return nil
	}

	entries, err := filesystem.ReadDirWithRetry(dir, w.retry)
	if err != nil {
		if isRoot {
			return fmt.Errorf("%w: %s: %v", ErrPathUnreadable, dir, err)
		}
		// Best-effort: skip this subtree, keep walking the rest.
		logging.Warn("Skipping unreadable directory %s: %v", dir, err)
		return nil
	}

	for _, entry := range entries {
		name := entry.Name()
		if !opts.IncludeHidden && strings.HasPrefix(name, ".") {
			continue
		}

		path := filepath.Join(dir, name)

		if entry.IsDir() {
			if !opts.Recursive {
				continue
			}
			if err := w.walkDir(path, depth+1, opts, fn, false); err != nil {
				return err
			}
			continue
		}

		info, err := entry.Info()
		if err != nil {
			logging.Warn("Skipping unreadable entry %s: %v", path, err)
			continue
		}
		if !info.Mode().IsRegular() {
			continue
		}

		if err := fn(path, info); err != nil {
			return err
		}
	}

	return nil
}
