package scanner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"media-catalog/internal/database"
	"media-catalog/internal/filesystem"
	"media-catalog/internal/logging"
	"media-catalog/internal/mediatypes"
	"media-catalog/internal/metrics"
)

// Changes is the output of one detection pass: absolute paths classified
// by what happened to them since the last scan.
type Changes struct {
	Added    []string
	Modified []string
	Deleted  []string
}

// Empty reports whether no changes were detected.
func (c Changes) Empty() bool {
	return len(c.Added) == 0 && len(c.Modified) == 0 && len(c.Deleted) == 0
}

// Detector reconciles a library's media index against the filesystem.
type Detector struct {
	media  MediaStore
	walker *Walker
	retry  filesystem.RetryConfig
}

// NewDetector creates a change detector over the given index store.
func NewDetector(media MediaStore, walker *Walker, retry filesystem.RetryConfig) *Detector {
	return &Detector{media: media, walker: walker, retry: retry}
}

// Detect classifies every supported media file under the library root as
// added, modified, or unchanged, and every indexed record whose file is
// gone as deleted.
func (d *Detector) Detect(ctx context.Context, lib *database.Library, opts WalkOptions) (Changes, error) {
	records, err := d.media.MediaByLibrary(ctx, lib.ID)
	if err != nil {
		return Changes{}, fmt.Errorf("failed to load media index for library %s: %w", lib.ID, err)
	}

	// Keyed by absolute path; entries are popped as the walk finds them.
	// Whatever remains afterwards is gone from disk.
	known := make(map[string]*database.MediaRecord, len(records))
	for i := range records {
		known[filepath.Join(lib.RootPath, records[i].RelativePath)] = &records[i]
	}

	var changes Changes

	err = d.walker.Walk(lib.RootPath, opts, func(path string, info os.FileInfo) error {
		if !mediatypes.IsMediaFile(strings.ToLower(filepath.Ext(path))) {
			return nil
		}

		rec, ok := known[path]
		if !ok {
			changes.Added = append(changes.Added, path)
			return nil
		}
		delete(known, path)

		if d.isModified(path, info, rec) {
			changes.Modified = append(changes.Modified, path)
		}
		return nil
	})
	if err != nil {
		return Changes{}, err
	}

	for path := range known {
		changes.Deleted = append(changes.Deleted, path)
	}

	metrics.ChangesDetected.WithLabelValues("added").Add(float64(len(changes.Added)))
	metrics.ChangesDetected.WithLabelValues("modified").Add(float64(len(changes.Modified)))
	metrics.ChangesDetected.WithLabelValues("deleted").Add(float64(len(changes.Deleted)))

	return changes, nil
}

// isModified decides whether a file changed since its record was last
// refreshed. Checks run cheapest first: size, then mtime, then content
// hash. A newer mtime with an unchanged hash (touch without edit) is not
// a modification.
func (d *Detector) isModified(path string, info os.FileInfo, rec *database.MediaRecord) bool {
	if info.Size() != rec.Size {
		return true
	}

	if !info.ModTime().After(rec.UpdatedAt) {
		return false
	}

	// Newer mtime, same size. Without a stored hash there is nothing to
	// compare against, so classify conservatively.
	if rec.FileHash == "" {
		return true
	}

	hash, err := HashFile(path, d.retry)
	if err != nil {
		logging.Warn("Failed to hash %s, classifying as modified: %v", path, err)
		return true
	}

	return hash != rec.FileHash
}
