package enrichment

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png" // ffmpeg frame output is piped as PNG
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"

	"media-catalog/internal/database"
	"media-catalog/internal/logging"
	"media-catalog/internal/mediatypes"
	"media-catalog/internal/metrics"
)

const (
	thumbWidth  = 200
	thumbHeight = 200
	jpegQuality = 80
)

// Thumbnailer generates and removes thumbnail files for video records.
// Thumbnails are keyed by media record id so they survive file moves
// within a library and can be matched back during orphan cleanup.
type Thumbnailer struct {
	db       *database.Database
	cacheDir string
	enabled  bool
}

// NewThumbnailer creates a thumbnail generator writing into cacheDir.
func NewThumbnailer(db *database.Database, cacheDir string, enabled bool) *Thumbnailer {
	if enabled {
		logging.Debug("Thumbnailer: enabled, cache dir: %s", cacheDir)
		if err := os.MkdirAll(cacheDir, 0o755); err != nil {
			logging.Warn("Thumbnailer: failed to create cache dir: %v", err)
		}
	} else {
		logging.Debug("Thumbnailer: disabled")
	}
	return &Thumbnailer{db: db, cacheDir: cacheDir, enabled: enabled}
}

// ThumbnailPath returns where the thumbnail for a media id lives (or
// would live). Returns "" when thumbnails are disabled.
func (t *Thumbnailer) ThumbnailPath(mediaID string) string {
	if !t.enabled {
		return ""
	}
	return filepath.Join(t.cacheDir, mediaID+".jpg")
}

// Generate produces a thumbnail for the record behind mediaID and
// returns its path. Non-video records are not applicable and return "".
// An existing thumbnail is overwritten, so Generate doubles as refresh
// for modified files.
func (t *Thumbnailer) Generate(ctx context.Context, mediaID string) (string, error) {
	if !t.enabled {
		return "", nil
	}

	rec, err := t.db.MediaByID(ctx, mediaID)
	if err != nil {
		return "", err
	}
	if rec.Type != mediatypes.TypeVideo {
		return "", nil
	}

	img, err := t.extractFrame(ctx, rec.Path)
	if err != nil {
		return "", fmt.Errorf("thumbnail generation failed for %s: %w", rec.RelativePath, err)
	}

	thumb := imaging.Fit(img, thumbWidth, thumbHeight, imaging.Lanczos)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, thumb, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return "", fmt.Errorf("failed to encode thumbnail: %w", err)
	}

	path := t.ThumbnailPath(mediaID)
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("failed to write thumbnail %s: %w", path, err)
	}

	logging.Debug("Thumbnail written: %s", path)
	return path, nil
}

// DeleteFile removes a thumbnail file. A missing file is not an error.
func (t *Thumbnailer) DeleteFile(path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// CleanupOrphans removes thumbnails whose media record no longer exists.
// Runs as its own recurring task, independent of library scans.
func (t *Thumbnailer) CleanupOrphans(ctx context.Context) (int, error) {
	if !t.enabled {
		return 0, nil
	}

	entries, err := os.ReadDir(t.cacheDir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read thumbnail cache: %w", err)
	}

	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".jpg") {
			continue
		}

		mediaID := strings.TrimSuffix(entry.Name(), ".jpg")
		exists, err := t.db.MediaExists(ctx, mediaID)
		if err != nil {
			logging.Warn("Orphan check failed for %s: %v", entry.Name(), err)
			continue
		}
		if exists {
			continue
		}

		path := filepath.Join(t.cacheDir, entry.Name())
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			logging.Warn("Failed to remove orphaned thumbnail %s: %v", path, err)
			continue
		}
		removed++
		metrics.ThumbnailOrphansRemoved.Inc()
	}

	if removed > 0 {
		logging.Info("Removed %d orphaned thumbnails", removed)
	}
	return removed, nil
}

// extractFrame grabs a frame at the one second mark; files shorter than
// that get a second attempt from the first frame.
func (t *Thumbnailer) extractFrame(ctx context.Context, path string) (image.Image, error) {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return nil, fmt.Errorf("ffmpeg not found: %w", err)
	}

	img, err := t.runFFmpeg(ctx, path, true)
	if err != nil {
		logging.Debug("FFmpeg seek attempt failed for %s: %v", path, err)
		img, err = t.runFFmpeg(ctx, path, false)
	}
	return img, err
}

func (t *Thumbnailer) runFFmpeg(ctx context.Context, path string, seek bool) (image.Image, error) {
	args := []string{"-i", path}
	if seek {
		args = []string{"-ss", "00:00:01", "-i", path}
	}
	args = append(args,
		"-vframes", "1",
		"-f", "image2pipe",
		"-vcodec", "png",
		"-",
	)

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg failed: %v, stderr: %s", err, stderr.String())
	}
	if stdout.Len() == 0 {
		return nil, fmt.Errorf("ffmpeg produced no output for %s", path)
	}

	img, _, err := image.Decode(&stdout)
	if err != nil {
		return nil, fmt.Errorf("failed to decode ffmpeg output: %w", err)
	}
	return img, nil
}
