// Package enrichment implements the post-discovery collaborators of the
// scan engine: metadata extraction, thumbnail generation, categorization,
// and thumbnail orphan cleanup.
package enrichment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"sync"

	"github.com/dhowden/tag"

	"media-catalog/internal/database"
	"media-catalog/internal/filesystem"
	"media-catalog/internal/logging"
	"media-catalog/internal/mediatypes"
)

// Extractor populates technical metadata on media records. Video files
// are probed with ffprobe; audio files are additionally read with a tag
// parser for title/artist/album. A missing ffprobe binary downgrades
// extraction to a warning, never a scan failure.
type Extractor struct {
	db    *database.Database
	retry filesystem.RetryConfig

	probeOnce    sync.Once
	probeMissing bool
}

// NewExtractor creates a metadata extractor over the catalog database.
func NewExtractor(db *database.Database, retry filesystem.RetryConfig) *Extractor {
	return &Extractor{db: db, retry: retry}
}

// Extract probes the file behind mediaID and saves what it finds. The
// record is marked processed on success.
func (e *Extractor) Extract(ctx context.Context, mediaID string) error {
	rec, err := e.db.MediaByID(ctx, mediaID)
	if err != nil {
		return err
	}

	if rec.Type == mediatypes.TypeAudio {
		if err := e.readTags(rec); err != nil {
			logging.Debug("Tag read failed for %s: %v", rec.RelativePath, err)
		}
	}

	if e.ffprobeAvailable() {
		if err := e.probe(ctx, rec); err != nil {
			logging.Warn("ffprobe failed for %s: %v", rec.RelativePath, err)
		}
	}

	rec.Processed = true
	return e.db.SaveMedia(ctx, rec)
}

// readTags fills title/artist/album/genres from embedded audio tags.
func (e *Extractor) readTags(rec *database.MediaRecord) error {
	f, err := filesystem.OpenWithRetry(rec.Path, e.retry)
	if err != nil {
		return err
	}
	defer f.Close()

	meta, err := tag.ReadFrom(f)
	if err != nil {
		return err
	}

	rec.Title = meta.Title()
	rec.Artist = meta.Artist()
	rec.Album = meta.Album()
	if genre := meta.Genre(); genre != "" {
		rec.Genres = []string{genre}
	}
	return nil
}

// ffprobeOutput is the subset of ffprobe's JSON output the extractor
// cares about.
type ffprobeOutput struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
	Streams []struct {
		CodecType string `json:"codec_type"`
		CodecName string `json:"codec_name"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
	} `json:"streams"`
}

// probe runs ffprobe and fills duration, codecs, and resolution.
func (e *Extractor) probe(ctx context.Context, rec *database.MediaRecord) error {
	cmd := exec.CommandContext(ctx, "ffprobe",
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		rec.Path,
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffprobe: %v, stderr: %s", err, stderr.String())
	}

	var out ffprobeOutput
	if err := json.Unmarshal(stdout.Bytes(), &out); err != nil {
		return fmt.Errorf("failed to parse ffprobe output: %w", err)
	}

	if out.Format.Duration != "" {
		if seconds, err := strconv.ParseFloat(out.Format.Duration, 64); err == nil {
			rec.Duration = seconds
		}
	}

	for _, stream := range out.Streams {
		switch stream.CodecType {
		case "video":
			rec.VideoCodec = stream.CodecName
			if stream.Width > 0 {
				rec.Width = stream.Width
				rec.Height = stream.Height
			}
		case "audio":
			rec.AudioCodec = stream.CodecName
		}
	}

	return nil
}

// ffprobeAvailable checks once whether the external probing tool exists.
func (e *Extractor) ffprobeAvailable() bool {
	e.probeOnce.Do(func() {
		if _, err := exec.LookPath("ffprobe"); err != nil {
			e.probeMissing = true
			logging.Warn("ffprobe not found in PATH, technical metadata extraction disabled")
		}
	})
	return !e.probeMissing
}
