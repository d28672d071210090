package enrichment

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/dhowden/tag"

	"media-catalog/internal/database"
	"media-catalog/internal/logging"
	"media-catalog/internal/mediatypes"
)

// pathCategories maps lowercased path segments to a genre label. The
// first matching segment wins, walking from the library root inward.
var pathCategories = map[string]string{
	"movies":        "movie",
	"movie":         "movie",
	"films":         "movie",
	"tv":            "series",
	"shows":         "series",
	"series":        "series",
	"documentaries": "documentary",
	"docs":          "documentary",
	"kids":          "kids",
	"children":      "kids",
	"anime":         "anime",
	"music":         "music",
	"concerts":      "concert",
	"sports":        "sports",
	"podcasts":      "podcast",
	"audiobooks":    "audiobook",
}

// Categorizer derives genre labels for media records. Audio files use
// their embedded tags; video files are labeled from path conventions
// and resolution.
type Categorizer struct {
	db *database.Database
}

// NewCategorizer creates a categorizer backed by db.
func NewCategorizer(db *database.Database) *Categorizer {
	return &Categorizer{db: db}
}

// Categorize computes and persists genre labels for the record behind
// mediaID, returning the labels it assigned. Existing labels (set by
// metadata extraction) are kept and extended, not replaced.
func (c *Categorizer) Categorize(ctx context.Context, mediaID string) ([]string, error) {
	rec, err := c.db.MediaByID(ctx, mediaID)
	if err != nil {
		return nil, err
	}

	var labels []string
	switch rec.Type {
	case mediatypes.TypeAudio:
		labels = c.audioLabels(rec)
	case mediatypes.TypeVideo:
		labels = c.videoLabels(rec)
	default:
		return rec.Genres, nil
	}

	merged := mergeLabels(rec.Genres, labels)
	if len(merged) == len(rec.Genres) {
		return rec.Genres, nil
	}

	rec.Genres = merged
	if err := c.db.SaveMedia(ctx, rec); err != nil {
		return nil, err
	}
	logging.Debug("Categorized %s as %v", rec.RelativePath, merged)
	return merged, nil
}

// audioLabels prefers genres already extracted from tags; if metadata
// extraction has not run yet, read the tag genre directly.
func (c *Categorizer) audioLabels(rec *database.MediaRecord) []string {
	if len(rec.Genres) > 0 {
		return nil
	}

	f, err := os.Open(rec.Path)
	if err != nil {
		logging.Debug("Categorizer: cannot open %s: %v", rec.Path, err)
		return nil
	}
	defer f.Close()

	meta, err := tag.ReadFrom(f)
	if err != nil {
		return nil
	}
	if genre := strings.TrimSpace(meta.Genre()); genre != "" {
		return []string{strings.ToLower(genre)}
	}
	return nil
}

func (c *Categorizer) videoLabels(rec *database.MediaRecord) []string {
	var labels []string

	for _, segment := range strings.Split(filepath.ToSlash(rec.RelativePath), "/") {
		if label, ok := pathCategories[strings.ToLower(segment)]; ok {
			labels = append(labels, label)
			break
		}
	}

	switch {
	case rec.Height >= 2160:
		labels = append(labels, "4k")
	case rec.Height >= 1080:
		labels = append(labels, "hd")
	}

	return labels
}

func mergeLabels(existing, added []string) []string {
	merged := existing
	for _, label := range added {
		seen := false
		for _, have := range merged {
			if have == label {
				seen = true
				break
			}
		}
		if !seen {
			merged = append(merged, label)
		}
	}
	return merged
}
