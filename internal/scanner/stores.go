package scanner

import (
	"context"
	"time"

	"media-catalog/internal/database"
)

// MediaStore is the persisted media index the scan engine reconciles
// against. *database.Database satisfies it.
type MediaStore interface {
	MediaByLibrary(ctx context.Context, libraryID string) ([]database.MediaRecord, error)
	UnprocessedMedia(ctx context.Context, libraryID string) ([]database.MediaRecord, error)
	MediaByRelativePath(ctx context.Context, libraryID, relPath string) (*database.MediaRecord, error)
	CreateMedia(ctx context.Context, rec *database.MediaRecord) error
	SaveMedia(ctx context.Context, rec *database.MediaRecord) error
	DeleteMedia(ctx context.Context, rec *database.MediaRecord) error
}

// LibraryStore provides library configuration lookups and scan-completion
// bookkeeping. *database.Database satisfies it.
type LibraryStore interface {
	Libraries(ctx context.Context) ([]database.Library, error)
	LibraryByID(ctx context.Context, id string) (*database.Library, error)
	TouchLibraryScanned(ctx context.Context, id string, when time.Time) error
}

// MetadataExtractor probes one media file and writes technical metadata
// onto its record. Implementations must degrade gracefully when the
// external probing tool is unavailable.
type MetadataExtractor interface {
	Extract(ctx context.Context, mediaID string) error
}

// ThumbnailGenerator produces and removes thumbnail files for media
// records. Generate returns "" for media types it does not apply to.
type ThumbnailGenerator interface {
	Generate(ctx context.Context, mediaID string) (string, error)
	ThumbnailPath(mediaID string) string
	DeleteFile(path string) error
}

// Categorizer assigns genre labels to a media record.
type Categorizer interface {
	Categorize(ctx context.Context, mediaID string) ([]string, error)
}
