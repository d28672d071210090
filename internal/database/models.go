package database

import (
	"strings"
	"time"

	"media-catalog/internal/mediatypes"
)

// Library is a configured root directory plus scanning policy.
type Library struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	RootPath      string     `json:"rootPath"`
	AutoScan      bool       `json:"autoScan"`
	ScanInterval  string     `json:"scanInterval,omitempty"`
	LastScannedAt *time.Time `json:"lastScannedAt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// MediaRecord is the persisted representation of one discovered media file.
// Within a library, RelativePath uniquely identifies a record.
type MediaRecord struct {
	ID           string               `json:"id"`
	LibraryID    string               `json:"libraryId"`
	Path         string               `json:"path"`
	RelativePath string               `json:"relativePath"`
	Type         mediatypes.MediaType `json:"type"`
	Size         int64                `json:"size"`
	FileHash     string               `json:"-"`
	Processed    bool                 `json:"processed"`

	// Enrichment fields, populated by metadata extraction and categorization.
	Duration   float64  `json:"durationSeconds,omitempty"`
	VideoCodec string   `json:"videoCodec,omitempty"`
	AudioCodec string   `json:"audioCodec,omitempty"`
	Width      int      `json:"width,omitempty"`
	Height     int      `json:"height,omitempty"`
	Title      string   `json:"title,omitempty"`
	Artist     string   `json:"artist,omitempty"`
	Album      string   `json:"album,omitempty"`
	Genres     []string `json:"genres,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// joinGenres flattens genre labels for storage.
func joinGenres(genres []string) string {
	return strings.Join(genres, ",")
}

// splitGenres parses stored genre labels.
func splitGenres(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}
