package enrichment

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"media-catalog/internal/database"
	"media-catalog/internal/filesystem"
	"media-catalog/internal/mediatypes"
)

func newTestDB(t *testing.T) *database.Database {
	t.Helper()
	db, err := database.New(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func createRecord(t *testing.T, db *database.Database, rec *database.MediaRecord) *database.MediaRecord {
	t.Helper()
	lib := &database.Library{Name: "test", RootPath: "/media/test"}
	if err := db.CreateLibrary(context.Background(), lib); err != nil {
		t.Fatalf("Failed to create library: %v", err)
	}
	rec.LibraryID = lib.ID
	if err := db.CreateMedia(context.Background(), rec); err != nil {
		t.Fatalf("Failed to create record: %v", err)
	}
	return rec
}

func TestCategorizeVideoByPath(t *testing.T) {
	db := newTestDB(t)
	rec := createRecord(t, db, &database.MediaRecord{
		Path:         "/media/test/Movies/Heat/Heat.mp4",
		RelativePath: "Movies/Heat/Heat.mp4",
		Type:         mediatypes.TypeVideo,
		Height:       1080,
	})

	c := NewCategorizer(db)
	labels, err := c.Categorize(context.Background(), rec.ID)
	if err != nil {
		t.Fatalf("Categorize failed: %v", err)
	}

	if len(labels) != 2 || labels[0] != "movie" || labels[1] != "hd" {
		t.Errorf("Expected [movie hd], got %v", labels)
	}

	got, err := db.MediaByID(context.Background(), rec.ID)
	if err != nil {
		t.Fatalf("MediaByID failed: %v", err)
	}
	if len(got.Genres) != 2 {
		t.Errorf("Expected labels persisted, got %v", got.Genres)
	}
}

func TestCategorizeVideoResolution(t *testing.T) {
	db := newTestDB(t)

	tests := []struct {
		relPath string
		height  int
		want    []string
	}{
		{"tv/Show/s01e01.mkv", 2160, []string{"series", "4k"}},
		{"documentaries/Blue.mp4", 720, []string{"documentary"}},
		{"unsorted/clip.mp4", 480, nil},
	}

	c := NewCategorizer(db)
	for _, tt := range tests {
		rec := createRecord(t, db, &database.MediaRecord{
			Path:         "/media/test/" + tt.relPath,
			RelativePath: tt.relPath,
			Type:         mediatypes.TypeVideo,
			Height:       tt.height,
		})

		labels, err := c.Categorize(context.Background(), rec.ID)
		if err != nil {
			t.Fatalf("Categorize(%s) failed: %v", tt.relPath, err)
		}
		if len(labels) != len(tt.want) {
			t.Errorf("Categorize(%s) = %v, want %v", tt.relPath, labels, tt.want)
			continue
		}
		for i := range tt.want {
			if labels[i] != tt.want[i] {
				t.Errorf("Categorize(%s) = %v, want %v", tt.relPath, labels, tt.want)
				break
			}
		}
	}
}

func TestCategorizeKeepsExistingLabels(t *testing.T) {
	db := newTestDB(t)
	rec := createRecord(t, db, &database.MediaRecord{
		Path:         "/media/test/movies/Heat.mp4",
		RelativePath: "movies/Heat.mp4",
		Type:         mediatypes.TypeVideo,
		Genres:       []string{"noir"},
	})

	c := NewCategorizer(db)
	labels, err := c.Categorize(context.Background(), rec.ID)
	if err != nil {
		t.Fatalf("Categorize failed: %v", err)
	}

	if len(labels) != 2 || labels[0] != "noir" || labels[1] != "movie" {
		t.Errorf("Expected existing labels kept and extended, got %v", labels)
	}
}

func TestCategorizeAudioWithExtractedGenres(t *testing.T) {
	db := newTestDB(t)
	rec := createRecord(t, db, &database.MediaRecord{
		Path:         "/media/test/music/song.mp3",
		RelativePath: "music/song.mp3",
		Type:         mediatypes.TypeAudio,
		Genres:       []string{"jazz"},
	})

	c := NewCategorizer(db)
	labels, err := c.Categorize(context.Background(), rec.ID)
	if err != nil {
		t.Fatalf("Categorize failed: %v", err)
	}

	if len(labels) != 1 || labels[0] != "jazz" {
		t.Errorf("Expected extracted genres to stand, got %v", labels)
	}
}

func TestCategorizeUnknownRecord(t *testing.T) {
	db := newTestDB(t)
	c := NewCategorizer(db)

	if _, err := c.Categorize(context.Background(), "nope"); err == nil {
		t.Error("Expected error for unknown record")
	}
}

func TestThumbnailerDisabled(t *testing.T) {
	db := newTestDB(t)
	tn := NewThumbnailer(db, filepath.Join(t.TempDir(), "thumbs"), false)

	if got := tn.ThumbnailPath("abc"); got != "" {
		t.Errorf("Expected empty path when disabled, got %q", got)
	}

	path, err := tn.Generate(context.Background(), "abc")
	if err != nil || path != "" {
		t.Errorf("Expected disabled generate to be a no-op, got %q, %v", path, err)
	}

	removed, err := tn.CleanupOrphans(context.Background())
	if err != nil || removed != 0 {
		t.Errorf("Expected disabled cleanup to be a no-op, got %d, %v", removed, err)
	}
}

func TestThumbnailerSkipsNonVideo(t *testing.T) {
	db := newTestDB(t)
	rec := createRecord(t, db, &database.MediaRecord{
		Path:         "/media/test/music/song.mp3",
		RelativePath: "music/song.mp3",
		Type:         mediatypes.TypeAudio,
	})

	tn := NewThumbnailer(db, filepath.Join(t.TempDir(), "thumbs"), true)
	path, err := tn.Generate(context.Background(), rec.ID)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if path != "" {
		t.Errorf("Expected no thumbnail for audio, got %q", path)
	}
}

func TestThumbnailerDeleteFile(t *testing.T) {
	db := newTestDB(t)
	cacheDir := t.TempDir()
	tn := NewThumbnailer(db, cacheDir, true)

	path := filepath.Join(cacheDir, "x.jpg")
	if err := os.WriteFile(path, []byte("jpeg"), 0o644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	if err := tn.DeleteFile(path); err != nil {
		t.Errorf("DeleteFile failed: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("Expected file removed")
	}

	// Missing file and empty path are not errors.
	if err := tn.DeleteFile(path); err != nil {
		t.Errorf("Expected missing file delete to succeed, got %v", err)
	}
	if err := tn.DeleteFile(""); err != nil {
		t.Errorf("Expected empty path delete to succeed, got %v", err)
	}
}

func TestCleanupOrphans(t *testing.T) {
	db := newTestDB(t)
	cacheDir := t.TempDir()
	tn := NewThumbnailer(db, cacheDir, true)

	rec := createRecord(t, db, &database.MediaRecord{
		Path:         "/media/test/a.mp4",
		RelativePath: "a.mp4",
		Type:         mediatypes.TypeVideo,
	})

	live := filepath.Join(cacheDir, rec.ID+".jpg")
	orphan := filepath.Join(cacheDir, "deadbeef.jpg")
	stray := filepath.Join(cacheDir, "notes.txt")
	for _, p := range []string{live, orphan, stray} {
		if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
			t.Fatalf("Failed to write %s: %v", p, err)
		}
	}

	removed, err := tn.CleanupOrphans(context.Background())
	if err != nil {
		t.Fatalf("CleanupOrphans failed: %v", err)
	}
	if removed != 1 {
		t.Errorf("Expected 1 orphan removed, got %d", removed)
	}

	if _, err := os.Stat(live); err != nil {
		t.Error("Expected live thumbnail kept")
	}
	if _, err := os.Stat(orphan); !os.IsNotExist(err) {
		t.Error("Expected orphan removed")
	}
	if _, err := os.Stat(stray); err != nil {
		t.Error("Expected non-jpg file untouched")
	}
}

func TestExtractUnknownRecord(t *testing.T) {
	db := newTestDB(t)
	e := NewExtractor(db, filesystem.DefaultRetryConfig())

	if err := e.Extract(context.Background(), "nope"); err == nil {
		t.Error("Expected error for unknown record")
	}
}

func TestExtractMarksProcessed(t *testing.T) {
	db := newTestDB(t)

	// A video whose path does not exist: tag reading is skipped and any
	// probe fails, but the record is still marked processed so it does not
	// get re-queued forever.
	rec := createRecord(t, db, &database.MediaRecord{
		Path:         filepath.Join(t.TempDir(), "missing.mp4"),
		RelativePath: "missing.mp4",
		Type:         mediatypes.TypeVideo,
	})

	e := NewExtractor(db, filesystem.DefaultRetryConfig())
	if err := e.Extract(context.Background(), rec.ID); err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	got, err := db.MediaByID(context.Background(), rec.ID)
	if err != nil {
		t.Fatalf("MediaByID failed: %v", err)
	}
	if !got.Processed {
		t.Error("Expected record marked processed")
	}
}
