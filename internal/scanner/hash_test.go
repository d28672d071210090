package scanner

import (
	"os"
	"path/filepath"
	"testing"

	"media-catalog/internal/filesystem"
)

func TestHashFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file.mp4")
	if err := os.WriteFile(path, []byte("hello"), 0o644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	hash, err := HashFile(path, filesystem.DefaultRetryConfig())
	if err != nil {
		t.Fatalf("HashFile failed: %v", err)
	}
	// md5("hello")
	if hash != "5d41402abc4b2a76b9719d911017c592" {
		t.Errorf("Unexpected hash: %s", hash)
	}
}

func TestHashFileStable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file.mp4")
	if err := os.WriteFile(path, []byte("same content"), 0o644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	retry := filesystem.DefaultRetryConfig()
	first, err := HashFile(path, retry)
	if err != nil {
		t.Fatalf("HashFile failed: %v", err)
	}
	second, err := HashFile(path, retry)
	if err != nil {
		t.Fatalf("HashFile failed: %v", err)
	}
	if first != second {
		t.Errorf("Hash not stable: %s vs %s", first, second)
	}
}

func TestHashFileMissing(t *testing.T) {
	_, err := HashFile(filepath.Join(t.TempDir(), "nope.mp4"), filesystem.DefaultRetryConfig())
	if err == nil {
		t.Error("Expected error for missing file")
	}
}
