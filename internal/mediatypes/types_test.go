package mediatypes

import "testing"

func TestGetMediaType(t *testing.T) {
	tests := []struct {
		ext  string
		want MediaType
	}{
		{".mp3", TypeAudio},
		{".flac", TypeAudio},
		{".opus", TypeAudio},
		{".mp4", TypeVideo},
		{".mkv", TypeVideo},
		{".webm", TypeVideo},
		{".txt", TypeOther},
		{".jpg", TypeOther},
		{"", TypeOther},
	}

	for _, tt := range tests {
		if got := GetMediaType(tt.ext); got != tt.want {
			t.Errorf("GetMediaType(%q) = %s, want %s", tt.ext, got, tt.want)
		}
	}
}

func TestAudioAllowlistWinsOverVideo(t *testing.T) {
	// Every audio extension must classify as audio even if it were ever
	// added to the video map.
	for ext := range AudioExtensions {
		if got := GetMediaType(ext); got != TypeAudio {
			t.Errorf("GetMediaType(%q) = %s, want audio", ext, got)
		}
	}
}

func TestGetMimeType(t *testing.T) {
	tests := []struct {
		ext  string
		want string
	}{
		{".mp3", "audio/mpeg"},
		{".mp4", "video/mp4"},
		{".mkv", "video/x-matroska"},
		{".xyz", "application/octet-stream"},
	}

	for _, tt := range tests {
		if got := GetMimeType(tt.ext); got != tt.want {
			t.Errorf("GetMimeType(%q) = %s, want %s", tt.ext, got, tt.want)
		}
	}
}

func TestIsMediaFile(t *testing.T) {
	if !IsMediaFile(".mp4") {
		t.Error("Expected .mp4 to be a media file")
	}
	if !IsMediaFile(".mp3") {
		t.Error("Expected .mp3 to be a media file")
	}
	if IsMediaFile(".srt") {
		t.Error("Expected .srt to not be a media file")
	}
}
