// Package mediatypes classifies media files by extension.
//
// Classification is allowlist based: a known audio extension selects the
// audio type, every other supported extension is treated as video. Files
// outside the supported set are not catalogued at all.
package mediatypes

// MediaType is the declared type of a catalogued media file.
type MediaType string

const (
	// TypeVideo represents a video file.
	TypeVideo MediaType = "video"
	// TypeAudio represents an audio file.
	TypeAudio MediaType = "audio"
	// TypeOther represents an unsupported file type.
	TypeOther MediaType = "other"
)

// AudioExtensions is the audio allowlist. Extensions are lowercase with the
// leading dot.
var AudioExtensions = map[string]bool{
	".mp3":  true,
	".flac": true,
	".ogg":  true,
	".oga":  true,
	".m4a":  true,
	".aac":  true,
	".wav":  true,
	".wma":  true,
	".opus": true,
	".aiff": true,
	".ape":  true,
}

// VideoExtensions maps file extensions to whether they are supported video formats.
var VideoExtensions = map[string]bool{
	".mp4":  true,
	".mkv":  true,
	".avi":  true,
	".mov":  true,
	".wmv":  true,
	".flv":  true,
	".webm": true,
	".m4v":  true,
	".mpeg": true,
	".mpg":  true,
	".3gp":  true,
	".ts":   true,
}

// MimeTypes maps file extensions to their MIME types.
var MimeTypes = map[string]string{
	// Audio
	".mp3":  "audio/mpeg",
	".flac": "audio/flac",
	".ogg":  "audio/ogg",
	".oga":  "audio/ogg",
	".m4a":  "audio/mp4",
	".aac":  "audio/aac",
	".wav":  "audio/wav",
	".wma":  "audio/x-ms-wma",
	".opus": "audio/opus",
	".aiff": "audio/aiff",
	".ape":  "audio/ape",

	// Video
	".mp4":  "video/mp4",
	".mkv":  "video/x-matroska",
	".avi":  "video/x-msvideo",
	".mov":  "video/quicktime",
	".wmv":  "video/x-ms-wmv",
	".flv":  "video/x-flv",
	".webm": "video/webm",
	".m4v":  "video/x-m4v",
	".mpeg": "video/mpeg",
	".mpg":  "video/mpeg",
	".3gp":  "video/3gpp",
	".ts":   "video/mp2t",
}

// GetMediaType returns the MediaType for a given file extension.
// The extension should be lowercase and include the leading dot (e.g., ".mp4").
// Returns TypeOther if the extension is not recognized.
func GetMediaType(ext string) MediaType {
	if AudioExtensions[ext] {
		return TypeAudio
	}
	if VideoExtensions[ext] {
		return TypeVideo
	}
	return TypeOther
}

// GetMimeType returns the MIME type for a given file extension.
// Returns "application/octet-stream" if the extension is not recognized.
func GetMimeType(ext string) string {
	if mime, ok := MimeTypes[ext]; ok {
		return mime
	}
	return "application/octet-stream"
}

// IsMediaFile returns true if the extension represents a supported media file.
func IsMediaFile(ext string) bool {
	return GetMediaType(ext) != TypeOther
}
