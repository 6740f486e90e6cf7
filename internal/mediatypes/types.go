package mediatypes

import (
	"path/filepath"
	"strings"
)

// MediaExtensions maps lowercase file extensions to whether the scanner
// should index them. Both video and audio containers are allow-listed;
// everything else is ignored during walks and watch events.
var MediaExtensions = map[string]bool{
	".mp4":  true,
	".mkv":  true,
	".avi":  true,
	".mov":  true,
	".webm": true,
	".m4v":  true,
	".mpg":  true,
	".mpeg": true,
	".ts":   true,
	".mp3":  true,
	".flac": true,
	".m4a":  true,
	".ogg":  true,
	".wav":  true,
}

// IsMediaFile reports whether the path's extension is allow-listed.
func IsMediaFile(path string) bool {
	return MediaExtensions[strings.ToLower(filepath.Ext(path))]
}
