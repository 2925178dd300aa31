// Package media provides file type dispatch, image loading, and seek-based
// video frame sampling over a pluggable decoder.
package media

import (
	"errors"
	"path/filepath"
	"strings"
)

// ErrMedia indicates an unreadable, corrupt, or empty media file.
// Callers test with errors.Is.
var ErrMedia = errors.New("unreadable media")

// Kind classifies a file path by extension.
type Kind int

const (
	// KindUnknown is a file that is neither a supported image nor video.
	KindUnknown Kind = iota
	// KindImage is a supported still-image container.
	KindImage
	// KindVideo is a supported video container.
	KindVideo
)

var imageExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".bmp": true,
	".webp": true, ".tiff": true, ".gif": true,
}

var videoExtensions = map[string]bool{
	".mp4": true, ".avi": true, ".mov": true, ".mkv": true,
	".wmv": true, ".flv": true, ".webm": true,
}

// DetectKind returns the media kind for a file path, by extension (case-insensitive).
func DetectKind(path string) Kind {
	ext := strings.ToLower(filepath.Ext(path))
	switch {
	case imageExtensions[ext]:
		return KindImage
	case videoExtensions[ext]:
		return KindVideo
	default:
		return KindUnknown
	}
}

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindImage:
		return "image"
	case KindVideo:
		return "video"
	default:
		return "unknown"
	}
}
