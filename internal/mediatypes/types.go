package mediatypes

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Variant selects the transform applied to a source when generating a bitmap.
type Variant int

const (
	// Avatar is a square-ish crop-to-fill image clipped to rounded corners.
	Avatar Variant = iota
	// ImageThumbnail is a letterboxed, downscaled still image.
	ImageThumbnail
	// VideoThumbnail is a downscaled video poster frame with a play glyph.
	VideoThumbnail
	// OriginalImage is the full-resolution source, used for full screen previews.
	OriginalImage
)

// Variants lists every Variant in declaration order.
var Variants = []Variant{Avatar, ImageThumbnail, VideoThumbnail, OriginalImage}

// String returns the short label used in cache keys, metrics and URLs.
func (v Variant) String() string {
	switch v {
	case Avatar:
		return "avatar"
	case ImageThumbnail:
		return "image"
	case VideoThumbnail:
		return "video"
	case OriginalImage:
		return "original"
	default:
		return fmt.Sprintf("variant(%d)", int(v))
	}
}

// Valid reports whether v is one of the declared variants.
func (v Variant) Valid() bool {
	return v >= Avatar && v <= OriginalImage
}

// ParseVariant converts a label produced by String back into a Variant.
func ParseVariant(s string) (Variant, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "avatar":
		return Avatar, nil
	case "image", "thumbnail":
		return ImageThumbnail, nil
	case "video":
		return VideoThumbnail, nil
	case "original", "full":
		return OriginalImage, nil
	}
	return 0, fmt.Errorf("unknown media variant %q", s)
}

// ImageExtensions maps file extensions to whether they are supported image formats.
var ImageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".bmp":  true,
	".webp": true,
	".tiff": true,
	".tif":  true,
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

// VariantForPath guesses the thumbnail variant from a file extension.
// Video extensions map to VideoThumbnail; everything else to ImageThumbnail.
func VariantForPath(path string) Variant {
	ext := strings.ToLower(filepath.Ext(path))
	if VideoExtensions[ext] {
		return VideoThumbnail
	}
	return ImageThumbnail
}

// IsDecodableImage returns true if the extension is an image format the
// raster backend can decode without external tools.
func IsDecodableImage(path string) bool {
	return ImageExtensions[strings.ToLower(filepath.Ext(path))]
}
