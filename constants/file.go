package constants

import "strings"

// AllowedExtensions holds the image extensions accepted for card uploads and imports.
var AllowedExtensions = map[string]struct{}{
	"jpg":  {},
	"jpeg": {},
	"png":  {},
	"gif":  {},
	"webp": {},
	"heic": {},
	"heif": {},
}

// MaxUploadBytesDefault caps a single uploaded card image.
const MaxUploadBytesDefault = 10 << 20

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// IsAllowedExt reports whether ext (with or without dot) is an accepted image type.
func IsAllowedExt(ext string) bool {
	_, ok := AllowedExtensions[NormalizeExt(ext)]
	return ok
}

// IsHEICExt reports whether ext needs a conversion before it can be sent to a backend.
func IsHEICExt(ext string) bool {
	switch NormalizeExt(ext) {
	case "heic", "heif":
		return true
	}
	return false
}

// MimeForExt maps an image extension to the MIME type sent to extraction backends.
// Anything that is not png/gif/webp is sent as jpeg.
func MimeForExt(ext string) string {
	switch NormalizeExt(ext) {
	case "png":
		return "image/png"
	case "gif":
		return "image/gif"
	case "webp":
		return "image/webp"
	default:
		return "image/jpeg"
	}
}
