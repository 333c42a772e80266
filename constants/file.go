package constants

import "strings"

// AllowedExtensions holds the default allowed file extensions for scanned papers.
var AllowedExtensions = map[string]struct{}{
	"pdf":  {},
	"jpg":  {},
	"jpeg": {},
	"png":  {},
	"webp": {},
}

// MaxUploadBytes caps the size of a single source file; larger inputs are
// rejected before hashing is attempted.
const MaxUploadBytes = 50 << 20

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}
