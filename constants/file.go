package constants

import (
	"path/filepath"
	"strings"
)

const (
	PDF   = "PDF"
	IMAGE = "IMAGE"
)

// FileTypes holds the document formats the pipeline accepts.
var FileTypes = []string{PDF, IMAGE}

// AllowedExtensions holds the allowed file extensions for document ingestion.
var AllowedExtensions = map[string]struct{}{
	"pdf":  {},
	"jpg":  {},
	"jpeg": {},
	"png":  {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// MapExtToFormat maps a normalized extension to PDF or IMAGE ("" when unsupported).
func MapExtToFormat(ext string) string {
	switch NormalizeExt(ext) {
	case "pdf":
		return PDF
	case "jpg", "jpeg", "png":
		return IMAGE
	default:
		return ""
	}
}

// IsPDF reports whether path names a PDF by extension.
func IsPDF(path string) bool {
	return MapExtToFormat(filepath.Ext(path)) == PDF
}

// IsAllowedPath reports whether the extension of path is accepted for ingestion.
func IsAllowedPath(path string) bool {
	_, ok := AllowedExtensions[NormalizeExt(filepath.Ext(path))]
	return ok
}
