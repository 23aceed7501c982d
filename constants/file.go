package constants

import (
	"path/filepath"
	"strings"
)

// PDFExt is the only input extension the batch discovers.
const PDFExt = "pdf"

// DefaultImageExt is used when an image identifier carries no extension.
const DefaultImageExt = "jpeg"

// AllowedExtensions holds the input extensions considered during discovery.
var AllowedExtensions = map[string]struct{}{
	PDFExt: {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// Stem returns the file name without directory and extension.
func Stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
