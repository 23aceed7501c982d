package resolve

import (
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/mocr/constants"
)

// Filename derives the saved file name for an identifier: the identifier's
// own extension when it carries one, otherwise the default image extension.
func Filename(identifier string) string {
	name := strings.NewReplacer("/", "_", "\\", "_").Replace(identifier)
	if name == "" || name == "." || name == ".." {
		name = "image"
	}
	if ext := filepath.Ext(name); isImageExt(ext) {
		return name
	}
	return name + "." + constants.DefaultImageExt
}

func isImageExt(ext string) bool {
	ext = strings.TrimPrefix(ext, ".")
	if ext == "" || len(ext) > 5 {
		return false
	}
	hasLetter := false
	for _, r := range ext {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
			hasLetter = true
		case r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return hasLetter
}
