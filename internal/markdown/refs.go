// Package markdown finds and rewrites image references in OCR markdown.
package markdown

import (
	"path/filepath"
	"regexp"
	"strings"
)

var (
	imageRefRe = regexp.MustCompile(`!\[([^\]\n]*)\]\(([^)\n]*)\)`)
	titleRe    = regexp.MustCompile(`^(.*?)\s+("[^"]*"|'[^']*')$`)
	extRe      = regexp.MustCompile(`^\.[A-Za-z0-9]+$`)
)

// SplitDest splits the text between the parentheses of ![alt](...) into the
// destination and an optional quoted title. Surrounding spaces and angle
// brackets are dropped from the destination; the title keeps its quotes.
func SplitDest(raw string) (dest, title string) {
	dest = strings.TrimSpace(raw)
	if m := titleRe.FindStringSubmatch(dest); m != nil {
		dest, title = strings.TrimSpace(m[1]), m[2]
	}
	if strings.HasPrefix(dest, "<") && strings.HasSuffix(dest, ">") {
		dest = strings.TrimSpace(dest[1 : len(dest)-1])
	}
	return dest, title
}

// CollectRefs returns the destinations of every ![alt](ref) in src, in order
// of appearance. Duplicates are kept.
func CollectRefs(src string) []string {
	matches := imageRefRe.FindAllStringSubmatch(src, -1)
	refs := make([]string, 0, len(matches))
	for _, m := range matches {
		ref, _ := SplitDest(m[2])
		if ref == "" {
			continue
		}
		refs = append(refs, ref)
	}
	return refs
}

// StripExt removes a trailing extension from an image reference.
func StripExt(ref string) string {
	return strings.TrimSuffix(ref, filepath.Ext(ref))
}

// IsExternal reports references that point outside the document's images.
func IsExternal(ref string) bool {
	return strings.Contains(ref, "://") || strings.HasPrefix(ref, "data:")
}
