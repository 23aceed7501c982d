package resolve

import (
	"github.com/joseph-ayodele/mocr/internal/markdown"
	"github.com/joseph-ayodele/mocr/internal/ocr"
)

// Discover returns one descriptor per unique image in the document: every
// markdown reference (page order) followed by every descriptor the OCR
// engine reported. Entries are keyed by their extension-less form; when a
// descriptor shares a key with a bare markdown reference, the descriptor
// replaces it in place.
func Discover(pages []ocr.Page) []ocr.ImageDescriptor {
	var out []ocr.ImageDescriptor
	index := make(map[string]int)
	fromRef := make(map[string]bool)

	for _, page := range pages {
		for _, ref := range markdown.CollectRefs(page.Markdown) {
			if markdown.IsExternal(ref) {
				continue
			}
			id := markdown.StripExt(ref)
			if id == "" {
				continue
			}
			if _, seen := index[id]; seen {
				continue
			}
			index[id] = len(out)
			fromRef[id] = true
			out = append(out, ocr.ImageDescriptor{ID: id})
		}
	}

	for _, page := range pages {
		for _, d := range page.Images {
			if d.ID == "" {
				continue
			}
			key := markdown.StripExt(d.ID)
			i, seen := index[key]
			if !seen {
				index[key] = len(out)
				out = append(out, d)
				continue
			}
			// first descriptor wins over a bare reference; later ones are dropped
			if fromRef[key] {
				out[i] = d
				fromRef[key] = false
			}
		}
	}
	return out
}
