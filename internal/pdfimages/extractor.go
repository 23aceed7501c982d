// Package pdfimages pulls raster XObjects straight out of a PDF. It backs the
// optional pool of real images the resolver can reuse when the OCR service
// returns no bytes.
package pdfimages

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	gopdf "github.com/VantageDataChat/GoPDF2"
)

// Image is one encoded raster image found on a page (0-based). Index is its
// position among the kept images of that page.
type Image struct {
	ID     string
	Page   int
	Index  int
	Width  int
	Height int
	Ext    string
	Data   []byte
}

// Filename is the on-disk name for the image.
func (i Image) Filename() string {
	return i.ID + "." + i.Ext
}

type Extractor struct {
	logger  *slog.Logger
	minSide int
}

// NewExtractor returns an extractor that ignores images smaller than minSide
// pixels on either axis (icons, bullets). minSide <= 0 keeps everything.
func NewExtractor(minSide int, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{logger: logger, minSide: minSide}
}

// Images decodes every supported raster image in the PDF, ordered by page.
func (e *Extractor) Images(ctx context.Context, pdfPath string) (images []Image, err error) {
	data, err := os.ReadFile(pdfPath)
	if err != nil {
		return nil, fmt.Errorf("read pdf: %w", err)
	}

	// The PDF library panics on some malformed streams.
	defer func() {
		if r := recover(); r != nil {
			images = nil
			err = fmt.Errorf("pdf image extraction panic: %v", r)
		}
	}()

	imgMap, err := gopdf.ExtractImagesFromAllPages(data)
	if err != nil {
		return nil, fmt.Errorf("extract images: %w", err)
	}

	pages := make([]int, 0, len(imgMap))
	for idx := range imgMap {
		pages = append(pages, idx)
	}
	sort.Ints(pages)

	skipped := 0
	for _, pageIdx := range pages {
		if err := ctx.Err(); err != nil {
			return images, err
		}
		n := 0
		for _, raw := range imgMap[pageIdx] {
			if e.minSide > 0 && (raw.Width < e.minSide || raw.Height < e.minSide) {
				skipped++
				continue
			}
			enc, ok := encodeRaw(raw.Data, raw.Filter, raw.Width, raw.Height, raw.ColorSpace)
			if !ok {
				skipped++
				continue
			}
			images = append(images, Image{
				ID:     fmt.Sprintf("pdf_img_%d_%d", pageIdx, n),
				Page:   pageIdx,
				Index:  n,
				Width:  raw.Width,
				Height: raw.Height,
				Ext:    enc.Ext,
				Data:   enc.Data,
			})
			n++
		}
	}
	e.logger.Debug("pdfimages.extract.ok", "path", pdfPath, "images", len(images), "skipped", skipped)
	return images, nil
}

// Saved is an extracted image written to disk.
type Saved struct {
	ID    string
	Page  int
	Index int
	Path  string
}

// Extract writes every image of the PDF into dir and returns them in page
// order. Best-effort: any failure yields whatever was written so far, and
// nothing when no image could be extracted.
func (e *Extractor) Extract(ctx context.Context, pdfPath, dir string) []Saved {
	var out []Saved

	images, err := e.Images(ctx, pdfPath)
	if err != nil {
		e.logger.Debug("pdfimages.extract.failed", "path", pdfPath, "error", err)
		if len(images) == 0 {
			return out
		}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		e.logger.Debug("pdfimages.mkdir.failed", "dir", dir, "error", err)
		return out
	}
	for _, img := range images {
		p := filepath.Join(dir, img.Filename())
		if err := os.WriteFile(p, img.Data, 0o644); err != nil {
			e.logger.Debug("pdfimages.write.failed", "id", img.ID, "error", err)
			continue
		}
		out = append(out, Saved{ID: img.ID, Page: img.Page, Index: img.Index, Path: p})
	}
	return out
}
