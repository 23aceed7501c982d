// Package textlayer is an offline OCR engine: it reads the embedded text layer
// of each PDF page and hands over the page's raster images as in-memory bytes.
// Scanned (image-only) PDFs produce empty page text.
package textlayer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"

	"github.com/joseph-ayodele/mocr/internal/ocr"
	"github.com/joseph-ayodele/mocr/internal/pdfimages"
)

var _ ocr.Engine = (*Engine)(nil)

type Engine struct {
	images *pdfimages.Extractor
	logger *slog.Logger
}

// NewEngine returns a text-layer engine. images may be nil to skip image
// discovery entirely.
func NewEngine(images *pdfimages.Extractor, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{images: images, logger: logger}
}

func (e *Engine) Name() string { return "textlayer" }

func (e *Engine) Recognize(ctx context.Context, pdfPath string) (ocr.Response, error) {
	start := time.Now()

	texts, err := readTextLayer(pdfPath)
	if err != nil {
		return ocr.Response{}, err
	}

	res := ocr.Response{Model: e.Name(), Pages: make([]ocr.Page, len(texts))}
	for i, t := range texts {
		res.Pages[i] = ocr.Page{Index: i, Markdown: ocr.NormalizeText(t)}
	}

	if e.images != nil {
		imgs, err := e.images.Images(ctx, pdfPath)
		if err != nil {
			e.logger.Warn("textlayer.images.failed", "path", pdfPath, "error", err)
		}
		for _, img := range imgs {
			if img.Page < 0 || img.Page >= len(res.Pages) {
				continue
			}
			page := &res.Pages[img.Page]
			id := img.Filename()
			page.Images = append(page.Images, ocr.ImageDescriptor{ID: id, ObjectBytes: img.Data})
			page.Markdown = appendImageRef(page.Markdown, id)
		}
	}

	e.logger.Debug("textlayer.recognize.ok",
		"path", pdfPath,
		"pages", len(res.Pages),
		"images", res.ImageCount(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return res, nil
}

func readTextLayer(path string) (pages []string, err error) {
	// The PDF reader panics on malformed objects.
	defer func() {
		if r := recover(); r != nil {
			pages = nil
			err = fmt.Errorf("read pdf %s: %v", path, r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	fonts := make(map[string]*pdf.Font)
	numPages := r.NumPage()
	pages = make([]string, 0, numPages)
	for i := 1; i <= numPages; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		for _, name := range p.Fonts() {
			if _, ok := fonts[name]; !ok {
				f2 := p.Font(name)
				fonts[name] = &f2
			}
		}
		text, pageErr := p.GetPlainText(fonts)
		if pageErr != nil {
			return nil, fmt.Errorf("read pdf page %d: %w", i, pageErr)
		}
		pages = append(pages, strings.TrimSpace(text))
	}
	return pages, nil
}

func appendImageRef(markdown, id string) string {
	ref := "![" + id + "](" + id + ")"
	if markdown == "" {
		return ref
	}
	return markdown + "\n\n" + ref
}
