package mistral

import (
	"github.com/joseph-ayodele/mocr/internal/ocr"
)

type uploadResponse struct {
	ID        string `json:"id"`
	Object    string `json:"object"`
	Filename  string `json:"filename"`
	Bytes     int64  `json:"bytes"`
	Purpose   string `json:"purpose"`
	CreatedAt int64  `json:"created_at"`
}

type signedURLResponse struct {
	URL string `json:"url"`
}

type processRequest struct {
	Model              string          `json:"model"`
	Document           documentPayload `json:"document"`
	IncludeImageBase64 bool            `json:"include_image_base64,omitempty"`
}

type documentPayload struct {
	Type        string `json:"type"`
	DocumentURL string `json:"document_url"`
}

type processResponse struct {
	Model string     `json:"model"`
	Pages []wirePage `json:"pages"`
}

type wirePage struct {
	Index    int         `json:"index"`
	Markdown string      `json:"markdown"`
	Images   []wireImage `json:"images"`
}

type wireImage struct {
	ID           string  `json:"id"`
	TopLeftX     *int    `json:"top_left_x"`
	TopLeftY     *int    `json:"top_left_y"`
	BottomRightX *int    `json:"bottom_right_x"`
	BottomRightY *int    `json:"bottom_right_y"`
	ImageBase64  *string `json:"image_base64"`
	Data         *string `json:"data"` // older response variants
}

func (r processResponse) toResponse(raw []byte) ocr.Response {
	out := ocr.Response{Model: r.Model, Raw: raw, Pages: make([]ocr.Page, 0, len(r.Pages))}
	for _, p := range r.Pages {
		page := ocr.Page{Index: p.Index, Markdown: p.Markdown}
		for _, img := range p.Images {
			page.Images = append(page.Images, img.toDescriptor())
		}
		out.Pages = append(out.Pages, page)
	}
	return out
}

func (w wireImage) toDescriptor() ocr.ImageDescriptor {
	d := ocr.ImageDescriptor{ID: w.ID}
	switch {
	case w.ImageBase64 != nil && *w.ImageBase64 != "":
		d.InlineData = w.ImageBase64
	case w.Data != nil && *w.Data != "":
		d.InlineData = w.Data
	}
	if w.TopLeftX != nil && w.TopLeftY != nil && w.BottomRightX != nil && w.BottomRightY != nil {
		d.BBox = &ocr.BoundingBox{
			TopLeftX:     *w.TopLeftX,
			TopLeftY:     *w.TopLeftY,
			BottomRightX: *w.BottomRightX,
			BottomRightY: *w.BottomRightY,
		}
	}
	return d
}
