package ocr

import (
	"context"
)

// BoundingBox is the page-space rectangle the OCR service reports for an image.
type BoundingBox struct {
	TopLeftX     int
	TopLeftY     int
	BottomRightX int
	BottomRightY int
}

// Size returns the box extent; negative extents are reported as-is.
func (b BoundingBox) Size() (width, height int) {
	return b.BottomRightX - b.TopLeftX, b.BottomRightY - b.TopLeftY
}

// ImageDescriptor describes one image discovered by OCR. Optional fields are
// decided once when the response is decoded and never re-probed.
type ImageDescriptor struct {
	ID string

	// InlineData is the base64 payload (optionally a data: URI) when the
	// service returned one.
	InlineData *string

	// ObjectBytes holds raw image bytes already in memory, for engines that
	// hand over decoded images instead of an encoded field.
	ObjectBytes []byte

	BBox *BoundingBox
}

// HasInlineData reports a non-empty encoded payload.
func (d ImageDescriptor) HasInlineData() bool {
	return d.InlineData != nil && *d.InlineData != ""
}

// HasObjectBytes reports a non-empty raw payload.
func (d ImageDescriptor) HasObjectBytes() bool {
	return len(d.ObjectBytes) > 0
}

type Page struct {
	Index    int
	Markdown string
	Images   []ImageDescriptor
}

// Response is one document's OCR result, pages in document order.
type Response struct {
	Model string
	Pages []Page

	// Raw is the response body as received, when the engine has one.
	Raw []byte
}

// FileHandle identifies a document uploaded to the OCR service.
type FileHandle struct {
	ID       string
	Filename string
	Bytes    int64
}

// Client is the hosted OCR API surface the batch consumes.
type Client interface {
	Upload(ctx context.Context, path string) (FileHandle, error)
	SignedURL(ctx context.Context, file FileHandle) (string, error)
	Process(ctx context.Context, model, documentURL string) (Response, error)
}

// Engine turns a PDF on disk into an OCR Response.
type Engine interface {
	Recognize(ctx context.Context, pdfPath string) (Response, error)
	Name() string
}
