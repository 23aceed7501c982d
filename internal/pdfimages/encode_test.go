package pdfimages

import (
	"bytes"
	"context"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func TestRawRGBToPNG(t *testing.T) {
	// 2x1 RGB: red, blue
	data := []byte{255, 0, 0, 0, 0, 255}
	enc, ok := encodeRaw(data, "FlateDecode", 2, 1, "DeviceRGB")
	if !ok || enc.Ext != "png" {
		t.Fatalf("encodeRaw() = %v, %v", enc.Ext, ok)
	}
	img, err := png.Decode(bytes.NewReader(enc.Data))
	if err != nil {
		t.Fatalf("decode png: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 2 || b.Dy() != 1 {
		t.Fatalf("unexpected bounds: %v", b)
	}
	r, _, _, _ := img.At(0, 0).RGBA()
	_, _, bl, _ := img.At(1, 0).RGBA()
	if r>>8 != 255 || bl>>8 != 255 {
		t.Fatalf("unexpected pixels: %v %v", img.At(0, 0), img.At(1, 0))
	}
}

func TestPredictorRowsAreUndone(t *testing.T) {
	// 2x2 gray with Up filter on the second row.
	data := []byte{
		0, 10, 20, // filter None
		2, 5, 5, // filter Up: 15, 25
	}
	got := undoPNGPredictor(data, 2, 2, 1)
	want := []byte{10, 20, 15, 25}
	if !bytes.Equal(got, want) {
		t.Fatalf("undoPNGPredictor() = %v, want %v", got, want)
	}

	enc, ok := encodeRaw(data, "FlateDecode", 2, 2, "DeviceGray")
	if !ok {
		t.Fatalf("expected predictor data to encode")
	}
	img, err := png.Decode(bytes.NewReader(enc.Data))
	if err != nil {
		t.Fatalf("decode png: %v", err)
	}
	g, _, _, _ := img.At(1, 1).RGBA()
	if g>>8 != 25 {
		t.Fatalf("pixel (1,1) = %d, want 25", g>>8)
	}
}

func TestEncodePassThroughAndRejects(t *testing.T) {
	jpeg := []byte{0xFF, 0xD8, 0xFF, 0xE0, 1, 2, 3}
	if enc, ok := encodeRaw(jpeg, "DCTDecode", 10, 10, "DeviceRGB"); !ok || enc.Ext != "jpg" || !bytes.Equal(enc.Data, jpeg) {
		t.Fatalf("DCT stream should pass through: %+v %v", enc.Ext, ok)
	}
	if enc, ok := encodeRaw(jpeg, "", 10, 10, "DeviceRGB"); !ok || enc.Ext != "jpg" {
		t.Fatalf("unfiltered jpeg should be sniffed: %+v %v", enc.Ext, ok)
	}
	if _, ok := encodeRaw([]byte{1, 2, 3}, "FlateDecode", 10, 10, "DeviceRGB"); ok {
		t.Fatalf("short sample data must be rejected")
	}
	if _, ok := encodeRaw([]byte{1, 2, 3}, "CCITTFaxDecode", 1, 1, "DeviceGray"); ok {
		t.Fatalf("unsupported filter must be rejected")
	}
}

func TestExtractIsBestEffort(t *testing.T) {
	dir := t.TempDir()
	bogus := filepath.Join(dir, "bogus.pdf")
	if err := os.WriteFile(bogus, []byte("not a pdf"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	e := NewExtractor(0, slog.New(slog.NewTextHandler(io.Discard, nil)))
	got := e.Extract(context.Background(), bogus, filepath.Join(dir, "pool"))
	if len(got) != 0 {
		t.Fatalf("expected empty mapping, got %v", got)
	}
	if got := e.Extract(context.Background(), filepath.Join(dir, "missing.pdf"), dir); len(got) != 0 {
		t.Fatalf("expected empty mapping for missing file, got %v", got)
	}
}
