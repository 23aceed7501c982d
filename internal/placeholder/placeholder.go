// Package placeholder renders stand-in images for figures whose bytes could
// not be recovered.
package placeholder

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"log/slog"
	"os"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

const (
	DefaultWidth  = 400
	DefaultHeight = 300

	// MinSide and MaxSide bound box-derived placeholder sizes.
	MinSide = 100
	MaxSide = 800

	borderWidth = 2
	labelPrefix = "Image placeholder: "
)

var (
	background = color.RGBA{R: 240, G: 240, B: 240, A: 255}
	lineColor  = color.RGBA{R: 200, G: 200, B: 200, A: 255}
	textColor  = color.RGBA{R: 100, G: 100, B: 100, A: 255}
)

type Config struct {
	FontPath string  // TrueType/OpenType file; empty uses the bundled Go Regular face
	FontSize float64 // points at 72 DPI; default 20
}

// Synthesizer draws placeholders. It holds one font face and is not safe for
// concurrent use.
type Synthesizer struct {
	face     font.Face
	fontName string
	logger   *slog.Logger
}

func NewSynthesizer(cfg Config, logger *slog.Logger) *Synthesizer {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.FontSize <= 0 {
		cfg.FontSize = 20
	}
	face, name := loadFace(cfg, logger)
	return &Synthesizer{face: face, fontName: name, logger: logger}
}

// FontName reports which face the labels are drawn with.
func (s *Synthesizer) FontName() string { return s.fontName }

// ClampSide bounds a box-derived extent to [MinSide, MaxSide].
func ClampSide(v int) int {
	return max(MinSide, min(MaxSide, v))
}

// Render returns a baseline JPEG of the given size labelled with id.
func (s *Synthesizer) Render(id string, width, height int) ([]byte, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid placeholder size %dx%d", width, height)
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: background}, image.Point{}, draw.Src)

	drawBorder(img, lineColor, borderWidth)
	drawLine(img, 0, 0, width, height, lineColor, borderWidth)
	drawLine(img, 0, height, width, 0, lineColor, borderWidth)
	s.drawLabel(img, labelPrefix+id)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		return nil, fmt.Errorf("encode placeholder: %w", err)
	}
	return buf.Bytes(), nil
}

func (s *Synthesizer) drawLabel(img *image.RGBA, text string) {
	b := img.Bounds()
	textWidth := font.MeasureString(s.face, text).Ceil()
	if textWidth <= 0 {
		textWidth = b.Dx() / 2
	}
	x := (b.Dx() - textWidth) / 2
	// text top sits on the vertical centre, like the label origin elsewhere
	y := b.Dy()/2 + s.face.Metrics().Ascent.Ceil()

	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(textColor),
		Face: s.face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}

func loadFace(cfg Config, logger *slog.Logger) (font.Face, string) {
	src, name := goregular.TTF, "goregular"
	if cfg.FontPath != "" {
		b, err := os.ReadFile(cfg.FontPath)
		if err != nil {
			logger.Debug("placeholder.font.unavailable", "path", cfg.FontPath, "error", err)
			return basicfont.Face7x13, "basic7x13"
		}
		src, name = b, cfg.FontPath
	}

	f, err := opentype.Parse(src)
	if err != nil {
		logger.Debug("placeholder.font.parse_failed", "font", name, "error", err)
		return basicfont.Face7x13, "basic7x13"
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    cfg.FontSize,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		logger.Debug("placeholder.font.face_failed", "font", name, "error", err)
		return basicfont.Face7x13, "basic7x13"
	}
	return face, name
}

func drawBorder(img *image.RGBA, c color.Color, width int) {
	b := img.Bounds()
	for i := 0; i < width; i++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			img.Set(x, b.Min.Y+i, c)
			img.Set(x, b.Max.Y-1-i, c)
		}
		for y := b.Min.Y; y < b.Max.Y; y++ {
			img.Set(b.Min.X+i, y, c)
			img.Set(b.Max.X-1-i, y, c)
		}
	}
}

// drawLine plots a Bresenham line with a square pen of the given width.
// Pixels outside the image are clipped by Set.
func drawLine(img *image.RGBA, x0, y0, x1, y1 int, c color.Color, width int) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	e := dx + dy
	for {
		for ox := 0; ox < width; ox++ {
			for oy := 0; oy < width; oy++ {
				img.Set(x0+ox-width/2, y0+oy-width/2, c)
			}
		}
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			e += dx
			y0 += sy
		}
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
