package pdfimages

import (
	"bytes"
	"image"
	"image/png"
	"strings"
)

// Encoded is a raster image ready to be written to disk.
type Encoded struct {
	Data []byte
	Ext  string
}

// encodeRaw turns one extracted XObject into file bytes. DCT and JPX streams
// are already complete image files; Flate (or unfiltered) streams hold raw
// samples that are re-encoded as PNG.
func encodeRaw(data []byte, filter string, width, height int, colorSpace string) (Encoded, bool) {
	if len(data) == 0 {
		return Encoded{}, false
	}
	switch filter {
	case "DCTDecode":
		return Encoded{Data: data, Ext: "jpg"}, true
	case "JPXDecode":
		return Encoded{Data: data, Ext: "jp2"}, true
	case "FlateDecode":
		b := rawPixelsToPNG(data, width, height, colorSpace)
		if b == nil {
			return Encoded{}, false
		}
		return Encoded{Data: b, Ext: "png"}, true
	case "":
		if ext := sniffExt(data); ext != "" {
			return Encoded{Data: data, Ext: ext}, true
		}
		b := rawPixelsToPNG(data, width, height, colorSpace)
		if b == nil {
			return Encoded{}, false
		}
		return Encoded{Data: b, Ext: "png"}, true
	default:
		return Encoded{}, false
	}
}

func sniffExt(data []byte) string {
	if len(data) >= 3 && data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF {
		return "jpg"
	}
	if len(data) >= 4 && string(data[:4]) == "\x89PNG" {
		return "png"
	}
	return ""
}

// rawPixelsToPNG converts 8-bit DeviceRGB/DeviceGray samples to PNG.
// Returns nil when the sample count does not fit the declared geometry.
func rawPixelsToPNG(data []byte, width, height int, colorSpace string) []byte {
	if width <= 0 || height <= 0 {
		return nil
	}

	bytesPerPixel := 3
	if strings.Contains(colorSpace, "Gray") {
		bytesPerPixel = 1
	}

	rowBytes := width * bytesPerPixel
	expectedPlain := rowBytes * height
	expectedPNG := (rowBytes + 1) * height

	// exactly one extra byte per row means a PNG predictor is still applied
	hasPredictor := len(data) == expectedPNG && len(data) != expectedPlain
	if !hasPredictor && len(data) < expectedPlain {
		return nil
	}

	pixels := data
	if hasPredictor {
		pixels = undoPNGPredictor(data, width, height, bytesPerPixel)
	}

	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		srcOff := y * rowBytes
		dstOff := y * img.Stride
		for x := 0; x < width; x++ {
			if bytesPerPixel == 1 {
				g := pixels[srcOff]
				img.Pix[dstOff], img.Pix[dstOff+1], img.Pix[dstOff+2] = g, g, g
			} else {
				img.Pix[dstOff] = pixels[srcOff]
				img.Pix[dstOff+1] = pixels[srcOff+1]
				img.Pix[dstOff+2] = pixels[srcOff+2]
			}
			img.Pix[dstOff+3] = 255
			srcOff += bytesPerPixel
			dstOff += 4
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil
	}
	return buf.Bytes()
}

// undoPNGPredictor reverses per-row PNG filters (None, Sub, Up, Average, Paeth).
func undoPNGPredictor(data []byte, width, height, bytesPerPixel int) []byte {
	rowBytes := width * bytesPerPixel
	srcStride := rowBytes + 1
	out := make([]byte, rowBytes*height)

	for y := 0; y < height; y++ {
		src := data[y*srcStride : (y+1)*srcStride]
		filterType, filtered := src[0], src[1:]
		dst := out[y*rowBytes : (y+1)*rowBytes]
		var prev []byte
		if y > 0 {
			prev = out[(y-1)*rowBytes : y*rowBytes]
		}

		for i := 0; i < rowBytes; i++ {
			var left, up, upLeft byte
			if i >= bytesPerPixel {
				left = dst[i-bytesPerPixel]
			}
			if prev != nil {
				up = prev[i]
				if i >= bytesPerPixel {
					upLeft = prev[i-bytesPerPixel]
				}
			}
			switch filterType {
			case 1:
				dst[i] = filtered[i] + left
			case 2:
				dst[i] = filtered[i] + up
			case 3:
				dst[i] = filtered[i] + byte((int(left)+int(up))/2)
			case 4:
				dst[i] = filtered[i] + paeth(left, up, upLeft)
			default:
				dst[i] = filtered[i]
			}
		}
	}
	return out
}

func paeth(a, b, c byte) byte {
	p := int(a) + int(b) - int(c)
	pa, pb, pc := abs(p-int(a)), abs(p-int(b)), abs(p-int(c))
	switch {
	case pa <= pb && pa <= pc:
		return a
	case pb <= pc:
		return b
	default:
		return c
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
