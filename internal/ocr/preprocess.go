package ocr

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"

	_ "golang.org/x/image/bmp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// DefaultMinWidth is the width narrow scans are upscaled to before OCR
const DefaultMinWidth = 1200

// PreprocessConfig controls image preparation before OCR
type PreprocessConfig struct {
	MinWidth  int
	Grayscale bool
}

// DefaultPreprocessConfig returns the preparation used by the worker
func DefaultPreprocessConfig() PreprocessConfig {
	return PreprocessConfig{
		MinWidth:  DefaultMinWidth,
		Grayscale: true,
	}
}

// Prepared is an image ready for OCR
type Prepared struct {
	Data   []byte // PNG
	Format string // format of the original image
	Width  int
	Height int

	// Scale is the upscale factor applied; fragment coordinates divide by it
	// to land back on the original image
	Scale float64
}

// Preprocess decodes an image, converts it to grayscale and upscales it to
// MinWidth when it is narrower. The result is always PNG.
func Preprocess(data []byte, cfg PreprocessConfig) (*Prepared, error) {
	src, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := src.Bounds()
	if bounds.Empty() {
		return nil, fmt.Errorf("image has no pixels")
	}

	var img image.Image = src
	if cfg.Grayscale {
		gray := image.NewGray(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
		xdraw.Draw(gray, gray.Bounds(), src, bounds.Min, xdraw.Src)
		img = gray
	}

	scale := 1.0
	if cfg.MinWidth > 0 && bounds.Dx() < cfg.MinWidth {
		scale = float64(cfg.MinWidth) / float64(bounds.Dx())
		height := int(float64(bounds.Dy())*scale + 0.5)

		var dst xdraw.Image
		if cfg.Grayscale {
			dst = image.NewGray(image.Rect(0, 0, cfg.MinWidth, height))
		} else {
			dst = image.NewRGBA(image.Rect(0, 0, cfg.MinWidth, height))
		}
		xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), xdraw.Src, nil)
		img = dst
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	return &Prepared{
		Data:   buf.Bytes(),
		Format: format,
		Width:  img.Bounds().Dx(),
		Height: img.Bounds().Dy(),
		Scale:  scale,
	}, nil
}
