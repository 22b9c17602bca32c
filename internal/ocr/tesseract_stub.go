//go:build !ocr

package ocr

import (
	"context"
	"errors"

	"github.com/adverant/nexus/labreport-worker/internal/labreport"
)

// ErrOCRNotEnabled is returned when the worker was built without Tesseract.
// Rebuild with -tags ocr to enable it.
var ErrOCRNotEnabled = errors.New("OCR support not enabled; rebuild with -tags ocr")

// Tesseract is a stub engine that fails every call
type Tesseract struct{}

// TesseractConfig holds Tesseract configuration
type TesseractConfig struct {
	Language      string
	WordGapFactor float64
}

// NewTesseract returns ErrOCRNotEnabled
func NewTesseract(cfg TesseractConfig) (*Tesseract, error) {
	return nil, ErrOCRNotEnabled
}

// Name identifies the engine in errors and logs
func (t *Tesseract) Name() string {
	return "tesseract"
}

// Extract returns ErrOCRNotEnabled
func (t *Tesseract) Extract(ctx context.Context, image []byte) ([]labreport.Fragment, error) {
	return nil, ErrOCRNotEnabled
}
