//go:build ocr

/**
 * Tesseract OCR - word boxes via gosseract
 *
 * Requires Tesseract and its headers at build time:
 *
 *	apt-get install tesseract-ocr libtesseract-dev
 *	go build -tags ocr ./...
 */

package ocr

import (
	"context"
	"fmt"

	"github.com/otiai10/gosseract/v2"

	"github.com/adverant/nexus/labreport-worker/internal/labreport"
)

// Tesseract runs OCR with a fresh gosseract client per call
type Tesseract struct {
	language      string
	wordGapFactor float64
}

// TesseractConfig holds Tesseract configuration
type TesseractConfig struct {
	Language      string
	WordGapFactor float64
}

// NewTesseract creates a Tesseract engine
func NewTesseract(cfg TesseractConfig) (*Tesseract, error) {
	if cfg.Language == "" {
		cfg.Language = "eng"
	}
	if cfg.WordGapFactor <= 0 {
		cfg.WordGapFactor = DefaultWordGapFactor
	}

	return &Tesseract{
		language:      cfg.Language,
		wordGapFactor: cfg.WordGapFactor,
	}, nil
}

// Name identifies the engine in errors and logs
func (t *Tesseract) Name() string {
	return "tesseract"
}

// Extract recognizes words and merges them into phrase fragments.
// gosseract cannot be interrupted, so a cancelled ctx returns early and
// the recognition goroutine finishes on its own.
func (t *Tesseract) Extract(ctx context.Context, image []byte) ([]labreport.Fragment, error) {
	type result struct {
		words []Word
		err   error
	}

	done := make(chan result, 1)
	go func() {
		words, err := t.recognize(image)
		done <- result{words: words, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-done:
		if r.err != nil {
			return nil, r.err
		}
		return MergeWords(r.words, t.wordGapFactor), nil
	}
}

func (t *Tesseract) recognize(image []byte) ([]Word, error) {
	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(t.language); err != nil {
		return nil, fmt.Errorf("failed to set language: %w", err)
	}

	if err := client.SetImageFromBytes(image); err != nil {
		return nil, fmt.Errorf("failed to set image: %w", err)
	}

	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return nil, fmt.Errorf("tesseract OCR failed: %w", err)
	}

	words := make([]Word, 0, len(boxes))
	for _, b := range boxes {
		words = append(words, Word{
			Text:       b.Word,
			Confidence: b.Confidence / 100,
			Box:        b.Box,
			Block:      b.BlockNum,
			Paragraph:  b.ParNum,
			Line:       b.LineNum,
		})
	}

	return words, nil
}
