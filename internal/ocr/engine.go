/**
 * OCR Types - Word boxes and phrase fragments
 *
 * Engines report individual words. Lab report parsing works on phrases
 * ("Total Cholesterol", "13.5 g/dL"), so adjacent words of the same
 * Tesseract line are merged before they reach the extractor.
 */

package ocr

import (
	"context"
	"image"
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/adverant/nexus/labreport-worker/internal/labreport"
)

// DefaultWordGapFactor joins words whose gap is at most one median word height
const DefaultWordGapFactor = 1.0

// Engine turns image bytes into positioned text fragments sorted by y
type Engine interface {
	Name() string
	Extract(ctx context.Context, image []byte) ([]labreport.Fragment, error)
}

// Word is a single recognized word with its layout ids
type Word struct {
	Text       string
	Confidence float64 // 0..1
	Box        image.Rectangle
	Block      int
	Paragraph  int
	Line       int
}

type lineKey struct {
	block, paragraph, line int
}

// phrase accumulates merged words
type phrase struct {
	words   []string
	box     image.Rectangle
	confSum float64
}

func (p *phrase) add(w Word) {
	if len(p.words) == 0 {
		p.box = w.Box
	} else {
		p.box = p.box.Union(w.Box)
	}
	p.words = append(p.words, w.Text)
	p.confSum += w.Confidence
}

func (p *phrase) fragment() labreport.Fragment {
	b := p.box
	bbox := [4]labreport.Point{
		{X: float64(b.Min.X), Y: float64(b.Min.Y)},
		{X: float64(b.Max.X), Y: float64(b.Min.Y)},
		{X: float64(b.Max.X), Y: float64(b.Max.Y)},
		{X: float64(b.Min.X), Y: float64(b.Max.Y)},
	}
	return labreport.NewFragment(strings.Join(p.words, " "), p.confSum/float64(len(p.words)), bbox)
}

// MergeWords joins words of the same line into phrase fragments. Two
// neighbours are joined when the horizontal gap between them is at most
// gapFactor times the median word height. Fragments are sorted by y, then x.
func MergeWords(words []Word, gapFactor float64) []labreport.Fragment {
	if gapFactor <= 0 {
		gapFactor = DefaultWordGapFactor
	}

	var kept []Word
	var heights []int
	lines := make(map[lineKey][]Word)
	var order []lineKey

	for _, w := range words {
		w.Text = cleanText(w.Text)
		if w.Text == "" || w.Box.Empty() {
			continue
		}
		kept = append(kept, w)
		heights = append(heights, w.Box.Dy())

		key := lineKey{w.Block, w.Paragraph, w.Line}
		if _, ok := lines[key]; !ok {
			order = append(order, key)
		}
		lines[key] = append(lines[key], w)
	}

	fragments := make([]labreport.Fragment, 0, len(kept))
	if len(kept) == 0 {
		return fragments
	}

	maxGap := gapFactor * median(heights)

	for _, key := range order {
		line := lines[key]
		sort.SliceStable(line, func(i, j int) bool {
			return line[i].Box.Min.X < line[j].Box.Min.X
		})

		current := &phrase{}
		for _, w := range line {
			if len(current.words) > 0 && float64(w.Box.Min.X-current.box.Max.X) > maxGap {
				fragments = append(fragments, current.fragment())
				current = &phrase{}
			}
			current.add(w)
		}
		fragments = append(fragments, current.fragment())
	}

	sort.SliceStable(fragments, func(i, j int) bool {
		if fragments[i].Position.Y != fragments[j].Position.Y {
			return fragments[i].Position.Y < fragments[j].Position.Y
		}
		return fragments[i].Position.X < fragments[j].Position.X
	})

	return fragments
}

// ScaleFragments maps fragment coordinates by factor, e.g. back to the
// original image after an upscale
func ScaleFragments(fragments []labreport.Fragment, factor float64) []labreport.Fragment {
	if factor == 1 || factor <= 0 {
		return fragments
	}

	scaled := make([]labreport.Fragment, len(fragments))
	for i, f := range fragments {
		var bbox [4]labreport.Point
		for j, p := range f.Position.BBox {
			bbox[j] = labreport.Point{X: p.X * factor, Y: p.Y * factor}
		}
		scaled[i] = labreport.NewFragment(f.Text, f.Confidence, bbox)
	}
	return scaled
}

// cleanText composes unicode and collapses whitespace
func cleanText(s string) string {
	return strings.Join(strings.Fields(norm.NFC.String(s)), " ")
}

func median(values []int) float64 {
	sorted := append([]int(nil), values...)
	sort.Ints(sorted)

	n := len(sorted)
	if n%2 == 1 {
		return float64(sorted[n/2])
	}
	return float64(sorted[n/2-1]+sorted[n/2]) / 2
}
