/**
 * Lab Report Types - Shared data structures for lab report extraction
 *
 * Fragments come from the OCR engine; rows, headers and lab tests are
 * derived per request and discarded afterwards.
 */

package labreport

import "strings"

// Point is a single bounding box corner
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Position locates a fragment on the page. X/Y are the centroid of BBox.
type Position struct {
	X    float64  `json:"x"`
	Y    float64  `json:"y"`
	BBox [4]Point `json:"bbox"`
}

// Fragment is one OCR detection with its confidence and position
type Fragment struct {
	Text       string   `json:"text"`
	Confidence float64  `json:"confidence"`
	Position   Position `json:"position"`
}

// NewFragment builds a fragment from its four bounding box corners
func NewFragment(text string, confidence float64, bbox [4]Point) Fragment {
	var sumX, sumY float64
	for _, p := range bbox {
		sumX += p.X
		sumY += p.Y
	}

	return Fragment{
		Text:       text,
		Confidence: confidence,
		Position: Position{
			X:    sumX / 4,
			Y:    sumY / 4,
			BBox: bbox,
		},
	}
}

// Row is a set of fragments on the same visual line, ordered left to right
type Row []Fragment

// Text joins the row's fragment texts with single spaces
func (r Row) Text() string {
	parts := make([]string, len(r))
	for i, f := range r {
		parts[i] = f.Text
	}
	return strings.Join(parts, " ")
}

// ColumnKind identifies a semantic column of a tabular report
type ColumnKind string

const (
	ColumnTestName ColumnKind = "test_name"
	ColumnSpecimen ColumnKind = "specimen"
	ColumnValue    ColumnKind = "value"
	ColumnUnit     ColumnKind = "unit"
	ColumnRange    ColumnKind = "range"
)

// columnOrder is the fixed iteration order over column kinds. Header
// mapping and nearest-column ties both resolve in this order.
var columnOrder = []ColumnKind{
	ColumnTestName,
	ColumnSpecimen,
	ColumnValue,
	ColumnUnit,
	ColumnRange,
}

// Header describes a detected table header row
type Header struct {
	RowIndex int                    `json:"row_index"`
	Columns  map[ColumnKind]float64 `json:"columns"`
}

// LabTest is one extracted test record
type LabTest struct {
	TestName          string `json:"test_name"`
	TestValue         string `json:"test_value"`
	BioReferenceRange string `json:"bio_reference_range"`
	TestUnit          string `json:"test_unit"`
	OutOfRange        bool   `json:"lab_test_out_of_range"`
}

// Layout names the path a report was parsed with
type Layout string

const (
	LayoutTabular Layout = "tabular"
	LayoutList    Layout = "list"
)

// Report is the pipeline output together with what was detected on the way
type Report struct {
	Layout        Layout    `json:"layout"`
	Header        *Header   `json:"header,omitempty"`
	RowCount      int       `json:"row_count"`
	FragmentCount int       `json:"fragment_count"`
	Tests         []LabTest `json:"tests"`
}
