/**
 * Lab Report Extraction Pipeline
 *
 * fragments → rows → header detection → tabular or list parsing → records
 *
 * The pipeline is a pure function of its input and options. It never
 * returns an error: ambiguous or malformed input yields fewer records.
 */

package labreport

// Options tunes the extraction heuristics
type Options struct {
	// RowThreshold is the max vertical distance from a row's first fragment
	RowThreshold float64

	// ReferenceLookahead is how many rows below a list entry may hold its range
	ReferenceLookahead int
}

// DefaultOptions returns the thresholds used when none are configured
func DefaultOptions() Options {
	return Options{
		RowThreshold:       DefaultRowThreshold,
		ReferenceLookahead: DefaultReferenceLookahead,
	}
}

// Extractor runs the extraction pipeline with fixed options
type Extractor struct {
	opts Options
}

// NewExtractor creates an extractor. Non-positive thresholds fall back to defaults.
func NewExtractor(opts Options) *Extractor {
	if opts.RowThreshold <= 0 {
		opts.RowThreshold = DefaultRowThreshold
	}
	if opts.ReferenceLookahead < 0 {
		opts.ReferenceLookahead = 0
	}
	return &Extractor{opts: opts}
}

// Options returns the options the extractor runs with
func (e *Extractor) Options() Options {
	return e.opts
}

// Analyze extracts lab tests and reports the layout it detected
func (e *Extractor) Analyze(fragments []Fragment) *Report {
	rows := GroupRows(fragments, e.opts.RowThreshold)
	header := DetectHeader(rows)

	report := &Report{
		Header:        header,
		RowCount:      len(rows),
		FragmentCount: len(fragments),
	}

	if header != nil {
		report.Layout = LayoutTabular
		report.Tests = extractTabularReport(rows, header)
	} else {
		report.Layout = LayoutList
		report.Tests = extractListReport(rows, e.opts.ReferenceLookahead)
	}

	return report
}

// Extract returns only the extracted lab tests
func (e *Extractor) Extract(fragments []Fragment) []LabTest {
	return e.Analyze(fragments).Tests
}

// ExtractLabTests runs the pipeline with default options
func ExtractLabTests(fragments []Fragment) []LabTest {
	return NewExtractor(DefaultOptions()).Extract(fragments)
}
