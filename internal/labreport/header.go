package labreport

import "strings"

// headerKeywords lists the words that identify each column in a header row
var headerKeywords = map[ColumnKind][]string{
	ColumnTestName: {"parameter", "investigation", "test", "examination"},
	ColumnSpecimen: {"specimen", "sample"},
	ColumnValue:    {"result", "value", "observed"},
	ColumnUnit:     {"unit"},
	ColumnRange:    {"reference", "interval", "range", "biological", "normal"},
}

// minHeaderGroups is how many keyword groups a row must hit to be a header candidate
const minHeaderGroups = 2

// DetectHeader finds the first row that looks like a table header and
// maps each column kind to the x position of its header fragment.
// It returns nil when the report has no usable header (list layout).
func DetectHeader(rows []Row) *Header {
	for i, row := range rows {
		if len(row) < 2 {
			continue
		}

		if countKeywordGroups(strings.ToLower(row.Text())) < minHeaderGroups {
			continue
		}

		header := &Header{RowIndex: i, Columns: mapColumns(row)}
		if header.valid() {
			return header
		}
	}

	return nil
}

// countKeywordGroups counts the groups with at least one keyword in text
func countKeywordGroups(text string) int {
	matches := 0
	for _, kind := range columnOrder {
		if containsAny(text, headerKeywords[kind]) {
			matches++
		}
	}
	return matches
}

// mapColumns assigns each fragment to the first kind whose keyword it
// contains. The first fragment seen for a kind keeps the position.
func mapColumns(row Row) map[ColumnKind]float64 {
	columns := make(map[ColumnKind]float64)

	for _, f := range row {
		text := strings.ToLower(f.Text)
		for _, kind := range columnOrder {
			if !containsAny(text, headerKeywords[kind]) {
				continue
			}
			if _, seen := columns[kind]; !seen {
				columns[kind] = f.Position.X
			}
			break
		}
	}

	return columns
}

// valid reports whether the header maps a test name and a value or range column
func (h *Header) valid() bool {
	if _, ok := h.Columns[ColumnTestName]; !ok {
		return false
	}
	_, hasValue := h.Columns[ColumnValue]
	_, hasRange := h.Columns[ColumnRange]
	return hasValue || hasRange
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
