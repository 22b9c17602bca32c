package labreport

import (
	"regexp"
	"strings"
)

// Field rules. Each one is a small pure function over a row's text so the
// tabular and list paths can share them.

var (
	numberPattern    = regexp.MustCompile(`(\d+\.?\d*)`)
	rangeUnitPattern = regexp.MustCompile(`(\d+\.?\d*)\s*[-–]\s*(\d+\.?\d*)\s*([a-zA-Z/%]+)?`)
	rangePattern     = regexp.MustCompile(`(\d+\.?\d*)\s*[-–]\s*(\d+\.?\d*)`)
	listEntryPattern = regexp.MustCompile(`([A-Za-z\s/()]+)\s+(\d+\.?\d*)\s*([A-Za-z%/]+)?`)
)

// exclusionMarkers flag footer and metadata rows
var exclusionMarkers = []string{"END OF REPORT", "SPECIMEN", "NOTE:", "TESTER", "PRINTED BY"}

// isExcluded reports whether the row text is footer or metadata
func isExcluded(text string) bool {
	upper := strings.ToUpper(text)
	for _, marker := range exclusionMarkers {
		if strings.Contains(upper, marker) {
			return true
		}
	}
	return false
}

// extractValue returns the first numeric token, or the trimmed text when
// there is none (a qualitative or misread result)
func extractValue(text string) string {
	text = strings.TrimSpace(text)
	if m := numberPattern.FindString(text); m != "" {
		return m
	}
	return text
}

// extractRangeAndUnit parses "low-high [unit]" out of a range cell
func extractRangeAndUnit(text string) (rng string, unit string, ok bool) {
	m := rangeUnitPattern.FindStringSubmatch(text)
	if m == nil {
		return "", "", false
	}
	return m[1] + "-" + m[2], strings.TrimSpace(m[3]), true
}

// findRange returns the first "low-high" range in text
func findRange(text string) (string, bool) {
	m := rangePattern.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return m[1] + "-" + m[2], true
}

// listEntry is a test line matched without column information
type listEntry struct {
	name  string
	value string
	unit  string
}

// matchListEntry matches "name value [unit]" in a line of text
func matchListEntry(text string) (listEntry, bool) {
	m := listEntryPattern.FindStringSubmatch(text)
	if m == nil {
		return listEntry{}, false
	}

	name := strings.TrimSpace(m[1])
	if name == "" {
		return listEntry{}, false
	}

	return listEntry{name: name, value: m[2], unit: m[3]}, true
}
