package labreport

import (
	"math"
	"strings"
)

// extractTabularReport parses the rows below a detected header
func extractTabularReport(rows []Row, header *Header) []LabTest {
	tests := []LabTest{}

	for _, row := range rows[header.RowIndex+1:] {
		if len(row) < 2 || isExcluded(row.Text()) {
			continue
		}

		if test, ok := ExtractTabularRow(row, header); ok {
			tests = append(tests, test)
		}
	}

	return tests
}

// ExtractTabularRow turns one data row into a lab test using the header's
// column positions. It returns false when there is no header or no
// fragment lands in the test name column.
func ExtractTabularRow(row Row, header *Header) (LabTest, bool) {
	if header == nil {
		return LabTest{}, false
	}

	cells := assignColumns(row, header.Columns)

	name := joinCell(cells[ColumnTestName])
	if name == "" {
		return LabTest{}, false
	}

	test := LabTest{TestName: name}

	if value := joinCell(cells[ColumnValue]); value != "" {
		test.TestValue = extractValue(value)
	}

	if rangeText := joinCell(cells[ColumnRange]); rangeText != "" {
		if rng, unit, ok := extractRangeAndUnit(rangeText); ok {
			test.BioReferenceRange = rng
			test.TestUnit = unit
		}
	}

	if test.TestUnit == "" {
		test.TestUnit = joinCell(cells[ColumnUnit])
	}

	test.TestUnit = NormalizeUnit(test.TestUnit)
	test.OutOfRange = IsOutOfRange(test.TestValue, test.BioReferenceRange)

	return test, true
}

// assignColumns places every non-blank fragment in its nearest column.
// Columns are scanned in columnOrder with a strict comparison, so a
// fragment exactly between two columns goes to the earlier kind.
func assignColumns(row Row, columns map[ColumnKind]float64) map[ColumnKind][]string {
	cells := make(map[ColumnKind][]string, len(columns))

	for _, f := range row {
		if strings.TrimSpace(f.Text) == "" {
			continue
		}

		closest := ColumnKind("")
		minDistance := math.Inf(1)
		for _, kind := range columnOrder {
			pos, ok := columns[kind]
			if !ok {
				continue
			}
			if d := math.Abs(f.Position.X - pos); d < minDistance {
				minDistance = d
				closest = kind
			}
		}

		if closest != "" {
			cells[closest] = append(cells[closest], f.Text)
		}
	}

	return cells
}

func joinCell(parts []string) string {
	return strings.TrimSpace(strings.Join(parts, " "))
}
