package labreport

// DefaultReferenceLookahead is how many rows below a list entry are
// searched for its reference range
const DefaultReferenceLookahead = 2

// extractListReport parses a report without a header line by line
func extractListReport(rows []Row, lookahead int) []LabTest {
	tests := []LabTest{}

	for i, row := range rows {
		if len(row) == 0 {
			continue
		}

		text := row.Text()
		if isExcluded(text) {
			continue
		}

		entry, ok := matchListEntry(text)
		if !ok {
			continue
		}

		rng := findReferenceRange(text, rows, i, lookahead)
		tests = append(tests, LabTest{
			TestName:          entry.name,
			TestValue:         entry.value,
			BioReferenceRange: rng,
			TestUnit:          NormalizeUnit(entry.unit),
			OutOfRange:        IsOutOfRange(entry.value, rng),
		})
	}

	return tests
}

// findReferenceRange looks for a range in the entry's own text and then in
// up to lookahead following rows. The first match wins.
func findReferenceRange(text string, rows []Row, index int, lookahead int) string {
	if rng, ok := findRange(text); ok {
		return rng
	}

	for j := index + 1; j < len(rows) && j <= index+lookahead; j++ {
		if rng, ok := findRange(rows[j].Text()); ok {
			return rng
		}
	}

	return ""
}
