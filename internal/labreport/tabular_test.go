package labreport

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testHeader(columns map[ColumnKind]float64) *Header {
	return &Header{RowIndex: 0, Columns: columns}
}

func TestExtractTabularRow_RangeWithUnit(t *testing.T) {
	header := testHeader(map[ColumnKind]float64{ColumnTestName: 50, ColumnValue: 200, ColumnRange: 350})
	row := Row{frag("Hemoglobin", 50, 130), frag("10.2", 200, 130), frag("12-16 g/dL", 350, 130)}

	test, ok := ExtractTabularRow(row, header)

	require.True(t, ok)
	assert.Equal(t, LabTest{
		TestName:          "Hemoglobin",
		TestValue:         "10.2",
		BioReferenceRange: "12-16",
		TestUnit:          "g/dL",
		OutOfRange:        true,
	}, test)
}

func TestExtractTabularRow_UnitColumnFallback(t *testing.T) {
	header := testHeader(map[ColumnKind]float64{ColumnTestName: 50, ColumnValue: 200, ColumnUnit: 280, ColumnRange: 350})
	row := Row{frag("Glucose", 50, 0), frag("110 H", 200, 0), frag("mg/dl", 280, 0), frag("70-100", 350, 0)}

	test, ok := ExtractTabularRow(row, header)

	require.True(t, ok)
	assert.Equal(t, "110", test.TestValue)
	assert.Equal(t, "70-100", test.BioReferenceRange)
	assert.Equal(t, "mg/dL", test.TestUnit)
	assert.True(t, test.OutOfRange)
}

func TestExtractTabularRow_NonNumericValue(t *testing.T) {
	header := testHeader(map[ColumnKind]float64{ColumnTestName: 50, ColumnValue: 200})
	row := Row{frag("HIV I & II", 50, 0), frag("Non Reactive", 200, 0)}

	test, ok := ExtractTabularRow(row, header)

	require.True(t, ok)
	assert.Equal(t, "Non Reactive", test.TestValue)
	assert.Equal(t, "", test.BioReferenceRange)
	assert.False(t, test.OutOfRange)
}

func TestExtractTabularRow_NoTestName(t *testing.T) {
	header := testHeader(map[ColumnKind]float64{ColumnTestName: 50, ColumnValue: 200, ColumnRange: 350})
	row := Row{frag("13.0", 210, 0), frag("12-16", 340, 0)}

	_, ok := ExtractTabularRow(row, header)

	assert.False(t, ok)
}

func TestExtractTabularRow_NilHeader(t *testing.T) {
	row := Row{frag("Hemoglobin", 50, 0), frag("13.0", 210, 0)}

	test, ok := ExtractTabularRow(row, nil)

	assert.False(t, ok)
	assert.Equal(t, LabTest{}, test)
}

func TestAssignColumns_TieGoesToEarlierKind(t *testing.T) {
	columns := map[ColumnKind]float64{ColumnTestName: 0, ColumnValue: 100}
	row := Row{frag("Free", 0, 0), frag("T4", 50, 0), frag("1.1", 100, 0)}

	cells := assignColumns(row, columns)

	assert.Equal(t, []string{"Free", "T4"}, cells[ColumnTestName])
	assert.Equal(t, []string{"1.1"}, cells[ColumnValue])
}

func TestAssignColumns_SkipsBlankFragments(t *testing.T) {
	columns := map[ColumnKind]float64{ColumnTestName: 0, ColumnValue: 100}
	row := Row{frag("  ", 0, 0), frag("5", 100, 0)}

	cells := assignColumns(row, columns)

	assert.Empty(t, cells[ColumnTestName])
	assert.Equal(t, []string{"5"}, cells[ColumnValue])
}

func TestExtractTabularReport_SkipsShortAndFooterRows(t *testing.T) {
	header := testHeader(map[ColumnKind]float64{ColumnTestName: 50, ColumnValue: 200, ColumnRange: 350})
	rows := []Row{
		{frag("Test", 50, 0), frag("Result", 200, 0), frag("Range", 350, 0)},
		{frag("Platelets", 50, 30), frag("250", 200, 30), frag("150-400", 350, 30)},
		{frag("Comment", 50, 60)},
		{frag("Specimen", 50, 90), frag("Blood", 200, 90)},
		{frag("END OF", 50, 120), frag("REPORT", 200, 120)},
	}

	tests := extractTabularReport(rows, header)

	require.Len(t, tests, 1)
	assert.Equal(t, "Platelets", tests[0].TestName)
	assert.Equal(t, "150-400", tests[0].BioReferenceRange)
	assert.False(t, tests[0].OutOfRange)
}
