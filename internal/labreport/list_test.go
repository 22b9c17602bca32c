package labreport

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractListReport_RangeOnSameRow(t *testing.T) {
	rows := []Row{{frag("Glucose", 50, 0), frag("130", 150, 0), frag("mg/dl", 220, 0), frag("70-110", 320, 0)}}

	tests := extractListReport(rows, DefaultReferenceLookahead)

	require.Len(t, tests, 1)
	assert.Equal(t, LabTest{
		TestName:          "Glucose",
		TestValue:         "130",
		BioReferenceRange: "70-110",
		TestUnit:          "mg/dL",
		OutOfRange:        true,
	}, tests[0])
}

func TestExtractListReport_RangeOnFollowingRows(t *testing.T) {
	rows := []Row{
		{frag("Creatinine", 50, 0), frag("0.9", 150, 0), frag("mg/dL", 220, 0)},
		{frag("(serum)", 50, 20)},
		{frag("Normal Range:", 50, 40), frag("0.6 - 1.2", 180, 40)},
	}

	tests := extractListReport(rows, 2)

	require.Len(t, tests, 1)
	assert.Equal(t, "0.6-1.2", tests[0].BioReferenceRange)
	assert.False(t, tests[0].OutOfRange)
}

func TestExtractListReport_LookaheadWindow(t *testing.T) {
	rows := []Row{
		{frag("Creatinine", 50, 0), frag("1.9", 150, 0)},
		{frag("(serum)", 50, 20)},
		{frag("0.6 - 1.2", 180, 40)},
	}

	assert.Equal(t, "", extractListReport(rows, 1)[0].BioReferenceRange)
	assert.Equal(t, "", extractListReport(rows, 0)[0].BioReferenceRange)

	withWindow := extractListReport(rows, 2)[0]
	assert.Equal(t, "0.6-1.2", withWindow.BioReferenceRange)
	assert.True(t, withWindow.OutOfRange)
}

func TestExtractListReport_TakesFirstRangeInWindow(t *testing.T) {
	rows := []Row{
		{frag("Glucose", 50, 0), frag("95", 150, 0), frag("mg/dL", 220, 0)},
		{frag("Urea", 50, 20), frag("30", 150, 20), frag("mg/dL", 220, 20), frag("10-50", 320, 20)},
	}

	tests := extractListReport(rows, DefaultReferenceLookahead)

	require.Len(t, tests, 2)
	assert.Equal(t, "10-50", tests[0].BioReferenceRange)
	assert.True(t, tests[0].OutOfRange)
	assert.Equal(t, "10-50", tests[1].BioReferenceRange)
	assert.False(t, tests[1].OutOfRange)
}

func TestExtractListReport_KeepsNamesContainingNormal(t *testing.T) {
	rows := []Row{{frag("Mean Normal PT", 50, 0), frag("12.0", 200, 0), frag("sec", 260, 0)}}

	tests := extractListReport(rows, DefaultReferenceLookahead)

	require.Len(t, tests, 1)
	assert.Equal(t, "Mean Normal PT", tests[0].TestName)
	assert.Equal(t, "12.0", tests[0].TestValue)
	assert.Equal(t, "sec", tests[0].TestUnit)
}

func TestExtractListReport_SkipsFooterAndNoise(t *testing.T) {
	rows := []Row{
		{frag("Patient ID:", 50, 0), frag("10023", 200, 0)},
		{frag("Urea", 50, 20), frag("25", 150, 20), frag("mg/dL", 220, 20)},
		{frag("Tester", 50, 40), frag("3", 150, 40)},
		{frag("End of Report", 50, 60), frag("1", 200, 60)},
	}

	tests := extractListReport(rows, DefaultReferenceLookahead)

	require.Len(t, tests, 1)
	assert.Equal(t, "Urea", tests[0].TestName)
}

func TestExtractListReport_SingleFragmentRow(t *testing.T) {
	rows := []Row{{frag("TSH 2.5 uIU/mL", 100, 0)}}

	tests := extractListReport(rows, DefaultReferenceLookahead)

	require.Len(t, tests, 1)
	assert.Equal(t, "TSH", tests[0].TestName)
	assert.Equal(t, "2.5", tests[0].TestValue)
	assert.Equal(t, "uIU/mL", tests[0].TestUnit)
}
