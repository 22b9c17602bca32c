package labreport

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractLabTests_TabularReport(t *testing.T) {
	fragments := []Fragment{
		frag("12-16 g/dL", 350, 131),
		frag("Test", 50, 100),
		frag("Hemoglobin", 50, 128),
		frag("Reference Range", 350, 102),
		frag("10.2", 200, 130),
		frag("Result", 200, 99),
	}

	tests := ExtractLabTests(fragments)

	require.Len(t, tests, 1)
	assert.Equal(t, LabTest{
		TestName:          "Hemoglobin",
		TestValue:         "10.2",
		BioReferenceRange: "12-16",
		TestUnit:          "g/dL",
		OutOfRange:        true,
	}, tests[0])
}

func TestExtractLabTests_ListReport(t *testing.T) {
	fragments := []Fragment{
		frag("Glucose", 50, 100),
		frag("95", 150, 101),
		frag("mg/dL", 220, 99),
	}

	tests := ExtractLabTests(fragments)

	require.Len(t, tests, 1)
	assert.Equal(t, LabTest{
		TestName:  "Glucose",
		TestValue: "95",
		TestUnit:  "mg/dL",
	}, tests[0])
}

func TestExtractLabTests_EmptyInput(t *testing.T) {
	tests := ExtractLabTests(nil)

	require.NotNil(t, tests)
	assert.Empty(t, tests)

	data, err := json.Marshal(tests)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(data))
}

func TestExtractLabTests_EndOfReportContributesNothing(t *testing.T) {
	tabular := []Fragment{
		frag("Test", 50, 0), frag("Result", 200, 0), frag("Reference Range", 350, 0),
		frag("Sodium", 50, 30), frag("140", 200, 30), frag("135-145", 350, 30),
		frag("END OF REPORT", 50, 60), frag("1.5", 200, 60), frag("1-2", 350, 60),
	}
	list := []Fragment{
		frag("Sodium", 50, 0), frag("140", 150, 0),
		frag("END OF REPORT Potassium", 50, 30), frag("4.1", 250, 30),
	}

	for name, fragments := range map[string][]Fragment{"tabular": tabular, "list": list} {
		t.Run(name, func(t *testing.T) {
			tests := ExtractLabTests(fragments)
			require.Len(t, tests, 1)
			assert.Equal(t, "Sodium", tests[0].TestName)
		})
	}
}

func TestExtractor_AnalyzeReportsLayout(t *testing.T) {
	extractor := NewExtractor(DefaultOptions())

	tabular := extractor.Analyze([]Fragment{
		frag("Investigation", 50, 0), frag("Observed Value", 200, 0),
		frag("WBC", 50, 30), frag("7.2", 200, 30),
	})
	assert.Equal(t, LayoutTabular, tabular.Layout)
	require.NotNil(t, tabular.Header)
	assert.Equal(t, 0, tabular.Header.RowIndex)
	assert.Equal(t, 2, tabular.RowCount)
	assert.Equal(t, 4, tabular.FragmentCount)
	require.Len(t, tabular.Tests, 1)
	assert.Equal(t, "WBC", tabular.Tests[0].TestName)

	list := extractor.Analyze([]Fragment{frag("Urea 20 mg/dL", 100, 0)})
	assert.Equal(t, LayoutList, list.Layout)
	assert.Nil(t, list.Header)
}

func TestNewExtractor_Defaults(t *testing.T) {
	e := NewExtractor(Options{RowThreshold: -1, ReferenceLookahead: -3})

	assert.Equal(t, DefaultRowThreshold, e.Options().RowThreshold)
	assert.Equal(t, 0, e.Options().ReferenceLookahead)
}

func TestLabTest_JSONShape(t *testing.T) {
	data, err := json.Marshal(LabTest{
		TestName:          "Hemoglobin",
		TestValue:         "10.2",
		BioReferenceRange: "12-16",
		TestUnit:          "g/dL",
		OutOfRange:        true,
	})
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"test_name": "Hemoglobin",
		"test_value": "10.2",
		"bio_reference_range": "12-16",
		"test_unit": "g/dL",
		"lab_test_out_of_range": true
	}`, string(data))
}
