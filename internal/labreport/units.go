package labreport

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// countUnitPattern matches cell count units such as 10^3/uL, 10x3/µL or 10³/μL
// (the last one after NFKC folding)
var countUnitPattern = regexp.MustCompile(`10[\^x]?(\d+)/[uµμ]L`)

// unitCorrections maps lower-cased OCR misreads to the canonical unit
var unitCorrections = map[string]string{
	"gldl":   "g/dL",
	"g/dl":   "g/dL",
	"gm/dl":  "g/dL",
	"mg/dl":  "mg/dL",
	"mgldl":  "mg/dL",
	"u/l":    "U/L",
	"iu/l":   "IU/L",
	"mmol/l": "mmol/L",
	"ng/ml":  "ng/mL",
	"pg/ml":  "pg/mL",
	"meq/l":  "mEq/L",
	"fl":     "fL",
}

// NormalizeUnit canonicalizes a unit read by OCR. Unknown units are
// returned trimmed but otherwise untouched.
func NormalizeUnit(unit string) string {
	unit = strings.TrimSpace(unit)
	if unit == "" {
		return ""
	}

	folded := norm.NFKC.String(unit)

	if m := countUnitPattern.FindStringSubmatch(folded); m != nil {
		return "10^" + m[1] + "/µL"
	}

	if canonical, ok := unitCorrections[strings.ToLower(folded)]; ok {
		return canonical
	}

	return unit
}
