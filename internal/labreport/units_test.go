package labreport

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeUnit(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"   ", ""},
		{"gldL", "g/dL"},
		{"g/dl", "g/dL"},
		{"G/DL", "g/dL"},
		{"mg/dl", "mg/dL"},
		{"u/l", "U/L"},
		{"u/L", "U/L"},
		{"IU/l", "IU/L"},
		{"10^3/uL", "10^3/µL"},
		{"10x6/uL", "10^6/µL"},
		{"103/µL", "10^3/µL"},
		{"10³/μL", "10^3/µL"},
		{"x10^3/uL", "10^3/µL"},
		{" mmol/l ", "mmol/L"},
		{"cells/cumm", "cells/cumm"},
		{"%", "%"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeUnit(tt.in))
		})
	}
}
