package labreport

import (
	"strconv"
	"strings"
)

// IsOutOfRange reports whether value lies outside a "low-high" reference
// range. Anything that does not parse yields false.
func IsOutOfRange(value, rng string) bool {
	value = strings.TrimSpace(value)
	if value == "" || rng == "" {
		return false
	}

	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return false
	}

	low, high, ok := parseRange(rng)
	if !ok {
		return false
	}

	return v < low || v > high
}

// parseRange splits "low-high" into its two bounds
func parseRange(rng string) (low, high float64, ok bool) {
	parts := strings.Split(strings.ReplaceAll(rng, "–", "-"), "-")
	if len(parts) != 2 {
		return 0, 0, false
	}

	if low, ok = firstNumber(parts[0]); !ok {
		return 0, 0, false
	}
	if high, ok = firstNumber(parts[1]); !ok {
		return 0, 0, false
	}

	return low, high, true
}

func firstNumber(text string) (float64, bool) {
	m := numberPattern.FindString(text)
	if m == "" {
		return 0, false
	}
	n, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
