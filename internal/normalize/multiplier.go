package normalize

import (
	"math"
	"strconv"
	"strings"
)

const multiplierSeparator = " x"

// SplitMultiplier splits a pack count like "4 x 0.25 oz" on the first " x".
// The remainder keeps its leading space. ok is false when there is no
// separator, in which case remainder is the whole input.
func SplitMultiplier(cleaned string) (multiplier, remainder string, ok bool) {
	if cleaned == "" {
		return "", "", false
	}
	before, after, found := strings.Cut(cleaned, multiplierSeparator)
	if !found {
		return "", cleaned, false
	}
	return before, after, true
}

// CoerceMultiplier parses a pack count. Text that is not a finite
// non-negative number counts as a single item. Zero is kept so the
// adjusted amount, and with it the unit price, stays empty.
func CoerceMultiplier(text string) float64 {
	m, ok := parseMultiplier(text)
	if !ok {
		return 1.0
	}
	return m
}

func parseMultiplier(text string) (float64, bool) {
	m, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil || math.IsNaN(m) || math.IsInf(m, 0) || m < 0 {
		return 0, false
	}
	return m, true
}
