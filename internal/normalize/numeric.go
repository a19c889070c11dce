package normalize

import (
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"

	"unitprice/pipeline/internal/domain"
)

// ParseShorthandCount converts loves/review counts like "3.2K" or "1.1M".
// The suffix is applied as a decimal exponent so "2.4K" is exactly 2400.
func ParseShorthandCount(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}

	exponent := ""
	switch {
	case strings.Contains(s, "K"):
		s = strings.ReplaceAll(s, "K", "")
		exponent = "e3"
	case strings.Contains(s, "M"):
		s = strings.ReplaceAll(s, "M", "")
		exponent = "e6"
	}

	s = strings.TrimSpace(s)
	if s == "" || (exponent != "" && strings.ContainsAny(s, "eE")) {
		return 0, false
	}

	v, err := strconv.ParseFloat(s+exponent, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// ParseRatingFromStyleWidth maps a star bar style ("width:80.00%") onto 0-5 stars.
// Widths above 100% are returned as-is; see RatingOutOfRange.
func ParseRatingFromStyleWidth(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}

	s = strings.ReplaceAll(s, "width:", "")
	s = strings.ReplaceAll(s, "%", "")
	percent, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(percent) || math.IsInf(percent, 0) {
		return 0, false
	}
	return percent / 100 * 5, true
}

// RatingOutOfRange flags ratings that only a malformed bar width can produce.
func RatingOutOfRange(rating float64) bool {
	return rating < 0 || rating > 5
}

// SplitSaleAndFullPrice returns the sale and full price texts. A single price
// is both; anything other than one or two prices yields empty strings.
func SplitSaleAndFullPrice(prices []string) (sale, full string) {
	switch len(prices) {
	case 1:
		return prices[0], prices[0]
	case 2:
		return prices[0], prices[1]
	default:
		return "", ""
	}
}

// ParsePrice parses a displayed price like "$1,045.00".
func ParsePrice(s string) (float64, bool) {
	s = strings.TrimSpace(strings.NewReplacer("$", "", ",", "").Replace(s))
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// StripNonNumeric keeps only the digits of s, e.g. "Item 2345678" -> "2345678".
func StripNonNumeric(s string) (string, bool) {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "", false
	}
	return b.String(), true
}

// CleanDetail returns the lowercased first element of a size or name field.
// NFKC folding turns non-breaking spaces and full-width digits into ASCII.
func CleanDetail(v domain.TextOrList) (string, bool) {
	first := v.First()
	if first == "" {
		return "", false
	}
	return strings.ToLower(norm.NFKC.String(first)), true
}
