package domain

import "fmt"

// SortMode selects the ordering of product listings served to the dashboard.
type SortMode string

const (
	SortByUnitPrice SortMode = "unit_price"
	SortByRating    SortMode = "rating"
	SortBySizeRank  SortMode = "prod_rank"
	SortByRatio     SortMode = "mini_to_standard_ratio"
)

var SortModes = []SortMode{
	SortByUnitPrice,
	SortByRating,
	SortBySizeRank,
	SortByRatio,
}

func ParseSortMode(s string) (SortMode, error) {
	if s == "" {
		return SortByUnitPrice, nil
	}
	for _, m := range SortModes {
		if string(m) == s {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown sort mode %q", s)
}
