package aggregate

import (
	"sort"
	"strings"

	"unitprice/pipeline/internal/domain"
)

// Query narrows the product table for the dashboard. Zero values match everything.
type Query struct {
	Category string // lvl_0 category, case-insensitive
	Brand    string
	MaxPrice *float64
	Sort     domain.SortMode
}

// Filter returns the products matching q, ordered by q.Sort.
func Filter(products []domain.AggregatedProduct, q Query) []domain.AggregatedProduct {
	var out []domain.AggregatedProduct
	for _, p := range products {
		if q.Category != "" && !strings.EqualFold(p.Lvl0Cat, q.Category) {
			continue
		}
		if q.Brand != "" && !strings.EqualFold(p.BrandName, q.Brand) {
			continue
		}
		if q.MaxPrice != nil && p.Price > *q.MaxPrice {
			continue
		}
		out = append(out, p)
	}

	mode := q.Sort
	if mode == "" {
		mode = domain.SortByUnitPrice
	}
	Sort(out, mode)
	return out
}

// Sort orders products in place. Missing unit prices, ratings and ratios go last.
func Sort(products []domain.AggregatedProduct, mode domain.SortMode) {
	sort.SliceStable(products, func(i, j int) bool {
		a, b := products[i], products[j]
		switch mode {
		case domain.SortByRating:
			return greaterPtr(a.Rating, b.Rating)
		case domain.SortBySizeRank:
			return a.ProdRank < b.ProdRank
		case domain.SortByRatio:
			return lessPtr(a.MiniToStandardRatio, b.MiniToStandardRatio)
		default:
			return lessPtr(a.UnitPrice, b.UnitPrice)
		}
	})
}

// lessPtr orders by value with nil after every value.
func lessPtr(a, b *float64) bool {
	switch {
	case a == nil:
		return false
	case b == nil:
		return true
	default:
		return *a < *b
	}
}

// greaterPtr orders by value descending with nil after every value.
func greaterPtr(a, b *float64) bool {
	switch {
	case a == nil:
		return false
	case b == nil:
		return true
	default:
		return *a > *b
	}
}

// Variants returns every row of a product, smallest first.
func Variants(products []domain.AggregatedProduct, productID string) []domain.AggregatedProduct {
	var out []domain.AggregatedProduct
	for _, p := range products {
		if p.ProductID == productID {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].AmountAdj < out[j].AmountAdj
	})
	return out
}

// CheaperInCategory lists products in the target's lvl_2 category with a
// strictly lower unit price, cheapest first.
func CheaperInCategory(products []domain.AggregatedProduct, target domain.AggregatedProduct) []domain.AggregatedProduct {
	if target.UnitPrice == nil {
		return nil
	}

	var out []domain.AggregatedProduct
	for _, p := range products {
		if p.UnitPrice == nil || p.Lvl2Cat != target.Lvl2Cat {
			continue
		}
		if *p.UnitPrice < *target.UnitPrice {
			out = append(out, p)
		}
	}
	Sort(out, domain.SortByUnitPrice)
	return out
}

// BrandsInCategory returns the sorted brands with a product in the lvl_0 category.
// An empty category returns every brand.
func BrandsInCategory(products []domain.AggregatedProduct, category string) []string {
	seen := make(map[string]struct{})
	var brands []string
	for _, p := range products {
		if category != "" && !strings.EqualFold(p.Lvl0Cat, category) {
			continue
		}
		if _, ok := seen[p.BrandName]; ok || p.BrandName == "" {
			continue
		}
		seen[p.BrandName] = struct{}{}
		brands = append(brands, p.BrandName)
	}
	sort.Strings(brands)
	return brands
}

// Categories returns the sorted lvl_0 categories, skipping blanks.
func Categories(products []domain.AggregatedProduct) []string {
	seen := make(map[string]struct{})
	var categories []string
	for _, p := range products {
		c := strings.TrimSpace(p.Lvl0Cat)
		if c == "" {
			continue
		}
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		categories = append(categories, c)
	}
	sort.Strings(categories)
	return categories
}
