package ioformats

import (
	"math"
	"strconv"
	"strings"

	"unitprice/pipeline/internal/domain"
)

// skuSeparator joins the SKU set of an aggregated row into one cell.
const skuSeparator = ";"

type column[T any] struct {
	name  string
	value func(T) any
}

func header[T any](cols []column[T]) []string {
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.name
	}
	return names
}

func values[T any](cols []column[T], row T) []any {
	out := make([]any, len(cols))
	for i, c := range cols {
		out[i] = c.value(row)
	}
	return out
}

func optional(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

var aggregateColumns = []column[domain.AggregatedProduct]{
	{"product_id", func(p domain.AggregatedProduct) any { return p.ProductID }},
	{"product_name", func(p domain.AggregatedProduct) any { return p.ProductName }},
	{"brand_name", func(p domain.AggregatedProduct) any { return p.BrandName }},
	{"swatch_group", func(p domain.AggregatedProduct) any { return p.SwatchGroup }},
	{"amount_a", func(p domain.AggregatedProduct) any { return p.AmountA }},
	{"unit_a", func(p domain.AggregatedProduct) any { return string(p.UnitA) }},
	{"price", func(p domain.AggregatedProduct) any { return p.Price }},
	{"full_price", func(p domain.AggregatedProduct) any { return p.FullPrice }},
	{"internal_product_id", func(p domain.AggregatedProduct) any { return p.InternalProductIDs }},
	{"rating", func(p domain.AggregatedProduct) any { return optional(p.Rating) }},
	{"product_reviews", func(p domain.AggregatedProduct) any { return optional(p.Reviews) }},
	{"n_loves", func(p domain.AggregatedProduct) any { return optional(p.Loves) }},
	{"lvl_0_cat", func(p domain.AggregatedProduct) any { return p.Lvl0Cat }},
	{"lvl_1_cat", func(p domain.AggregatedProduct) any { return p.Lvl1Cat }},
	{"lvl_2_cat", func(p domain.AggregatedProduct) any { return p.Lvl2Cat }},
	{"sku", func(p domain.AggregatedProduct) any { return strings.Join(p.SKUs, skuSeparator) }},
	{"amount_b", func(p domain.AggregatedProduct) any { return optional(p.AmountB) }},
	{"unit_b", func(p domain.AggregatedProduct) any { return string(p.UnitB) }},
	{"amount_b_base", func(p domain.AggregatedProduct) any {
		v, _ := p.AmountBBase()
		return optional(v)
	}},
	{"unit_b_base", func(p domain.AggregatedProduct) any {
		_, u := p.AmountBBase()
		return string(u)
	}},
	{"product_multiplier", func(p domain.AggregatedProduct) any { return p.Multiplier }},
	{"url", func(p domain.AggregatedProduct) any { return p.URL }},
	{"amount_adj", func(p domain.AggregatedProduct) any { return p.AmountAdj }},
	{"unit_price", func(p domain.AggregatedProduct) any { return optional(p.UnitPrice) }},
	{"prod_rank", func(p domain.AggregatedProduct) any { return p.ProdRank }},
	{"mini_to_standard_ratio", func(p domain.AggregatedProduct) any { return optional(p.MiniToStandardRatio) }},
}

// side returns the per-variant columns of a comparison, suffixed _mini or _standard.
func side(suffix string, pick func(domain.ComparisonPair) domain.AggregatedProduct) []column[domain.ComparisonPair] {
	fields := []struct {
		name  string
		value func(domain.AggregatedProduct) any
	}{
		{"swatch_group", func(p domain.AggregatedProduct) any { return p.SwatchGroup }},
		{"amount_a", func(p domain.AggregatedProduct) any { return p.AmountA }},
		{"unit_a", func(p domain.AggregatedProduct) any { return string(p.UnitA) }},
		{"amount_adj", func(p domain.AggregatedProduct) any { return p.AmountAdj }},
		{"price", func(p domain.AggregatedProduct) any { return p.Price }},
		{"unit_price", func(p domain.AggregatedProduct) any { return optional(p.UnitPrice) }},
		{"lvl_2_cat", func(p domain.AggregatedProduct) any { return p.Lvl2Cat }},
		{"url", func(p domain.AggregatedProduct) any { return p.URL }},
	}

	cols := make([]column[domain.ComparisonPair], 0, len(fields))
	for _, f := range fields {
		cols = append(cols, column[domain.ComparisonPair]{
			name:  f.name + "_" + suffix,
			value: func(c domain.ComparisonPair) any { return f.value(pick(c)) },
		})
	}
	return cols
}

var comparisonColumns = func() []column[domain.ComparisonPair] {
	cols := []column[domain.ComparisonPair]{
		{"prod_rank", func(c domain.ComparisonPair) any { return c.ProdRank }},
		{"product_id", func(c domain.ComparisonPair) any { return c.ProductID }},
		{"product_name", func(c domain.ComparisonPair) any { return c.ProductName }},
		{"brand_name", func(c domain.ComparisonPair) any { return c.BrandName }},
	}
	cols = append(cols, side("mini", func(c domain.ComparisonPair) domain.AggregatedProduct { return c.Mini })...)
	cols = append(cols, side("standard", func(c domain.ComparisonPair) domain.AggregatedProduct { return c.Standard })...)
	cols = append(cols, column[domain.ComparisonPair]{
		"mini_to_standard_ratio", func(c domain.ComparisonPair) any { return c.MiniToStandardRatio },
	})
	return cols
}()

// AggregateColumns lists the column names of the aggregated product table.
func AggregateColumns() []string { return header(aggregateColumns) }

// ComparisonColumns lists the column names of the comparison table.
func ComparisonColumns() []string { return header(comparisonColumns) }

// formatCell renders one cell. Integral floats keep ".0" and missing values
// are empty.
func formatCell(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case int:
		return strconv.Itoa(t)
	case float64:
		return floatString(t)
	default:
		return ""
	}
}

func floatString(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return ""
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		return s + ".0"
	}
	return s
}
