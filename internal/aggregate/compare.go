package aggregate

import (
	"unitprice/pipeline/internal/domain"
)

type productKey struct {
	productID   string
	productName string
	brandName   string
}

func keyOf(p domain.AggregatedProduct) productKey {
	return productKey{p.ProductID, p.ProductName, p.BrandName}
}

// ComparisonPairs joins every mini size row with the standard size rows of the
// same product that hold strictly more. Pairs without a usable unit price on
// either side are skipped. Ranks are positions in the result, starting at 1.
func ComparisonPairs(products []domain.AggregatedProduct) []domain.ComparisonPair {
	standards := make(map[productKey][]domain.AggregatedProduct)
	for _, p := range products {
		if p.SwatchGroup == domain.SwatchGroupStandard {
			standards[keyOf(p)] = append(standards[keyOf(p)], p)
		}
	}

	var pairs []domain.ComparisonPair
	for _, mini := range products {
		if mini.SwatchGroup != domain.SwatchGroupMini || mini.UnitPrice == nil {
			continue
		}
		for _, standard := range standards[keyOf(mini)] {
			if mini.AmountAdj >= standard.AmountAdj {
				continue
			}
			if standard.UnitPrice == nil || *standard.UnitPrice == 0 {
				continue
			}
			pairs = append(pairs, domain.ComparisonPair{
				ProdRank:            len(pairs) + 1,
				ProductID:           mini.ProductID,
				ProductName:         mini.ProductName,
				BrandName:           mini.BrandName,
				Mini:                mini,
				Standard:            standard,
				MiniToStandardRatio: *mini.UnitPrice / *standard.UnitPrice,
			})
		}
	}
	return pairs
}

// AttachRatios returns a copy of products with each product's first
// mini-to-standard ratio set. Value and refill rows keep a nil ratio.
func AttachRatios(products []domain.AggregatedProduct, pairs []domain.ComparisonPair) []domain.AggregatedProduct {
	ratios := make(map[productKey]float64, len(pairs))
	for _, pair := range pairs {
		key := productKey{pair.ProductID, pair.ProductName, pair.BrandName}
		if _, ok := ratios[key]; !ok {
			ratios[key] = pair.MiniToStandardRatio
		}
	}

	out := make([]domain.AggregatedProduct, len(products))
	for i, p := range products {
		p.MiniToStandardRatio = nil
		if ratio, ok := ratios[keyOf(p)]; ok && domain.HasComparableRatio(p.SwatchGroup) {
			r := ratio
			p.MiniToStandardRatio = &r
		}
		out[i] = p
	}
	return out
}

// ComparisonFor returns the first pair recorded for a product.
func ComparisonFor(pairs []domain.ComparisonPair, productID string) (domain.ComparisonPair, bool) {
	for _, pair := range pairs {
		if pair.ProductID == productID {
			return pair, true
		}
	}
	return domain.ComparisonPair{}, false
}
