package aggregate

import (
	"sort"

	"unitprice/pipeline/internal/domain"
	"unitprice/pipeline/internal/normalize"
)

type groupKey struct {
	productID   string
	productName string
	brandName   string
	swatchGroup string
	amountA     float64
}

type group struct {
	product   domain.AggregatedProduct
	listings  map[int]struct{}
	skus      map[string]struct{}
	hasRating bool
}

// Aggregate reduces parsed rows to one row per (product, swatch group, amount),
// then orders, deduplicates and ranks the result. Rows without an amount are skipped.
func Aggregate(rows []domain.ProductRow) []domain.AggregatedProduct {
	products := Group(rows)

	sort.SliceStable(products, func(i, j int) bool {
		if products[i].ProductID != products[j].ProductID {
			return products[i].ProductID < products[j].ProductID
		}
		return products[i].AmountAdj < products[j].AmountAdj
	})

	products = dedupe(products)
	rank(products)
	return products
}

// Group applies the per-column reducers: max for price, rating, reviews and
// loves, distinct count of listings, union of SKUs, first value for the rest.
func Group(rows []domain.ProductRow) []domain.AggregatedProduct {
	index := make(map[groupKey]*group)
	var order []groupKey

	for _, row := range rows {
		if row.Parsed.AmountA == nil {
			continue
		}
		key := groupKey{
			productID:   row.ProductID,
			productName: row.ProductName,
			brandName:   row.BrandName,
			swatchGroup: row.SwatchGroup,
			amountA:     *row.Parsed.AmountA,
		}

		g, ok := index[key]
		if !ok {
			g = newGroup(row)
			index[key] = g
			order = append(order, key)
		}
		g.add(row)
	}

	sort.SliceStable(order, func(i, j int) bool {
		return order[i].less(order[j])
	})

	products := make([]domain.AggregatedProduct, 0, len(order))
	for _, key := range order {
		products = append(products, index[key].finish())
	}
	return products
}

func (k groupKey) less(o groupKey) bool {
	switch {
	case k.productID != o.productID:
		return k.productID < o.productID
	case k.productName != o.productName:
		return k.productName < o.productName
	case k.brandName != o.brandName:
		return k.brandName < o.brandName
	case k.swatchGroup != o.swatchGroup:
		return k.swatchGroup < o.swatchGroup
	default:
		return k.amountA < o.amountA
	}
}

func newGroup(row domain.ProductRow) *group {
	return &group{
		product: domain.AggregatedProduct{
			ProductID:   row.ProductID,
			ProductName: row.ProductName,
			BrandName:   row.BrandName,
			SwatchGroup: row.SwatchGroup,
			AmountA:     *row.Parsed.AmountA,
			UnitA:       row.Parsed.UnitA,
			Price:       row.Price,
			FullPrice:   row.FullPrice,
			Multiplier:  row.Parsed.Multiplier,
			URL:         row.URL,
		},
		listings: make(map[int]struct{}),
		skus:     make(map[string]struct{}),
	}
}

func (g *group) add(row domain.ProductRow) {
	p := &g.product

	p.Price = max(p.Price, row.Price)
	p.FullPrice = max(p.FullPrice, row.FullPrice)
	p.Rating = maxPtr(p.Rating, row.Rating)
	p.Reviews = maxPtr(p.Reviews, row.Reviews)
	p.Loves = maxPtr(p.Loves, row.Loves)

	g.listings[row.InternalProductID] = struct{}{}

	if row.SKU != "" {
		if _, seen := g.skus[row.SKU]; !seen {
			g.skus[row.SKU] = struct{}{}
			p.SKUs = append(p.SKUs, row.SKU)
		}
	}

	if p.UnitA == "" {
		p.UnitA = row.Parsed.UnitA
	}
	if p.Lvl0Cat == "" {
		p.Lvl0Cat = row.Categories[0]
	}
	if p.Lvl1Cat == "" {
		p.Lvl1Cat = row.Categories[1]
	}
	if p.Lvl2Cat == "" {
		p.Lvl2Cat = row.Categories[2]
	}
	if p.AmountB == nil && row.Parsed.AmountB != nil {
		v := *row.Parsed.AmountB
		p.AmountB = &v
		p.UnitB = row.Parsed.UnitB
	}
	if p.URL == "" {
		p.URL = row.URL
	}
}

func (g *group) finish() domain.AggregatedProduct {
	p := g.product
	p.InternalProductIDs = len(g.listings)
	p.AmountAdj = p.AmountA * p.Multiplier
	p.UnitPrice = normalize.UnitPrice(p.Price, p.AmountAdj)
	return p
}

type dedupeKey struct {
	productID   string
	price       float64
	swatchGroup string
}

// dedupe drops repeated (product_id, price, swatch_group) rows keeping the last one.
func dedupe(products []domain.AggregatedProduct) []domain.AggregatedProduct {
	last := make(map[dedupeKey]int, len(products))
	for i, p := range products {
		last[dedupeKey{p.ProductID, p.Price, p.SwatchGroup}] = i
	}

	out := make([]domain.AggregatedProduct, 0, len(last))
	for i, p := range products {
		if last[dedupeKey{p.ProductID, p.Price, p.SwatchGroup}] == i {
			out = append(out, p)
		}
	}
	return out
}

// rank assigns a dense rank of amount_adj over the whole table, starting at 1.
func rank(products []domain.AggregatedProduct) {
	amounts := make([]float64, 0, len(products))
	seen := make(map[float64]struct{}, len(products))
	for _, p := range products {
		if _, ok := seen[p.AmountAdj]; ok {
			continue
		}
		seen[p.AmountAdj] = struct{}{}
		amounts = append(amounts, p.AmountAdj)
	}
	sort.Float64s(amounts)

	ranks := make(map[float64]int, len(amounts))
	for i, a := range amounts {
		ranks[a] = i + 1
	}
	for i := range products {
		products[i].ProdRank = ranks[products[i].AmountAdj]
	}
}

func maxPtr(current, next *float64) *float64 {
	if next == nil {
		return current
	}
	if current == nil || *next > *current {
		v := *next
		return &v
	}
	return current
}
