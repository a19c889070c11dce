package domain

// AggregatedProduct is one (product, swatch group, size) variant after duplicate
// observations have been reduced.
type AggregatedProduct struct {
	ProductID           string        `json:"product_id"`
	ProductName         string        `json:"product_name"`
	BrandName           string        `json:"brand_name"`
	SwatchGroup         string        `json:"swatch_group"`
	AmountA             float64       `json:"amount_a"`
	UnitA               PrimaryUnit   `json:"unit_a"`
	Price               float64       `json:"price"`
	FullPrice           float64       `json:"full_price"`
	InternalProductIDs  int           `json:"internal_product_id"` // count of distinct listings
	Rating              *float64      `json:"rating"`
	Reviews             *float64      `json:"product_reviews"`
	Loves               *float64      `json:"n_loves"`
	Lvl0Cat             string        `json:"lvl_0_cat"`
	Lvl1Cat             string        `json:"lvl_1_cat"`
	Lvl2Cat             string        `json:"lvl_2_cat"`
	SKUs                []string      `json:"sku"`
	AmountB             *float64      `json:"amount_b"`
	UnitB               SecondaryUnit `json:"unit_b"`
	Multiplier          float64       `json:"product_multiplier"`
	URL                 string        `json:"url"`
	AmountAdj           float64       `json:"amount_adj"`
	UnitPrice           *float64      `json:"unit_price"`
	ProdRank            int           `json:"prod_rank"`
	MiniToStandardRatio *float64      `json:"mini_to_standard_ratio"`
}

// AmountBBase returns the secondary amount in grams or milliliters.
func (p AggregatedProduct) AmountBBase() (*float64, SecondaryUnit) {
	if p.AmountB == nil || p.UnitB == "" {
		return nil, ""
	}
	v, u := p.UnitB.ToBase(*p.AmountB)
	return &v, u
}

// ComparisonPair links the mini and standard variants of the same product.
// A ratio below 1 means the mini is the better value per unit.
type ComparisonPair struct {
	ProdRank            int               `json:"prod_rank"`
	ProductID           string            `json:"product_id"`
	ProductName         string            `json:"product_name"`
	BrandName           string            `json:"brand_name"`
	Mini                AggregatedProduct `json:"mini"`
	Standard            AggregatedProduct `json:"standard"`
	MiniToStandardRatio float64           `json:"mini_to_standard_ratio"`
}

// Milliliters converts the adjusted fluid ounce amount for display. Weight
// ounces have no volume and return nil.
func (p AggregatedProduct) Milliliters() *float64 {
	if p.UnitA != PrimaryUnitFlOz {
		return nil
	}
	ml := p.AmountAdj * MillilitersPerFluidOunce
	return &ml
}
