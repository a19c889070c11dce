package domain

// RawProductRecord is one scraped observation of a product variant, after
// options have been expanded into rows and the free-text fields cleaned.
type RawProductRecord struct {
	InternalProductID int    // index of the listing the option came from
	ProductID         string // from the product URL
	URL               string
	BrandName         string
	ProductName       string
	SwatchGroup       string
	SwatchDetails     string
	Name              string // variant name, lowercased
	Size              string // raw size text, lowercased
	Price             float64
	FullPrice         float64
	Rating            *float64
	Reviews           *float64
	Loves             *float64
	Categories        [3]string // lvl_0, lvl_1, lvl_2
	SKU               string
}

// ParseStrategy names the branch of the size parser that produced a result.
type ParseStrategy string

const (
	StrategyDualMeasurement    ParseStrategy = "dual-measurement"
	StrategySingleMeasurement  ParseStrategy = "single-measurement"
	StrategyMultiplierPrefixed ParseStrategy = "multiplier-prefixed"
	StrategyUnmatched          ParseStrategy = "unmatched"
)

// ParsedSize is the structured quantity recovered from a size description.
type ParsedSize struct {
	AmountA    *float64
	UnitA      PrimaryUnit
	AmountB    *float64
	UnitB      SecondaryUnit
	Multiplier float64
	Trailing   string
	Strategy   ParseStrategy
}

// AdjustedAmount is the real per-listing quantity.
func (p ParsedSize) AdjustedAmount() float64 {
	if p.AmountA == nil {
		return 0
	}
	return *p.AmountA * p.Multiplier
}

// ProductRow is a record that survived parsing and unit filtering.
type ProductRow struct {
	RawProductRecord
	Parsed ParsedSize
}
