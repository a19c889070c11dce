package normalize

import (
	"math"

	"unitprice/pipeline/internal/domain"
)

// DropReason explains why a parsed size was filtered out.
type DropReason string

const (
	DropNone               DropReason = ""
	DropNoAmount           DropReason = "no_amount"
	DropUnsupportedPrimary DropReason = "unsupported_primary_unit"
	DropUnsupportedSecond  DropReason = "unsupported_secondary_unit"
)

// FilterUnits keeps sizes measured in oz or floz whose optional secondary
// measurement is one of g, ml, mg, l, kg.
func FilterUnits(f SizeFields) (domain.ParsedSize, DropReason) {
	amountA, ok := f.Primary.Value()
	if !ok {
		return domain.ParsedSize{}, DropNoAmount
	}

	unitA, ok := domain.ParsePrimaryUnit(f.Primary.Unit)
	if !ok {
		return domain.ParsedSize{}, DropUnsupportedPrimary
	}

	size := domain.ParsedSize{
		AmountA:    &amountA,
		UnitA:      unitA,
		Multiplier: f.Multiplier,
		Trailing:   f.Trailing,
		Strategy:   f.Strategy,
	}

	if f.Secondary.Unit != "" {
		unitB, ok := domain.ParseSecondaryUnit(f.Secondary.Unit)
		if !ok {
			return domain.ParsedSize{}, DropUnsupportedSecond
		}
		if amountB, ok := f.Secondary.Value(); ok {
			size.AmountB = &amountB
			size.UnitB = unitB
		}
	}

	return size, DropNone
}

// UnitPrice divides price by the adjusted amount. It is nil whenever the
// result would not be a finite number.
func UnitPrice(price, adjustedAmount float64) *float64 {
	if adjustedAmount <= 0 || math.IsNaN(adjustedAmount) || math.IsNaN(price) {
		return nil
	}
	v := price / adjustedAmount
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return nil
	}
	return &v
}
