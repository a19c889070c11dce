package domain

// PrimaryUnit is the US customary measurement a listing must carry to be compared.
type PrimaryUnit string

func (u PrimaryUnit) String() string {
	return string(u)
}

const (
	PrimaryUnitOz   PrimaryUnit = "oz"   // Weight ounces
	PrimaryUnitFlOz PrimaryUnit = "floz" // Fluid ounces
)

var PrimaryUnits = []PrimaryUnit{
	PrimaryUnitOz,
	PrimaryUnitFlOz,
}

// ParsePrimaryUnit maps a parsed unit token onto the supported primary units.
// A bare "fl" token left over from "fl oz" spellings counts as fluid ounces.
func ParsePrimaryUnit(token string) (PrimaryUnit, bool) {
	switch token {
	case "oz":
		return PrimaryUnitOz, true
	case "floz", "fl":
		return PrimaryUnitFlOz, true
	default:
		return "", false
	}
}

// SecondaryUnit is the metric measurement shown next to the primary one.
type SecondaryUnit string

func (u SecondaryUnit) String() string {
	return string(u)
}

const (
	SecondaryUnitGram       SecondaryUnit = "g"
	SecondaryUnitMilliliter SecondaryUnit = "ml"
	SecondaryUnitMilligram  SecondaryUnit = "mg"
	SecondaryUnitLiter      SecondaryUnit = "l"
	SecondaryUnitKilogram   SecondaryUnit = "kg"
)

var SecondaryUnits = []SecondaryUnit{
	SecondaryUnitGram,
	SecondaryUnitMilliliter,
	SecondaryUnitMilligram,
	SecondaryUnitLiter,
	SecondaryUnitKilogram,
}

func ParseSecondaryUnit(token string) (SecondaryUnit, bool) {
	for _, u := range SecondaryUnits {
		if string(u) == token {
			return u, true
		}
	}
	return "", false
}

// ToBase converts an amount to grams or milliliters.
func (u SecondaryUnit) ToBase(amount float64) (float64, SecondaryUnit) {
	switch u {
	case SecondaryUnitLiter:
		return amount * 1000, SecondaryUnitMilliliter
	case SecondaryUnitKilogram:
		return amount * 1000, SecondaryUnitGram
	case SecondaryUnitMilligram:
		return amount / 1000, SecondaryUnitGram
	default:
		return amount, u
	}
}

// MillilitersPerFluidOunce is the US fluid ounce used for display conversions.
const MillilitersPerFluidOunce = 29.574
