package domain

// Swatch group labels as they appear after lowercasing.
const (
	SwatchGroupMini     = "mini size"
	SwatchGroupStandard = "standard size"
	SwatchGroupValue    = "value size"
	SwatchGroupRefill   = "refill size"
)

// HasComparableRatio reports whether rows of this swatch group carry the
// mini-to-standard ratio of their product.
func HasComparableRatio(swatchGroup string) bool {
	return swatchGroup != SwatchGroupValue && swatchGroup != SwatchGroupRefill
}
