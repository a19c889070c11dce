package normalize

import (
	"math"
	"strconv"
	"testing"

	"unitprice/pipeline/internal/domain"
)

func TestParseVolume(t *testing.T) {
	tests := []struct {
		in                                 string
		kind                               MatchKind
		amountA, unitA, amountB, unitB, tr string
	}{
		{"helo", MatchNone, "", "", "", "", "helo"},
		{"1.0 oz 30 ml", MatchDual, "1.0", "oz", "30", "ml", ""},
		{"1.0 oz     30 ml", MatchDual, "1.0", "oz", "30", "ml", ""},
		{"1 oz  30 ml", MatchDual, "1", "oz", "30", "ml", ""},
		{"1.0 oz 30.0 ml", MatchDual, "1.0", "oz", "30.0", "ml", ""},
		{"0.5oz  15ml", MatchDual, "0.5", "oz", "15", "ml", ""},
		{"0.5 oz  15 ml", MatchDual, "0.5", "oz", "15", "ml", ""},
		{"0.5 oz  0.5 ml", MatchDual, "0.5", "oz", "0.5", "ml", ""},
		{"1 floz 30ml", MatchDual, "1", "floz", "30", "ml", ""},
		{"1 floz 30ml trailing text", MatchDual, "1", "floz", "30", "ml", "trailing text"},
		{"not proper pattern", MatchNone, "", "", "", "", "not proper pattern"},
		{"not proper pattern but fivewords", MatchNone, "", "", "", "", "not proper pattern but fivewords"},
		{"10 dollars 9.0 rupis", MatchDual, "10", "dollars", "9.0", "rupis", ""},
		{"1.0 floz 30 mg", MatchDual, "1.0", "floz", "30", "mg", ""},
		{"1.0 oz 30 kg", MatchDual, "1.0", "oz", "30", "kg", ""},
		{"1.0 floz 30 l", MatchDual, "1.0", "floz", "30", "l", ""},
		{"0.0176 oz0.5 g", MatchDual, "0.0176", "oz", "0.5", "g", ""},
		{"1.7 oz", MatchSingle, "1.7", "oz", "", "", ""},
		{"1.7 oz eau de parfum spray", MatchSingle, "1.7", "oz", "", "", "eau de parfum spray"},
	}

	for _, tt := range tests {
		got := ParseVolume(tt.in)
		if got.Kind != tt.kind {
			t.Errorf("ParseVolume(%q): want kind %s, got %s", tt.in, tt.kind, got.Kind)
			continue
		}
		if got.Primary.Amount != tt.amountA || got.Primary.Unit != tt.unitA ||
			got.Secondary.Amount != tt.amountB || got.Secondary.Unit != tt.unitB ||
			got.Trailing != tt.tr {
			t.Errorf("ParseVolume(%q): want (%q %q %q %q %q), got (%q %q %q %q %q)", tt.in,
				tt.amountA, tt.unitA, tt.amountB, tt.unitB, tt.tr,
				got.Primary.Amount, got.Primary.Unit, got.Secondary.Amount, got.Secondary.Unit, got.Trailing)
		}
	}
}

func TestParseVolumeEmpty(t *testing.T) {
	got := ParseVolume("")
	if got.Kind != MatchEmpty || got.Trailing != "" {
		t.Fatalf("want empty match, got %+v", got)
	}
}

func TestParseVolumeRoundTrip(t *testing.T) {
	units := []string{"oz", "floz", "ml", "g", "mg", "l", "kg"}
	amounts := []float64{0.25, 1, 1.7, 3.4, 30, 125.5}

	for _, u := range units {
		for _, a := range amounts {
			amount := strconv.FormatFloat(a, 'f', -1, 64)
			got := ParseVolume(amount + " " + u)
			if got.Kind != MatchSingle || got.Primary.Amount != amount || got.Primary.Unit != u || got.Trailing != "" {
				t.Errorf("round trip %s %s: got %+v", amount, u, got)
			}
		}
	}
}

func TestParseSingleVolume(t *testing.T) {
	tests := []struct {
		in     string
		ok     bool
		amount string
		unit   string
	}{
		{".5oz", true, ".5", "oz"},
		{".5", true, ".5", ""},
		{"  5 oz", true, "5", "oz"},
		{"5.oz", true, "5.", "oz"},
		{"oz", false, "", ""},
		{"", false, "", ""},
	}

	for _, tt := range tests {
		q, ok := ParseSingleVolume(tt.in)
		if ok != tt.ok {
			t.Errorf("ParseSingleVolume(%q): want ok=%v, got %v", tt.in, tt.ok, ok)
			continue
		}
		if q.Amount != tt.amount || q.Unit != tt.unit {
			t.Errorf("ParseSingleVolume(%q): want (%q, %q), got (%q, %q)", tt.in, tt.amount, tt.unit, q.Amount, q.Unit)
		}
	}
}

func TestPreClean(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"helo", "helo", true},
		{"1.0 oz 30 ml", "1.0 oz 30 ml", true},
		{"1 x 1 oz 30 ml", "1 x 1 oz 30 ml", true},
		{"4 x .25 oz 30 ml", "4 x0.25 oz 30 ml", true},
		{"      1.0 oz 30 ml", "1.0 oz 30 ml", true},
		{"1.0 oz 30 ml      ", "1.0 oz 30 ml", true},
		{"1.0 oz    30 ml      ", "1.0 oz    30 ml", true},
		{"1 oz  30 ml", "1 oz  30 ml", true},
		{"1.0 oz 30.0 ml", "1.0 oz 30.0 ml", true},
		{".5oz  15ml", "0.5oz  15ml", true},
		{".5 oz 15 ml", "0.5 oz 15 ml", true},
		{" .5 oz 15 ml", "0.5 oz 15 ml", true},
		{".5 oz  .5 ml", "0.5 oz 0.5 ml", true},
		{"1 oz. 30ml", "1 oz 30ml", true},
		{"1 fl oz 30ml", "1 floz 30ml", true},
		{"1 fl. oz 30ml", "1 floz 30ml", true},
		{"    ", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		got, ok := PreClean(tt.in)
		if ok != tt.ok || got != tt.want {
			t.Errorf("PreClean(%q): want (%q, %v), got (%q, %v)", tt.in, tt.want, tt.ok, got, ok)
		}
	}
}

func TestPreCleanIdempotent(t *testing.T) {
	inputs := []string{
		"1.0 oz 30 ml",
		"0.5oz  15ml",
		"4 x0.25 oz 30 ml",
		"1 floz 30ml",
		"1.7 oz eau de parfum",
	}
	for _, in := range inputs {
		once, _ := PreClean(in)
		twice, _ := PreClean(once)
		if once != twice {
			t.Errorf("PreClean not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}

func TestStripNoise(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"mini size 0.17 oz/ 5 ml", " 0.17 oz 5 ml"},
		{"limited edition 1.7 oz / 50 ml", " 1.7 oz 50 ml"},
		{"out of stock: 3.4 oz", " 3.4 oz"},
		{"color - 0.05 oz", " 0.05 oz"},
		{"minimalist 1 oz", "minimalist 1 oz"},
		{"1 oz. 30 ml", "1 oz 30 ml"},
	}
	for _, tt := range tests {
		if got := StripNoise(tt.in); got != tt.want {
			t.Errorf("StripNoise(%q): want %q, got %q", tt.in, tt.want, got)
		}
	}
}

func TestCanonicalSize(t *testing.T) {
	got, ok := CanonicalSize("mini size .5 fl oz / 15 ml")
	if !ok || got != "0.5 floz 15 ml" {
		t.Fatalf("want %q, got (%q, %v)", "0.5 floz 15 ml", got, ok)
	}
	if _, ok := CanonicalSize("new"); ok {
		t.Fatal("want no size for noise-only label")
	}
}

func TestSplitMultiplier(t *testing.T) {
	tests := []struct {
		in         string
		multiplier string
		remainder  string
		ok         bool
	}{
		{"1 x 1 oz 30 ml", "1", " 1 oz 30 ml", true},
		{"4 x .25 oz 30 ml", "4", " .25 oz 30 ml", true},
		{"4 x.25 oz 30 ml", "4", ".25 oz 30 ml", true},
		{"4 x 0.25 ml", "4", " 0.25 ml", true},
		{"4 x 0.25 oz 30 ml", "4", " 0.25 oz 30 ml", true},
		{"1 x2ml", "1", "2ml", true},
		{"10 ml", "", "10 ml", false},
		{"", "", "", false},
	}

	for _, tt := range tests {
		m, r, ok := SplitMultiplier(tt.in)
		if m != tt.multiplier || r != tt.remainder || ok != tt.ok {
			t.Errorf("SplitMultiplier(%q): want (%q, %q, %v), got (%q, %q, %v)", tt.in, tt.multiplier, tt.remainder, tt.ok, m, r, ok)
		}
	}
}

func TestSplitMultiplierRecoversInput(t *testing.T) {
	inputs := []string{"4 x 0.25 oz 30 ml", "2 x1 oz", "a x b", "12 x 0.03 oz 1 ml travel"}
	for _, in := range inputs {
		m, r, ok := SplitMultiplier(in)
		if !ok {
			t.Fatalf("want split for %q", in)
		}
		if got := m + " x" + r; got != in {
			t.Errorf("want %q reconstructed, got %q", in, got)
		}
	}
}

func TestCoerceMultiplier(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"4", 4},
		{" 2 ", 2},
		{"1.5", 1.5},
		{"", 1},
		{"pack of", 1},
		{"0", 0},
		{"-3", 1},
		{"2 pack", 1},
	}
	for _, tt := range tests {
		if got := CoerceMultiplier(tt.in); got != tt.want {
			t.Errorf("CoerceMultiplier(%q): want %v, got %v", tt.in, tt.want, got)
		}
	}
}

func TestParseShorthandCount(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"10K", 10000, true},
		{"1K", 1000, true},
		{"2.4K", 2400, true},
		{"9.9K", 9900, true},
		{"999", 999, true},
		{"0.00", 0, true},
		{"10M", 10000000, true},
		{"1.2M", 1200000, true},
		{"", 0, false},
		{"K", 0, false},
		{"M", 0, false},
		{"Unknown Loves Count", 0, false},
	}

	for _, tt := range tests {
		got, ok := ParseShorthandCount(tt.in)
		if ok != tt.ok || got != tt.want {
			t.Errorf("ParseShorthandCount(%q): want (%v, %v), got (%v, %v)", tt.in, tt.want, tt.ok, got, ok)
		}
	}
}

func TestParseShorthandCountMonotonic(t *testing.T) {
	for _, suffix := range []string{"", "K", "M"} {
		prev := math.Inf(-1)
		for _, n := range []string{"0.1", "0.9", "1", "1.05", "2.4", "9.9", "10", "999.5"} {
			got, ok := ParseShorthandCount(n + suffix)
			if !ok {
				t.Fatalf("want %s%s to parse", n, suffix)
			}
			if got <= prev {
				t.Errorf("want %s%s > previous %v, got %v", n, suffix, prev, got)
			}
			prev = got
		}
	}
}

func TestParseRatingFromStyleWidth(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"width:100.00%", 5, true},
		{"width:80.00%", 4, true},
		{"width:20.00%", 1, true},
		{"width:0.00%", 0, true},
		{"width:120.00%", 6, true},
		{"", 0, false},
		{"width:%", 0, false},
	}

	for _, tt := range tests {
		got, ok := ParseRatingFromStyleWidth(tt.in)
		if ok != tt.ok || got != tt.want {
			t.Errorf("ParseRatingFromStyleWidth(%q): want (%v, %v), got (%v, %v)", tt.in, tt.want, tt.ok, got, ok)
		}
	}
	if !RatingOutOfRange(6) || RatingOutOfRange(4) {
		t.Error("RatingOutOfRange: want only 6 flagged")
	}
}

func TestSplitSaleAndFullPrice(t *testing.T) {
	tests := []struct {
		in         []string
		sale, full string
	}{
		{[]string{"$100.00"}, "$100.00", "$100.00"},
		{[]string{"$45.00", "$60.00"}, "$45.00", "$60.00"},
		{nil, "", ""},
		{[]string{""}, "", ""},
	}
	for _, tt := range tests {
		sale, full := SplitSaleAndFullPrice(tt.in)
		if sale != tt.sale || full != tt.full {
			t.Errorf("SplitSaleAndFullPrice(%v): want (%q, %q), got (%q, %q)", tt.in, tt.sale, tt.full, sale, full)
		}
	}
}

func TestParsePrice(t *testing.T) {
	if got, ok := ParsePrice("$1,045.50"); !ok || got != 1045.5 {
		t.Fatalf("want 1045.5, got (%v, %v)", got, ok)
	}
	if _, ok := ParsePrice(""); ok {
		t.Fatal("want empty price rejected")
	}
	if _, ok := ParsePrice("free"); ok {
		t.Fatal("want non-numeric price rejected")
	}
}

func TestStripNonNumeric(t *testing.T) {
	if got, ok := StripNonNumeric("Item 2345678"); !ok || got != "2345678" {
		t.Fatalf("want 2345678, got (%q, %v)", got, ok)
	}
	if _, ok := StripNonNumeric("No SKU Found"); ok {
		t.Fatal("want no digits rejected")
	}
}

func TestCleanDetail(t *testing.T) {
	if got, ok := CleanDetail(domain.TextOrList{"Size 1.7 Oz/ 50 mL", "ignored"}); !ok || got != "size 1.7 oz/ 50 ml" {
		t.Fatalf("got (%q, %v)", got, ok)
	}
	if got, _ := CleanDetail(domain.TextOrList{"1\u00a0oz"}); got != "1 oz" {
		t.Fatalf("want non-breaking space folded, got %q", got)
	}
	if _, ok := CleanDetail(nil); ok {
		t.Fatal("want empty detail rejected")
	}
}

func TestParseSize(t *testing.T) {
	tests := []struct {
		in         string
		strategy   domain.ParseStrategy
		multiplier float64
		primary    Quantity
		secondary  Quantity
	}{
		{"1.7 oz 50 ml", domain.StrategyDualMeasurement, 1, Quantity{"1.7", "oz"}, Quantity{"50", "ml"}},
		{"4 x0.25 oz 30 ml", domain.StrategyMultiplierPrefixed, 4, Quantity{"0.25", "oz"}, Quantity{"30", "ml"}},
		{"4 x 0.25 oz 7.5 ml", domain.StrategyMultiplierPrefixed, 4, Quantity{"0.25", "oz"}, Quantity{"7.5", "ml"}},
		{"2 x 1 oz", domain.StrategyMultiplierPrefixed, 2, Quantity{"1", "oz"}, Quantity{}},
		{"3.4 oz", domain.StrategySingleMeasurement, 1, Quantity{"3.4", "oz"}, Quantity{}},
		{"5.oz", domain.StrategySingleMeasurement, 1, Quantity{"5.", "oz"}, Quantity{}},
		{"travel x 1 oz", domain.StrategyMultiplierPrefixed, 1, Quantity{"1", "oz"}, Quantity{}},
		{"2 pack x 1 oz 30 ml", domain.StrategyMultiplierPrefixed, 1, Quantity{"1", "oz"}, Quantity{"30", "ml"}},
		{"set x 0.25 oz 7 ml", domain.StrategyMultiplierPrefixed, 1, Quantity{"0.25", "oz"}, Quantity{"7", "ml"}},
		{"0 x 1 oz 30 ml", domain.StrategyMultiplierPrefixed, 0, Quantity{"1", "oz"}, Quantity{"30", "ml"}},
		{"gift x", domain.StrategyUnmatched, 1, Quantity{}, Quantity{}},
		{"no size here", domain.StrategyUnmatched, 1, Quantity{}, Quantity{}},
	}

	for _, tt := range tests {
		got := ParseSize(tt.in)
		if got.Strategy != tt.strategy || got.Multiplier != tt.multiplier ||
			got.Primary != tt.primary || got.Secondary != tt.secondary {
			t.Errorf("ParseSize(%q): got %+v", tt.in, got)
		}
	}
}

func TestParseSize_Trailing(t *testing.T) {
	tests := []struct {
		in       string
		trailing string
	}{
		{"1.7 oz 50 ml travel", "travel"},
		{".5oz travel size", "travel size"},
		{"12 pcs", ""},
		{"no size here", "no size here"},
	}
	for _, tt := range tests {
		if got := ParseSize(tt.in).Trailing; got != tt.trailing {
			t.Errorf("ParseSize(%q): want trailing %q, got %q", tt.in, tt.trailing, got)
		}
	}
}

func TestFilterUnits_NonNumericAndZeroMultiplier(t *testing.T) {
	tests := []struct {
		in         string
		multiplier float64
		amountA    float64
		amountB    float64
	}{
		{"2 pack x 1 oz 30 ml", 1, 1, 30},
		{"set x 0.25 oz 7 ml", 1, 0.25, 7},
		{"0 x 1 oz 30 ml", 0, 1, 30},
	}
	for _, tt := range tests {
		size, reason := FilterUnits(ParseSize(tt.in))
		if reason != DropNone {
			t.Fatalf("FilterUnits(%q): want row kept, got %q", tt.in, reason)
		}
		if size.Multiplier != tt.multiplier || *size.AmountA != tt.amountA || size.AmountB == nil || *size.AmountB != tt.amountB {
			t.Fatalf("FilterUnits(%q): want %v x %v/%v, got %+v", tt.in, tt.multiplier, tt.amountA, tt.amountB, size)
		}
	}

	size, _ := FilterUnits(ParseSize("0 x 1 oz 30 ml"))
	if got := UnitPrice(20, size.AdjustedAmount()); got != nil {
		t.Fatalf("want nil unit price for a zero pack count, got %v", *got)
	}
}

func TestFilterUnits(t *testing.T) {
	tests := []struct {
		in     string
		reason DropReason
		unitA  domain.PrimaryUnit
		unitB  domain.SecondaryUnit
	}{
		{"1.7 oz 50 ml", DropNone, domain.PrimaryUnitOz, domain.SecondaryUnitMilliliter},
		{"1 floz 30 ml", DropNone, domain.PrimaryUnitFlOz, domain.SecondaryUnitMilliliter},
		{"1 fl 30 ml", DropNone, domain.PrimaryUnitFlOz, domain.SecondaryUnitMilliliter},
		{"0.5 oz", DropNone, domain.PrimaryUnitOz, ""},
		{"30 ml 1 oz", DropUnsupportedPrimary, "", ""},
		{"1 oz 3 cups", DropUnsupportedSecond, "", ""},
		{"no size", DropNoAmount, "", ""},
	}

	for _, tt := range tests {
		size, reason := FilterUnits(ParseSize(tt.in))
		if reason != tt.reason {
			t.Errorf("FilterUnits(%q): want reason %q, got %q", tt.in, tt.reason, reason)
			continue
		}
		if reason != DropNone {
			continue
		}
		if size.UnitA != tt.unitA || size.UnitB != tt.unitB {
			t.Errorf("FilterUnits(%q): want units %q/%q, got %q/%q", tt.in, tt.unitA, tt.unitB, size.UnitA, size.UnitB)
		}
	}
}

func TestUnitPrice(t *testing.T) {
	if got := UnitPrice(50, 2); got == nil || *got != 25 {
		t.Fatalf("want 25, got %v", got)
	}
	if got := UnitPrice(50, 0); got != nil {
		t.Fatalf("want nil for zero amount, got %v", *got)
	}
}
