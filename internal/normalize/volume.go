package normalize

import (
	"regexp"
	"strconv"
	"strings"

	"unitprice/pipeline/internal/domain"
)

var (
	// Up to two "amount unit" pairs followed by free text. Nothing forces a
	// space between the first unit and the second amount ("0.0176 oz0.5 g").
	dualVolumeRe = regexp.MustCompile(`^(?:(\d+(?:\.\d+)?)\s*([a-zA-Z]+))?\s*(?:(\d+(?:\.\d+)?)\s*([a-zA-Z]+))?\s*(.*)`)

	// One amount at the start, also without a leading digit (".5oz", ".5").
	singleVolumeRe = regexp.MustCompile(`^\s*(\d+(?:\.\d*)?|\.\d+)\s*(\w*)`)
)

// MatchKind tells which fields of a VolumeMatch are set.
type MatchKind int

const (
	MatchEmpty   MatchKind = iota // no input, nothing set
	MatchNone                     // no amount/unit pair, Trailing holds the input
	MatchSingle                   // Primary and Trailing set
	MatchDual                     // Primary, Secondary and Trailing set
)

func (k MatchKind) String() string {
	switch k {
	case MatchEmpty:
		return "empty"
	case MatchNone:
		return "none"
	case MatchSingle:
		return "single"
	case MatchDual:
		return "dual"
	default:
		return "unknown"
	}
}

// Quantity is an amount and unit exactly as written.
type Quantity struct {
	Amount string
	Unit   string
}

// Value parses the amount.
func (q Quantity) Value() (float64, bool) {
	if q.Amount == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(q.Amount, 64)
	if err != nil || v < 0 {
		return 0, false
	}
	return v, true
}

// VolumeMatch is the result of ParseVolume.
type VolumeMatch struct {
	Kind      MatchKind
	Primary   Quantity
	Secondary Quantity
	Trailing  string
}

// ParseVolume extracts "amount_a unit_a amount_b unit_b trailing text" from a
// cleaned size label. Units are not checked against any vocabulary here.
func ParseVolume(s string) VolumeMatch {
	if s == "" {
		return VolumeMatch{Kind: MatchEmpty}
	}

	idx := dualVolumeRe.FindStringSubmatchIndex(s)
	if idx == nil {
		return VolumeMatch{Kind: MatchNone, Trailing: s}
	}

	group := func(n int) (string, bool) {
		start, end := idx[2*n], idx[2*n+1]
		if start < 0 {
			return "", false
		}
		return s[start:end], true
	}

	var pairs []Quantity
	for _, n := range []int{1, 3} {
		amount, ok := group(n)
		if !ok {
			continue
		}
		unit, _ := group(n + 1)
		pairs = append(pairs, Quantity{Amount: amount, Unit: unit})
	}
	trailing, _ := group(5)

	switch len(pairs) {
	case 0:
		return VolumeMatch{Kind: MatchNone, Trailing: s}
	case 1:
		// A lone pair found after leading whitespace is still the first measurement.
		return VolumeMatch{Kind: MatchSingle, Primary: pairs[0], Trailing: trailing}
	default:
		return VolumeMatch{Kind: MatchDual, Primary: pairs[0], Secondary: pairs[1], Trailing: trailing}
	}
}

// ParseSingleVolume is the permissive fallback for labels that show one
// measurement system only. The unit may be empty.
func ParseSingleVolume(s string) (Quantity, bool) {
	q, _, ok := parseSingleVolumeRest(s)
	return q, ok
}

// parseSingleVolumeRest is ParseSingleVolume that also returns the text after the match.
func parseSingleVolumeRest(s string) (Quantity, string, bool) {
	idx := singleVolumeRe.FindStringSubmatchIndex(s)
	if idx == nil {
		return Quantity{}, s, false
	}
	return Quantity{Amount: s[idx[2]:idx[3]], Unit: s[idx[4]:idx[5]]}, s[idx[1]:], true
}

// SizeFields is a parsed size label before unit filtering.
type SizeFields struct {
	Strategy   domain.ParseStrategy
	Multiplier float64
	Primary    Quantity
	Secondary  Quantity
	Trailing   string
}

// ParseSize picks a parsing strategy for a canonical size label:
// a pack count prefix is split off first and only the text after it is
// measured, then the dual-measurement pattern runs, then the single-measurement
// fallback.
func ParseSize(cleaned string) SizeFields {
	fields := SizeFields{
		Strategy:   domain.StrategyUnmatched,
		Multiplier: 1.0,
	}

	body := cleaned
	prefixed := false
	if multiplier, remainder, ok := SplitMultiplier(cleaned); ok {
		fields.Multiplier = CoerceMultiplier(multiplier)
		body = strings.TrimSpace(remainder)
		prefixed = true
	}

	match := ParseVolume(body)
	switch match.Kind {
	case MatchDual:
		fields.Strategy = domain.StrategyDualMeasurement
		fields.Primary = match.Primary
		fields.Secondary = match.Secondary
		fields.Trailing = match.Trailing
	case MatchSingle:
		fields.Strategy = domain.StrategySingleMeasurement
		fields.Primary = match.Primary
		fields.Trailing = match.Trailing
	default:
		fields.Trailing = match.Trailing
		if q, rest, ok := parseSingleVolumeRest(body); ok {
			fields.Strategy = domain.StrategySingleMeasurement
			fields.Primary = q
			fields.Trailing = rest
		}
	}

	if prefixed && fields.Strategy != domain.StrategyUnmatched {
		fields.Strategy = domain.StrategyMultiplierPrefixed
	}
	fields.Trailing = strings.TrimSpace(fields.Trailing)
	return fields
}
