package normalize

import (
	"regexp"
	"strings"
)

var (
	// Marketing and stock status words that scrapers pick up next to the size label.
	noiseWordsRe = regexp.MustCompile(`\b(?:out of stock|limited edition|only a few left|new|sale|size|refill|color|mini)\b`)
	whitespaceRe = regexp.MustCompile(`\s+`)

	noisePunctuation = strings.NewReplacer(
		":", "",
		"-", "",
		" oz.", " oz",
		"/", " ",
	)

	unitSpellings = strings.NewReplacer(
		"fl oz", "floz",
		"fl. oz", "floz",
	)
)

// StripNoise removes marketing words and separators from a lowercased size
// label and collapses the whitespace left behind.
func StripNoise(raw string) string {
	s := noiseWordsRe.ReplaceAllString(raw, "")
	s = noisePunctuation.Replace(s)
	return whitespaceRe.ReplaceAllString(s, " ")
}

// PreClean rewrites a size label into the form the volume parser expects.
// It returns false when there is no size text at all.
//
// Interior whitespace is left alone: "1.0 oz    30 ml  " becomes "1.0 oz    30 ml".
// A dot after a space gets a leading zero and absorbs the space, so
// "4 x .25 oz" becomes "4 x0.25 oz".
func PreClean(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", false
	}

	if s[0] == '.' {
		s = "0" + s
	}
	s = strings.ReplaceAll(s, " .", "0.")
	s = unitSpellings.Replace(s)
	s = strings.ReplaceAll(s, "oz.", "oz")
	return s, true
}

// CanonicalSize applies StripNoise then PreClean.
func CanonicalSize(raw string) (string, bool) {
	return PreClean(StripNoise(raw))
}
