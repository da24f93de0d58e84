// Package resolve implements the tiered match engine that links source
// records and internal duplicates to canonical employers.
package resolve

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// legalSuffixes lists common legal entity suffixes to strip during aggressive
// name normalization.
var legalSuffixes = []string{
	" LLC", " L.L.C.", " L.L.C",
	" INC", " INC.", " INCORPORATED",
	" CORP", " CORP.", " CORPORATION",
	" LTD", " LTD.", " LIMITED",
	" LP", " L.P.", " L.P",
	" LLP", " L.L.P.", " L.L.P",
	" PC", " P.C.", " P.C",
	" PA", " P.A.", " P.A",
	" CO", " CO.",
	" PLC", " P.L.C.",
	" NA", " N.A.", " N.A",
	" DBA", " D/B/A",
	" PLLC",
}

// streetAbbrevs maps spelled-out street designators to their USPS forms so
// "123 MAIN STREET" and "123 MAIN ST" compare equal.
var streetAbbrevs = map[string]string{
	"STREET":    "ST",
	"AVENUE":    "AVE",
	"BOULEVARD": "BLVD",
	"DRIVE":     "DR",
	"ROAD":      "RD",
	"LANE":      "LN",
	"COURT":     "CT",
	"PLACE":     "PL",
	"PARKWAY":   "PKWY",
	"HIGHWAY":   "HWY",
	"SUITE":     "STE",
	"NORTH":     "N",
	"SOUTH":     "S",
	"EAST":      "E",
	"WEST":      "W",
}

var multiSpaceRe = regexp.MustCompile(`\s{2,}`)

// NormalizeName standardizes an employer name for exact matching:
// trim, uppercase, strip punctuation, collapse spaces. Legal suffixes are
// retained; see AggressiveNormalizeName for the suffix-stripped form.
func NormalizeName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}

	name = strings.ToUpper(name)
	name = strings.NewReplacer(
		",", "",
		".", "",
		"'", "",
		"\"", "",
		"&", "AND",
		"-", " ",
	).Replace(name)

	name = multiSpaceRe.ReplaceAllString(name, " ")
	return strings.TrimSpace(name)
}

// AggressiveNormalizeName applies NormalizeName semantics and additionally
// removes common legal suffixes (LLC, Inc, Corp, ...) so "ACME INC" and
// "Acme Incorporated" compare equal. Suffix stripping happens before
// punctuation removal so dotted forms like "L.L.C." are recognized.
func AggressiveNormalizeName(name string) string {
	name = strings.ToUpper(strings.TrimSpace(name))
	if name == "" {
		return ""
	}

	for _, suffix := range legalSuffixes {
		if strings.HasSuffix(name, suffix) {
			name = strings.TrimSuffix(name, suffix)
			break
		}
	}

	return NormalizeName(name)
}

// NormalizeStreet standardizes a street line for address matching:
// uppercase, punctuation stripped, USPS designator abbreviations applied.
func NormalizeStreet(street string) string {
	street = NormalizeName(street)
	if street == "" {
		return ""
	}

	words := strings.Fields(street)
	for i, w := range words {
		if abbrev, ok := streetAbbrevs[w]; ok {
			words[i] = abbrev
		}
	}
	return strings.Join(words, " ")
}

// Zip5 returns the five-digit prefix of a ZIP or ZIP+4 code.
func Zip5(zip string) string {
	zip = strings.TrimSpace(zip)
	if len(zip) > 5 {
		return zip[:5]
	}
	return zip
}

// CityMatch reports whether two city names plausibly refer to the same place.
// City spelling varies across sources, so strict equality is wrong: the check
// accepts abbreviation containment ("ST LOUIS" vs "SAINT LOUIS" normalizes,
// "INDPLS" vs "INDIANAPOLIS" contains) and a bounded edit distance for typos.
// An empty city on either side is treated as unknown and does not block a
// match.
func CityMatch(a, b string) bool {
	a = normalizeCity(a)
	b = normalizeCity(b)
	if a == "" || b == "" {
		return true
	}
	if a == b {
		return true
	}

	// Abbreviation containment: every character of the shorter appears in
	// order in the longer (e.g. "INDPLS" within "INDIANAPOLIS").
	short, long := a, b
	if len(short) > len(long) {
		short, long = long, short
	}
	if len(short) >= 3 && subsequence(short, long) {
		return true
	}

	// Typo tolerance scales with length: one edit under six runes, two above.
	maxDist := 1
	if utf8.RuneCountInString(long) >= 6 {
		maxDist = 2
	}
	return editDistance(a, b) <= maxDist
}

var cityAbbrevs = map[string]string{
	"SAINT": "ST",
	"FORT":  "FT",
	"MOUNT": "MT",
	"NORTH": "N",
	"SOUTH": "S",
	"EAST":  "E",
	"WEST":  "W",
}

func normalizeCity(city string) string {
	city = NormalizeName(city)
	if city == "" {
		return ""
	}
	words := strings.Fields(city)
	for i, w := range words {
		if abbrev, ok := cityAbbrevs[w]; ok {
			words[i] = abbrev
		}
	}
	return strings.Join(words, " ")
}

// subsequence reports whether every rune of short appears in order in long.
func subsequence(short, long string) bool {
	si := []rune(short)
	i := 0
	for _, r := range long {
		if i < len(si) && r == si[i] {
			i++
		}
	}
	return i == len(si)
}

// editDistance computes the Levenshtein distance between two strings.
func editDistance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	cur := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		cur[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j]+1, min(cur[j-1]+1, prev[j-1]+cost))
		}
		prev, cur = cur, prev
	}
	return prev[len(rb)]
}
