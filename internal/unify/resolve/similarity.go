package resolve

import "strings"

// Similarity returns a trigram similarity score in [0,1] between two
// normalized names, matching pg_trgm semantics: strings are padded, split
// into three-character grams, and scored as shared grams over the union.
// 1.0 means identical trigram sets; 0.0 means no overlap. The score is
// monotone in trigram overlap, which is the only property callers may rely
// on — thresholds are configured, not derived from the algorithm.
func Similarity(a, b string) float64 {
	if a == b {
		if a == "" {
			return 0
		}
		return 1
	}

	ta := trigrams(a)
	tb := trigrams(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}

	shared := 0
	for g := range ta {
		if tb[g] {
			shared++
		}
	}

	union := len(ta) + len(tb) - shared
	return float64(shared) / float64(union)
}

// trigrams returns the set of three-character grams of s, padded with two
// leading and one trailing space the way pg_trgm pads.
func trigrams(s string) map[string]bool {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return nil
	}

	grams := make(map[string]bool)
	for _, word := range strings.Fields(s) {
		padded := "  " + word + " "
		runes := []rune(padded)
		for i := 0; i+3 <= len(runes); i++ {
			grams[string(runes[i:i+3])] = true
		}
	}
	return grams
}
