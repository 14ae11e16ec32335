package mapper

import "strings"

// Confidence levels for containment-style matches.
const (
	exactScore    = 1.0
	containsScore = 0.85
	prefixScore   = 0.75
)

// Similarity scores how close two normalized names are, in [0, 1]. The
// first applicable rule wins: equal, substring, prefix, then normalized
// edit distance. Two empty names score 0; an empty name is a substring of
// any other.
func Similarity(a, b string) float64 {
	if a == "" && b == "" {
		return 0
	}
	if a == b {
		return exactScore
	}
	if strings.Contains(a, b) || strings.Contains(b, a) {
		return containsScore
	}
	// A prefix is also a substring, so this rule never fires after the one
	// above.
	if strings.HasPrefix(a, b) || strings.HasPrefix(b, a) {
		return prefixScore
	}

	ra, rb := []rune(a), []rune(b)
	maxLen := max(len(ra), len(rb))
	return 1 - float64(levenshtein(ra, rb))/float64(maxLen)
}

// Levenshtein returns the unit-cost insert/delete/substitute edit distance
// between a and b, counted in runes.
func Levenshtein(a, b string) int {
	return levenshtein([]rune(a), []rune(b))
}

func levenshtein(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	// Two rows over the shorter string.
	if len(a) > len(b) {
		a, b = b, a
	}
	prev := make([]int, len(a)+1)
	curr := make([]int, len(a)+1)
	for i := range prev {
		prev[i] = i
	}

	for j := 1; j <= len(b); j++ {
		curr[0] = j
		for i := 1; i <= len(a); i++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[i] = min(
				prev[i]+1,      // deletion
				curr[i-1]+1,    // insertion
				prev[i-1]+cost, // substitution
			)
		}
		prev, curr = curr, prev
	}
	return prev[len(a)]
}
