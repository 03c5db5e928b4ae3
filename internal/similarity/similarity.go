// Package similarity grades free-text guesses against known titles.
package similarity

import (
	"golang.org/x/text/cases"
)

// Score returns the normalized Levenshtein similarity of a and b in [0,1].
// Both inputs are case-folded first. Two empty strings are identical.
func Score(a, b string) float64 {
	fold := cases.Fold()
	ra := []rune(fold.String(a))
	rb := []rune(fold.String(b))
	longest := max(len(ra), len(rb))
	if longest == 0 {
		return 1
	}
	return float64(longest-distance(ra, rb)) / float64(longest)
}

// Distance is the classic edit distance (insert, delete, substitute all cost 1).
func Distance(a, b string) int {
	return distance([]rune(a), []rune(b))
}

// distance keeps a single row sized to the shorter input.
func distance(a, b []rune) int {
	if len(a) < len(b) {
		a, b = b, a
	}
	if len(b) == 0 {
		return len(a)
	}

	row := make([]int, len(b)+1)
	for j := range row {
		row[j] = j
	}
	for i := 1; i <= len(a); i++ {
		diag := row[0]
		row[0] = i
		for j := 1; j <= len(b); j++ {
			up := row[j]
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			row[j] = min(row[j]+1, row[j-1]+1, diag+cost)
			diag = up
		}
	}
	return row[len(b)]
}
