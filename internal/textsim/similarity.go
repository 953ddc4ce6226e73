package textsim

import (
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"
)

// DuplicateThreshold is the Similarity at or above which two texts are
// considered the same item.
const DuplicateThreshold = 0.85

// Similarity returns the bigram Dice coefficient of a and b in [0,1].
// Whitespace is ignored. Identical non-empty strings score 1, empty input
// scores 0.
func Similarity(a, b string) float64 {
	ra := stripSpace(a)
	rb := stripSpace(b)
	if len(ra) == 0 || len(rb) == 0 {
		return 0
	}
	if string(ra) == string(rb) {
		return 1
	}
	if len(ra) < 2 || len(rb) < 2 {
		return 0
	}

	counts := make(map[[2]rune]int, len(ra)-1)
	for i := 0; i < len(ra)-1; i++ {
		counts[[2]rune{ra[i], ra[i+1]}]++
	}
	shared := 0
	for i := 0; i < len(rb)-1; i++ {
		bg := [2]rune{rb[i], rb[i+1]}
		if counts[bg] > 0 {
			counts[bg]--
			shared++
		}
	}
	return 2 * float64(shared) / float64(len(ra)-1+len(rb)-1)
}

// IsDuplicate normalizes both texts and compares them against the duplicate
// threshold. Text that normalizes to empty never matches anything.
func IsDuplicate(a, b string) bool {
	na := Normalize(a)
	nb := Normalize(b)
	if na == "" || nb == "" {
		return false
	}
	return Similarity(na, nb) >= DuplicateThreshold
}

// Distance returns the edit distance between a and b divided by the longer
// rune length: 0 for equal strings, 1 for nothing in common.
func Distance(a, b string) float64 {
	la := len([]rune(a))
	lb := len([]rune(b))
	longest := la
	if lb > longest {
		longest = lb
	}
	if longest == 0 {
		return 0
	}
	return float64(levenshtein.ComputeDistance(a, b)) / float64(longest)
}

func stripSpace(s string) []rune {
	return []rune(strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s))
}
